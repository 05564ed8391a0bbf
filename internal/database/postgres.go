package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Params are the connection settings for NewPool.
type Params struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func (p Params) connString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.Name)
}

// NewPool opens and pings a Postgres pool.
func NewPool(ctx context.Context, params Params, logger *logrus.Logger) (*pgxpool.Pool, error) {
	if params.Host == "" || params.Port == "" || params.User == "" || params.Name == "" {
		return nil, fmt.Errorf("missing required database configuration")
	}

	config, err := pgxpool.ParseConfig(params.connString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.HealthCheckPeriod = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if logger != nil {
		logger.Info("Connection to database successful!")
	}
	return pool, nil
}
