package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"netbons/internal/blobstore"
	"netbons/internal/config"
	"netbons/internal/database"
	"netbons/internal/kvstore"
	"netbons/internal/logger"
	"netbons/internal/repository"
	"netbons/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// PlaybackMode selects how uploaded media is handed to a player.
type PlaybackMode int

const (
	// PlaybackTokens serves blobs through /media/<token> on the HTTP API.
	PlaybackTokens PlaybackMode = iota
	// PlaybackTempFiles copies blobs to temporary files, for the CLI.
	PlaybackTempFiles
)

type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	DB     *pgxpool.Pool
	Redis  *redis.Client

	KV       *kvstore.Store
	Blobs    blobstore.Store
	Tokens   *blobstore.TokenRegistry
	Resolver blobstore.Resolver

	Assistant *services.Assistant
	Sessions  *services.SessionService
	Catalog   *services.CatalogService
	Uploads   *services.UploadService
	Player    *services.Player
}

// New wires every component from cfg, restores the persisted session and
// hydrates the catalog.
func New(ctx context.Context, cfg *config.Config, mode PlaybackMode) (*Container, error) {
	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	c := &Container{Config: cfg, Logger: logger.Get()}

	if err := c.initStorage(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initServices(mode); err != nil {
		c.Close()
		return nil, err
	}

	c.Sessions.OnLogout(func(ctx context.Context) { c.Catalog.Hydrate(ctx) })
	c.Sessions.OnLogout(c.Player.ReleaseAll)

	snap := c.Sessions.Restore(ctx)
	movies := c.Catalog.Hydrate(ctx)

	c.Logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"kv_backend":  cfg.KVBackend,
		"blob":        cfg.BlobBackend,
		"assistant":   cfg.AIAPIKey != "",
		"state":       snap.State.String(),
		"entries":     len(movies),
	}).Info("Container ready")
	return c, nil
}

func (c *Container) initStorage(ctx context.Context) error {
	cfg := c.Config

	var backend kvstore.Backend
	switch cfg.KVBackend {
	case "memory":
		backend = kvstore.NewMemoryBackend()
	case "redis":
		host, port, password := cfg.RedisConfig()
		client, err := kvstore.NewRedisClient(ctx, host, port, password, cfg.RedisDB, c.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		c.Redis = client
		backend = kvstore.NewRedisBackend(client, cfg.RedisPrefix)
	default:
		fb, err := kvstore.NewFileBackend(filepath.Join(cfg.DataDir, "kv"))
		if err != nil {
			return fmt.Errorf("failed to initialize kv store: %w", err)
		}
		backend = fb
	}
	c.KV = kvstore.New(backend, c.Logger, kvstore.WithQuota(cfg.KVQuotaBytes))

	switch cfg.BlobBackend {
	case "postgres":
		host, port, user, password, name := cfg.DatabaseConfig()
		pool, err := database.NewPool(ctx, database.Params{
			Host:     host,
			Port:     port,
			User:     user,
			Password: password,
			Name:     name,
		}, c.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = pool

		store, err := blobstore.NewPostgresStore(ctx, pool)
		if err != nil {
			return fmt.Errorf("failed to initialize blob store: %w", err)
		}
		c.Blobs = store
	default:
		path := cfg.BlobPath
		if path == "" {
			path = filepath.Join(cfg.DataDir, "videos.db")
		}
		store, err := blobstore.OpenSQLite(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to initialize blob store: %w", err)
		}
		c.Blobs = store
	}
	return nil
}

func (c *Container) initServices(mode PlaybackMode) error {
	cfg := c.Config
	keys := cfg.Keys()

	var oracle services.MetadataOracle = services.OfflineOracle{}
	if cfg.AIAPIKey != "" {
		oracle = services.NewGeminiClientWithConfig(&services.GeminiConfig{
			BaseURL:    cfg.AIBaseURL,
			APIKey:     cfg.AIAPIKey,
			Model:      cfg.AIModel,
			Timeout:    cfg.AITimeout,
			RateLimit:  cfg.AIRateLimit,
			MaxRetries: cfg.AIMaxRetries,
			RetryDelay: cfg.AIRetryDelay,
			Logger:     c.Logger,
			Redis:      c.Redis,
		})
	} else {
		c.Logger.Info("No AI API key configured, metadata drafts use local defaults")
	}
	c.Assistant = services.NewAssistant(oracle, c.Logger)

	users := repository.NewUserRepository(c.KV, keys.RegisteredUsers)
	c.Sessions = services.NewSessionService(c.KV, users, keys, cfg.SessionTTL, c.Logger)

	catalog, err := services.NewCatalogService(c.KV, keys.Catalog, c.Logger)
	if err != nil {
		return err
	}
	c.Catalog = catalog

	switch mode {
	case PlaybackTempFiles:
		dir := filepath.Join(cfg.DataDir, "playback")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create playback dir: %w", err)
		}
		c.Resolver = blobstore.NewTempFileResolver(c.Blobs, dir, c.Logger)
	default:
		c.Tokens = blobstore.NewTokenRegistry(c.Blobs, cfg.PublicURL, cfg.PlaybackTTL, c.Logger)
		c.Resolver = c.Tokens
	}

	c.Uploads = services.NewUploadService(c.Sessions, c.Catalog, c.Blobs, c.Assistant, c.Logger)
	c.Player = services.NewPlayer(c.Catalog, c.Resolver, c.Logger)
	return nil
}

func (c *Container) Close() {
	// playback files outlive a CLI run and are removed on logout
	if c.Tokens != nil {
		c.Tokens.RevokeAll()
	}
	if c.Blobs != nil {
		if err := c.Blobs.Close(); err != nil {
			c.Logger.WithError(err).Warn("Failed to close blob store")
		}
	}
	if c.KV != nil {
		if err := c.KV.Close(); err != nil {
			c.Logger.WithError(err).Warn("Failed to close kv store")
		}
	}
	if c.Redis != nil {
		c.Redis.Close()
		c.Logger.Info("Redis connection closed")
	}
	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("Database connection closed")
	}
}
