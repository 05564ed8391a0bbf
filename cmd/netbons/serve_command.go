package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"netbons/internal/container"
	"netbons/internal/handlers"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and media endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return ctx.withContainer(runCtx, container.PlaybackTokens, func(app *container.Container) error {
				if app.Config.Environment == "production" {
					gin.SetMode(gin.ReleaseMode)
				}
				if port == "" {
					port = app.Config.Port
				}

				srv := &http.Server{
					Addr:              ":" + port,
					Handler:           handlers.NewRouter(app),
					ReadHeaderTimeout: 10 * time.Second,
				}

				errCh := make(chan error, 1)
				go func() {
					app.Logger.Infof("Server starting on port %s", port)
					errCh <- srv.ListenAndServe()
				}()

				select {
				case err := <-errCh:
					if errors.Is(err, http.ErrServerClosed) {
						return nil
					}
					return err
				case <-runCtx.Done():
				}

				app.Logger.Info("Shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (defaults to NETBONS_PORT)")
	return cmd
}
