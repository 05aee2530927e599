package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/youruser/bannerapp/internal/api"
	"github.com/youruser/bannerapp/internal/config"
	"github.com/youruser/bannerapp/internal/session"
	"github.com/youruser/bannerapp/internal/validate"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the banner HTTP API",
		Long: `Starts the HTTP API used by the banner page. Each browser gets its own
session (template, visuals, selected size) held in memory until it has been
idle for session_ttl.`,
		Example: `  # default port 8080
  bannerapp serve

  # custom address and settings
  bannerapp serve --listen 127.0.0.1:3000 --config banner.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := config.Load(flags.config)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			if !flags.verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			store := session.NewStore(session.Options{
				Validator: validate.New(cfg.ValidationMode()),
				Naming:    cfg.NamingMode(),
				Logger:    logger,
			}, cfg.SessionTTL.Duration)
			handler := api.NewHandler(store, cfg.MaxUploadBytes(), logger)

			server := &http.Server{
				Addr:              cfg.Listen,
				Handler:           api.NewRouter(handler, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go sweepSessions(ctx, store, cfg.SessionTTL.Duration/4)

			serverErr := make(chan error, 1)
			go func() {
				logger.Info("banner API listening", "addr", cfg.Listen,
					"validation", cfg.Validation, "naming", cfg.Naming)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("shutdown failed", "err", err)
					return err
				}
				logger.Info("server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "address to listen on (overrides config and PORT)")
	return cmd
}

// sweepSessions drops idle sessions every interval until ctx is done.
func sweepSessions(ctx context.Context, store *session.Store, interval time.Duration) {
	if interval < time.Minute {
		interval = time.Minute
	}
	logger := loggerFromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Cleanup(); n > 0 {
				logger.Debug("expired sessions removed", "count", n, "remaining", store.Len())
			}
		}
	}
}
