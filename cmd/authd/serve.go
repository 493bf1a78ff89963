package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-bearer"
	"github.com/goliatone/go-auth-bearer/config"
	"github.com/goliatone/go-auth-bearer/provider/userapi"
	"github.com/goliatone/go-auth-bearer/repository"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(env envLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := env()
			if err != nil {
				return err
			}
			log := auth.NewLogrusLogger(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
			defer stop()

			db, identities, err := openIdentities(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			source, err := identitySource(cfg, identities)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			authenticator, err := auth.NewAuthenticator(&cfg.Auth, source,
				auth.WithLogger(log),
				auth.WithMetrics(auth.NewMetrics(reg)),
			)
			if err != nil {
				return err
			}

			app := newServer(serverDeps{
				Authenticator: authenticator,
				Identities:    identities,
				Gatherer:      reg,
				ContextKey:    cfg.Auth.ContextKey,
				APIKey:        cfg.Identity.APIKey,
				Logger:        log,
			})

			errCh := make(chan error, 1)
			go func() {
				logger.WithField("addr", cfg.HTTP.Addr).
					WithField("strategy", cfg.Auth.Strategy).
					Info("authd listening")
				errCh <- app.Listen(cfg.HTTP.Addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("authd shutting down")
			return app.ShutdownWithTimeout(shutdownTimeout)
		},
	}
}

func openIdentities(ctx context.Context, cfg *config.Config) (*bun.DB, *repository.Identities, error) {
	db, err := repository.Open(cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	identities := repository.NewIdentities(db)
	if err := identities.CreateSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, identities, nil
}

// identitySource returns the source the remote strategy consults: the
// identity API when configured, the local store otherwise.
func identitySource(cfg *config.Config, local auth.IdentitySource) (auth.IdentitySource, error) {
	if cfg.Identity.URL == "" {
		return local, nil
	}
	return userapi.New(userapi.Config{
		BaseURL: cfg.Identity.URL,
		APIKey:  cfg.Identity.APIKey,
		Timeout: cfg.Identity.Timeout,
	})
}
