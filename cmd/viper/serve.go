// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/viperhq/viper/internal/api"
	"github.com/viperhq/viper/internal/auth"
	authpg "github.com/viperhq/viper/internal/auth/postgres"
	"github.com/viperhq/viper/internal/config"
	"github.com/viperhq/viper/internal/logging"
	"github.com/viperhq/viper/internal/observability"
	"github.com/viperhq/viper/internal/store"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server. Every request is authenticated against a
registered game before any endpoint logic runs.`,
		RunE: runServe,
	}

	cmd.Flags().AddFlagSet(config.Flags())

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if err := cfg.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logging.SetDefault("viper", version, cfg.Log.Format)

	slog.Info("starting api server",
		"http_addr", cfg.HTTP.Addr,
		"log_format", cfg.Log.Format,
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pool, err := store.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	slog.Info("connected to database")

	games := authpg.NewGameRepository(pool)
	users := authpg.NewUserRepository(pool)
	tokens := authpg.NewTokenRepository(pool)
	resets := authpg.NewResetRepository(pool)
	profiles := authpg.NewProfileRepository(pool)

	gameAuth, err := auth.NewGameAuthenticator(games)
	if err != nil {
		return oops.Code("WIRING_FAILED").Wrap(err)
	}
	tokenAuth, err := auth.NewTokenAuthenticator(tokens)
	if err != nil {
		return oops.Code("WIRING_FAILED").Wrap(err)
	}
	issuer, err := auth.NewTokenIssuer(tokens, resets, cfg.Auth.Generator())
	if err != nil {
		return oops.Code("WIRING_FAILED").Wrap(err)
	}

	builder, err := api.NewContextBuilder(gameAuth, tokenAuth)
	if err != nil {
		return oops.Code("WIRING_FAILED").Wrap(err)
	}
	handler, err := api.NewUserHandler(users, profiles, issuer, auth.NewBcryptHasher())
	if err != nil {
		return oops.Code("WIRING_FAILED").Wrap(err)
	}
	server, err := api.NewServer(cfg.HTTP.Addr, builder, handler, slog.Default(), cfg.HTTP.Timeout)
	if err != nil {
		return oops.Code("WIRING_FAILED").Wrap(err)
	}

	apiErrChan, err := server.Start()
	if err != nil {
		return oops.Code("SERVER_START_FAILED").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	// Start observability server if configured
	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, func() bool {
			return pool.Ping(ctx) == nil
		})
		obsErrChan, obsErr := obsServer.Start()
		if obsErr != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if stopErr := server.Stop(shutdownCtx); stopErr != nil {
				slog.Warn("failed to stop api server during cleanup", "error", stopErr)
			}
			return oops.Code("SERVER_START_FAILED").Wrap(obsErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("API server started")
	slog.Info("api server ready", "addr", server.Addr())

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors watches a server's error channel and cancels the
// context on error so a failed listener takes the whole process down
// gracefully. It exits when an error arrives, the channel closes, or the
// context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
