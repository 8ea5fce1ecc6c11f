package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/taskAuth"
	"github.com/MrEthical07/taskAuth/cache"
	"github.com/MrEthical07/taskAuth/password"
	"github.com/MrEthical07/taskAuth/store"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, newLogger(cfg))
		},
	}
}

func serve(ctx context.Context, cfg *appConfig, logger *slog.Logger) error {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(db); err != nil {
		return err
	}

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}
	users := store.New(db, hasher)

	builder := taskAuth.New().
		WithConfig(cfg.Auth).
		WithPrincipalProvider(users).
		WithLogger(logger)

	var (
		ownership   taskAuth.OwnershipProvider = users
		invalidator ownershipInvalidator
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		builder = builder.WithRedis(rdb)
		owned := cache.NewOwnershipCache(users, rdb, cache.WithTTL(cfg.OwnershipCacheTTL), cache.WithLogger(logger))
		ownership, invalidator = owned, owned
		logger.Info("redis enabled", "addr", cfg.RedisAddr)
	}
	if cfg.AuditLog {
		builder = builder.WithAuditSink(taskAuth.NewSlogSink(logger.With("component", "audit")))
	}

	engine, err := builder.WithOwnershipProvider(ownership).Build()
	if err != nil {
		return fmt.Errorf("build auth engine: %w", err)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(engine, users, invalidator, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
