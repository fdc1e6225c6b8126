package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stickyboard/auth"
	"stickyboard/config"
	"stickyboard/controllers"
	"stickyboard/data"

	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "stickyboard-server",
	Short:         "REST backend for sticky-note boards",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadServer(configPath)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Log.Level)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default ./stickyboard.yaml)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func newLogger(level string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func run(ctx context.Context, cfg *config.ServerConfig, logger *zap.Logger) error {
	if cfg.JWT.Secret == config.DevJWTSecret {
		logger.Warn("using the development JWT secret; set STICKYBOARD_JWT_SECRET in production")
	}

	db, err := data.Open(cfg.Database.MainPath, cfg.Database.AuthPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Demo.Enabled {
		if _, created, err := db.EnsureUser(ctx, cfg.Demo.Email, cfg.Demo.Password); err != nil {
			return fmt.Errorf("ensure demo user: %w", err)
		} else if created {
			logger.Info("demo user created", zap.String("email", cfg.Demo.Email))
		}
	}

	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.Issuer)
	api := controllers.NewAPI(db, tokens, cfg.Demo, logger)

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowCredentials(),
	)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           cors(api.NewRouter()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return purgeRevocations(gctx, db, cfg.Server.JanitorEvery, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// purgeRevocations drops revoked token ids once the tokens would have expired anyway.
func purgeRevocations(ctx context.Context, db *data.DB, every time.Duration, logger *zap.Logger) error {
	if every <= 0 {
		return nil
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			n, err := db.PurgeExpiredRevocations(ctx, now)
			if err != nil {
				logger.Warn("revocation purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("purged revoked tokens", zap.Int64("count", n))
			}
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stickyboard-server:", err)
		os.Exit(1)
	}
}
