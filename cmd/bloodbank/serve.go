package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/bloodbank/internal/api"
	"github.com/erazemk/bloodbank/internal/bank"
	"github.com/erazemk/bloodbank/internal/db"
	"github.com/erazemk/bloodbank/internal/metrics"
	"github.com/erazemk/bloodbank/internal/scheduler"
	"github.com/erazemk/bloodbank/internal/store"
)

func serveCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server. A missing database is created on first run
together with an admin account whose password is printed once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			closeLog, err := setupLogger(cfg.LogPath)
			if err != nil {
				return err
			}
			defer closeLog()

			// Check if DB exists, auto-init if not.
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				database, password, err := initDatabase(cfg.DBPath, cfg.AdminEmail)
				if err != nil {
					return fmt.Errorf("initializing database: %w", err)
				}
				database.Close()

				printInitResult(cfg.DBPath, cfg.AdminEmail, password)
				fmt.Println()
			}

			database, err := db.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer database.Close()

			// Ensure schema exists (idempotent).
			if err := db.EnsureSchema(database); err != nil {
				return fmt.Errorf("ensuring database schema: %w", err)
			}
			slog.Info("database ready", "path", cfg.DBPath)

			// Load JWT secret from database (auto-generated on first run).
			jwtSecret, err := store.GetJWTSecret(context.Background(), database)
			if err != nil {
				return fmt.Errorf("loading JWT secret: %w", err)
			}

			m := metrics.New()
			bk := bank.New(database, bank.WithMetrics(m))
			if err := bk.RefreshStockMetrics(context.Background()); err != nil {
				slog.Warn("failed to load stock metrics", "error", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			jobs := scheduler.New(database, cfg.Interval())
			jobs.Start(ctx)
			defer jobs.Stop()

			server := &http.Server{
				Addr: cfg.Addr,
				Handler: api.NewRouter(database, jwtSecret, bk, api.Options{
					AllowedOrigins: cfg.AllowedOrigins,
					Metrics:        m,
				}),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			// Graceful shutdown on SIGINT/SIGTERM.
			go func() {
				<-ctx.Done()
				slog.Info("shutdown signal received")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("server forced to shutdown", "error", err)
				}
			}()

			slog.Info("server started", "addr", cfg.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("server error: %w", err)
			}

			slog.Info("server stopped, closing database")
			return nil
		},
	}

	cmd.Flags().StringP("addr", "a", "", "listen address (default: :8080)")
	cmd.Flags().StringP("admin", "u", "", "admin email on first run (default: admin@bloodbank.local)")
	cmd.Flags().StringSlice("origin", nil, "allowed CORS origin, repeatable")
	cmd.Flags().Duration("interval", 0, "availability recompute interval (default: 24h)")
	return cmd
}
