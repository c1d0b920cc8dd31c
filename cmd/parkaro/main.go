package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/Spok95/parkaro/internal/automation"
	"github.com/Spok95/parkaro/internal/config"
	httpx "github.com/Spok95/parkaro/internal/infra/http"
	"github.com/Spok95/parkaro/internal/infra/logger"
	"github.com/Spok95/parkaro/migrations"
)

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:           "parkaro",
		Short:         "Parking reservation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config/example.yaml", "path to config file")

	load := func() (config.Config, *slog.Logger, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return cfg, nil, err
		}
		return cfg, logger.New(cfg.App.Env, os.Stdout), nil
	}

	root.AddCommand(serveCmd(load), migrateCmd(load), sweepCmd(load), seedCmd(load))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type loader func() (config.Config, *slog.Logger, error)

func runMigrations(dsn string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, ".")
}

func migrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			if err := runMigrations(cfg.Postgres.DSN); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			log.Info("migrations applied")
			return nil
		},
	}
}

func serveCmd(load loader) *cobra.Command {
	var inMemory, skipMigrations bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API and periodic sweeps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !inMemory && !skipMigrations {
				if err := runMigrations(cfg.Postgres.DSN); err != nil {
					return fmt.Errorf("migrations: %w", err)
				}
				log.Info("migrations applied")
			}

			app, err := build(ctx, cfg, log, inMemory)
			if err != nil {
				return err
			}
			defer app.close()

			srv := httpx.New(cfg.HTTP.Addr, httpx.NewRouter(app.manager, log, cfg.Metrics.Enabled, time.Now))
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server error", "err", err)
					stop()
				}
			}()
			log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

			go func() { _ = app.runner.Run(ctx) }()
			log.Info("sweeps scheduled", "interval", cfg.Sweep.Interval)

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			log.Info("graceful shutdown complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&inMemory, "memory", false, "use in-memory store with demo data")
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on start")
	return cmd
}

func sweepCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:       "sweep expiry|overtime|reminders|all",
		Short:     "Run one automation pass and exit",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"expiry", "overtime", "reminders", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			app, err := build(ctx, cfg, log, false)
			if err != nil {
				return err
			}
			defer app.close()

			now := time.Now()
			var n int
			switch args[0] {
			case "expiry":
				n, err = app.sweeper.Expiry(ctx, now)
			case "overtime":
				n, err = app.sweeper.Overtime(ctx, now)
			case "reminders":
				n, err = app.sweeper.Reminders(ctx, now)
			default:
				var rep automation.Report
				var ran bool
				rep, ran, err = app.runner.Tick(ctx)
				if err == nil && !ran {
					log.Info("sweep skipped, lock held elsewhere")
					return nil
				}
				n = rep.Expired + rep.Fined + rep.Reminded
			}
			if err != nil {
				return fmt.Errorf("sweep %s: %w", args[0], err)
			}
			log.Info("sweep done", "pass", args[0], "affected", n)
			return nil
		},
	}
}
