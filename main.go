// Messagely is a small messaging service: users register, log in, send each
// other messages and mark them read. Every route except register and login
// requires a bearer token.
//
// @title Messagely API
// @version 1.0
// @description Users, tokens and private messages.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize
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

	// `godotenv` loads environment variables from a .env file, useful for development.
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/messagely-go/background"
	"github.com/user/messagely-go/config"
	"github.com/user/messagely-go/db"
)

func main() {
	// Missing .env is normal outside development; real environment variables still apply.
	envErr := godotenv.Load()

	app := &cli.App{
		Name:           "messagely",
		Usage:          "messaging API server",
		DefaultCommand: "serve",
		Before: func(c *cli.Context) error {
			if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", envErr)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "migrate",
						Value: true,
						Usage: "apply pending database migrations before serving (postgres driver only)",
					},
				},
				Action: runServe,
			},
			{
				Name:  "migrate",
				Usage: "manage the database schema",
				Subcommands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "apply all pending migrations",
						Action: runMigrateUp,
					},
					{
						Name:  "down",
						Usage: "roll back migrations",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"},
						},
						Action: runMigrateDown,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := openStorage(cfg, c.Bool("migrate"), logger)
	if err != nil {
		return err
	}
	defer store.close()

	// bcrypt runs here instead of on the request goroutines.
	pool := background.NewWorkerPool(cfg.Auth.HashWorkers, cfg.Auth.HashWorkers*4, logger)
	defer pool.Stop()

	app, err := newApplication(store, pool, *cfg.Auth, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      75 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	// Open inbox streams would otherwise hold Shutdown until its deadline.
	srv.RegisterOnShutdown(app.inbox.Close)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("server stopped gracefully")
		return nil
	})
	return g.Wait()
}

func runMigrateUp(c *cli.Context) error {
	dbCfg, err := config.LoadPoolConfig()
	if err != nil {
		return err
	}
	if err := db.RunMigrations(dbCfg); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "migrations applied")
	return nil
}

func runMigrateDown(c *cli.Context) error {
	dbCfg, err := config.LoadPoolConfig()
	if err != nil {
		return err
	}
	steps := c.Int("steps")
	if err := db.RollbackMigrations(dbCfg, steps); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "rolled back %d migration(s)\n", steps)
	return nil
}
