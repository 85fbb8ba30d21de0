// Package db provides database connectivity and migration functionality for the messagely application.
// It handles establishing the pgx connection pool, running the embedded schema
// migrations, and classifying PostgreSQL constraint violations so the services
// above can map them onto the application's error taxonomy.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	// `golang-migrate` runs the versioned SQL files under ./migrations.
	"github.com/golang-migrate/migrate/v4"
	// Registers the `postgres://` database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	// `iofs` lets golang-migrate read migrations from an embed.FS, so the binary carries its schema.
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	// `pgxpool` is part of the `jackc/pgx` suite, providing a robust connection pool for PostgreSQL.
	"github.com/jackc/pgx/v5/pgxpool"
	// database/sql driver used by golang-migrate's postgres driver.
	_ "github.com/lib/pq"

	"github.com/user/messagely-go/apperror"
	"github.com/user/messagely-go/config"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DBTX is the subset of *pgxpool.Pool (and pgx.Tx) the stores need.
// Stores depend on this instead of the concrete pool so a transaction can be passed in.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool establishes a pgxpool connection pool and verifies it with a ping.
func NewPool(cfg *config.PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, apperror.NewStorageError(fmt.Sprintf("error parsing DSN for database %s", cfg.DBName), err)
	}

	poolConfig.MaxConns = int32(cfg.MaxSize)
	poolConfig.MaxConnIdleTime = 10 * time.Minute
	poolConfig.MaxConnLifetime = 30 * time.Minute

	// Use a context with a timeout so an unreachable database doesn't block startup forever.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, apperror.NewStorageError(fmt.Sprintf("error creating pgxpool for database %s", cfg.DBName), err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close() // Clean up on connection failure
		return nil, apperror.NewStorageError(fmt.Sprintf("error connecting to the database %s", cfg.DBName), err)
	}

	return pool, nil
}

// DSN constructs the connection URL shared by pgx and golang-migrate.
func DSN(cfg *config.PoolConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, sslMode,
	)
}

func newMigrator(cfg *config.PoolConfig) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, apperror.NewMigrationError("failed to open embedded migrations", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, DSN(cfg))
	if err != nil {
		return nil, apperror.NewMigrationError("failed to create migrator", err)
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate) error {
	srcErr, dbErr := m.Close()
	return errors.Join(srcErr, dbErr)
}

// RunMigrations applies every pending up migration.
// `migrate.ErrNoChange` is not an error: the schema is simply current.
func RunMigrations(cfg *config.PoolConfig) (err error) {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeMigrator(m); cerr != nil && err == nil {
			err = apperror.NewMigrationError("failed to close migrator", cerr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperror.NewMigrationError("failed to run migrations", err)
	}
	return nil
}

// RollbackMigrations reverts the given number of migration steps.
func RollbackMigrations(cfg *config.PoolConfig, steps int) (err error) {
	if steps < 1 {
		return apperror.NewValidationError("steps must be at least 1", nil)
	}
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeMigrator(m); cerr != nil && err == nil {
			err = apperror.NewMigrationError("failed to close migrator", cerr)
		}
	}()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperror.NewMigrationError("failed to roll back migrations", err)
	}
	return nil
}
