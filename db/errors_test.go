package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/user/messagely-go/config"
)

func TestConstraintClassification(t *testing.T) {
	unique := fmt.Errorf("insert user: %w", &pgconn.PgError{Code: UniqueViolation, ConstraintName: "users_pkey"})
	fk := fmt.Errorf("insert message: %w", &pgconn.PgError{Code: ForeignKeyViolation})

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsForeignKeyViolation(unique))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(errors.New("other")))
}

func TestDSN(t *testing.T) {
	cfg := &config.PoolConfig{User: "u", Password: "p", Host: "db", Port: 5433, DBName: "messagely"}
	assert.Equal(t, "postgres://u:p@db:5433/messagely?sslmode=disable", DSN(cfg))

	cfg.SSLMode = "require"
	assert.Equal(t, "postgres://u:p@db:5433/messagely?sslmode=require", DSN(cfg))
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 4)
}
