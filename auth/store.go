package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/user/messagely-go/apperror"
	"github.com/user/messagely-go/db"
)

// CredentialStore persists user records for the identity service.
// Implementations must enforce username uniqueness and surface a violation as
// an error recognised by db.IsUniqueViolation.
type CredentialStore interface {
	CreateUser(ctx context.Context, user *User) error
	// GetCredentials returns the user including the password hash,
	// or an apperror NotFound when the username is unknown.
	GetCredentials(ctx context.Context, username string) (*User, error)
	TouchLastLogin(ctx context.Context, username string, at time.Time) error
}

// PostgresCredentialStore is the CredentialStore backed by the `users` table.
type PostgresCredentialStore struct {
	db db.DBTX
}

// NewPostgresCredentialStore creates a store on top of a pool or transaction.
func NewPostgresCredentialStore(conn db.DBTX) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: conn}
}

// CreateUser inserts the user. The raw driver error is wrapped, not translated,
// so the caller can tell a unique violation from any other failure.
func (s *PostgresCredentialStore) CreateUser(ctx context.Context, user *User) error {
	query := `INSERT INTO users (username, password, first_name, last_name, phone, join_at, last_login_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.Exec(ctx, query,
		user.Username, user.HashedPassword, user.FirstName, user.LastName, user.Phone,
		user.JoinAt, user.LastLoginAt)
	if err != nil {
		return fmt.Errorf("insert user %q: %w", user.Username, err)
	}
	return nil
}

func (s *PostgresCredentialStore) GetCredentials(ctx context.Context, username string) (*User, error) {
	var user User
	query := `SELECT username, password, first_name, last_name, phone, join_at, last_login_at
              FROM users WHERE username = $1`
	err := s.db.QueryRow(ctx, query, username).Scan(
		&user.Username, &user.HashedPassword, &user.FirstName, &user.LastName, &user.Phone,
		&user.JoinAt, &user.LastLoginAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperror.NewNotFoundError("user not found", nil)
		}
		return nil, apperror.NewStorageError("failed to load credentials", err)
	}
	return &user, nil
}

func (s *PostgresCredentialStore) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET last_login_at = $1 WHERE username = $2`, at, username)
	if err != nil {
		return apperror.NewStorageError("failed to update last login", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError("user not found", nil)
	}
	return nil
}
