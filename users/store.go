package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/user/messagely-go/apperror"
	"github.com/user/messagely-go/db"
	"github.com/user/messagely-go/messages"
)

// Directory reads user records.
type Directory interface {
	ListUsers(ctx context.Context) ([]Summary, error)
	// GetUser returns NotFound for an unknown username.
	GetUser(ctx context.Context, username string) (*Profile, error)
}

// Mailbox lists a user's messages. messages.Store satisfies it.
type Mailbox interface {
	MessagesTo(ctx context.Context, username string) ([]messages.Inbound, error)
	MessagesFrom(ctx context.Context, username string) ([]messages.Outbound, error)
}

// PostgresDirectory implements Directory on the `users` table.
type PostgresDirectory struct {
	db db.DBTX
}

// NewPostgresDirectory creates a PostgresDirectory.
func NewPostgresDirectory(conn db.DBTX) *PostgresDirectory {
	return &PostgresDirectory{db: conn}
}

func (d *PostgresDirectory) ListUsers(ctx context.Context) ([]Summary, error) {
	rows, err := d.db.Query(ctx,
		`SELECT username, first_name, last_name, phone FROM users ORDER BY username`)
	if err != nil {
		return nil, apperror.NewStorageError("failed to list users", err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Summary])
	if err != nil {
		return nil, apperror.NewStorageError("failed to scan users", err)
	}
	return list, nil
}

func (d *PostgresDirectory) GetUser(ctx context.Context, username string) (*Profile, error) {
	var p Profile
	err := d.db.QueryRow(ctx,
		`SELECT username, first_name, last_name, phone, join_at, last_login_at
		 FROM users WHERE username = $1`, username,
	).Scan(&p.Username, &p.FirstName, &p.LastName, &p.Phone, &p.JoinAt, &p.LastLoginAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("No such user: %s", username), nil)
		}
		return nil, apperror.NewStorageError("failed to load user", err)
	}
	return &p, nil
}
