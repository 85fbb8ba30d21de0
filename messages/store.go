package messages

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/user/messagely-go/apperror"
	"github.com/user/messagely-go/db"
)

// Store persists messages. CreateMessage must reject an unknown participant
// with an error recognised by db.IsForeignKeyViolation.
type Store interface {
	// CreateMessage inserts msg and fills in its ID.
	CreateMessage(ctx context.Context, msg *Message) error
	// GetMessage returns NotFound when no message has the id.
	GetMessage(ctx context.Context, id int64) (*View, error)
	// MarkMessageRead sets read_at unconditionally and returns NotFound for an unknown id.
	MarkMessageRead(ctx context.Context, id int64, at time.Time) (*ReadReceipt, error)
	MessagesTo(ctx context.Context, username string) ([]Inbound, error)
	MessagesFrom(ctx context.Context, username string) ([]Outbound, error)
}

// PostgresStore implements Store on the `messages` and `users` tables.
type PostgresStore struct {
	db db.DBTX
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(conn db.DBTX) *PostgresStore {
	return &PostgresStore{db: conn}
}

func (s *PostgresStore) CreateMessage(ctx context.Context, msg *Message) error {
	query := `INSERT INTO messages (from_username, to_username, body, sent_at)
              VALUES ($1, $2, $3, $4)
              RETURNING id`
	if err := s.db.QueryRow(ctx, query, msg.FromUsername, msg.ToUsername, msg.Body, msg.SentAt).Scan(&msg.ID); err != nil {
		return fmt.Errorf("insert message from %q to %q: %w", msg.FromUsername, msg.ToUsername, err)
	}
	return nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, id int64) (*View, error) {
	query := `
		SELECT m.id, m.body, m.sent_at, m.read_at,
		       f.username, f.first_name, f.last_name, f.phone,
		       t.username, t.first_name, t.last_name, t.phone
		FROM messages AS m
		JOIN users AS f ON f.username = m.from_username
		JOIN users AS t ON t.username = m.to_username
		WHERE m.id = $1`

	var v View
	err := s.db.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.Body, &v.SentAt, &v.ReadAt,
		&v.FromUser.Username, &v.FromUser.FirstName, &v.FromUser.LastName, &v.FromUser.Phone,
		&v.ToUser.Username, &v.ToUser.FirstName, &v.ToUser.LastName, &v.ToUser.Phone,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("No such message: %d", id), nil)
		}
		return nil, apperror.NewStorageError("failed to load message", err)
	}
	return &v, nil
}

func (s *PostgresStore) MarkMessageRead(ctx context.Context, id int64, at time.Time) (*ReadReceipt, error) {
	var r ReadReceipt
	err := s.db.QueryRow(ctx,
		`UPDATE messages SET read_at = $1 WHERE id = $2 RETURNING id, read_at`, at, id,
	).Scan(&r.ID, &r.ReadAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("No such message: %d", id), nil)
		}
		return nil, apperror.NewStorageError("failed to mark message read", err)
	}
	return &r, nil
}

func (s *PostgresStore) MessagesTo(ctx context.Context, username string) ([]Inbound, error) {
	query := `
		SELECT m.id, m.body, m.sent_at, m.read_at,
		       f.username, f.first_name, f.last_name, f.phone
		FROM messages AS m
		JOIN users AS f ON f.username = m.from_username
		WHERE m.to_username = $1
		ORDER BY m.id`
	rows, err := s.db.Query(ctx, query, username)
	if err != nil {
		return nil, apperror.NewStorageError("failed to list received messages", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Inbound, error) {
		var in Inbound
		err := row.Scan(&in.ID, &in.Body, &in.SentAt, &in.ReadAt,
			&in.FromUser.Username, &in.FromUser.FirstName, &in.FromUser.LastName, &in.FromUser.Phone)
		return in, err
	})
	if err != nil {
		return nil, apperror.NewStorageError("failed to scan received messages", err)
	}
	return out, nil
}

func (s *PostgresStore) MessagesFrom(ctx context.Context, username string) ([]Outbound, error) {
	query := `
		SELECT m.id, m.body, m.sent_at, m.read_at,
		       t.username, t.first_name, t.last_name, t.phone
		FROM messages AS m
		JOIN users AS t ON t.username = m.to_username
		WHERE m.from_username = $1
		ORDER BY m.id`
	rows, err := s.db.Query(ctx, query, username)
	if err != nil {
		return nil, apperror.NewStorageError("failed to list sent messages", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Outbound, error) {
		var o Outbound
		err := row.Scan(&o.ID, &o.Body, &o.SentAt, &o.ReadAt,
			&o.ToUser.Username, &o.ToUser.FirstName, &o.ToUser.LastName, &o.ToUser.Phone)
		return o, err
	})
	if err != nil {
		return nil, apperror.NewStorageError("failed to scan sent messages", err)
	}
	return out, nil
}
