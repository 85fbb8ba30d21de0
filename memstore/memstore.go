// Package memstore is the STORAGE_DRIVER=memory backend: one mutex-guarded
// store implementing auth.CredentialStore, messages.Store and users.Directory.
// Constraint failures are reported as *pgconn.PgError with the same SQLSTATE
// codes Postgres uses, so callers classify them identically.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user/messagely-go/apperror"
	"github.com/user/messagely-go/auth"
	"github.com/user/messagely-go/db"
	"github.com/user/messagely-go/messages"
	"github.com/user/messagely-go/users"
)

var (
	_ auth.CredentialStore = (*Store)(nil)
	_ messages.Store       = (*Store)(nil)
	_ users.Directory      = (*Store)(nil)
)

// Store holds users and messages in memory.
type Store struct {
	mu       sync.RWMutex
	users    map[string]auth.User
	messages map[int64]messages.Message
	nextID   int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:    make(map[string]auth.User),
		messages: make(map[int64]messages.Message),
	}
}

func (s *Store) CreateUser(ctx context.Context, user *auth.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return fmt.Errorf("insert user %q: %w", user.Username, &pgconn.PgError{
			Code:           db.UniqueViolation,
			Message:        "duplicate key value violates unique constraint",
			ConstraintName: "users_pkey",
		})
	}
	stored := *user
	stored.LastLoginAt = copyTime(user.LastLoginAt)
	s.users[user.Username] = stored
	return nil
}

func (s *Store) GetCredentials(ctx context.Context, username string) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, apperror.NewNotFoundError("user not found", nil)
	}
	u.LastLoginAt = copyTime(u.LastLoginAt)
	return &u, nil
}

func (s *Store) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return apperror.NewNotFoundError("user not found", nil)
	}
	u.LastLoginAt = &at
	s.users[username] = u
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]users.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]users.Summary, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, users.Summary{
			Username: u.Username, FirstName: u.FirstName, LastName: u.LastName, Phone: u.Phone,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*users.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, apperror.NewNotFoundError(fmt.Sprintf("No such user: %s", username), nil)
	}
	return &users.Profile{
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		JoinAt:      u.JoinAt,
		LastLoginAt: copyTime(u.LastLoginAt),
	}, nil
}

func (s *Store) CreateMessage(ctx context.Context, msg *messages.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, who := range []string{msg.FromUsername, msg.ToUsername} {
		if _, ok := s.users[who]; !ok {
			return fmt.Errorf("insert message: %w", &pgconn.PgError{
				Code:    db.ForeignKeyViolation,
				Message: fmt.Sprintf("user %q does not exist", who),
			})
		}
	}

	s.nextID++
	msg.ID = s.nextID
	stored := *msg
	stored.ReadAt = copyTime(msg.ReadAt)
	s.messages[msg.ID] = stored
	return nil
}

func (s *Store) GetMessage(ctx context.Context, id int64) (*messages.View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, apperror.NewNotFoundError(fmt.Sprintf("No such message: %d", id), nil)
	}
	return &messages.View{
		ID:       m.ID,
		Body:     m.Body,
		SentAt:   m.SentAt,
		ReadAt:   copyTime(m.ReadAt),
		FromUser: s.party(m.FromUsername),
		ToUser:   s.party(m.ToUsername),
	}, nil
}

func (s *Store) MarkMessageRead(ctx context.Context, id int64, at time.Time) (*messages.ReadReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, apperror.NewNotFoundError(fmt.Sprintf("No such message: %d", id), nil)
	}
	m.ReadAt = &at
	s.messages[id] = m
	return &messages.ReadReceipt{ID: id, ReadAt: at}, nil
}

func (s *Store) MessagesTo(ctx context.Context, username string) ([]messages.Inbound, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []messages.Inbound{}
	for _, m := range s.sortedMessages() {
		if m.ToUsername != username {
			continue
		}
		out = append(out, messages.Inbound{
			ID: m.ID, Body: m.Body, SentAt: m.SentAt, ReadAt: copyTime(m.ReadAt),
			FromUser: s.party(m.FromUsername),
		})
	}
	return out, nil
}

func (s *Store) MessagesFrom(ctx context.Context, username string) ([]messages.Outbound, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []messages.Outbound{}
	for _, m := range s.sortedMessages() {
		if m.FromUsername != username {
			continue
		}
		out = append(out, messages.Outbound{
			ID: m.ID, Body: m.Body, SentAt: m.SentAt, ReadAt: copyTime(m.ReadAt),
			ToUser: s.party(m.ToUsername),
		})
	}
	return out, nil
}

// party and sortedMessages expect s.mu to be held.
func (s *Store) party(username string) messages.Party {
	u := s.users[username]
	return messages.Party{Username: username, FirstName: u.FirstName, LastName: u.LastName, Phone: u.Phone}
}

func (s *Store) sortedMessages() []messages.Message {
	out := make([]messages.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
