package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/messagely-go/apperror"
	"github.com/user/messagely-go/auth"
	"github.com/user/messagely-go/db"
	"github.com/user/messagely-go/messages"
)

func seedUser(t *testing.T, s *Store, username string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.CreateUser(context.Background(), &auth.User{
		Username: username, HashedPassword: "x", FirstName: username, LastName: "L", Phone: "555",
		JoinAt: now, LastLoginAt: &now,
	}))
}

func TestCreateUser_DuplicateIsUniqueViolation(t *testing.T) {
	s := New()
	seedUser(t, s, "alice")

	err := s.CreateUser(context.Background(), &auth.User{Username: "alice"})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))
}

func TestCreateUser_ConcurrentRaceHasOneWinner(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.CreateUser(context.Background(), &auth.User{Username: "same"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if db.IsUniqueViolation(err) {
				conflicts++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 15, conflicts)
}

func TestGetCredentials_UnknownIsNotFound(t *testing.T) {
	_, err := New().GetCredentials(context.Background(), "ghost")
	assert.True(t, apperror.IsNotFound(err))
}

func TestTouchLastLogin(t *testing.T) {
	s := New()
	seedUser(t, s, "alice")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.TouchLastLogin(context.Background(), "alice", at))
	p, err := s.GetUser(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, p.LastLoginAt)
	assert.True(t, at.Equal(*p.LastLoginAt))

	assert.True(t, apperror.IsNotFound(s.TouchLastLogin(context.Background(), "ghost", at)))
}

func TestCreateMessage_UnknownRecipientIsForeignKeyViolation(t *testing.T) {
	s := New()
	seedUser(t, s, "alice")

	err := s.CreateMessage(context.Background(), &messages.Message{FromUsername: "alice", ToUsername: "ghost", Body: "hi"})
	require.Error(t, err)
	assert.True(t, db.IsForeignKeyViolation(err))
}

func TestMessagesLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "alice")
	seedUser(t, s, "bob")

	m1 := &messages.Message{FromUsername: "alice", ToUsername: "bob", Body: "one", SentAt: time.Now()}
	m2 := &messages.Message{FromUsername: "bob", ToUsername: "alice", Body: "two", SentAt: time.Now()}
	require.NoError(t, s.CreateMessage(ctx, m1))
	require.NoError(t, s.CreateMessage(ctx, m2))
	assert.Equal(t, int64(1), m1.ID)
	assert.Equal(t, int64(2), m2.ID)

	v, err := s.GetMessage(ctx, m1.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", v.FromUser.Username)
	assert.Equal(t, "bob", v.ToUser.Username)
	assert.Nil(t, v.ReadAt)

	at := time.Now().UTC()
	r, err := s.MarkMessageRead(ctx, m1.ID, at)
	require.NoError(t, err)
	assert.Equal(t, m1.ID, r.ID)

	inbox, err := s.MessagesTo(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "alice", inbox[0].FromUser.Username)
	require.NotNil(t, inbox[0].ReadAt)

	sent, err := s.MessagesFrom(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "alice", sent[0].ToUser.Username)

	_, err = s.GetMessage(ctx, 99)
	assert.True(t, apperror.IsNotFound(err))
	_, err = s.MarkMessageRead(ctx, 99, at)
	assert.True(t, apperror.IsNotFound(err))
}

func TestListUsersSortedAndPublicOnly(t *testing.T) {
	s := New()
	seedUser(t, s, "carol")
	seedUser(t, s, "alice")

	list, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].Username)
	assert.Equal(t, "carol", list[1].Username)
}
