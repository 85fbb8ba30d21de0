package messages_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/messagely-go/apperror"
	"github.com/user/messagely-go/auth"
	"github.com/user/messagely-go/inbox"
	"github.com/user/messagely-go/memstore"
	"github.com/user/messagely-go/messages"
)

func seed(t *testing.T, store *memstore.Store, usernames ...string) {
	t.Helper()
	now := time.Now().UTC()
	for _, u := range usernames {
		require.NoError(t, store.CreateUser(context.Background(), &auth.User{
			Username: u, HashedPassword: "x", FirstName: u + "-first", LastName: u + "-last", Phone: "555",
			JoinAt: now, LastLoginAt: &now,
		}))
	}
}

type fixture struct {
	store   *memstore.Store
	inbox   *inbox.Broadcaster
	service *messages.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	seed(t, store, "alice", "bob", "carol")
	b := inbox.NewBroadcaster(zap.NewNop())
	return &fixture{store: store, inbox: b, service: messages.NewService(store, b, zap.NewNop())}
}

func (f *fixture) send(t *testing.T, from, to, body string) *messages.Created {
	t.Helper()
	created, err := f.service.CreateMessage(context.Background(), from, messages.CreateMessageRequest{ToUsername: to, Body: body})
	require.NoError(t, err)
	return created
}

func TestCreateMessage_SenderIsRequester(t *testing.T) {
	f := newFixture(t)
	created := f.send(t, "alice", "bob", "hi")

	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "alice", created.FromUsername)
	assert.Equal(t, "bob", created.ToUsername)
	assert.False(t, created.SentAt.IsZero())
}

func TestCreateMessage_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateMessage(ctx, "alice", messages.CreateMessageRequest{ToUsername: "bob"})
	assert.True(t, apperror.IsValidationError(err))

	_, err = f.service.CreateMessage(ctx, "alice", messages.CreateMessageRequest{ToUsername: "ghost", Body: "hi"})
	require.Error(t, err)
	assert.True(t, apperror.IsValidationError(err))
	assert.Contains(t, err.Error(), "invalid to_username")

	_, err = f.service.CreateMessage(ctx, "", messages.CreateMessageRequest{ToUsername: "bob", Body: "hi"})
	assert.True(t, apperror.IsUnauthenticated(err))
}

func TestCreateMessage_NotifiesRecipient(t *testing.T) {
	f := newFixture(t)
	id, events := f.inbox.Subscribe("bob")
	defer f.inbox.Unsubscribe(id)

	created := f.send(t, "alice", "bob", "ping")

	select {
	case ev := <-events:
		assert.Equal(t, inbox.EventMessage, ev.Name)
		var payload struct {
			Message messages.Created `json:"message"`
		}
		require.NoError(t, json.Unmarshal([]byte(ev.Data), &payload))
		assert.Equal(t, created.ID, payload.Message.ID)
		assert.Equal(t, "ping", payload.Message.Body)
	default:
		t.Fatal("recipient was not notified")
	}
}

func TestGetMessage_Access(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.send(t, "alice", "bob", "hi")

	for _, who := range []string{"alice", "bob"} {
		view, err := f.service.GetMessage(ctx, created.ID, who)
		require.NoError(t, err, who)
		assert.Equal(t, "alice", view.FromUser.Username)
		assert.Equal(t, "alice-first", view.FromUser.FirstName)
		assert.Equal(t, "bob", view.ToUser.Username)
		assert.Nil(t, view.ReadAt)
	}

	_, err := f.service.GetMessage(ctx, created.ID, "carol")
	assert.True(t, apperror.IsUnauthorizedError(err))

	_, err = f.service.GetMessage(ctx, 404, "alice")
	assert.True(t, apperror.IsNotFound(err))
}

func TestMarkRead_OnlyRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.send(t, "alice", "bob", "hi")

	_, err := f.service.MarkRead(ctx, created.ID, "alice")
	assert.True(t, apperror.IsUnauthorizedError(err), "sender cannot mark read")
	_, err = f.service.MarkRead(ctx, created.ID, "carol")
	assert.True(t, apperror.IsUnauthorizedError(err))

	view, err := f.service.GetMessage(ctx, created.ID, "bob")
	require.NoError(t, err)
	assert.Nil(t, view.ReadAt, "refused calls leave read_at untouched")

	_, err = f.service.MarkRead(ctx, 404, "bob")
	assert.True(t, apperror.IsNotFound(err))
}

func TestMarkRead_RepeatAdvancesTimestamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.send(t, "alice", "bob", "hi")

	first := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f.service.WithClock(func() time.Time { return first })
	r1, err := f.service.MarkRead(ctx, created.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, created.ID, r1.ID)
	assert.True(t, first.Equal(r1.ReadAt))

	second := first.Add(time.Hour)
	f.service.WithClock(func() time.Time { return second })
	r2, err := f.service.MarkRead(ctx, created.ID, "bob")
	require.NoError(t, err)
	assert.True(t, second.Equal(r2.ReadAt))

	view, err := f.service.GetMessage(ctx, created.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, view.ReadAt)
	assert.True(t, second.Equal(*view.ReadAt))
}
