//go:build integration

package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/messagely-go/apperror"
	"github.com/user/messagely-go/auth"
	"github.com/user/messagely-go/config"
	"github.com/user/messagely-go/db"
	"github.com/user/messagely-go/messages"
	"github.com/user/messagely-go/users"
)

// Run with DB_USER/DB_PASSWORD/DB_NAME pointing at a scratch database:
//
//	go test -tags integration ./db/...
func TestPostgresStores(t *testing.T) {
	cfg, err := config.LoadPoolConfig()
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(cfg))

	pool, err := db.NewPool(cfg)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	_, err = pool.Exec(ctx, `TRUNCATE messages, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	creds := auth.NewPostgresCredentialStore(pool)
	msgs := messages.NewPostgresStore(pool)
	dir := users.NewPostgresDirectory(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	for _, name := range []string{"alice", "bob"} {
		require.NoError(t, creds.CreateUser(ctx, &auth.User{
			Username: name, HashedPassword: "hash", FirstName: name, LastName: "L", Phone: "1",
			JoinAt: now, LastLoginAt: &now,
		}))
	}

	err = creds.CreateUser(ctx, &auth.User{Username: "alice", HashedPassword: "x", JoinAt: now})
	assert.True(t, db.IsUniqueViolation(err))

	_, err = creds.GetCredentials(ctx, "ghost")
	assert.True(t, apperror.IsNotFound(err))

	later := now.Add(time.Hour)
	require.NoError(t, creds.TouchLastLogin(ctx, "alice", later))
	profile, err := dir.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, profile.LastLoginAt)
	assert.True(t, later.Equal(*profile.LastLoginAt))

	msg := &messages.Message{FromUsername: "alice", ToUsername: "bob", Body: "hi", SentAt: now}
	require.NoError(t, msgs.CreateMessage(ctx, msg))
	assert.NotZero(t, msg.ID)

	err = msgs.CreateMessage(ctx, &messages.Message{FromUsername: "alice", ToUsername: "ghost", Body: "x", SentAt: now})
	assert.True(t, db.IsForeignKeyViolation(err))

	view, err := msgs.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", view.FromUser.Username)
	assert.Equal(t, "bob", view.ToUser.Username)
	assert.Nil(t, view.ReadAt)

	receipt, err := msgs.MarkMessageRead(ctx, msg.ID, later)
	require.NoError(t, err)
	assert.True(t, later.Equal(receipt.ReadAt))

	in, err := msgs.MessagesTo(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "alice", in[0].FromUser.Username)

	out, err := msgs.MessagesFrom(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "bob", out[0].ToUser.Username)

	list, err := dir.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = msgs.GetMessage(ctx, 999999)
	assert.True(t, apperror.IsNotFound(err))
}
