// session/session_test.go
package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludopad/ludopad/models"
	"github.com/ludopad/ludopad/storage"
	"github.com/ludopad/ludopad/storage/memory"
	"github.com/ludopad/ludopad/userstore"
)

func newManager(t *testing.T) (*Manager, *userstore.Store, storage.Store, storage.Store) {
	t.Helper()
	durable := memory.New()
	eph := memory.New()
	users := userstore.New(durable, nil)
	return New(eph, durable, users, nil), users, eph, durable
}

func TestLoginLogoutScenario(t *testing.T) {
	m, users, _, _ := newManager(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, "alice", "secr3t"))

	require.NoError(t, m.Login(ctx, "alice", "secr3t"))
	current, ok := m.Current(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", current)

	// A failed login leaves the session untouched.
	err := m.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	current, ok = m.Current(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", current)

	require.NoError(t, m.Logout(ctx))
	_, ok = m.Current(ctx)
	assert.False(t, ok)
}

func TestLoginUnknownUser(t *testing.T) {
	m, _, _, _ := newManager(t)
	err := m.Login(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLoginIsCaseSensitive(t *testing.T) {
	m, users, _, _ := newManager(t)
	ctx := context.Background()
	require.NoError(t, users.Create(ctx, "alice", "secr3t"))

	err := m.Login(ctx, "Alice", "secr3t")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestRequireWithoutSession(t *testing.T) {
	m, _, _, _ := newManager(t)
	_, err := m.Require(context.Background())
	assert.ErrorIs(t, err, models.ErrNotAuthenticated)
}

func TestRequireClearsVanishedAccount(t *testing.T) {
	m, users, _, durable := newManager(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, "alice", "secr3t"))
	require.NoError(t, m.Login(ctx, "alice", "secr3t"))

	// The account disappears behind the session's back.
	require.NoError(t, durable.Delete(ctx, storage.KeyUsers))

	_, err := m.Require(ctx)
	assert.ErrorIs(t, err, models.ErrNotAuthenticated)
	_, ok := m.Current(ctx)
	assert.False(t, ok)
}

func TestLogoutClearsLobbyAndLaunchSignal(t *testing.T) {
	m, users, eph, durable := newManager(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, "alice", "secr3t"))
	require.NoError(t, m.Login(ctx, "alice", "secr3t"))
	require.NoError(t, eph.Set(ctx, storage.KeyLobby, []byte(`{"players":[]}`)))
	require.NoError(t, durable.Set(ctx, storage.KeyGameStart, []byte("1700000000000")))

	require.NoError(t, m.Logout(ctx))

	_, found, err := eph.Get(ctx, storage.KeyLobby)
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = durable.Get(ctx, storage.KeyGameStart)
	require.NoError(t, err)
	assert.False(t, found)
}
