// view_test.go
package ludopad

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludopad/ludopad/config"
	"github.com/ludopad/ludopad/models"
	"github.com/ludopad/ludopad/stats"
	"github.com/ludopad/ludopad/storage/memory"
)

// alertRecorder collects blocking notices instead of showing them.
type alertRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (a *alertRecorder) Alert(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
}

// newViewPair builds two views over one shared durable region, like two
// browser tabs against the same profile.
func newViewPair(t *testing.T) (*View, *View) {
	t.Helper()
	region := memory.NewRegion()
	cfg := config.Config{DeviceHost: "device.invalid"}

	a := NewView(region.NewStore(), cfg, &alertRecorder{}, nil)
	b := NewView(region.NewStore(), cfg, &alertRecorder{}, nil)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestWatchAccountsSeesOtherView(t *testing.T) {
	a, b := newViewPair(t)
	ctx := context.Background()

	var fired int
	require.NoError(t, b.WatchAccounts(ctx, func() { fired++ }))

	require.NoError(t, a.Users.Create(ctx, "alice", "secr3t"))
	assert.Equal(t, 1, fired)

	// The other view now reads the fresh account list.
	accounts, _, err := b.Users.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "alice", accounts[0].Username)
}

func TestWatchAccountsIgnoresOwnWrites(t *testing.T) {
	_, b := newViewPair(t)
	ctx := context.Background()

	var fired int
	require.NoError(t, b.WatchAccounts(ctx, func() { fired++ }))

	require.NoError(t, b.Users.Create(ctx, "alice", "secr3t"))
	assert.Zero(t, fired)
}

func TestWatchGameStartFollowsLaunch(t *testing.T) {
	a, b := newViewPair(t)
	ctx := context.Background()

	var fired int
	require.NoError(t, b.WatchGameStart(ctx, func() { fired++ }))

	require.NoError(t, a.Users.Create(ctx, "alice", "secr3t"))
	require.NoError(t, a.Session.Login(ctx, "alice", "secr3t"))
	require.NoError(t, a.NewLobby(ctx))
	_, err := a.Lobby.Join(ctx, "bob")
	require.NoError(t, err)

	// The device is unreachable; the launch signal still travels.
	require.NoError(t, a.Lobby.Launch(ctx))
	assert.Equal(t, 1, fired)
}

func TestLobbyIsPerView(t *testing.T) {
	a, b := newViewPair(t)
	ctx := context.Background()

	require.NoError(t, a.Users.Create(ctx, "alice", "secr3t"))
	require.NoError(t, a.Session.Login(ctx, "alice", "secr3t"))
	require.NoError(t, a.NewLobby(ctx))

	assert.Len(t, a.Lobby.Load(ctx).Players, 1)
	assert.Empty(t, b.Lobby.Load(ctx).Players)
}

func TestJoinLobbyTwiceIsNoop(t *testing.T) {
	a, _ := newViewPair(t)
	ctx := context.Background()

	require.NoError(t, a.Users.Create(ctx, "alice", "secr3t"))
	require.NoError(t, a.Session.Login(ctx, "alice", "secr3t"))
	require.NoError(t, a.NewLobby(ctx))

	joined, err := a.JoinLobby(ctx)
	require.NoError(t, err)
	assert.False(t, joined)
}

func TestRecordOutcomeRequiresLogin(t *testing.T) {
	a, _ := newViewPair(t)
	_, err := a.RecordOutcome(context.Background(), stats.OutcomeWin)
	assert.ErrorIs(t, err, models.ErrNotAuthenticated)
}

func TestRecordOutcomeAndLeaderboard(t *testing.T) {
	a, b := newViewPair(t)
	ctx := context.Background()

	require.NoError(t, a.Users.Create(ctx, "alice", "secr3t"))
	require.NoError(t, a.Users.Create(ctx, "bob", "secr3t"))

	require.NoError(t, a.Session.Login(ctx, "alice", "secr3t"))
	got, err := a.RecordOutcome(ctx, stats.OutcomeWin)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{Total: 1, Won: 1}, got)

	require.NoError(t, b.Session.Login(ctx, "bob", "secr3t"))
	_, err = b.RecordOutcome(ctx, stats.OutcomeLoss)
	require.NoError(t, err)

	// Either view computes the same ranking from the shared store.
	for _, v := range []*View{a, b} {
		entries, err := v.Leaderboard(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "alice", entries[0].Username)
		assert.Equal(t, "bob", entries[1].Username)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	a, b := newViewPair(t)
	ctx := context.Background()

	require.NoError(t, a.Users.Create(ctx, "alice", "secr3t"))
	require.NoError(t, a.Session.Login(ctx, "alice", "secr3t"))

	_, ok := b.Session.Current(ctx)
	assert.False(t, ok, "login in one view does not leak into another")
}

func TestCloseStopsSubscriptions(t *testing.T) {
	a, b := newViewPair(t)
	ctx := context.Background()

	var fired int
	require.NoError(t, b.WatchAccounts(ctx, func() { fired++ }))
	b.Close()

	require.NoError(t, a.Users.Create(ctx, "alice", "secr3t"))
	assert.Zero(t, fired)
}
