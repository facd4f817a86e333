// view.go
//
// Package ludopad is the client-side control core of the board-game
// companion: accounts, session, lobby, realtime device link, and derived
// statistics. It renders nothing; presentation views own one View each and
// read their display state through it.
package ludopad

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ludopad/ludopad/battery"
	"github.com/ludopad/ludopad/bus"
	"github.com/ludopad/ludopad/config"
	"github.com/ludopad/ludopad/leaderboard"
	"github.com/ludopad/ludopad/lobby"
	"github.com/ludopad/ludopad/models"
	"github.com/ludopad/ludopad/realtime"
	"github.com/ludopad/ludopad/session"
	"github.com/ludopad/ludopad/stats"
	"github.com/ludopad/ludopad/storage"
	"github.com/ludopad/ludopad/storage/memory"
	"github.com/ludopad/ludopad/userstore"
)

// View is the explicit per-tab context that replaces the original's module
// globals. Everything a presentation view touches hangs off one View; two
// concurrently open views share only the durable store and hear about each
// other through change signals.
type View struct {
	Durable   storage.Store
	Ephemeral storage.Store

	Users    *userstore.Store
	Session  *session.Manager
	Stats    *stats.Engine
	Lobby    *lobby.Store
	Bus      *bus.Bus
	Realtime *realtime.Client
	Battery  *battery.Monitor

	log *logrus.Logger
}

// NewView wires a view over the given durable store. If the store also
// implements the watcher port, cross-view change subscriptions work;
// otherwise they are silently inert. The alerter may be nil.
func NewView(durable storage.Store, cfg config.Config, alerter realtime.Alerter, log *logrus.Logger) *View {
	if log == nil {
		log = logrus.New()
	}

	watcher, _ := durable.(storage.Watcher)
	eph := memory.New()

	b := bus.New(watcher, log)
	client := realtime.New(cfg.DeviceURL(), b, alerter, log)
	users := userstore.New(durable, log)

	v := &View{
		Durable:   durable,
		Ephemeral: eph,
		Users:     users,
		Session:   session.New(eph, durable, users, log),
		Stats:     stats.New(users),
		Lobby:     lobby.New(eph, durable, client, log),
		Bus:       b,
		Realtime:  client,
		Battery:   battery.NewMonitor(log),
		log:       log,
	}
	v.Battery.Attach(b)
	return v
}

// Leaderboard recomputes the ranking from a fresh store snapshot.
func (v *View) Leaderboard(ctx context.Context) ([]leaderboard.Entry, error) {
	accounts, _, err := v.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	return leaderboard.Rank(accounts), nil
}

// WatchAccounts fires fn whenever another view rewrites the account
// collection. fn should re-derive its display state from a fresh read.
func (v *View) WatchAccounts(ctx context.Context, fn func()) error {
	return v.Bus.SubscribeChanges(ctx, storage.KeyUsers, func(storage.Change) { fn() })
}

// WatchGameStart fires fn when another view signals a game launch, letting
// this view follow along to the game screen.
func (v *View) WatchGameStart(ctx context.Context, fn func()) error {
	return v.Bus.SubscribeChanges(ctx, storage.KeyGameStart, func(storage.Change) { fn() })
}

// NewLobby starts a fresh lobby with the session owner as player 1.
func (v *View) NewLobby(ctx context.Context) error {
	username, err := v.Session.Require(ctx)
	if err != nil {
		return err
	}
	return v.Lobby.Reset(ctx, username)
}

// JoinLobby adds the session owner to the existing lobby. It reports whether
// a seat was actually taken; joining twice is a no-op success.
func (v *View) JoinLobby(ctx context.Context) (bool, error) {
	username, err := v.Session.Require(ctx)
	if err != nil {
		return false, err
	}
	return v.Lobby.Join(ctx, username)
}

// RecordOutcome books a finished game for the session owner.
func (v *View) RecordOutcome(ctx context.Context, outcome stats.Outcome) (models.Stats, error) {
	username, err := v.Session.Require(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	return v.Stats.RecordOutcome(ctx, username, outcome)
}

// Close releases subscriptions and the device link. The view must not be
// used afterwards.
func (v *View) Close() {
	v.Bus.Close()
	v.Realtime.Close()
}
