// storage/storage.go
package storage

import "context"

// Well-known keys. The durable store holds the account blob and the launch
// signal; the ephemeral store holds the session owner and the lobby.
const (
	KeyUsers     = "ludo_users"
	KeySession   = "ludo_user"
	KeyLobby     = "ludo_lobby"
	KeyGameStart = "ludo_game_start"
)

// Store is the key-value persistence port. A missing key is reported through
// the boolean, not an error. Writes replace the whole value; there is no
// merge, so concurrent writers are last-write-wins.
type Store interface {
	// Get returns the stored bytes and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Change describes a mutation of a watched key made by another store instance.
type Change struct {
	Key string
}

// Watcher is the cross-instance change-notification port. Events are
// delivered only for mutations made by *other* instances sharing the same
// underlying storage; a store never observes its own writes. Delivery is
// at-most-once per event with no buffering or replay.
type Watcher interface {
	// Watch registers fn for changes to key. The returned function cancels
	// the subscription.
	Watch(ctx context.Context, key string, fn func(Change)) (func(), error)
}

// WatchableStore combines persistence with change notification. The durable
// backends implement it; the per-view ephemeral store only needs Store.
type WatchableStore interface {
	Store
	Watcher
}
