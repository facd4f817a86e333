// storage/memory/storage.go
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ludopad/ludopad/storage"
)

// Region is one shared in-process storage scope, analogous to a browser
// origin: every Store created from the same region sees the same data, and
// mutations signal every other store in the region.
type Region struct {
	mu   sync.RWMutex
	data map[string][]byte
	subs map[uuid.UUID][]subscription
}

type subscription struct {
	key string
	fn  func(storage.Change)
}

// NewRegion creates an empty shared region.
func NewRegion() *Region {
	return &Region{
		data: make(map[string][]byte),
		subs: make(map[uuid.UUID][]subscription),
	}
}

// Store is one instance's handle on a region. Each view owns its own Store so
// that change signals can exclude the originator.
type Store struct {
	region *Region
	origin uuid.UUID
}

var _ storage.WatchableStore = (*Store)(nil)

// NewStore creates a new instance handle on the region.
func (r *Region) NewStore() *Store {
	return &Store{region: r, origin: uuid.New()}
}

// New creates a standalone store in a fresh region. Suitable for the per-view
// ephemeral store, which is never shared.
func New() *Store {
	return NewRegion().NewStore()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.region.mu.RLock()
	defer s.region.mu.RUnlock()
	value, ok := s.region.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)

	s.region.mu.Lock()
	s.region.data[key] = cp
	fns := s.region.collectSubscribers(key, s.origin)
	s.region.mu.Unlock()

	for _, fn := range fns {
		fn(storage.Change{Key: key})
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.region.mu.Lock()
	_, existed := s.region.data[key]
	delete(s.region.data, key)
	var fns []func(storage.Change)
	if existed {
		fns = s.region.collectSubscribers(key, s.origin)
	}
	s.region.mu.Unlock()

	for _, fn := range fns {
		fn(storage.Change{Key: key})
	}
	return nil
}

// Watch registers fn for changes to key made by other stores in the region.
func (s *Store) Watch(ctx context.Context, key string, fn func(storage.Change)) (func(), error) {
	s.region.mu.Lock()
	s.region.subs[s.origin] = append(s.region.subs[s.origin], subscription{key: key, fn: fn})
	idx := len(s.region.subs[s.origin]) - 1
	s.region.mu.Unlock()

	cancel := func() {
		s.region.mu.Lock()
		defer s.region.mu.Unlock()
		subs := s.region.subs[s.origin]
		if idx < len(subs) {
			subs[idx].fn = nil
		}
	}
	return cancel, nil
}

// collectSubscribers gathers matching callbacks from every instance except the
// originator. Caller holds the region lock.
func (r *Region) collectSubscribers(key string, origin uuid.UUID) []func(storage.Change) {
	var fns []func(storage.Change)
	for subOrigin, subs := range r.subs {
		if subOrigin == origin {
			continue
		}
		for _, sub := range subs {
			if sub.key == key && sub.fn != nil {
				fns = append(fns, sub.fn)
			}
		}
	}
	return fns
}
