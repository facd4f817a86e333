// bus/bus.go
package bus

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ludopad/ludopad/protocol"
	"github.com/ludopad/ludopad/storage"
)

// Bus fans events out to whatever a view registered. It carries two
// independent paths: inbound peer messages to payload handlers, and
// cross-view change signals for shared storage keys. Both are
// at-most-once-per-event with no buffering or replay.
type Bus struct {
	mu       sync.Mutex
	handlers []func(protocol.Message)
	cancels  []func()

	watcher storage.Watcher
	log     *logrus.Logger
}

// New creates a bus. The watcher may be nil for views that never observe
// cross-view changes.
func New(watcher storage.Watcher, log *logrus.Logger) *Bus {
	if log == nil {
		log = logrus.New()
	}
	return &Bus{watcher: watcher, log: log}
}

// RegisterHandler adds a payload handler. Handlers run in registration order
// and must not assume anything beyond that.
func (b *Bus) RegisterHandler(fn func(protocol.Message)) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, fn)
}

// Dispatch delivers one parsed inbound message to every registered handler.
// With no handlers registered the message is dropped, not queued.
func (b *Bus) Dispatch(msg protocol.Message) {
	b.mu.Lock()
	handlers := make([]func(protocol.Message), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	if len(handlers) == 0 {
		b.log.Debugf("bus: dropping %q message, no handlers registered", msg.Type)
		return
	}
	for _, fn := range handlers {
		fn(msg)
	}
}

// SubscribeChanges registers fn for mutations of a shared storage key made by
// other views. The subscriber is expected to re-derive its state from a fresh
// read; the event carries only the key.
func (b *Bus) SubscribeChanges(ctx context.Context, key string, fn func(storage.Change)) error {
	if b.watcher == nil {
		b.log.Debugf("bus: no watcher configured, ignoring subscription for %q", key)
		return nil
	}
	cancel, err := b.watcher.Watch(ctx, key, fn)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()
	return nil
}

// Close cancels every change subscription. Payload handlers need no cleanup;
// they die with the view.
func (b *Bus) Close() {
	b.mu.Lock()
	cancels := b.cancels
	b.cancels = nil
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
