// bus/bus_test.go
package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludopad/ludopad/protocol"
	"github.com/ludopad/ludopad/storage"
	"github.com/ludopad/ludopad/storage/memory"
)

func TestDispatchRunsHandlersInOrder(t *testing.T) {
	b := New(nil, nil)
	var order []string
	b.RegisterHandler(func(protocol.Message) { order = append(order, "first") })
	b.RegisterHandler(func(protocol.Message) { order = append(order, "second") })

	msg, err := protocol.ParseMessage([]byte(`{"type":"battery","percent":50}`))
	require.NoError(t, err)
	b.Dispatch(msg)

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatchWithoutHandlersDrops(t *testing.T) {
	b := New(nil, nil)
	msg, err := protocol.ParseMessage([]byte(`{"type":"dice_result","value":6}`))
	require.NoError(t, err)
	assert.NotPanics(t, func() { b.Dispatch(msg) })
}

func TestRegisterNilHandler(t *testing.T) {
	b := New(nil, nil)
	b.RegisterHandler(nil)
	msg, err := protocol.ParseMessage([]byte(`{"type":"battery"}`))
	require.NoError(t, err)
	assert.NotPanics(t, func() { b.Dispatch(msg) })
}

func TestSubscribeChangesWithoutWatcher(t *testing.T) {
	b := New(nil, nil)
	err := b.SubscribeChanges(context.Background(), storage.KeyUsers, func(storage.Change) {
		t.Fatal("unexpected change event")
	})
	assert.NoError(t, err)
}

func TestSubscribeChangesSeesForeignWrites(t *testing.T) {
	region := memory.NewRegion()
	mine := region.NewStore()
	other := region.NewStore()
	ctx := context.Background()

	b := New(mine, nil)
	var events []storage.Change
	require.NoError(t, b.SubscribeChanges(ctx, storage.KeyUsers, func(c storage.Change) {
		events = append(events, c)
	}))

	require.NoError(t, mine.Set(ctx, storage.KeyUsers, []byte("[]")))
	assert.Empty(t, events, "own writes are invisible")

	require.NoError(t, other.Set(ctx, storage.KeyUsers, []byte("[]")))
	require.Len(t, events, 1)
	assert.Equal(t, storage.KeyUsers, events[0].Key)
}

func TestCloseCancelsSubscriptions(t *testing.T) {
	region := memory.NewRegion()
	mine := region.NewStore()
	other := region.NewStore()
	ctx := context.Background()

	b := New(mine, nil)
	var events int
	require.NoError(t, b.SubscribeChanges(ctx, storage.KeyGameStart, func(storage.Change) { events++ }))

	require.NoError(t, other.Set(ctx, storage.KeyGameStart, []byte("1")))
	b.Close()
	require.NoError(t, other.Set(ctx, storage.KeyGameStart, []byte("2")))

	assert.Equal(t, 1, events)
}
