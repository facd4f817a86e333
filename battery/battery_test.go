// battery/battery_test.go
package battery

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludopad/ludopad/bus"
	"github.com/ludopad/ludopad/protocol"
)

func batteryMessage(t *testing.T, percent, mv int) protocol.Message {
	t.Helper()
	msg, err := protocol.ParseMessage([]byte(fmt.Sprintf(`{"type":"battery","percent":%d,"mv":%d}`, percent, mv)))
	require.NoError(t, err)
	return msg
}

func TestHandleRecordsLatest(t *testing.T) {
	m := NewMonitor(nil)

	_, ok := m.Latest()
	assert.False(t, ok)

	m.Handle(batteryMessage(t, 80, 3950))
	m.Handle(batteryMessage(t, 79, 3940))

	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, 79, latest.Percent)
	assert.Equal(t, 3940, latest.Millivolts)
	assert.Len(t, m.Samples(), 2)
}

func TestHandleIgnoresOtherMessages(t *testing.T) {
	m := NewMonitor(nil)
	msg, err := protocol.ParseMessage([]byte(`{"type":"dice_result","value":6}`))
	require.NoError(t, err)
	m.Handle(msg)

	_, ok := m.Latest()
	assert.False(t, ok)
	assert.Empty(t, m.Samples())
}

func TestHistoryEviction(t *testing.T) {
	m := NewMonitor(nil)
	clock := time.Unix(1700000000, 0)
	m.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for i := 0; i < MaxSamples+25; i++ {
		m.Handle(batteryMessage(t, 100-i%50, 4000))
	}

	samples := m.Samples()
	require.Len(t, samples, MaxSamples)
	// Oldest entries were evicted, so the window ends at the last report.
	assert.True(t, samples[len(samples)-1].Time.After(samples[0].Time))
	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, latest.Percent, samples[len(samples)-1].Percent)
}

func TestAttachFeedsFromBus(t *testing.T) {
	m := NewMonitor(nil)
	b := bus.New(nil, nil)
	m.Attach(b)

	b.Dispatch(batteryMessage(t, 42, 3700))

	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, 42, latest.Percent)
}

func TestSamplesReturnsCopy(t *testing.T) {
	m := NewMonitor(nil)
	m.Handle(batteryMessage(t, 50, 3800))

	samples := m.Samples()
	samples[0].Percent = -1

	assert.Equal(t, 50, m.Samples()[0].Percent)
}
