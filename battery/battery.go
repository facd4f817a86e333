// battery/battery.go
package battery

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ludopad/ludopad/bus"
	"github.com/ludopad/ludopad/protocol"
)

// MaxSamples bounds the in-memory history; older samples are evicted.
const MaxSamples = 200

// Sample is one observed charge level.
type Sample struct {
	Time    time.Time
	Percent int
}

// Monitor accumulates battery reports from the device. It is owned by a view
// and fed through the bus, replacing the module-level sample buffer of the
// original.
type Monitor struct {
	mu      sync.Mutex
	samples []Sample
	latest  protocol.BatteryStatus
	has     bool

	now func() time.Time
	log *logrus.Logger
}

// NewMonitor creates an empty monitor.
func NewMonitor(log *logrus.Logger) *Monitor {
	if log == nil {
		log = logrus.New()
	}
	return &Monitor{now: time.Now, log: log}
}

// Attach registers the monitor as a payload handler.
func (m *Monitor) Attach(b *bus.Bus) {
	b.RegisterHandler(m.Handle)
}

// Handle consumes battery messages and ignores everything else.
func (m *Monitor) Handle(msg protocol.Message) {
	status, ok := msg.Battery()
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = status
	m.has = true
	m.samples = append(m.samples, Sample{Time: m.now(), Percent: status.Percent})
	if len(m.samples) > MaxSamples {
		m.samples = m.samples[len(m.samples)-MaxSamples:]
	}
	m.log.Debugf("battery: %d%% (%d mV)", status.Percent, status.Millivolts)
}

// Latest returns the most recent report, if any arrived yet.
func (m *Monitor) Latest() (protocol.BatteryStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, m.has
}

// Samples returns a copy of the history, oldest first.
func (m *Monitor) Samples() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sample, len(m.samples))
	copy(out, m.samples)
	return out
}
