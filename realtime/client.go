// realtime/client.go
package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ludopad/ludopad/bus"
	"github.com/ludopad/ludopad/models"
	"github.com/ludopad/ludopad/protocol"
)

// ConnState is the connection lifecycle position.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ContextBattery is the connection purpose that triggers an immediate status
// request once the link is up.
const ContextBattery = "battery"

// Alerter shows a blocking user-visible notice. The view supplies it; tests
// supply a collector.
type Alerter interface {
	Alert(message string)
}

// Client manages the single connection to the board device.
//
// Reconnection is manual only: once the link drops the client stays
// Disconnected until Connect is called again. There is deliberately no retry
// or backoff, and no outbound queue; a send while disconnected fails
// immediately.
type Client struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	state   ConnState
	connCtx context.Context
	cancel  context.CancelFunc

	url     string
	purpose string
	bus     *bus.Bus
	alerter Alerter
	log     *logrus.Logger
}

// New creates a client for the device endpoint. The alerter may be nil, in
// which case alert side effects are skipped.
func New(url string, b *bus.Bus, alerter Alerter, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.New()
	}
	return &Client{url: url, bus: b, alerter: alerter, log: log}
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the device. purpose tags what the view wanted the link for;
// a "battery" connection immediately asks for a status report. Any previous
// connection is torn down first.
func (c *Client) Connect(ctx context.Context, purpose string) error {
	c.mu.Lock()
	if c.conn != nil {
		c.teardownLocked(websocket.StatusNormalClosure, "reconnecting")
	}
	c.state = Connecting
	c.purpose = purpose
	c.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.state = Disconnected
		c.mu.Unlock()
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	connCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.connCtx = connCtx
	c.cancel = cancel
	c.state = Connected
	c.mu.Unlock()

	c.log.Infof("realtime: connected to %s (context %q)", c.url, purpose)

	if purpose == ContextBattery {
		if err := c.Send(protocol.CommandBatteryQuery); err != nil {
			c.log.Warnf("realtime: battery status request failed: %v", err)
		}
	}

	go c.readPump(connCtx, conn)
	return nil
}

// Send transmits one command if the link is up. While not Connected it
// reports ErrNotConnected and raises the blocking notice, transmitting
// nothing.
func (c *Client) Send(cmd string) error {
	c.mu.Lock()
	conn := c.conn
	ctx := c.connCtx
	connected := c.state == Connected
	c.mu.Unlock()

	if !connected || conn == nil {
		if c.alerter != nil {
			c.alerter.Alert("No connection to the board device.")
		}
		return models.ErrNotConnected
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(cmd)); err != nil {
		return fmt.Errorf("failed to send %q: %w", cmd, err)
	}
	return nil
}

// readPump consumes inbound frames until the connection dies, then leaves
// the client Disconnected.
func (c *Client) readPump(ctx context.Context, conn *websocket.Conn) {
	defer c.markDisconnected(conn)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				c.log.Infof("realtime: connection closed")
			} else if strings.Contains(err.Error(), "context canceled") {
				// Local teardown, already logged.
			} else {
				c.log.Warnf("realtime: read error: %v", err)
			}
			return
		}
		if typ != websocket.MessageText {
			c.log.Warnf("realtime: ignoring non-text frame type %d", typ)
			continue
		}
		c.handleFrame(data)
	}
}

// handleFrame parses one inbound frame and dispatches it. Undecodable frames
// are opaque diagnostics from the device, logged and dropped.
func (c *Client) handleFrame(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		c.log.Infof("realtime: device says: %s", strings.TrimSpace(string(data)))
		return
	}

	// Legacy direct side effect, independent of handler dispatch.
	if value, ok := msg.DiceValue(); ok && c.alerter != nil {
		c.alerter.Alert(fmt.Sprintf("Dice result: %d", value))
	}

	c.bus.Dispatch(msg)
}

func (c *Client) markDisconnected(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Only clear state if this connection is still the current one.
	if c.conn == conn {
		c.teardownLocked(websocket.StatusNormalClosure, "read loop finished")
	}
}

// teardownLocked closes the current connection. Caller holds the lock.
func (c *Client) teardownLocked(code websocket.StatusCode, reason string) {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close(code, reason)
		c.conn = nil
	}
	c.connCtx = nil
	c.state = Disconnected
}

// Close tears the connection down. The client may be reused with Connect.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked(websocket.StatusNormalClosure, "view closed")
}
