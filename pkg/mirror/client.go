package mirror

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// DefaultRetryDelay is the fixed reconnect delay. Reconnection is
// unconditional with no backoff and no retry cap; this is a local tool and
// the server is expected back shortly.
const DefaultRetryDelay = 3 * time.Second

// Client connects to a taskdeck server, feeds every received message into
// the mirror, and reconnects forever on a fixed delay.
type Client struct {
	url        string
	mirror     *Mirror
	retryDelay time.Duration
	dialer     *websocket.Dialer
	updates    chan struct{}
	log        zerolog.Logger
}

// NewClient creates a client for the given websocket URL.
func NewClient(url string, m *Mirror, log zerolog.Logger) *Client {
	return &Client{
		url:        url,
		mirror:     m,
		retryDelay: DefaultRetryDelay,
		dialer:     websocket.DefaultDialer,
		updates:    make(chan struct{}, 1),
		log:        log.With().Str("component", "mirror").Logger(),
	}
}

// SetRetryDelay overrides the fixed reconnect delay.
func (c *Client) SetRetryDelay(d time.Duration) {
	if d > 0 {
		c.retryDelay = d
	}
}

// Updates signals whenever the mirror content or connection state changed.
// Signals coalesce; consumers re-read the mirror on each one.
func (c *Client) Updates() <-chan struct{} {
	return c.updates
}

// Run drives the connection state machine until the context is canceled:
// disconnected -> connecting -> connected -> disconnected, retrying from
// disconnected after the fixed delay.
func (c *Client) Run(ctx context.Context) error {
	for {
		c.transition(StateConnecting)

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.log.Debug().Err(err).Str("url", c.url).Msg("dial failed")
			c.transition(StateDisconnected)
			if !c.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		c.transition(StateConnected)
		c.readLoop(ctx, conn)
		c.transition(StateDisconnected)

		if !c.sleep(ctx) {
			return ctx.Err()
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	// Unblock ReadMessage when the context is canceled
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.log.Debug().Err(err).Msg("connection lost")
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn().Err(err).Msg("malformed server message")
			continue
		}

		c.mirror.Apply(msg)
		c.signal()
	}
}

func (c *Client) transition(s ConnState) {
	c.mirror.SetState(s)
	c.signal()
}

func (c *Client) signal() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// sleep waits out the retry delay. Returns false when the context ended.
func (c *Client) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.retryDelay):
		return true
	}
}
