// Package ws owns the lifecycle of the single live connection to the
// server's event channel: connect, decode inbound frames, detect closure,
// and redial after a fixed delay. It performs no interpretation of payload
// semantics beyond tag decode.
package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tickwatch/tickwatch/internal/event"
)

// State is the connection lifecycle state.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Msg is one notification from the connection: either a state transition or
// a decoded frame.
type Msg interface{ isMsg() }

// StateMsg reports a lifecycle transition with human-readable detail.
type StateMsg struct {
	State  State
	Detail string
}

// EventMsg carries one decoded frame, unmodified.
type EventMsg struct {
	Event event.Event
}

func (StateMsg) isMsg() {}
func (EventMsg) isMsg() {}

const (
	// DefaultReconnectDelay matches the portal's fixed retry interval.
	DefaultReconnectDelay = 3 * time.Second

	pingInterval = 30 * time.Second
	readTimeout  = 90 * time.Second
	writeTimeout = 10 * time.Second
)

// Conn manages one live websocket connection. Exactly one is live at a
// time; a redial supersedes the previous socket.
type Conn struct {
	url   string
	delay time.Duration
	log   zerolog.Logger
	msgs  chan Msg
}

func New(url string, delay time.Duration, log zerolog.Logger) *Conn {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &Conn{
		url:   url,
		delay: delay,
		log:   log,
		msgs:  make(chan Msg, 16),
	}
}

// Messages returns the notification channel. It is closed when Run returns.
func (c *Conn) Messages() <-chan Msg { return c.msgs }

// Run dials and reads frames until ctx is cancelled, redialing after the
// fixed delay on every closure. The loop never gives up on its own;
// cancelling ctx is the only way out and closes the socket and the pending
// retry timer deterministically.
func (c *Conn) Run(ctx context.Context) {
	defer close(c.msgs)

	for {
		if ctx.Err() != nil {
			return
		}
		c.send(ctx, StateMsg{State: StateConnecting, Detail: "Connecting..."})

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn().Err(err).Str("url", c.url).Msg("dial failed")
			c.send(ctx, StateMsg{State: StateDisconnected, Detail: "Connection error"})
			if !c.wait(ctx) {
				return
			}
			continue
		}

		c.log.Info().Str("url", c.url).Msg("connected")
		c.send(ctx, StateMsg{State: StateConnected, Detail: "Connected to server"})

		err = c.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.log.Warn().Err(err).Msg("disconnected")
		c.send(ctx, StateMsg{State: StateDisconnected, Detail: "Disconnected from server"})
		if !c.wait(ctx) {
			return
		}
	}
}

// readLoop reads frames until the connection errors or ctx is cancelled.
// A keepalive goroutine sends a text "ping" the server answers with a pong
// frame; the pong resets the read deadline like any other frame.
func (c *Conn) readLoop(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				// Unblocks the pending ReadMessage below.
				conn.Close()
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
					return
				}
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := event.Decode(raw)
		if err != nil {
			// Fail closed: drop the frame, never crash the loop.
			c.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}
		if !ev.Known() {
			c.log.Warn().Str("type", string(ev.Type)).Msg("dropping unknown frame type")
			continue
		}
		if !c.send(ctx, EventMsg{Event: ev}) {
			return ctx.Err()
		}
	}
}

// wait sleeps for the reconnect delay; false means ctx was cancelled.
func (c *Conn) wait(ctx context.Context) bool {
	t := time.NewTimer(c.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Conn) send(ctx context.Context, m Msg) bool {
	select {
	case c.msgs <- m:
		return true
	case <-ctx.Done():
		return false
	}
}
