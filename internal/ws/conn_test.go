package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickwatch/tickwatch/internal/event"
)

var upgrader = websocket.Upgrader{}

// testServer upgrades each request and hands the socket to handle.
func testServer(t *testing.T, handle func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// next reads one message with a timeout so a broken loop fails fast.
func next(t *testing.T, msgs <-chan Msg) Msg {
	t.Helper()
	select {
	case m, ok := <-msgs:
		require.True(t, ok, "message channel closed unexpectedly")
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection message")
		return nil
	}
}

// nextState skips event messages until a state transition arrives.
func nextState(t *testing.T, msgs <-chan Msg) StateMsg {
	t.Helper()
	for {
		if sm, ok := next(t, msgs).(StateMsg); ok {
			return sm
		}
	}
}

func TestRun_ConnectAndReceive(t *testing.T) {
	frames := make(chan string, 4)
	srv := testServer(t, func(conn *websocket.Conn) {
		for f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the socket open until the test ends.
		conn.ReadMessage()
	})

	c := New(wsURL(srv), 50*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	assert.Equal(t, StateConnecting, nextState(t, c.Messages()).State)
	connected := nextState(t, c.Messages())
	assert.Equal(t, StateConnected, connected.State)
	assert.Equal(t, "Connected to server", connected.Detail)

	frames <- `{"type":"processing_start","message":"working"}`
	em, ok := next(t, c.Messages()).(EventMsg)
	require.True(t, ok, "expected an event message")
	assert.Equal(t, event.TypeProcessingStart, em.Event.Type)
	assert.Equal(t, "working", em.Event.Message)
}

func TestRun_MalformedAndUnknownFramesDropped(t *testing.T) {
	frames := make(chan string, 4)
	srv := testServer(t, func(conn *websocket.Conn) {
		for f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		conn.ReadMessage()
	})

	c := New(wsURL(srv), 50*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	nextState(t, c.Messages()) // connecting
	nextState(t, c.Messages()) // connected

	frames <- `not json at all`
	frames <- `{"type":"ticket_vanished","message":"?"}`
	frames <- `{"type":"stage_update","stage":"Closure","message":"closing"}`

	// Only the well-formed, known frame comes through.
	em, ok := next(t, c.Messages()).(EventMsg)
	require.True(t, ok)
	assert.Equal(t, event.TypeStageUpdate, em.Event.Type)
	assert.Equal(t, "Closure", em.Event.Stage)
}

func TestRun_ReconnectsAfterClosure(t *testing.T) {
	dials := make(chan struct{}, 4)
	srv := testServer(t, func(conn *websocket.Conn) {
		dials <- struct{}{}
		// Drop the connection immediately; client must redial.
	})

	c := New(wsURL(srv), 50*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	nextState(t, c.Messages()) // connecting
	assert.Equal(t, StateConnected, nextState(t, c.Messages()).State)
	disc := nextState(t, c.Messages())
	assert.Equal(t, StateDisconnected, disc.State)

	// After the fixed delay a fresh attempt happens.
	assert.Equal(t, StateConnecting, nextState(t, c.Messages()).State)
	select {
	case <-dials:
	case <-time.After(2 * time.Second):
		t.Fatal("no initial dial observed")
	}
	select {
	case <-dials:
	case <-time.After(2 * time.Second):
		t.Fatal("no reconnect dial observed")
	}
}

func TestRun_CancelStopsLoopAndClosesChannel(t *testing.T) {
	srv := testServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage() // hold open
	})

	c := New(wsURL(srv), 50*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	nextState(t, c.Messages()) // connecting
	nextState(t, c.Messages()) // connected
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	// Channel drains then closes.
	for {
		if _, ok := <-c.Messages(); !ok {
			return
		}
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
}
