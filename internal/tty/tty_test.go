package tty

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// terminalServer greets with a prompt, echoes input and ends the session
// when it receives a resize to 0x0.
func terminalServer(t *testing.T, resizes chan<- control) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("$ "))
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.BinaryMessage {
				_ = conn.WriteMessage(websocket.BinaryMessage, data)
				continue
			}
			var msg control
			if json.Unmarshal(data, &msg) != nil {
				continue
			}
			resizes <- msg
			if msg.Width == 0 && msg.Height == 0 {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"close"}`))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func collect(tt *Tty, kind Event) <-chan any {
	ch := make(chan any, 16)
	tt.On(kind, func(p any) { ch <- p })
	return ch
}

func wait(t *testing.T, ch <-chan any) any {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tty event")
		return nil
	}
}

func TestTtyStreamsDataAndEvents(t *testing.T) {
	resizes := make(chan control, 4)
	srv := terminalServer(t, resizes)

	tt := New(wsURL(srv), nil)
	opened := collect(tt, EventOpen)
	data := collect(tt, EventData)
	closed := collect(tt, EventClose)
	connClosed := collect(tt, EventConnClose)

	assert.ErrorIs(t, tt.Send([]byte("x")), ErrNotConnected)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tt.Connect(ctx))
	defer tt.Close()

	wait(t, opened)
	assert.Equal(t, []byte("$ "), wait(t, data))

	require.NoError(t, tt.Send([]byte("ls\r")))
	assert.Equal(t, []byte("ls\r"), wait(t, data))

	require.NoError(t, tt.Resize(120, 40))
	assert.Equal(t, control{Event: "resize", Width: 120, Height: 40}, <-resizes)

	require.NoError(t, tt.Resize(0, 0))
	wait(t, closed)
	wait(t, connClosed)
}

func TestTtyRemoveAllListeners(t *testing.T) {
	srv := terminalServer(t, make(chan control, 4))
	tt := New(wsURL(srv), nil)
	data := collect(tt, EventData)
	tt.RemoveAllListeners()

	require.NoError(t, tt.Connect(context.Background()))
	defer tt.Close()

	select {
	case v := <-data:
		t.Fatalf("listener still attached, got %v", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTtyCloseEmitsConnClose(t *testing.T) {
	srv := terminalServer(t, make(chan control, 4))
	tt := New(wsURL(srv), nil)
	connClosed := collect(tt, EventConnClose)

	require.NoError(t, tt.Connect(context.Background()))
	require.NoError(t, tt.Close())
	require.NoError(t, tt.Close())
	wait(t, connClosed)

	assert.ErrorIs(t, tt.Send([]byte("x")), ErrNotConnected)
	assert.Error(t, tt.Connect(context.Background()))
}

func TestTtyDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, New("ws://127.0.0.1:1/tty", nil).Connect(ctx))
}
