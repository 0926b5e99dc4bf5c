package signaling

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

// relay registers the client and then replays script, forwarding every
// message the client sends to received.
func relay(t *testing.T, received chan<- Message, script ...Message) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var reg Message
		if err := conn.ReadJSON(&reg); err != nil {
			return
		}
		received <- reg
		_ = conn.WriteJSON(Message{Type: TypeRegistered})
		for _, m := range script {
			_ = conn.WriteJSON(m)
		}
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			received <- msg
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientRegistersAndDispatches(t *testing.T) {
	received := make(chan Message, 8)
	srv := relay(t, received,
		Message{Type: TypeAnswer, From: "host-1", Payload: json.RawMessage(`{"sdp":"x"}`)},
		Message{Type: TypeICECandidate, From: "host-1", Payload: json.RawMessage(`{"candidate":"c"}`)},
		Message{Type: TypeHosts, List: []HostInfo{{ID: "host-1", Online: true}}},
		Message{Type: TypeError, Msg: "busy"},
		Message{Type: TypeHostDisconnected, HostID: "host-1"},
	)

	registered := make(chan struct{}, 1)
	answers := make(chan string, 1)
	candidates := make(chan string, 1)
	hosts := make(chan []HostInfo, 1)
	errs := make(chan string, 1)
	gone := make(chan string, 1)
	c := NewClient(wsURL(srv), "ctrl-1", Handler{
		OnRegistered:       func() { registered <- struct{}{} },
		OnAnswer:           func(from string, p json.RawMessage) { answers <- from + string(p) },
		OnICECandidate:     func(from string, p json.RawMessage) { candidates <- from + string(p) },
		OnHostsUpdated:     func(h []HostInfo) { hosts <- h },
		OnError:            func(msg string) { errs <- msg },
		OnHostDisconnected: func(id string) { gone <- id },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	reg := <-received
	assert.Equal(t, Message{Type: TypeRegister, ID: "ctrl-1", ClientType: ClientTypeController}, reg)

	<-registered
	assert.Equal(t, `host-1{"sdp":"x"}`, <-answers)
	assert.Equal(t, `host-1{"candidate":"c"}`, <-candidates)
	assert.Equal(t, []HostInfo{{ID: "host-1", Online: true}}, <-hosts)
	assert.Equal(t, "busy", <-errs)
	assert.Equal(t, "host-1", <-gone)

	require.NoError(t, c.SendOffer("host-1", json.RawMessage(`{"type":"offer"}`)))
	offer := <-received
	assert.Equal(t, TypeOffer, offer.Type)
	assert.Equal(t, "host-1", offer.Target)
	assert.JSONEq(t, `{"type":"offer"}`, string(offer.Payload))

	require.NoError(t, c.RequestHostList())
	assert.Equal(t, TypeListHosts, (<-received).Type)
}

func TestClientCloseStopsSending(t *testing.T) {
	received := make(chan Message, 8)
	srv := relay(t, received)
	c := NewClient(wsURL(srv), "ctrl-1", Handler{})

	assert.ErrorIs(t, c.SendOffer("h", nil), ErrNotConnected)
	require.NoError(t, c.Connect(context.Background()))
	c.Close()
	c.Close()

	<-c.Done()
	assert.ErrorIs(t, c.SendICECandidate("h", nil), ErrNotConnected)
}

func TestClientDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := NewClient("ws://127.0.0.1:1/", "x", Handler{}).Connect(ctx)
	assert.Error(t, err)
}

// hostRelay answers list-hosts with hosts, or with an error when hosts
// is nil.
func hostRelay(t *testing.T, hosts []HostInfo) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Type {
			case TypeRegister:
				_ = conn.WriteJSON(Message{Type: TypeRegistered})
			case TypeListHosts:
				if hosts == nil {
					_ = conn.WriteJSON(Message{Type: TypeError, Msg: "listing disabled"})
				} else {
					_ = conn.WriteJSON(Message{Type: TypeHosts, List: hosts})
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestListHosts(t *testing.T) {
	want := []HostInfo{{ID: "host-1", Online: true}, {ID: "host-2"}}
	srv := hostRelay(t, want)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := ListHosts(ctx, wsURL(srv), "ctrl-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestListHostsRelayError(t *testing.T) {
	srv := hostRelay(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := ListHosts(ctx, wsURL(srv), "ctrl-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing disabled")
}
