package terminal

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/deskview/internal/events"
	"github.com/junsooki/deskview/internal/tty"
)

type fakeStream struct {
	*events.Emitter[tty.Event]
}

func (f fakeStream) On(kind tty.Event, fn events.Listener) events.Subscription {
	return f.Subscribe(kind, fn)
}

func (f fakeStream) RemoveAllListeners() {
	f.RemoveAll()
}

type fakeBackend struct {
	info      Info
	fetchErr  error
	createErr error
	stream    fakeStream
	fetched   string
	created   []string
}

func (b *fakeBackend) FetchSession(_ context.Context, _, sessionID string) (Info, error) {
	b.fetched = sessionID
	return b.info, b.fetchErr
}

func (b *fakeBackend) CreateSession(_ context.Context, _, serverID, login string) (Info, error) {
	b.created = []string{serverID, login}
	return b.info, b.createErr
}

func (b *fakeBackend) OpenStream(Info) Stream {
	return b.stream
}

type fakeWorkspace struct {
	mu      sync.Mutex
	closed  []int
	updates []DocumentUpdate
}

func (w *fakeWorkspace) CloseTab(docID int) {
	w.mu.Lock()
	w.closed = append(w.closed, docID)
	w.mu.Unlock()
}

func (w *fakeWorkspace) UpdateDocument(_ int, u DocumentUpdate) {
	w.mu.Lock()
	w.updates = append(w.updates, u)
	w.mu.Unlock()
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		info:   Info{ID: "s1", Login: "root", Hostname: "node-1"},
		stream: fakeStream{events.NewEmitter[tty.Event]()},
	}
}

func TestSessionJoinsExisting(t *testing.T) {
	backend := newFakeBackend()
	ws := &fakeWorkspace{}
	s := New(Document{ID: 7, SessionID: "s1"}, backend, ws)

	status, _ := s.Status()
	assert.Equal(t, StatusLoading, status)
	require.NoError(t, s.Start(context.Background()))

	status, _ = s.Status()
	assert.Equal(t, StatusInitialized, status)
	assert.Equal(t, "s1", backend.fetched)
	assert.Nil(t, backend.created)
	info, ok := s.Info()
	require.True(t, ok)
	assert.Equal(t, "node-1", info.Hostname)
	assert.NotNil(t, s.Stream())
}

func TestSessionLookupFailures(t *testing.T) {
	backend := newFakeBackend()
	backend.fetchErr = errors.New("no such session")
	s := New(Document{SessionID: "gone"}, backend, &fakeWorkspace{})
	require.Error(t, s.Start(context.Background()))
	status, text := s.Status()
	assert.Equal(t, StatusNotFound, status)
	assert.Equal(t, "no such session", text)
	_, ok := s.Info()
	assert.False(t, ok)

	backend = newFakeBackend()
	backend.createErr = errors.New("access denied")
	s = New(Document{ServerID: "srv", Login: "root"}, backend, &fakeWorkspace{})
	require.Error(t, s.Start(context.Background()))
	status, text = s.Status()
	assert.Equal(t, StatusError, status)
	assert.Equal(t, "access denied", text)
	assert.Equal(t, []string{"srv", "root"}, backend.created)
	assert.Nil(t, s.Stream())
}

func TestSessionOpenAndConnClose(t *testing.T) {
	backend := newFakeBackend()
	ws := &fakeWorkspace{}
	s := New(Document{ID: 3, Login: "root"}, backend, ws)
	require.NoError(t, s.Start(context.Background()))

	backend.stream.Emit(tty.EventOpen, nil)
	backend.stream.Emit(tty.EventConnClose, nil)

	require.Len(t, ws.updates, 2)
	assert.Equal(t, DocumentConnected, ws.updates[0].Status)
	assert.Equal(t, "root@node-1", ws.updates[0].Title)
	assert.Equal(t, "s1", ws.updates[0].Info.ID)
	assert.Equal(t, DocumentUpdate{Status: DocumentDisconnected}, ws.updates[1])
}

func TestSessionJoinTitleUsesDocumentLogin(t *testing.T) {
	backend := newFakeBackend()
	backend.info.Login = ""
	ws := &fakeWorkspace{}
	s := New(Document{ID: 4, SessionID: "s1", Login: "admin"}, backend, ws)
	require.NoError(t, s.Start(context.Background()))

	backend.stream.Emit(tty.EventOpen, nil)
	require.Len(t, ws.updates, 1)
	assert.Equal(t, "admin@node-1", ws.updates[0].Title)
	info, _ := s.Info()
	assert.Equal(t, "admin", info.Login)
}

func TestSessionCloseTabDependsOnLastOutput(t *testing.T) {
	cases := []struct {
		name   string
		output []any
		closes bool
	}{
		{name: "no output", closes: false},
		{name: "normal exit", output: []any{[]byte("bye\r\n")}, closes: true},
		{name: "launch failure", output: []any{[]byte("ok"), []byte("Failed to launch: no shell")}, closes: false},
		{name: "failure then more output", output: []any{"Failed to launch", "logout"}, closes: true},
		{name: "empty last payload", output: []any{[]byte("x"), []byte{}}, closes: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := newFakeBackend()
			ws := &fakeWorkspace{}
			s := New(Document{ID: 9, Login: "root"}, backend, ws)
			require.NoError(t, s.Start(context.Background()))

			for _, p := range tc.output {
				backend.stream.Emit(tty.EventData, p)
			}
			backend.stream.Emit(tty.EventClose, nil)

			if tc.closes {
				assert.Equal(t, []int{9}, ws.closed)
			} else {
				assert.Empty(t, ws.closed)
			}
		})
	}
}

func TestSessionCleanupRemovesListeners(t *testing.T) {
	backend := newFakeBackend()
	s := New(Document{Login: "root"}, backend, &fakeWorkspace{})
	s.Cleanup()
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, backend.stream.ListenerCount(tty.EventOpen))

	s.Cleanup()
	for _, kind := range []tty.Event{tty.EventData, tty.EventClose, tty.EventConnClose, tty.EventOpen} {
		assert.Zero(t, backend.stream.ListenerCount(kind), kind)
	}
}

func TestDirectBackend(t *testing.T) {
	b := &DirectBackend{URL: "ws://proxy.local/term?cluster=one", Hostname: "node-1"}

	_, err := b.CreateSession(context.Background(), "one", "srv", "")
	assert.Error(t, err)

	info, err := b.CreateSession(context.Background(), "one", "srv", "root")
	require.NoError(t, err)
	assert.Len(t, info.ID, 36)

	joined, err := b.FetchSession(context.Background(), "one", info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, joined.ID)
	assert.Empty(t, joined.Login)

	b.Login = "root"
	joined, err = b.FetchSession(context.Background(), "one", info.ID)
	require.NoError(t, err)
	assert.Equal(t, "root", joined.Login)

	_, err = b.FetchSession(context.Background(), "one", "nope")
	assert.Error(t, err)

	u, err := url.Parse(b.StreamURL(info))
	require.NoError(t, err)
	assert.Equal(t, "one", u.Query().Get("cluster"))
	assert.Equal(t, info.ID, u.Query().Get("sid"))
	assert.Equal(t, "root", u.Query().Get("login"))
	assert.Equal(t, "srv", u.Query().Get("server"))

	_, ok := b.OpenStream(info).(*tty.Tty)
	assert.True(t, ok)
}
