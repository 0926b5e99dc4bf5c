// Package terminal tracks one SSH terminal document: it joins or creates
// the session, attaches its stream and reports what happened to the
// workspace that owns the document.
package terminal

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/junsooki/deskview/internal/events"
	"github.com/junsooki/deskview/internal/tty"
)

// Status of the session lookup.
type Status string

const (
	StatusLoading     Status = "loading"
	StatusInitialized Status = "initialized"
	StatusNotFound    Status = "notfound"
	StatusError       Status = "error"
)

// DocumentStatus is the connection state shown on the document.
type DocumentStatus string

const (
	DocumentConnected    DocumentStatus = "connected"
	DocumentDisconnected DocumentStatus = "disconnected"
)

// launchFailure is written into the stream when the remote shell never
// started.
const launchFailure = "Failed to launch"

// Document identifies the terminal tab. An empty SessionID creates a new
// session; otherwise the existing one is joined.
type Document struct {
	ID        int
	ClusterID string
	SessionID string
	ServerID  string
	Login     string
}

// Info describes a live SSH session.
type Info struct {
	ID        string
	ClusterID string
	ServerID  string
	Login     string
	Hostname  string
}

// DocumentUpdate is applied to the document by the workspace.
type DocumentUpdate struct {
	Status DocumentStatus
	Title  string
	Info   *Info
}

// Stream is the part of a terminal stream the tracker listens to.
// *tty.Tty satisfies it.
type Stream interface {
	On(kind tty.Event, fn events.Listener) events.Subscription
	RemoveAllListeners()
}

// Backend finds or creates sessions and opens their streams.
type Backend interface {
	FetchSession(ctx context.Context, clusterID, sessionID string) (Info, error)
	CreateSession(ctx context.Context, clusterID, serverID, login string) (Info, error)
	OpenStream(info Info) Stream
}

// Workspace owns the document.
type Workspace interface {
	CloseTab(docID int)
	UpdateDocument(docID int, update DocumentUpdate)
}

// Session tracks one document.
type Session struct {
	doc       Document
	backend   Backend
	workspace Workspace
	logger    zerolog.Logger

	mu         sync.Mutex
	status     Status
	statusText string
	info       *Info
	stream     Stream
	latest     string
}

func New(doc Document, backend Backend, workspace Workspace) *Session {
	return &Session{
		doc:       doc,
		backend:   backend,
		workspace: workspace,
		logger:    log.With().Str("module", "terminal").Int("doc", doc.ID).Logger(),
		status:    StatusLoading,
	}
}

// Start joins or creates the session and attaches to its stream. A
// failure is recorded in the status and also returned.
func (s *Session) Start(ctx context.Context) error {
	var (
		info   Info
		err    error
		failed Status
	)
	if s.doc.SessionID != "" {
		info, err = s.backend.FetchSession(ctx, s.doc.ClusterID, s.doc.SessionID)
		failed = StatusNotFound
	} else {
		info, err = s.backend.CreateSession(ctx, s.doc.ClusterID, s.doc.ServerID, s.doc.Login)
		failed = StatusError
	}
	if err != nil {
		s.mu.Lock()
		s.status = failed
		s.statusText = err.Error()
		s.mu.Unlock()
		s.logger.Warn().Err(err).Str("status", string(failed)).Msg("session unavailable")
		return errors.Wrap(err, "start terminal session")
	}

	s.attach(info)
	return nil
}

func (s *Session) attach(info Info) {
	if info.Login == "" {
		info.Login = s.doc.Login
	}
	stream := s.backend.OpenStream(info)

	stream.On(tty.EventData, func(p any) {
		var text string
		switch v := p.(type) {
		case []byte:
			text = string(v)
		case string:
			text = v
		}
		s.mu.Lock()
		s.latest = text
		s.mu.Unlock()
	})
	stream.On(tty.EventClose, func(any) {
		// A session that failed to start may still report a normal
		// close. Keep the tab open so the error stays readable.
		s.mu.Lock()
		latest := s.latest
		s.mu.Unlock()
		if latest != "" && !strings.Contains(latest, launchFailure) {
			s.workspace.CloseTab(s.doc.ID)
		}
	})
	stream.On(tty.EventConnClose, func(any) {
		s.workspace.UpdateDocument(s.doc.ID, DocumentUpdate{Status: DocumentDisconnected})
	})
	stream.On(tty.EventOpen, func(any) {
		s.workspace.UpdateDocument(s.doc.ID, DocumentUpdate{
			Status: DocumentConnected,
			Title:  fmt.Sprintf("%s@%s", info.Login, info.Hostname),
			Info:   &info,
		})
	})

	s.mu.Lock()
	s.stream = stream
	s.info = &info
	s.status = StatusInitialized
	s.mu.Unlock()
}

// Status returns the lookup status and, after a failure, its message.
func (s *Session) Status() (Status, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.statusText
}

// Info returns the session once it has been initialized.
func (s *Session) Info() (Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info == nil {
		return Info{}, false
	}
	return *s.info, true
}

// Stream returns the attached stream, or nil before initialization.
func (s *Session) Stream() Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

// Cleanup detaches every listener from the stream.
func (s *Session) Cleanup() {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream != nil {
		stream.RemoveAllListeners()
	}
}
