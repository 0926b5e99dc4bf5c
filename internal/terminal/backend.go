package terminal

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/junsooki/deskview/internal/tty"
)

// DirectBackend talks to a single terminal endpoint. Sessions are named
// by the client and passed to the endpoint as query parameters.
type DirectBackend struct {
	URL      string
	Hostname string
	// Login is reported for joined sessions.
	Login    string
	Header   http.Header
}

func (b *DirectBackend) FetchSession(_ context.Context, clusterID, sessionID string) (Info, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return Info{}, errors.Errorf("session %q not found", sessionID)
	}
	return Info{ID: sessionID, ClusterID: clusterID, Login: b.Login, Hostname: b.Hostname}, nil
}

func (b *DirectBackend) CreateSession(_ context.Context, clusterID, serverID, login string) (Info, error) {
	if login == "" {
		return Info{}, errors.New("login is required")
	}
	return Info{
		ID:        uuid.NewString(),
		ClusterID: clusterID,
		ServerID:  serverID,
		Login:     login,
		Hostname:  b.Hostname,
	}, nil
}

// OpenStream returns a *tty.Tty that is not yet connected.
func (b *DirectBackend) OpenStream(info Info) Stream {
	return tty.New(b.StreamURL(info), b.Header)
}

// StreamURL is the websocket address for info.
func (b *DirectBackend) StreamURL(info Info) string {
	u, err := url.Parse(b.URL)
	if err != nil {
		return b.URL
	}
	q := u.Query()
	q.Set("sid", info.ID)
	if info.Login != "" {
		q.Set("login", info.Login)
	}
	if info.ServerID != "" {
		q.Set("server", info.ServerID)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
