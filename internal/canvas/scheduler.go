package canvas

import (
	"context"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// DefaultRefreshInterval approximates a 60 Hz display.
const DefaultRefreshInterval = time.Second / 60

// Scheduler runs callbacks on the next display refresh, like a browser's
// requestAnimationFrame. The returned func cancels the request if it has
// not run yet.
type Scheduler interface {
	RequestFrame(fn func()) (cancel func())
}

type frameRequest struct {
	fn   func()
	done bool
}

// RefreshScheduler collects frame requests and runs them when flushed.
// Something has to call Flush once per refresh: the window's update loop,
// or Run for headless use. All callbacks run on the flushing goroutine.
type RefreshScheduler struct {
	mu      sync.Mutex
	pending []*frameRequest
}

func NewRefreshScheduler() *RefreshScheduler {
	return &RefreshScheduler{}
}

func (s *RefreshScheduler) RequestFrame(fn func()) func() {
	req := &frameRequest{fn: fn}
	s.mu.Lock()
	s.pending = append(s.pending, req)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		req.done = true
		s.mu.Unlock()
	}
}

// Flush runs every callback requested before the call, in request order,
// and returns how many ran. Requests made during the flush wait for the
// next one.
func (s *RefreshScheduler) Flush() int {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	ran := 0
	for _, req := range batch {
		s.mu.Lock()
		skip := req.done
		req.done = true
		s.mu.Unlock()
		if skip {
			continue
		}
		req.fn()
		ran++
	}
	return ran
}

// Pending returns the number of requests waiting for the next flush,
// including cancelled ones not yet discarded.
func (s *RefreshScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Run flushes once per interval until ctx is done.
func (s *RefreshScheduler) Run(ctx context.Context, clk clock.WithTicker, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.Flush()
		}
	}
}
