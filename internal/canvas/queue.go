package canvas

import (
	"sync"

	"github.com/junsooki/deskview/internal/tdp"
)

// FrameQueue buffers decoded frames between the client's read goroutine
// and the refresh tick. Frames come out in the order they went in.
type FrameQueue struct {
	mu      sync.Mutex
	frames  []tdp.PNGFrame
	limit   int
	dropped int
}

// NewFrameQueue returns an empty queue. limit <= 0 means unbounded;
// otherwise pushing onto a full queue evicts the oldest frame.
func NewFrameQueue(limit int) *FrameQueue {
	return &FrameQueue{limit: limit}
}

// Push appends f at the tail.
func (q *FrameQueue) Push(f tdp.PNGFrame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && len(q.frames) >= q.limit {
		q.frames[0] = tdp.PNGFrame{}
		q.frames = q.frames[1:]
		q.dropped++
	}
	q.frames = append(q.frames, f)
}

// DrainAll takes everything queued so far and leaves the queue empty.
// It also reports how many frames were evicted since the last drain.
func (q *FrameQueue) DrainAll() (frames []tdp.PNGFrame, dropped int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	frames, dropped = q.frames, q.dropped
	q.frames, q.dropped = nil, 0
	return frames, dropped
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}
