package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/junsooki/deskview/internal/tdp"
)

func lefts(frames []tdp.PNGFrame) []uint32 {
	out := make([]uint32, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Left)
	}
	return out
}

func TestFrameQueueDrainIsSnapshotAndClears(t *testing.T) {
	q := NewFrameQueue(0)
	q.Push(frame(1))
	q.Push(frame(2))

	frames, dropped := q.DrainAll()
	assert.Equal(t, []uint32{1, 2}, lefts(frames))
	assert.Zero(t, dropped)
	assert.Zero(t, q.Len())

	q.Push(frame(3))
	frames, _ = q.DrainAll()
	assert.Equal(t, []uint32{3}, lefts(frames))

	frames, _ = q.DrainAll()
	assert.Empty(t, frames)
}

func TestFrameQueueLimitEvictsOldest(t *testing.T) {
	q := NewFrameQueue(3)
	for i := uint32(1); i <= 5; i++ {
		q.Push(frame(i))
	}
	assert.Equal(t, 3, q.Len())

	frames, dropped := q.DrainAll()
	assert.Equal(t, []uint32{3, 4, 5}, lefts(frames))
	assert.Equal(t, 2, dropped)

	_, dropped = q.DrainAll()
	assert.Zero(t, dropped)
}
