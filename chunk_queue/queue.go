// Package chunk_queue hands audio chunks from the driver callback to the
// consumer loop. The producer side never blocks: a full queue drops the
// incoming chunk instead of stalling the real-time thread.
package chunk_queue

import (
	"sync/atomic"
	"time"
)

// DefaultCapacity bounds queue memory under a stalled consumer. At 80 ms per
// chunk this is roughly five seconds of audio.
const DefaultCapacity = 64

type Queue struct {
	ch      chan []float32
	dropped atomic.Uint64
}

// New creates a queue with the given capacity. A capacity of zero or less
// falls back to DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Queue{
		ch: make(chan []float32, capacity),
	}
}

// Push enqueues a chunk without blocking. If the queue is full the chunk is
// silently discarded; wake word and recording logic tolerate occasional loss.
func (q *Queue) Push(chunk []float32) {
	select {
	case q.ch <- chunk:
	default:
		q.dropped.Add(1)
	}
}

// Pop waits up to timeout for a chunk. The second return is false when the
// queue stayed empty, so the caller can check its shutdown flag and retry.
func (q *Queue) Pop(timeout time.Duration) ([]float32, bool) {
	select {
	case chunk := <-q.ch:
		return chunk, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case chunk := <-q.ch:
		return chunk, true
	case <-timer.C:
		return nil, false
	}
}

// Drain discards everything currently buffered and returns how many chunks
// were thrown away.
func (q *Queue) Drain() int {
	cleared := 0

	for {
		select {
		case <-q.ch:
			cleared++
		default:
			return cleared
		}
	}
}

// Len returns the number of buffered chunks.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Dropped returns the number of chunks discarded by Push since creation.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
