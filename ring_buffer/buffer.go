// Package ring_buffer keeps the most recent audio samples so a recording can
// be seeded with the sound that preceded the wake word.
package ring_buffer

type Buffer struct {
	buffer []float32
	head   int
	size   int
}

// New creates a ring holding at most capacity samples.
func New(capacity int) *Buffer {
	return &Buffer{
		buffer: make([]float32, capacity),
	}
}

// Extend appends samples, evicting the oldest once the ring is full.
func (r *Buffer) Extend(samples []float32) {
	if len(r.buffer) == 0 {
		return
	}

	for _, s := range samples {
		r.buffer[r.head] = s
		r.head = (r.head + 1) % len(r.buffer)

		if r.size < len(r.buffer) {
			r.size++
		}
	}
}

// Snapshot returns the current contents oldest-first. The result is a copy
// and stays valid while the ring keeps mutating.
func (r *Buffer) Snapshot() []float32 {
	samples := make([]float32, r.size)

	start := r.head - r.size
	if start < 0 {
		start += len(r.buffer)
	}

	for i := 0; i < r.size; i++ {
		samples[i] = r.buffer[(start+i)%len(r.buffer)]
	}

	return samples
}

// Len returns how many samples are currently held.
func (r *Buffer) Len() int {
	return r.size
}

// Cap returns the fixed capacity in samples.
func (r *Buffer) Cap() int {
	return len(r.buffer)
}

// Clear empties the ring.
func (r *Buffer) Clear() {
	r.head = 0
	r.size = 0
}
