package chunk_queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPop(t *testing.T) {
	q := New(4)

	q.Push([]float32{1, 2})

	chunk, ok := q.Pop(time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, chunk)
}

func TestPopTimeout(t *testing.T) {
	q := New(4)

	start := time.Now()
	chunk, ok := q.Pop(10 * time.Millisecond)

	assert.False(t, ok)
	assert.Nil(t, chunk)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestPushDropsWhenFull(t *testing.T) {
	q := New(2)

	q.Push([]float32{1})
	q.Push([]float32{2})
	q.Push([]float32{3}) // dropped

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, uint64(1), q.Dropped())

	// The oldest chunks survive; the newest was the casualty.
	first, ok := q.Pop(time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, []float32{1}, first)

	second, ok := q.Pop(time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, []float32{2}, second)
}

func TestDrain(t *testing.T) {
	q := New(8)

	for i := 0; i < 5; i++ {
		q.Push([]float32{float32(i)})
	}

	assert.Equal(t, 5, q.Drain())
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, q.Drain())
}

func TestConcurrentProducerConsumer(t *testing.T) {
	q := New(16)

	const total = 1000

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			q.Push([]float32{float32(i)})
		}
	}()

	received := 0
	for {
		if _, ok := q.Pop(20 * time.Millisecond); !ok {
			break
		}
		received++
	}

	wg.Wait()

	// Some chunks may be dropped under burst, but accounting must balance.
	assert.Equal(t, total, received+int(q.Dropped()))
}
