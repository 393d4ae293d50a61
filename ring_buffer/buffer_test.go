package ring_buffer

import "testing"

func TestBuffer_Extend(t *testing.T) {
	t.Run("fill ring buffer with digits until it loops, and test that it works", func(t *testing.T) {
		ringBuffer := New(10)

		for i := 0; i < 20; i++ {
			ringBuffer.Extend([]float32{float32(i)})
		}

		expected := []float32{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
		actual := ringBuffer.Snapshot()

		for i := 0; i < 10; i++ {
			if expected[i] != actual[i] {
				t.Errorf("expected %f, got %f", expected[i], actual[i])
			}
		}
	})

	t.Run("partially filled buffer only returns what was written", func(t *testing.T) {
		ringBuffer := New(10)

		ringBuffer.Extend([]float32{1, 2, 3})

		actual := ringBuffer.Snapshot()
		if len(actual) != 3 {
			t.Fatalf("expected 3 samples, got %d", len(actual))
		}

		for i, want := range []float32{1, 2, 3} {
			if actual[i] != want {
				t.Errorf("expected %f, got %f", want, actual[i])
			}
		}
	})

	t.Run("length never exceeds capacity", func(t *testing.T) {
		ringBuffer := New(5)

		for i := 0; i < 100; i++ {
			ringBuffer.Extend([]float32{float32(i)})

			if ringBuffer.Len() > ringBuffer.Cap() {
				t.Fatalf("length %d exceeds capacity %d", ringBuffer.Len(), ringBuffer.Cap())
			}
		}
	})

	t.Run("snapshot does not alias the live buffer", func(t *testing.T) {
		ringBuffer := New(4)
		ringBuffer.Extend([]float32{1, 2, 3, 4})

		snap := ringBuffer.Snapshot()
		ringBuffer.Extend([]float32{9, 9, 9, 9})

		for i, want := range []float32{1, 2, 3, 4} {
			if snap[i] != want {
				t.Errorf("snapshot mutated: expected %f, got %f", want, snap[i])
			}
		}
	})

	t.Run("clear empties the buffer", func(t *testing.T) {
		ringBuffer := New(4)
		ringBuffer.Extend([]float32{1, 2, 3, 4})
		ringBuffer.Clear()

		if ringBuffer.Len() != 0 {
			t.Errorf("expected empty buffer, got %d samples", ringBuffer.Len())
		}
	})
}
