package vad

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sine(n int, freq, rate, amp float64) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return samples
}

func TestRMS(t *testing.T) {
	t.Run("silence is near zero", func(t *testing.T) {
		assert.InDelta(t, 0, RMS(make([]float32, 1280)), 1e-5)
	})

	t.Run("full-scale sine is about 0.707", func(t *testing.T) {
		assert.InDelta(t, 1/math.Sqrt2, RMS(sine(1280, 440, 16000, 1.0)), 0.01)
	})

	t.Run("scales with amplitude", func(t *testing.T) {
		loud := RMS(sine(1280, 440, 16000, 0.5))
		quiet := RMS(sine(1280, 440, 16000, 0.005))

		assert.Greater(t, loud, quiet)
		assert.Less(t, quiet, 0.007, "whisper-level input should read below the silence threshold")
		assert.Greater(t, loud, 0.007)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Zero(t, RMS(nil))
	})
}

func TestFlux(t *testing.T) {
	t.Run("first chunk is baseline", func(t *testing.T) {
		v := New(256)
		assert.Zero(t, v.Flux(make([]float32, 256)))
	})

	t.Run("onset of a tone spikes flux", func(t *testing.T) {
		v := New(256)

		v.Flux(make([]float32, 256))
		quietFlux := v.Flux(make([]float32, 256))
		onsetFlux := v.Flux(sine(256, 1000, 16000, 0.8))

		assert.Greater(t, onsetFlux, quietFlux*10)
	})

	t.Run("steady tone settles back down", func(t *testing.T) {
		v := New(256)

		tone := sine(256, 1000, 16000, 0.8)
		v.Flux(make([]float32, 256))
		onset := v.Flux(tone)
		steady := v.Flux(tone)

		assert.Less(t, steady, onset)
	})

	t.Run("reset forgets history", func(t *testing.T) {
		v := New(256)

		tone := sine(256, 1000, 16000, 0.8)
		v.Flux(tone)
		v.Reset()

		// After reset the same tone reads as a fresh onset again.
		assert.Greater(t, v.Flux(tone), 0.0)
	})
}
