package storage

import (
	"math"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatToInt16(t *testing.T) {
	t.Run("scales and clips", func(t *testing.T) {
		got := FloatToInt16([]float32{0, 0.5, 1.0, -1.0, 2.0, -2.0})

		assert.Equal(t, int16(0), got[0])
		assert.InDelta(t, 16383, got[1], 1)
		assert.Equal(t, int16(32767), got[2])
		assert.Equal(t, int16(-32767), got[3])
		assert.Equal(t, int16(32767), got[4], "over-range input must clip, not wrap")
		assert.Equal(t, int16(-32767), got[5])
	})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()

	store, err := New(&Config{FileSys: fs, SampleRate: 16000})
	require.NoError(t, err)

	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = float32(0.4 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}

	require.NoError(t, store.Save("/tmp/command.wav", samples))

	buf, err := store.Load("/tmp/command.wav")
	require.NoError(t, err)

	require.Equal(t, len(samples), len(buf.Data))
	assert.Equal(t, 1, buf.Format.NumChannels)
	assert.Equal(t, 16000, buf.Format.SampleRate)

	// Round trip reproduces the input within int16 quantization error.
	for i, want := range samples {
		got := float32(buf.Data[i]) / 32767.0
		assert.InDelta(t, want, got, 1.0/32767.0, "sample %d", i)
	}
}

func TestSaveOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()

	store, err := New(&Config{FileSys: fs, SampleRate: 16000})
	require.NoError(t, err)

	require.NoError(t, store.Save("/tmp/command.wav", make([]float32, 3200)))
	require.NoError(t, store.Save("/tmp/command.wav", make([]float32, 800)))

	buf, err := store.Load("/tmp/command.wav")
	require.NoError(t, err)
	assert.Equal(t, 800, len(buf.Data))
}

func TestLoadMissing(t *testing.T) {
	fs := afero.NewMemMapFs()

	store, err := New(&Config{FileSys: fs, SampleRate: 16000})
	require.NoError(t, err)

	_, err = store.Load("/tmp/nope.wav")
	assert.Error(t, err)
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{FileSys: afero.NewMemMapFs()})
	assert.Error(t, err)

	_, err = New(&Config{SampleRate: 16000})
	assert.Error(t, err)
}
