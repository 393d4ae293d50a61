package recorder

import (
	"testing"

	"assistant-wake-recorder/config"
	"assistant-wake-recorder/wake_word"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecorderConfig() *Config {
	cfg := config.Default()

	return &Config{
		Audio:     cfg.Audio,
		WakeWord:  cfg.WakeWord,
		Recording: cfg.Recording,
		Detector:  &wake_word.MockDetector{ModelLabels: []string{"hey_jarvis"}},
		FileSys:   afero.NewMemMapFs(),
	}
}

func TestNewValidation(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		rec, err := New(validRecorderConfig())
		require.NoError(t, err)
		assert.Equal(t, StateListenWake, rec.State())
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := New(nil)
		assert.Error(t, err)
	})

	t.Run("missing detector", func(t *testing.T) {
		cfg := validRecorderConfig()
		cfg.Detector = nil

		_, err := New(cfg)
		assert.Error(t, err)
	})

	t.Run("missing filesystem", func(t *testing.T) {
		cfg := validRecorderConfig()
		cfg.FileSys = nil

		_, err := New(cfg)
		assert.Error(t, err)
	})

	t.Run("bad recording config surfaces", func(t *testing.T) {
		cfg := validRecorderConfig()
		cfg.Recording.OutputPath = ""

		_, err := New(cfg)
		assert.Error(t, err)
	})
}
