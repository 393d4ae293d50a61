package audio_device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchInput(t *testing.T) {
	names := []string{
		"HDA Intel PCH: ALC887 Analog",
		"seeed-4mic-voicecard",
		"Seeed 2-Mic Array",
		"HDMI Output",
	}
	inputs := []int{2, 4, 2, 0}

	t.Run("case-insensitive substring match", func(t *testing.T) {
		assert.Equal(t, 1, matchInput(names, inputs, "SEEED"))
	})

	t.Run("first match wins when several qualify", func(t *testing.T) {
		assert.Equal(t, 1, matchInput(names, inputs, "seeed"))
	})

	t.Run("output-only devices are skipped", func(t *testing.T) {
		assert.Equal(t, -1, matchInput(names, inputs, "hdmi"))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Equal(t, -1, matchInput(names, inputs, "respeaker"))
	})

	t.Run("empty match takes the first input device", func(t *testing.T) {
		assert.Equal(t, 0, matchInput(names, inputs, ""))
	})
}
