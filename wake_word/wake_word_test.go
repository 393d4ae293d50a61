package wake_word

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModels(t *testing.T, names ...string) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("onnx"), 0o644))
	}

	return dir
}

func TestDiscoverLabels(t *testing.T) {
	t.Run("frontend models are excluded", func(t *testing.T) {
		dir := writeModels(t,
			"melspectrogram.onnx", "embedding_model.onnx",
			"hey_jarvis.onnx", "alexa.onnx",
		)

		labels, err := discoverLabels(dir, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"alexa", "hey_jarvis"}, labels)
	})

	t.Run("non-onnx files are ignored", func(t *testing.T) {
		dir := writeModels(t, "hey_jarvis.onnx", "README.md", "notes.txt")

		labels, err := discoverLabels(dir, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"hey_jarvis"}, labels)
	})

	t.Run("requested subset wins over directory contents", func(t *testing.T) {
		labels, err := discoverLabels("ignored", []string{"hey_jarvis.onnx", "alexa"})
		require.NoError(t, err)
		assert.Equal(t, []string{"alexa", "hey_jarvis"}, labels)
	})

	t.Run("empty directory is an error", func(t *testing.T) {
		dir := writeModels(t, "melspectrogram.onnx", "embedding_model.onnx")

		_, err := discoverLabels(dir, nil)
		assert.Error(t, err)
	})

	t.Run("missing directory is an error", func(t *testing.T) {
		_, err := discoverLabels("/nonexistent/models", nil)
		assert.Error(t, err)
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("score sequence advances and holds", func(t *testing.T) {
		det := NewMockWithScores("hey_jarvis", []float32{0.1, 0.9})
		chunk := make([]int16, ChunkSamples)

		for _, want := range []float32{0.1, 0.9, 0.9, 0.9} {
			scores, err := det.Predict(chunk)
			require.NoError(t, err)
			assert.Equal(t, want, scores["hey_jarvis"])
		}

		assert.Equal(t, 4, det.PredictCalls)
	})

	t.Run("nil predict func scores zero per label", func(t *testing.T) {
		det := &MockDetector{ModelLabels: []string{"b", "a"}}

		scores, err := det.Predict(make([]int16, ChunkSamples))
		require.NoError(t, err)
		assert.Equal(t, map[string]float32{"a": 0, "b": 0}, scores)
		assert.Equal(t, []string{"a", "b"}, det.Labels())
	})

	t.Run("reset error passes through", func(t *testing.T) {
		det := &MockDetector{ResetErr: assert.AnError}

		assert.Error(t, det.Reset())
		assert.Equal(t, 1, det.ResetCalls)
	})
}
