// Package wake_word wraps streaming wake word classifiers behind a small
// predict/reset interface.
//
// The concrete implementation runs the openWakeWord ONNX pipeline:
// melspectrogram → embedding → one classifier head per wake word. The two
// frontend models are shared; each label has its own head. All model files
// plus the ONNX Runtime shared library are provided at construction time.
package wake_word

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	ort "github.com/yalue/onnxruntime_go"
)

// Pipeline geometry fixed by the openWakeWord models.
const (
	ChunkSamples = 1280 // 80 ms @ 16 kHz, the frontend's fixed input size
	melBins      = 32
	nMelFrames   = 5 // mel frames produced per chunk
	melWindow    = 76
	melStep      = 8
	embeddingDim = 96
	nEmbedFrames = 16
)

// Frontend model file names inside the models directory.
const (
	melspecFile   = "melspectrogram.onnx"
	embeddingFile = "embedding_model.onnx"
)

var (
	runtimeOnce sync.Once
	runtimeErr  error
)

// InitRuntime loads the ONNX Runtime shared library. Call once at startup
// before constructing a Model. An empty path relies on the default lookup.
func InitRuntime(libraryPath string) error {
	runtimeOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		runtimeErr = ort.InitializeEnvironment()
	})

	return runtimeErr
}

// Config configures the openWakeWord model stack.
type Config struct {
	// ModelsDir holds melspectrogram.onnx, embedding_model.onnx and one
	// <label>.onnx per wake word.
	ModelsDir string

	// Models optionally restricts which wake word labels to load. Empty
	// loads every classifier found in ModelsDir.
	Models []string

	Logger zerolog.Logger
}

type head struct {
	in   *ort.Tensor[float32]
	out  *ort.Tensor[float32]
	sess *ort.AdvancedSession
}

// Model implements Detector over the openWakeWord ONNX pipeline.
type Model struct {
	logger zerolog.Logger

	melIn   *ort.Tensor[float32]
	melOut  *ort.Tensor[float32]
	melSess *ort.AdvancedSession

	embedIn   *ort.Tensor[float32]
	embedOut  *ort.Tensor[float32]
	embedSess *ort.AdvancedSession

	heads  map[string]*head
	labels []string

	// Sliding-window state across Predict calls.
	melBuffer   []float32
	embedBuffer []float32
	scores      map[string]float32
}

var _ Detector = (*Model)(nil)

// New loads the frontend models and one classifier head per wake word.
func New(cfg *Config) (*Model, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.ModelsDir == "" {
		return nil, fmt.Errorf("modelsDir is empty")
	}

	labels, err := discoverLabels(cfg.ModelsDir, cfg.Models)
	if err != nil {
		return nil, err
	}

	m := &Model{
		logger:      cfg.Logger,
		heads:       make(map[string]*head, len(labels)),
		labels:      labels,
		melBuffer:   make([]float32, 0, (melWindow+nMelFrames)*melBins),
		embedBuffer: make([]float32, nEmbedFrames*embeddingDim),
		scores:      make(map[string]float32, len(labels)),
	}

	if err := m.buildFrontend(cfg.ModelsDir); err != nil {
		m.Close()
		return nil, err
	}

	for _, label := range labels {
		h, err := buildHead(filepath.Join(cfg.ModelsDir, label+".onnx"))
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("loading wake word model %q: %w", label, err)
		}

		m.heads[label] = h
		m.scores[label] = 0
	}

	m.logger.Info().Strs("labels", labels).Msg("wake word models loaded")

	return m, nil
}

// discoverLabels lists classifier model files, either the requested subset or
// everything in the directory that is not a frontend model. The result is
// sorted so label iteration stays deterministic.
func discoverLabels(dir string, requested []string) ([]string, error) {
	if len(requested) > 0 {
		labels := make([]string, len(requested))
		for i, name := range requested {
			labels[i] = strings.TrimSuffix(name, ".onnx")
		}
		sort.Strings(labels)
		return labels, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading models dir: %w", err)
	}

	var labels []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".onnx") {
			continue
		}
		if name == melspecFile || name == embeddingFile {
			continue
		}
		labels = append(labels, strings.TrimSuffix(name, ".onnx"))
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("no wake word models found in %s", dir)
	}

	sort.Strings(labels)

	return labels, nil
}

func (m *Model) buildFrontend(dir string) error {
	var err error

	m.melIn, err = ort.NewEmptyTensor[float32](ort.NewShape(1, ChunkSamples))
	if err != nil {
		return err
	}

	m.melOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1, nMelFrames, melBins))
	if err != nil {
		return err
	}

	m.melSess, err = newSession(filepath.Join(dir, melspecFile), m.melIn, m.melOut)
	if err != nil {
		return fmt.Errorf("loading melspectrogram model: %w", err)
	}

	m.embedIn, err = ort.NewEmptyTensor[float32](ort.NewShape(1, melWindow, melBins, 1))
	if err != nil {
		return err
	}

	m.embedOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1, 1, embeddingDim))
	if err != nil {
		return err
	}

	m.embedSess, err = newSession(filepath.Join(dir, embeddingFile), m.embedIn, m.embedOut)
	if err != nil {
		return fmt.Errorf("loading embedding model: %w", err)
	}

	return nil
}

func buildHead(path string) (*head, error) {
	in, err := ort.NewEmptyTensor[float32](ort.NewShape(1, nEmbedFrames, embeddingDim))
	if err != nil {
		return nil, err
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		in.Destroy()
		return nil, err
	}

	sess, err := newSession(path, in, out)
	if err != nil {
		in.Destroy()
		out.Destroy()
		return nil, err
	}

	return &head{in: in, out: out, sess: sess}, nil
}

func newSession(path string, in, out *ort.Tensor[float32]) (*ort.AdvancedSession, error) {
	inInfo, outInfo, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, err
	}

	return ort.NewAdvancedSession(
		path,
		[]string{inInfo[0].Name}, []string{outInfo[0].Name},
		[]ort.Value{in}, []ort.Value{out},
		nil,
	)
}

// Predict feeds one 80 ms chunk through the pipeline. Scores only move when
// the mel window advances far enough to produce a new embedding; between
// embeddings the previous scores are returned unchanged.
func (m *Model) Predict(chunk []int16) (map[string]float32, error) {
	if len(chunk) != ChunkSamples {
		return nil, fmt.Errorf("predict needs %d samples, got %d", ChunkSamples, len(chunk))
	}

	// The frontend expects raw int16 magnitudes as float32.
	melData := m.melIn.GetData()
	for i, s := range chunk {
		melData[i] = float32(s)
	}

	if err := m.melSess.Run(); err != nil {
		return nil, fmt.Errorf("melspectrogram inference: %w", err)
	}

	// openWakeWord's mel scaling: x/10 + 2.
	for _, v := range m.melOut.GetData() {
		m.melBuffer = append(m.melBuffer, v/10.0+2.0)
	}

	newEmbedding := false

	for len(m.melBuffer)/melBins >= melWindow {
		copy(m.embedIn.GetData(), m.melBuffer[:melWindow*melBins])

		if err := m.embedSess.Run(); err != nil {
			return nil, fmt.Errorf("embedding inference: %w", err)
		}

		// Slide the embedding window: shift left, newest at the end.
		copy(m.embedBuffer, m.embedBuffer[embeddingDim:])
		copy(m.embedBuffer[(nEmbedFrames-1)*embeddingDim:], m.embedOut.GetData()[:embeddingDim])
		newEmbedding = true

		// Compact instead of reslicing so the backing array stays bounded.
		n := copy(m.melBuffer, m.melBuffer[melStep*melBins:])
		m.melBuffer = m.melBuffer[:n]
	}

	if newEmbedding {
		for _, label := range m.labels {
			h := m.heads[label]
			copy(h.in.GetData(), m.embedBuffer)

			if err := h.sess.Run(); err != nil {
				return nil, fmt.Errorf("wake word inference for %q: %w", label, err)
			}

			m.scores[label] = h.out.GetData()[0]
		}
	}

	out := make(map[string]float32, len(m.scores))
	for label, score := range m.scores {
		out[label] = score
	}

	return out, nil
}

// Reset clears the mel and embedding windows and zeroes all scores, so audio
// heard before the reset cannot contribute to the next predictions.
func (m *Model) Reset() error {
	m.melBuffer = m.melBuffer[:0]

	for i := range m.embedBuffer {
		m.embedBuffer[i] = 0
	}

	for label := range m.scores {
		m.scores[label] = 0
	}

	return nil
}

// Labels returns the loaded wake word labels in sorted order.
func (m *Model) Labels() []string {
	labels := make([]string, len(m.labels))
	copy(labels, m.labels)
	return labels
}

// Close destroys every session and tensor. Safe to call on a partially
// constructed model.
func (m *Model) Close() error {
	for _, h := range m.heads {
		if h.sess != nil {
			h.sess.Destroy()
		}
		if h.in != nil {
			h.in.Destroy()
		}
		if h.out != nil {
			h.out.Destroy()
		}
	}
	m.heads = map[string]*head{}

	for _, sess := range []*ort.AdvancedSession{m.melSess, m.embedSess} {
		if sess != nil {
			sess.Destroy()
		}
	}
	m.melSess, m.embedSess = nil, nil

	for _, t := range []*ort.Tensor[float32]{m.melIn, m.melOut, m.embedIn, m.embedOut} {
		if t != nil {
			t.Destroy()
		}
	}
	m.melIn, m.melOut, m.embedIn, m.embedOut = nil, nil, nil, nil

	return nil
}
