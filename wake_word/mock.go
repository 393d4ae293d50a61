package wake_word

import (
	"sort"
	"sync"
)

// MockDetector is a scriptable Detector for tests. Behavior is customized
// through PredictFunc; calls are recorded for verification.
type MockDetector struct {
	// PredictFunc is invoked by Predict. If nil, every label scores 0.
	PredictFunc func(chunk []int16) (map[string]float32, error)

	// ResetErr is returned by Reset, letting tests exercise reset failures.
	ResetErr error

	// ModelLabels are the labels reported by Labels.
	ModelLabels []string

	PredictCalls int
	ResetCalls   int
	Closed       bool

	mu sync.Mutex
}

var _ Detector = (*MockDetector)(nil)

// NewMockWithScores builds a mock whose label scores follow the given
// sequence, one entry per Predict call. After the sequence is exhausted the
// score stays at the last value.
func NewMockWithScores(label string, scores []float32) *MockDetector {
	idx := 0

	return &MockDetector{
		ModelLabels: []string{label},
		PredictFunc: func(chunk []int16) (map[string]float32, error) {
			if len(scores) == 0 {
				return map[string]float32{label: 0}, nil
			}

			score := scores[idx]
			if idx < len(scores)-1 {
				idx++
			}

			return map[string]float32{label: score}, nil
		},
	}
}

func (m *MockDetector) Predict(chunk []int16) (map[string]float32, error) {
	m.mu.Lock()
	m.PredictCalls++
	fn := m.PredictFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(chunk)
	}

	out := make(map[string]float32, len(m.ModelLabels))
	for _, label := range m.ModelLabels {
		out[label] = 0
	}

	return out, nil
}

func (m *MockDetector) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ResetCalls++

	return m.ResetErr
}

func (m *MockDetector) Labels() []string {
	labels := make([]string, len(m.ModelLabels))
	copy(labels, m.ModelLabels)
	sort.Strings(labels)
	return labels
}

func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closed = true

	return nil
}
