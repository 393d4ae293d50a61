package wake_word

// Detector is a streaming wake word classifier. Predict consumes fixed-size
// chunks of 16-bit PCM and returns the current score per wake word label;
// the detector keeps sliding-window state between calls.
type Detector interface {
	// Predict feeds one chunk and returns a label -> score map, scores in [0,1].
	Predict(chunk []int16) (map[string]float32, error)

	// Reset clears internal sliding-window state. Implementations without
	// resettable state return nil.
	Reset() error

	// Labels returns the detector's wake word labels in deterministic order.
	Labels() []string

	// Close releases model resources. The detector is unusable afterwards.
	Close() error
}
