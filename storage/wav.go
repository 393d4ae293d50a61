// Package storage persists finished recordings as mono 16-bit PCM WAV files.
package storage

import (
	"fmt"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
	"github.com/zenwerk/go-wave"
)

// FloatToInt16 converts float samples in [-1, 1] to signed 16-bit PCM,
// clipping out-of-range values so scaling cannot overflow.
func FloatToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))

	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}

		out[i] = int16(s * 32767.0)
	}

	return out
}

// Int16ToFloat converts 16-bit PCM back to float samples in [-1, 1].
func Int16ToFloat(samples []int16) []float32 {
	out := make([]float32, len(samples))

	for i, s := range samples {
		out[i] = float32(s) / 32767.0
	}

	return out
}

// Store writes and reads recordings on an afero filesystem.
type Store struct {
	fileSys    afero.Fs
	sampleRate int
}

// Config configures a Store.
type Config struct {
	FileSys    afero.Fs
	SampleRate int
}

// New creates a Store.
func New(cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("fileSys is nil")
	}

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sampleRate must be positive, got %d", cfg.SampleRate)
	}

	return &Store{
		fileSys:    cfg.FileSys,
		sampleRate: cfg.SampleRate,
	}, nil
}

// Save writes samples as a mono 16-bit WAV at path, replacing any previous
// file there.
func (s *Store) Save(path string, samples []float32) error {
	waveFile, err := s.fileSys.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	param := wave.WriterParam{
		Out:           waveFile,
		Channel:       1,
		SampleRate:    s.sampleRate,
		BitsPerSample: 16,
	}

	waveWriter, err := wave.NewWriter(param)
	if err != nil {
		return fmt.Errorf("creating wav writer: %w", err)
	}

	_, err = waveWriter.WriteSample16(FloatToInt16(samples))
	if err != nil {
		waveWriter.Close()
		return fmt.Errorf("writing samples: %w", err)
	}

	// Close finalizes the RIFF header; its error matters.
	if err := waveWriter.Close(); err != nil {
		return fmt.Errorf("closing wav file: %w", err)
	}

	return nil
}

// Load reads a WAV file back as an int buffer.
func (s *Store) Load(path string) (*audio.IntBuffer, error) {
	f, err := s.fileSys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid wav file", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return buf, nil
}
