// Package vad provides cheap voice-activity measures used for command
// endpointing: an RMS level and a spectral-flux gauge.
package vad

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// RMS returns the root-mean-square amplitude of a chunk of float samples.
// A small epsilon keeps the result finite for all-zero input.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}

	return math.Sqrt(sum/float64(len(samples)) + 1e-12)
}

// VAD tracks the magnitude spectrum of successive chunks and reports spectral
// flux, the summed positive change between consecutive spectra. Voiced audio
// produces a sharply higher flux than room noise.
type VAD struct {
	lastSpectrum []float64
	input        []float64
}

// New creates a VAD for chunks of the given size.
func New(chunkSize int) *VAD {
	return &VAD{
		lastSpectrum: make([]float64, chunkSize/2+1),
		input:        make([]float64, chunkSize),
	}
}

// Flux returns the spectral flux of the chunk against the previous one. The
// first call establishes a baseline and returns 0.
func (v *VAD) Flux(samples []float32) float64 {
	n := len(samples)
	if n > len(v.input) {
		n = len(v.input)
	}

	for i := 0; i < n; i++ {
		v.input[i] = float64(samples[i])
	}
	for i := n; i < len(v.input); i++ {
		v.input[i] = 0
	}

	spectrum := fft.FFTReal(v.input)

	var flux float64
	for i := 0; i < len(v.lastSpectrum) && i < len(spectrum); i++ {
		mag := math.Hypot(real(spectrum[i]), imag(spectrum[i]))

		if diff := mag - v.lastSpectrum[i]; diff > 0 {
			flux += diff
		}

		v.lastSpectrum[i] = mag
	}

	return flux
}

// Reset clears the spectral history.
func (v *VAD) Reset() {
	for i := range v.lastSpectrum {
		v.lastSpectrum[i] = 0
	}
}
