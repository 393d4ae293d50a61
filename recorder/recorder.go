// Package recorder is the always-on trigger front-end: it owns the audio
// stream, bridges the driver callback to a consumer loop through a lossy
// bounded queue, and drives the wake/record/process state machine.
package recorder

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"assistant-wake-recorder/audio_device"
	"assistant-wake-recorder/chunk_queue"
	"assistant-wake-recorder/config"
	"assistant-wake-recorder/storage"
	"assistant-wake-recorder/wake_word"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// popTimeout bounds how long the consumer loop blocks so the running flag is
// observed promptly on shutdown.
const popTimeout = 100 * time.Millisecond

// Config wires a Recorder.
type Config struct {
	Audio     config.AudioConfig
	WakeWord  config.WakeWordConfig
	Recording config.RecordingConfig

	Detector wake_word.Detector
	FileSys  afero.Fs

	// OnComplete receives the finished recording's path. Errors and panics
	// inside it are contained; they never stop the listen loop.
	OnComplete func(path string)

	Logger zerolog.Logger
}

type recorderImpl struct {
	cfg     *Config
	logger  zerolog.Logger
	queue   *chunk_queue.Queue
	session *Session

	running  atomic.Bool
	stopOnce sync.Once

	mu     sync.Mutex
	stream *portaudio.Stream
}

// New builds a recorder. The detector and filesystem come from the caller;
// the queue, store and session are owned here.
func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Detector == nil {
		return nil, fmt.Errorf("detector is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("fileSys is nil")
	}

	queue := chunk_queue.New(chunk_queue.DefaultCapacity)

	store, err := storage.New(&storage.Config{
		FileSys:    cfg.FileSys,
		SampleRate: cfg.Audio.SampleRate,
	})
	if err != nil {
		return nil, err
	}

	session, err := NewSession(&SessionConfig{
		Detector:    cfg.Detector,
		Queue:       queue,
		Store:       store,
		OutputPath:  cfg.Recording.OutputPath,
		SampleRate:  cfg.Audio.SampleRate,
		ChunkSize:   cfg.Audio.ChunkSize,
		Threshold:   cfg.WakeWord.Threshold,
		Cooldown:    cfg.WakeWord.Cooldown(),
		MaxDuration: cfg.Recording.MaxDuration(),
		SilenceHold: cfg.Recording.SilenceHold(),
		SilenceRMS:  cfg.Recording.SilenceRMSThreshold,
		PreRollCap:  cfg.Recording.PreRollSamples(cfg.Audio.SampleRate),
		DrainWindow: cfg.Recording.DrainWindow(),
		ResumeSkip:  cfg.Recording.ResumeSkipChunks,
		OnComplete:  cfg.OnComplete,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &recorderImpl{
		cfg:     cfg,
		logger:  cfg.Logger,
		queue:   queue,
		session: session,
	}, nil
}

// Start resolves the input device, opens the stream and runs the consumer
// loop until Stop is called. Cleanup runs on every exit path.
func (r *recorderImpl) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	defer r.Stop()

	dev, err := audio_device.ResolveInput(r.cfg.Audio.DeviceMatch)
	if err != nil {
		return err
	}

	r.logger.Info().
		Str("device", dev.Name).
		Int("sample_rate", r.cfg.Audio.SampleRate).
		Int("chunk_size", r.cfg.Audio.ChunkSize).
		Strs("labels", r.cfg.Detector.Labels()).
		Float32("threshold", r.cfg.WakeWord.Threshold).
		Float64("silence_rms", r.cfg.Recording.SilenceRMSThreshold).
		Msg("listening for wake word")

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = r.cfg.Audio.Channels
	params.SampleRate = float64(r.cfg.Audio.SampleRate)
	params.FramesPerBuffer = r.cfg.Audio.ChunkSize

	stream, err := portaudio.OpenStream(params, r.onAudio)
	if err != nil {
		return fmt.Errorf("opening audio stream: %w", err)
	}

	r.mu.Lock()
	r.stream = stream
	r.mu.Unlock()

	r.running.Store(true)

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting audio stream: %w", err)
	}

	for r.running.Load() {
		chunk, ok := r.queue.Pop(popTimeout)
		if !ok {
			continue
		}

		r.session.HandleChunk(chunk)
	}

	return nil
}

// onAudio runs on the driver's real-time thread. It must return quickly and
// must never panic out into the driver, so its only job is a non-blocking
// push of a copied mono chunk.
func (r *recorderImpl) onAudio(in [][]float32) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Interface("panic", p).Msg("audio callback panicked")
		}
	}()

	if !r.running.Load() || len(in) == 0 {
		return
	}

	ch := r.cfg.Audio.MicChannelIndex
	if ch >= len(in) {
		ch = 0
	}

	mono := make([]float32, len(in[ch]))
	copy(mono, in[ch])

	r.queue.Push(mono)
}

// Stop halts the consumer loop, tears down the stream and drains the queue.
// Idempotent and safe from any goroutine, including signal handlers.
func (r *recorderImpl) Stop() {
	r.stopOnce.Do(func() {
		r.running.Store(false)
		r.session.Halt()

		r.mu.Lock()
		stream := r.stream
		r.stream = nil
		r.mu.Unlock()

		if stream != nil {
			if err := stream.Stop(); err != nil {
				r.logger.Warn().Err(err).Msg("stopping audio stream")
			}

			if err := stream.Close(); err != nil {
				r.logger.Warn().Err(err).Msg("closing audio stream")
			}
		}

		if cleared := r.queue.Drain(); cleared > 0 {
			r.logger.Debug().Int("cleared", cleared).Msg("drained queue on stop")
		}

		if dropped := r.queue.Dropped(); dropped > 0 {
			r.logger.Debug().Uint64("dropped", dropped).Msg("chunks dropped by full queue over lifetime")
		}

		if err := portaudio.Terminate(); err != nil {
			r.logger.Warn().Err(err).Msg("terminating portaudio")
		}

		r.logger.Info().Msg("recorder stopped")
	})
}

// State reports the session's current state.
func (r *recorderImpl) State() State {
	return r.session.State()
}
