package recorder

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"assistant-wake-recorder/chunk_queue"
	"assistant-wake-recorder/ring_buffer"
	"assistant-wake-recorder/storage"
	"assistant-wake-recorder/vad"
	"assistant-wake-recorder/wake_word"

	"github.com/rs/zerolog"
)

// State is the recorder's mode. Exactly one state is active at any instant.
type State int

const (
	// StateListenWake feeds chunks to the wake word detector.
	StateListenWake State = iota

	// StateRecording accumulates a command until silence or timeout.
	StateRecording

	// StateProcessing discards chunks while the completion callback runs and
	// the drain window elapses.
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateListenWake:
		return "listen_wake"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StopReason explains why a recording ended.
type StopReason string

const (
	StopReasonSilence StopReason = "silence"
	StopReasonTimeout StopReason = "timeout"
)

// SessionConfig wires a Session.
type SessionConfig struct {
	Detector wake_word.Detector
	Queue    *chunk_queue.Queue
	Store    *storage.Store

	OutputPath string
	SampleRate int
	ChunkSize  int

	Threshold float32
	Cooldown  time.Duration

	MaxDuration  time.Duration
	SilenceHold  time.Duration
	SilenceRMS   float64
	PreRollCap   int // samples
	DrainWindow  time.Duration
	ResumeSkip   int // chunks fed but ignored after resuming
	OnComplete   func(path string)
	Logger       zerolog.Logger
}

// Session is the wake/record/process state machine. It owns all mutable
// recorder state; the audio callback thread only ever touches the queue.
type Session struct {
	detector   wake_word.Detector
	queue      *chunk_queue.Queue
	store      *storage.Store
	outputPath string
	sampleRate int

	threshold   float32
	cooldown    time.Duration
	maxDuration time.Duration
	silenceHold time.Duration
	silenceRMS  float64
	drainWindow time.Duration
	resumeSkip  int

	onComplete func(path string)
	logger     zerolog.Logger

	// voice is only read from the consumer goroutine, so it needs no lock.
	voice *vad.VAD

	// now is swapped out by tests.
	now func() time.Time

	mu         sync.Mutex
	state      State
	halted     bool
	lastWake   time.Time
	resumeAt   time.Time
	skipChunks int
	preRoll    *ring_buffer.Buffer
	rec        []float32
	recStart   time.Time
	silenceRun time.Duration
	lastStop   StopReason
}

// NewSession validates the config and builds a session in ListenWake state.
func NewSession(cfg *SessionConfig) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Detector == nil {
		return nil, fmt.Errorf("detector is nil")
	}

	if cfg.Queue == nil {
		return nil, fmt.Errorf("queue is nil")
	}

	if cfg.Store == nil {
		return nil, fmt.Errorf("store is nil")
	}

	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("outputPath is empty")
	}

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sampleRate must be positive")
	}

	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunkSize must be positive")
	}

	return &Session{
		detector:    cfg.Detector,
		queue:       cfg.Queue,
		store:       cfg.Store,
		outputPath:  cfg.OutputPath,
		sampleRate:  cfg.SampleRate,
		threshold:   cfg.Threshold,
		cooldown:    cfg.Cooldown,
		maxDuration: cfg.MaxDuration,
		silenceHold: cfg.SilenceHold,
		silenceRMS:  cfg.SilenceRMS,
		drainWindow: cfg.DrainWindow,
		resumeSkip:  cfg.ResumeSkip,
		onComplete:  cfg.OnComplete,
		logger:      cfg.Logger,
		voice:       vad.New(cfg.ChunkSize),
		now:         time.Now,
		state:       StateListenWake,
		preRoll:     ring_buffer.New(cfg.PreRollCap),
	}, nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Halt marks the session as stopping: no further completion callbacks fire
// and resume timers stop being armed.
func (s *Session) Halt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.halted = true
}

// HandleChunk drives the state machine with one mono chunk. Called only from
// the consumer goroutine.
func (s *Session) HandleChunk(chunk []float32) {
	s.mu.Lock()

	state := s.state

	// Processing ends once the drain window has elapsed. Anything queued in
	// the meantime is stale playback bleed-through, so throw it away and let
	// the detector refill on fresh audio before trusting its scores again.
	if state == StateProcessing && !s.now().Before(s.resumeAt) {
		cleared := s.queue.Drain()

		s.state = StateListenWake
		state = StateListenWake
		s.skipChunks = s.resumeSkip

		// A second reset here covers audio that reached the detector between
		// the save-time reset and now; the skip window then refills it.
		if err := s.detector.Reset(); err != nil {
			s.logger.Warn().Err(err).Msg("detector reset failed, continuing")
		}

		s.logger.Info().
			Int("cleared", cleared).
			Int("skip_chunks", s.resumeSkip).
			Msg("resuming wake word detection")
	}

	// Pre-roll tracks everything except drain-window audio.
	if state != StateProcessing {
		s.preRoll.Extend(chunk)
	}

	s.mu.Unlock()

	switch state {
	case StateListenWake:
		s.checkWakeWord(chunk)
	case StateRecording:
		s.recordChunk(chunk)
	case StateProcessing:
		// Dropped on the floor until the drain window passes.
	}
}

// checkWakeWord feeds a chunk to the detector and starts a recording when a
// label crosses the threshold outside the cooldown window.
func (s *Session) checkWakeWord(chunk []float32) {
	s.mu.Lock()

	if s.halted {
		s.mu.Unlock()
		return
	}

	if s.skipChunks > 0 {
		s.skipChunks--
		s.mu.Unlock()

		// Still feed the detector so its sliding window fills with real
		// audio, but the prediction is not trusted yet.
		if _, err := s.detector.Predict(storage.FloatToInt16(chunk)); err != nil {
			s.logger.Warn().Err(err).Msg("detector predict failed during skip window")
		}

		return
	}

	queued := s.queue.Len()
	s.mu.Unlock()

	preds, err := s.detector.Predict(storage.FloatToInt16(chunk))
	if err != nil {
		s.logger.Warn().Err(err).Msg("detector predict failed")
		return
	}

	now := s.now()

	// Sorted iteration keeps multi-label tie-breaks deterministic.
	for _, label := range sortedLabels(preds) {
		score := preds[label]
		if score < s.threshold {
			continue
		}

		s.mu.Lock()

		if now.Sub(s.lastWake) > s.cooldown {
			s.lastWake = now

			s.logger.Info().
				Str("label", label).
				Float32("score", score).
				Int("queued", queued).
				Msg("wake word detected, recording")

			s.startRecordingLocked(chunk)
			s.mu.Unlock()

			return
		}

		s.mu.Unlock()
	}
}

// startRecordingLocked seeds a new recording with the pre-roll snapshot plus
// the chunk that carried the wake word. Caller holds the lock.
func (s *Session) startRecordingLocked(chunk []float32) {
	s.state = StateRecording
	s.recStart = s.now()
	s.silenceRun = 0

	seed := s.preRoll.Snapshot()
	s.rec = make([]float32, 0, len(seed)+len(chunk))
	s.rec = append(s.rec, seed...)
	s.rec = append(s.rec, chunk...)
}

// recordChunk appends a chunk to the active recording and checks the two
// stop conditions.
func (s *Session) recordChunk(chunk []float32) {
	level := vad.RMS(chunk)
	flux := s.voice.Flux(chunk)
	chunkDur := time.Duration(float64(len(chunk)) / float64(s.sampleRate) * float64(time.Second))

	s.mu.Lock()

	s.rec = append(s.rec, chunk...)

	if level < s.silenceRMS {
		s.silenceRun += chunkDur
	} else {
		s.silenceRun = 0
	}

	elapsed := s.now().Sub(s.recStart)
	silenceRun := s.silenceRun
	saveForSilence := s.silenceRun >= s.silenceHold
	saveForTimeout := elapsed >= s.maxDuration

	s.mu.Unlock()

	s.logger.Debug().
		Float64("rms", level).
		Float64("flux", flux).
		Dur("silence_run", silenceRun).
		Msg("recording")

	if saveForSilence {
		s.saveRecording(StopReasonSilence)
	} else if saveForTimeout {
		s.saveRecording(StopReasonTimeout)
	}
}

// saveRecording flushes the accumulated samples to disk and parks the session
// in Processing. The state flips before any I/O so chunks arriving during the
// save cannot be appended to a session that no longer exists.
func (s *Session) saveRecording(reason StopReason) {
	s.mu.Lock()

	samples := s.rec
	s.rec = nil
	s.silenceRun = 0
	s.state = StateProcessing
	s.lastStop = reason
	shouldCallback := !s.halted

	s.mu.Unlock()

	duration := float64(len(samples)) / float64(s.sampleRate)

	if err := s.store.Save(s.outputPath, samples); err != nil {
		// Fatal for this recording, but the session still has to advance to
		// Processing and resume listening.
		s.logger.Error().Err(err).Str("path", s.outputPath).Msg("saving recording failed")
		shouldCallback = false
	} else {
		s.logger.Info().
			Str("path", s.outputPath).
			Float64("seconds", duration).
			Str("stop", string(reason)).
			Msg("recording saved")
	}

	// The callback may take seconds; the state is already Processing so no
	// new recording can start while it runs.
	if shouldCallback && s.onComplete != nil {
		s.invokeCallback()
	}

	s.voice.Reset()

	if err := s.detector.Reset(); err != nil {
		s.logger.Warn().Err(err).Msg("detector reset failed, continuing")
	}

	cleared := s.queue.Drain()
	s.logger.Debug().Int("cleared", cleared).Msg("drained buffered chunks after save")

	s.mu.Lock()

	if !s.halted {
		// The drain window also re-arms the cooldown: response audio played
		// by the downstream processor can leak back into the microphone the
		// moment listening resumes.
		now := s.now()
		s.resumeAt = now.Add(s.drainWindow)
		s.lastWake = now
	}

	s.mu.Unlock()
}

// invokeCallback shields the session from a panicking or failing downstream
// command processor.
func (s *Session) invokeCallback() {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error().Interface("panic", p).Msg("completion callback panicked")
		}
	}()

	s.onComplete(s.outputPath)
}

func sortedLabels(preds map[string]float32) []string {
	labels := make([]string, 0, len(preds))
	for label := range preds {
		labels = append(labels, label)
	}

	sort.Strings(labels)

	return labels
}
