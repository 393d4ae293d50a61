package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration for the wake recorder.
type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	WakeWord  WakeWordConfig  `yaml:"wakeword"`
	Recording RecordingConfig `yaml:"recording"`
	Processor ProcessorConfig `yaml:"processor"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AudioConfig describes the capture device and chunking.
type AudioConfig struct {
	SampleRate      int    `yaml:"sample_rate"`
	ChunkSize       int    `yaml:"chunk_size"` // samples per chunk
	Channels        int    `yaml:"channels"`
	MicChannelIndex int    `yaml:"mic_channel_index"`
	DeviceMatch     string `yaml:"device_match"`
}

// WakeWordConfig tunes wake word detection.
type WakeWordConfig struct {
	Threshold       float32  `yaml:"threshold"`
	CooldownSeconds float64  `yaml:"cooldown_seconds"`
	ModelsDir       string   `yaml:"models_dir"`
	Models          []string `yaml:"models"` // empty = load every model in models_dir
	OnnxLibrary     string   `yaml:"onnx_library"`
}

// RecordingConfig tunes command capture and endpointing.
type RecordingConfig struct {
	MaxDurationSeconds  float64 `yaml:"max_duration_seconds"`
	SilenceHoldSeconds  float64 `yaml:"silence_hold_seconds"`
	SilenceRMSThreshold float64 `yaml:"silence_rms_threshold"`
	PreRollSeconds      float64 `yaml:"pre_roll_seconds"`
	OutputPath          string  `yaml:"output_path"`
	DrainSeconds        float64 `yaml:"drain_seconds"`
	ResumeSkipChunks    int     `yaml:"resume_skip_chunks"`
}

// ProcessorConfig selects and tunes the downstream command processor.
type ProcessorConfig struct {
	Backend      string  `yaml:"backend"` // "openai" or "whisper"
	APIKey       string  `yaml:"api_key"`
	WhisperModel string  `yaml:"whisper_model"`
	ChatModel    string  `yaml:"chat_model"`
	SystemPrompt string  `yaml:"system_prompt"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float32 `yaml:"temperature"`
	LocalModel   string  `yaml:"local_model"` // ggml model path for the whisper backend
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when no file is present. The numeric
// values match the hardware tuning the recorder shipped with.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:      16000,
			ChunkSize:       1280,
			Channels:        4,
			MicChannelIndex: 0,
			DeviceMatch:     "seeed",
		},
		WakeWord: WakeWordConfig{
			Threshold:       0.5,
			CooldownSeconds: 1.0,
			ModelsDir:       "models",
		},
		Recording: RecordingConfig{
			MaxDurationSeconds:  10.0,
			SilenceHoldSeconds:  0.8,
			SilenceRMSThreshold: 0.007,
			PreRollSeconds:      0.4,
			OutputPath:          "/tmp/command.wav",
			DrainSeconds:        3.0,
			ResumeSkipChunks:    30,
		},
		Processor: ProcessorConfig{
			Backend:      "openai",
			WhisperModel: "whisper-1",
			ChatModel:    "gpt-4o-mini",
			SystemPrompt: "You are a helpful voice assistant.",
			MaxTokens:    500,
			Temperature:  0.7,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads a YAML config file, overlays it on the defaults, applies
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overlays the small set of environment variables that make sense to
// set outside the config file (secrets and deploy-specific paths).
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Processor.APIKey == "" {
		c.Processor.APIKey = v
	}

	if v := os.Getenv("AUDIO_DEVICE_MATCH"); v != "" {
		c.Audio.DeviceMatch = v
	}

	if v := os.Getenv("RECORDING_OUTPUT_PATH"); v != "" {
		c.Recording.OutputPath = v
	}

	if v := os.Getenv("WAKEWORD_MODELS_DIR"); v != "" {
		c.WakeWord.ModelsDir = v
	}

	if v := os.Getenv("ONNX_LIBRARY_PATH"); v != "" {
		c.WakeWord.OnnxLibrary = v
	}
}

// Validate checks every field that would otherwise fail deep inside the
// recorder at runtime.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}

	if c.Audio.ChunkSize <= 0 {
		return fmt.Errorf("audio.chunk_size must be positive, got %d", c.Audio.ChunkSize)
	}

	if c.Audio.Channels <= 0 {
		return fmt.Errorf("audio.channels must be positive, got %d", c.Audio.Channels)
	}

	if c.Audio.MicChannelIndex < 0 || c.Audio.MicChannelIndex >= c.Audio.Channels {
		return fmt.Errorf("audio.mic_channel_index %d out of range for %d channels",
			c.Audio.MicChannelIndex, c.Audio.Channels)
	}

	if c.WakeWord.Threshold < 0 || c.WakeWord.Threshold > 1 {
		return fmt.Errorf("wakeword.threshold must be in [0,1], got %f", c.WakeWord.Threshold)
	}

	if c.WakeWord.CooldownSeconds < 0 {
		return fmt.Errorf("wakeword.cooldown_seconds must not be negative")
	}

	if c.Recording.MaxDurationSeconds <= 0 {
		return fmt.Errorf("recording.max_duration_seconds must be positive")
	}

	if c.Recording.SilenceHoldSeconds <= 0 {
		return fmt.Errorf("recording.silence_hold_seconds must be positive")
	}

	if c.Recording.SilenceRMSThreshold <= 0 {
		return fmt.Errorf("recording.silence_rms_threshold must be positive")
	}

	if c.Recording.PreRollSeconds < 0 {
		return fmt.Errorf("recording.pre_roll_seconds must not be negative")
	}

	if c.Recording.OutputPath == "" {
		return fmt.Errorf("recording.output_path is required")
	}

	if c.Recording.DrainSeconds < 0 {
		return fmt.Errorf("recording.drain_seconds must not be negative")
	}

	if c.Recording.ResumeSkipChunks < 0 {
		return fmt.Errorf("recording.resume_skip_chunks must not be negative")
	}

	switch strings.ToLower(c.Processor.Backend) {
	case "openai", "whisper", "none":
	default:
		return fmt.Errorf("processor.backend must be openai, whisper or none, got %q", c.Processor.Backend)
	}

	return nil
}

// Cooldown returns the wake cooldown as a duration.
func (c *WakeWordConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds * float64(time.Second))
}

// MaxDuration returns the recording cap as a duration.
func (c *RecordingConfig) MaxDuration() time.Duration {
	return time.Duration(c.MaxDurationSeconds * float64(time.Second))
}

// SilenceHold returns the trailing-silence stop window as a duration.
func (c *RecordingConfig) SilenceHold() time.Duration {
	return time.Duration(c.SilenceHoldSeconds * float64(time.Second))
}

// DrainWindow returns the post-save drain interval as a duration.
func (c *RecordingConfig) DrainWindow() time.Duration {
	return time.Duration(c.DrainSeconds * float64(time.Second))
}

// PreRollSamples returns the pre-roll capacity in samples at the given rate.
func (c *RecordingConfig) PreRollSamples(sampleRate int) int {
	return int(c.PreRollSeconds * float64(sampleRate))
}
