package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"assistant-wake-recorder/audio_device"
	"assistant-wake-recorder/clients/command_processor"
	"assistant-wake-recorder/config"
	"assistant-wake-recorder/recorder"
	"assistant-wake-recorder/wake_word"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/gordonklaus/portaudio"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "assistant-wake-recorder",
	Short: "Always-on wake word trigger and command recorder",
	Long: `assistant-wake-recorder listens continuously on a microphone, detects a
wake phrase with a streaming classifier, records the spoken command that
follows, and hands the finished WAV to a downstream command processor.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start listening for the wake word",
	RunE:  runRecorder,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available audio input devices",
	RunE:  listDevices,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file (YAML)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(devicesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger

	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Logger()
}

func runRecorder(cmd *cobra.Command, args []string) error {
	// A .env file is optional; the environment itself still applies.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)

	if err := wake_word.InitRuntime(cfg.WakeWord.OnnxLibrary); err != nil {
		return fmt.Errorf("initializing onnx runtime: %w", err)
	}

	detector, err := wake_word.New(&wake_word.Config{
		ModelsDir: cfg.WakeWord.ModelsDir,
		Models:    cfg.WakeWord.Models,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer detector.Close()

	fileSys := afero.NewOsFs()

	processor, cleanup, err := buildProcessor(cfg, fileSys)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	onComplete := func(path string) {
		if processor == nil {
			return
		}

		logger.Info().Str("path", path).Msg("processing voice command")

		result, err := processor.Process(context.Background(), path)
		if err != nil {
			logger.Error().Err(err).Msg("command processing failed")
			return
		}

		logger.Info().
			Str("transcript", result.Transcript).
			Str("response", result.Response).
			Int("prompt_tokens", result.Usage.PromptTokens).
			Int("completion_tokens", result.Usage.CompletionTokens).
			Int("total_tokens", result.Usage.TotalTokens).
			Msg("voice command processed")
	}

	rec, err := recorder.New(&recorder.Config{
		Audio:      cfg.Audio,
		WakeWord:   cfg.WakeWord,
		Recording:  cfg.Recording,
		Detector:   detector,
		FileSys:    fileSys,
		OnComplete: onComplete,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	// Stop is idempotent: the signal path and the deferred path can both
	// fire without tripping over each other.
	defer rec.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		rec.Stop()
	}()

	return rec.Start()
}

// buildProcessor wires the configured command processor backend. The cleanup
// func releases backend resources and may be nil.
func buildProcessor(cfg *config.Config, fileSys afero.Fs) (command_processor.Interface, func(), error) {
	switch strings.ToLower(cfg.Processor.Backend) {
	case "none":
		return nil, nil, nil

	case "whisper":
		model, err := whisper.New(cfg.Processor.LocalModel)
		if err != nil {
			return nil, nil, fmt.Errorf("loading whisper model: %w", err)
		}

		proc, err := command_processor.NewWhisper(&command_processor.WhisperConfig{
			FileSys: fileSys,
			Model:   model,
		})
		if err != nil {
			model.Close()
			return nil, nil, err
		}

		return proc, func() { model.Close() }, nil

	default: // "openai", enforced by config validation
		proc, err := command_processor.NewOpenAI(&command_processor.OpenAIConfig{
			APIKey:       cfg.Processor.APIKey,
			WhisperModel: cfg.Processor.WhisperModel,
			ChatModel:    cfg.Processor.ChatModel,
			SystemPrompt: cfg.Processor.SystemPrompt,
			MaxTokens:    cfg.Processor.MaxTokens,
			Temperature:  cfg.Processor.Temperature,
		})
		if err != nil {
			return nil, nil, err
		}

		return proc, nil, nil
	}
}

func listDevices(cmd *cobra.Command, args []string) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := audio_device.ListInput()
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("no input devices found")
		return nil
	}

	for _, dev := range devices {
		fmt.Printf("%3d  %-40s  %d ch  %.0f Hz  [%s]\n",
			dev.Index, dev.Name, dev.MaxInputChannels, dev.DefaultSampleRate, dev.HostAPI)
	}

	return nil
}
