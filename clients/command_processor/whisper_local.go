package command_processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

type whisperImpl struct {
	fileSys afero.Fs
	model   whisper.Model
}

// WhisperConfig configures the local transcription backend.
type WhisperConfig struct {
	FileSys afero.Fs
	Model   whisper.Model
}

// NewWhisper builds a processor that transcribes on-device with whisper.cpp.
// It produces a transcript only; Response stays empty since there is no chat
// model behind it.
func NewWhisper(cfg *WhisperConfig) (Interface, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, errors.New("fileSys is nil")
	}

	if cfg.Model == nil {
		return nil, errors.New("model is nil")
	}

	return &whisperImpl{
		fileSys: cfg.FileSys,
		model:   cfg.Model,
	}, nil
}

func (p *whisperImpl) Process(ctx context.Context, wavPath string) (*Result, error) {
	f, err := p.fileSys.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", wavPath, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid wav file", wavPath)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", wavPath, err)
	}

	wctx, err := p.model.NewContext()
	if err != nil {
		return nil, err
	}

	var cb whisper.SegmentCallback

	if err := wctx.Process(buf.AsFloat32Buffer().Data, cb); err != nil {
		return nil, fmt.Errorf("running whisper model: %w", err)
	}

	transcript, err := collectSegments(wctx)
	if err != nil {
		return nil, err
	}

	return &Result{Transcript: transcript}, nil
}

// collectSegments joins segment text, dropping non-speech annotations and
// repeated segments the model sometimes emits.
func collectSegments(ctx whisper.Context) (string, error) {
	seenText := make(map[string]bool)

	var parts []string

	for {
		segment, err := ctx.NextSegment()
		if err == io.EOF {
			return strings.TrimSpace(strings.Join(parts, " ")), nil
		} else if err != nil {
			return "", err
		}

		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}

		// Bracketed segments are sound annotations, not speech.
		if text[0] == '(' || text[0] == '[' || text[len(text)-1] == ')' || text[len(text)-1] == ']' {
			continue
		}

		if seenText[text] {
			continue
		}
		seenText[text] = true

		parts = append(parts, text)
	}
}
