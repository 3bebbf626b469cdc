package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WhisperCommand is the default whisper CLI binary.
const WhisperCommand = "whisper"

// DefaultWhisperModel balances speed and accuracy for short spoken questions.
const DefaultWhisperModel = "base"

// ErrNoSpeech indicates transcription ran but understood no speech. Callers
// treat it the same as a service error, but the distinction matters in logs.
var ErrNoSpeech = errors.New("transcribe: no speech detected")

// Transcriber runs the whisper CLI over a canonical mono waveform.
type Transcriber struct {
	binary        string
	model         string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

func NewTranscriber(binary, model string) *Transcriber {
	if binary == "" {
		binary = WhisperCommand
	}
	if model == "" {
		model = DefaultWhisperModel
	}
	return &Transcriber{binary: binary, model: model}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Transcriber) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	t.commandRunner = runner
}

// Transcribe converts the waveform at wavPath into text. Whisper writes its
// transcript next to the input; the file is consumed and removed here.
func (t *Transcriber) Transcribe(ctx context.Context, wavPath string) (string, error) {
	if wavPath == "" {
		return "", fmt.Errorf("transcribe: wav path required")
	}
	outDir := filepath.Dir(wavPath)
	base := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	outFile := filepath.Join(outDir, base+".txt")

	args := []string{wavPath, "--model", t.model, "--output_format", "txt", "--output_dir", outDir}
	if err := runCommand(ctx, t.commandRunner, t.binary, args...); err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	defer os.Remove(outFile)

	data, err := os.ReadFile(outFile)
	if err != nil {
		return "", fmt.Errorf("transcribe: read transcript: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
