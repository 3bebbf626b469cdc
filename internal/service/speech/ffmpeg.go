// Package speech wraps the audio capabilities: format conversion and gain
// adjustment via ffmpeg, transcription via the whisper CLI, and speech
// synthesis via htgo-tts.
package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// FFmpegCommand is the default ffmpeg binary resolved from PATH.
const FFmpegCommand = "ffmpeg"

// canonical waveform parameters expected by the transcriber
const (
	sampleRate = "16000"
	channels   = "1"
)

// Converter turns arbitrary audio containers into the canonical mono 16 kHz
// WAV the transcriber expects.
type Converter struct {
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

func NewConverter(binary string) *Converter {
	if binary == "" {
		binary = FFmpegCommand
	}
	return &Converter{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Converter) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	c.commandRunner = runner
}

// ToWav converts src into a mono 16 kHz WAV at dst.
func (c *Converter) ToWav(ctx context.Context, src, dst string) error {
	args := []string{"-y", "-i", src, "-ar", sampleRate, "-ac", channels, dst}
	if err := runCommand(ctx, c.commandRunner, c.binary, args...); err != nil {
		return fmt.Errorf("convert audio: %w", err)
	}
	return nil
}

// Amplifier boosts the loudness of a waveform by a fixed decibel amount.
type Amplifier struct {
	binary        string
	gainDB        float64
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// DefaultGainDB is applied when the configuration does not set one.
const DefaultGainDB = 6.0

func NewAmplifier(binary string, gainDB float64) *Amplifier {
	if binary == "" {
		binary = FFmpegCommand
	}
	if gainDB == 0 {
		gainDB = DefaultGainDB
	}
	return &Amplifier{binary: binary, gainDB: gainDB}
}

// WithCommandRunner sets a custom command runner (for testing).
func (a *Amplifier) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	a.commandRunner = runner
}

// Amplify writes a gain-adjusted copy of src to dst.
func (a *Amplifier) Amplify(ctx context.Context, src, dst string) error {
	volume := fmt.Sprintf("volume=%gdB", a.gainDB)
	args := []string{"-y", "-i", src, "-filter:a", volume, dst}
	if err := runCommand(ctx, a.commandRunner, a.binary, args...); err != nil {
		return fmt.Errorf("amplify audio: %w", err)
	}
	return nil
}

func runCommand(ctx context.Context, runner func(ctx context.Context, name string, args ...string) error, name string, args ...string) error {
	if runner != nil {
		return runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
