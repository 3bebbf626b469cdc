// Package ocr wraps the tesseract binary as the text-recognition capability.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultCommand is the tesseract binary resolved from PATH.
const DefaultCommand = "tesseract"

// blockOfTextMode is tesseract's page-segmentation mode for a uniform block
// of text, which is what a photographed label crops down to.
const blockOfTextMode = "6"

// ErrNoText indicates recognition ran but produced no usable text.
var ErrNoText = errors.New("ocr: no text recognized")

// Service runs text recognition on preprocessed label images.
type Service struct {
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates an OCR service using the given binary (empty means
// DefaultCommand).
func NewService(binary string) *Service {
	if binary == "" {
		binary = DefaultCommand
	}
	return &Service{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Recognize runs tesseract over the image at path and returns the raw
// recognized text. An empty result is an error: a label scan that yields
// nothing is a failed recognition, not an empty success.
func (s *Service) Recognize(ctx context.Context, imagePath string) (string, error) {
	if imagePath == "" {
		return "", fmt.Errorf("ocr: image path required")
	}
	outBase := strings.TrimSuffix(imagePath, filepath.Ext(imagePath))
	outFile := outBase + ".txt"

	args := []string{imagePath, outBase, "--psm", blockOfTextMode}
	if err := s.run(ctx, s.binary, args...); err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	defer os.Remove(outFile)

	data, err := os.ReadFile(outFile)
	if err != nil {
		return "", fmt.Errorf("ocr: read output: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
