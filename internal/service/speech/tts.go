package speech

import (
	"context"
	"fmt"

	htgotts "github.com/hegedustibor/htgo-tts"
	"github.com/hegedustibor/htgo-tts/voices"
)

// Synthesizer produces a spoken rendition of answer text as an mp3 file.
type Synthesizer struct {
	language string
}

func NewSynthesizer(language string) *Synthesizer {
	if language == "" {
		language = voices.English
	}
	return &Synthesizer{language: language}
}

// Synthesize writes the spoken text to dir/name.mp3 and returns the created
// path. name must not carry an extension; the tts library appends one.
func (s *Synthesizer) Synthesize(ctx context.Context, text, dir, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("synthesize: text required")
	}
	tts := htgotts.Speech{Folder: dir, Language: s.language}
	path, err := tts.CreateSpeechFile(text, name)
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}
	return path, nil
}
