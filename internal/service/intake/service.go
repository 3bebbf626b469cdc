// Package intake drives the two request pipelines: image intake (label photo
// to context block and structured card) and audio intake (spoken question to
// spoken answer). Each pipeline is a strict stage sequence with fail-fast
// semantics; the only cross-request state it touches are the context and
// cards stores.
package intake

import (
	"context"

	"medlabel/internal/service/qa"
	"medlabel/internal/store"
	"medlabel/internal/transient"
)

// Recognizer is the text-recognition capability over a preprocessed image.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Transcriber is the speech-to-text capability over a canonical waveform.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// Converter reshapes arbitrary audio containers into the canonical waveform.
type Converter interface {
	ToWav(ctx context.Context, src, dst string) error
}

// Synthesizer renders answer text as a speech file dir/name.mp3.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, dir, name string) (string, error)
}

// Amplifier boosts a waveform's loudness by the configured fixed amount.
type Amplifier interface {
	Amplify(ctx context.Context, src, dst string) error
}

// Deps bundles the stores and capability ports a Service needs. All fields
// are required except Engine implementations' internals; nothing is reached
// through ambient state.
type Deps struct {
	Contexts    *store.ContextStore
	Cards       *store.CardsStore
	Files       *transient.Manager
	Engine      qa.Engine
	Recognizer  Recognizer
	Transcriber Transcriber
	Converter   Converter
	Synthesizer Synthesizer
	Amplifier   Amplifier
}

// Service executes the intake pipelines.
type Service struct {
	contexts *store.ContextStore
	cards    *store.CardsStore
	files    *transient.Manager
	engine   qa.Engine
	ocr      Recognizer
	stt      Transcriber
	conv     Converter
	tts      Synthesizer
	amp      Amplifier
}

// NewService wires the pipelines from their dependencies.
func NewService(deps Deps) *Service {
	return &Service{
		contexts: deps.Contexts,
		cards:    deps.Cards,
		files:    deps.Files,
		engine:   deps.Engine,
		ocr:      deps.Recognizer,
		stt:      deps.Transcriber,
		conv:     deps.Converter,
		tts:      deps.Synthesizer,
		amp:      deps.Amplifier,
	}
}

// Cards exposes the cards store for read endpoints.
func (s *Service) Cards() *store.CardsStore { return s.cards }
