package intake

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"medlabel/internal/models"
)

// AudioAnswer is the outcome of a successful audio intake run: the answer
// text plus the name of the retained response artifact, retrievable by a
// later request.
type AudioAnswer struct {
	AnswerText   string
	Confidence   float64
	ResponseName string
}

// ProcessAudio runs the audio intake pipeline: persist the upload, convert
// to the canonical waveform, transcribe, answer against the full accumulated
// context, synthesize speech and amplify it. Every transient file created
// here is removed before return except the final amplified response.
func (s *Service) ProcessAudio(ctx context.Context, filename string, src io.Reader) (*AudioAnswer, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, failed(StageValidate, KindValidation, fmt.Errorf("empty filename"))
	}

	token := s.files.Allocate()
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".m4a"
	}
	uploadPath := s.files.Path(models.TransientUpload, token, ext)
	wavPath := s.files.Path(models.TransientWaveform, token, ".wav")
	defer s.files.Release(uploadPath, wavPath)

	if err := saveUpload(uploadPath, src); err != nil {
		return nil, failed(StageValidate, KindValidation, err)
	}
	if err := s.files.Register(ctx, token, models.TransientUpload, uploadPath); err != nil {
		log.Printf("register upload %s: %v", uploadPath, err)
	}

	// Conversion is best-effort: a broken container shows up as a failed
	// transcription on the (missing or garbled) waveform.
	if err := s.conv.ToWav(ctx, uploadPath, wavPath); err != nil {
		log.Printf("convert %s: %v", uploadPath, err)
	} else if err := s.files.Register(ctx, token, models.TransientWaveform, wavPath); err != nil {
		log.Printf("register waveform %s: %v", wavPath, err)
	}

	question, err := s.stt.Transcribe(ctx, wavPath)
	if err != nil {
		// "understood no speech" and "service unreachable" surface the same
		return nil, failed(StageTranscribe, KindTranscription, err)
	}

	fullContext, err := s.contexts.ReadAll()
	if err != nil {
		return nil, failed(StageAnswer, KindStore, err)
	}

	answer, err := s.engine.Answer(ctx, question, fullContext)
	if err != nil {
		return nil, failed(StageAnswer, KindExtraction, err)
	}

	synthPath, err := s.tts.Synthesize(ctx, answer.Text, s.files.BaseDir(), "synth_"+token)
	if err != nil {
		return nil, failed(StageSynthesize, KindSynthesis, err)
	}
	defer s.files.Release(synthPath)
	if err := s.files.Register(ctx, token, models.TransientResponse, synthPath); err != nil {
		log.Printf("register synth %s: %v", synthPath, err)
	}

	responsePath := s.files.Path(models.TransientResponse, token, ".mp3")
	if err := s.amp.Amplify(ctx, synthPath, responsePath); err != nil {
		s.files.Release(responsePath)
		return nil, failed(StageAmplify, KindSynthesis, err)
	}
	// the response artifact outlives this request; its registry row's TTL
	// guarantees eventual removal after it has been served
	if err := s.files.Register(ctx, token, models.TransientResponse, responsePath); err != nil {
		log.Printf("register response %s: %v", responsePath, err)
	}

	return &AudioAnswer{
		AnswerText:   answer.Text,
		Confidence:   answer.Confidence,
		ResponseName: filepath.Base(responsePath),
	}, nil
}

func saveUpload(path string, src io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, src); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	return nil
}
