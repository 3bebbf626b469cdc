package intake

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"medlabel/internal/models"
	"medlabel/internal/service/qa"
	"medlabel/internal/service/speech"
	"medlabel/internal/store"
	"medlabel/internal/storage"
	"medlabel/internal/transient"
)

type fakeRecognizer struct {
	text  string
	err   error
	calls atomic.Int32
}

func (f *fakeRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeEngine struct {
	mu        sync.Mutex
	answers   map[string]string
	err       error
	questions []string
}

func (f *fakeEngine) Answer(ctx context.Context, question, contextText string) (qa.Answer, error) {
	f.mu.Lock()
	f.questions = append(f.questions, question)
	f.mu.Unlock()
	if f.err != nil {
		return qa.Answer{}, f.err
	}
	if text, ok := f.answers[question]; ok {
		return qa.Answer{Text: text, Confidence: 0.9}, nil
	}
	return qa.Answer{Text: "answer to " + question, Confidence: 0.5}, nil
}

type fakeConverter struct {
	err   error
	calls int
}

func (f *fakeConverter) ToWav(ctx context.Context, src, dst string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dst, []byte("wav"), 0o644)
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, wavPath string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeSynthesizer struct {
	err   error
	calls int
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text, dir, name string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(dir, name+".mp3")
	return path, os.WriteFile(path, []byte("synth:"+text), 0o644)
}

type fakeAmplifier struct {
	err   error
	calls int
}

func (f *fakeAmplifier) Amplify(ctx context.Context, src, dst string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, append([]byte("loud:"), data...), 0o644)
}

type testRig struct {
	svc      *Service
	contexts *store.ContextStore
	cards    *store.CardsStore
	files    *transient.Manager
	ocr      *fakeRecognizer
	engine   *fakeEngine
	conv     *fakeConverter
	stt      *fakeTranscriber
	tts      *fakeSynthesizer
	amp      *fakeAmplifier
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	dir := t.TempDir()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// a second pooled connection would see a fresh empty :memory: database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	contexts, err := store.OpenContext(filepath.Join(dir, "context.txt"))
	if err != nil {
		t.Fatalf("open context: %v", err)
	}
	cards, err := store.OpenCards(filepath.Join(dir, "cards.txt"))
	if err != nil {
		t.Fatalf("open cards: %v", err)
	}
	files, err := transient.NewManager(db, filepath.Join(dir, "uploads"), time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	rig := &testRig{
		contexts: contexts,
		cards:    cards,
		files:    files,
		ocr:      &fakeRecognizer{text: "Take 2   tablets!! every# 4-6 hrs"},
		engine:   &fakeEngine{},
		conv:     &fakeConverter{},
		stt:      &fakeTranscriber{text: "How often should I take this?"},
		tts:      &fakeSynthesizer{},
		amp:      &fakeAmplifier{},
	}
	rig.svc = NewService(Deps{
		Contexts:    contexts,
		Cards:       cards,
		Files:       files,
		Engine:      rig.engine,
		Recognizer:  rig.ocr,
		Transcriber: rig.stt,
		Converter:   rig.conv,
		Synthesizer: rig.tts,
		Amplifier:   rig.amp,
	})
	return rig
}

func encodePNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func transientFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestProcessImageEndToEnd(t *testing.T) {
	rig := newTestRig(t)
	rig.engine.answers = map[string]string{
		fieldQuestions[0]: "Aspirin",
		fieldQuestions[1]: "headaches",
		fieldQuestions[2]: "every 4-6 hrs",
		fieldQuestions[3]: "oral",
		fieldQuestions[4]: "stomach upset",
	}

	record, err := rig.svc.ProcessImage(context.Background(), encodePNG(t))
	if err != nil {
		t.Fatalf("process image: %v", err)
	}
	if record.Medication != "Aspirin" || record.SideEffects != "stomach upset" {
		t.Fatalf("record = %+v", record)
	}

	full, err := rig.contexts.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if !strings.Contains(full, "Take 2 tablets!! every 4-6 hrs") {
		t.Fatalf("normalized block missing from context: %q", full)
	}

	rows, err := rig.cards.ListRows()
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 card rows, got %d", len(rows))
	}
	if len(rig.engine.questions) != 5 {
		t.Fatalf("expected 5 QA calls, got %d", len(rig.engine.questions))
	}

	if names := transientFiles(t, rig.files.BaseDir()); len(names) != 0 {
		t.Fatalf("scan artifacts not released: %v", names)
	}
}

func TestProcessImageDecodeFailure(t *testing.T) {
	rig := newTestRig(t)

	for _, payload := range []string{"", "!!!not-base64!!!", base64.StdEncoding.EncodeToString([]byte("not an image"))} {
		_, err := rig.svc.ProcessImage(context.Background(), payload)
		var perr *Error
		if !errors.As(err, &perr) {
			t.Fatalf("expected pipeline error, got %v", err)
		}
		if perr.Stage != StageDecode || !perr.ClientCaused() {
			t.Fatalf("expected client-caused decode failure, got %+v", perr)
		}
	}
	if rig.ocr.calls.Load() != 0 {
		t.Fatalf("recognition must not run after decode failure")
	}
}

func TestProcessImageRecognitionFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.ocr.err = errors.New("tesseract not installed")

	_, err := rig.svc.ProcessImage(context.Background(), encodePNG(t))
	var perr *Error
	if !errors.As(err, &perr) || perr.Stage != StageRecognize {
		t.Fatalf("expected recognize failure, got %v", err)
	}

	empty, err := rig.contexts.Empty()
	if err != nil || !empty {
		t.Fatalf("context must stay empty after recognition failure")
	}
	if names := transientFiles(t, rig.files.BaseDir()); len(names) != 0 {
		t.Fatalf("scan artifacts not released: %v", names)
	}
}

func TestProcessImageExtractionFailureKeepsAppend(t *testing.T) {
	rig := newTestRig(t)
	rig.engine.err = errors.New("qa model down")

	_, err := rig.svc.ProcessImage(context.Background(), encodePNG(t))
	var perr *Error
	if !errors.As(err, &perr) || perr.Stage != StageExtract {
		t.Fatalf("expected extract failure, got %v", err)
	}

	// append is retained, cards store untouched
	full, rerr := rig.contexts.ReadAll()
	if rerr != nil || !strings.Contains(full, "Take 2 tablets") {
		t.Fatalf("context append should survive extraction failure, got %q err=%v", full, rerr)
	}
	rows, rerr := rig.cards.ListRows()
	if rerr != nil {
		t.Fatalf("list rows: %v", rerr)
	}
	if len(rows) != 0 {
		t.Fatalf("cards store must be unchanged, got %v", rows)
	}
}

func TestProcessAudioEndToEnd(t *testing.T) {
	rig := newTestRig(t)
	if err := rig.contexts.Append("Take 2 tablets every 4 to 6 hours, max 8 in 24 hours."); err != nil {
		t.Fatalf("append: %v", err)
	}
	rig.engine.answers = map[string]string{
		"How often should I take this?": "every 4 to 6 hours",
	}

	result, err := rig.svc.ProcessAudio(context.Background(), "question.m4a", bytes.NewReader([]byte("m4a-bytes")))
	if err != nil {
		t.Fatalf("process audio: %v", err)
	}
	if result.AnswerText != "every 4 to 6 hours" {
		t.Fatalf("answer = %q", result.AnswerText)
	}
	if result.ResponseName == "" || filepath.Ext(result.ResponseName) != ".mp3" {
		t.Fatalf("response name = %q", result.ResponseName)
	}

	// the QA call must have seen the full accumulated context
	if len(rig.engine.questions) != 1 || rig.engine.questions[0] != "How often should I take this?" {
		t.Fatalf("questions = %v", rig.engine.questions)
	}

	// only the amplified response survives
	names := transientFiles(t, rig.files.BaseDir())
	if len(names) != 1 || names[0] != result.ResponseName {
		t.Fatalf("expected only response artifact, got %v", names)
	}
	data, err := os.ReadFile(filepath.Join(rig.files.BaseDir(), result.ResponseName))
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if !strings.HasPrefix(string(data), "loud:") {
		t.Fatalf("response not amplified: %q", data)
	}
}

func TestProcessAudioEmptyFilename(t *testing.T) {
	rig := newTestRig(t)

	_, err := rig.svc.ProcessAudio(context.Background(), "   ", bytes.NewReader(nil))
	var perr *Error
	if !errors.As(err, &perr) || perr.Stage != StageValidate || !perr.ClientCaused() {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if rig.conv.calls+rig.stt.calls+rig.tts.calls+rig.amp.calls != 0 {
		t.Fatalf("no capability may run after validation failure")
	}
	if names := transientFiles(t, rig.files.BaseDir()); len(names) != 0 {
		t.Fatalf("no transient files may be created, got %v", names)
	}
}

func TestProcessAudioTranscriptionFailureUniform(t *testing.T) {
	for name, terr := range map[string]error{
		"no speech":     speech.ErrNoSpeech,
		"service error": errors.New("whisper unreachable"),
	} {
		t.Run(name, func(t *testing.T) {
			rig := newTestRig(t)
			rig.stt.err = terr

			_, err := rig.svc.ProcessAudio(context.Background(), "q.m4a", bytes.NewReader([]byte("x")))
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected pipeline error, got %v", err)
			}
			if perr.Stage != StageTranscribe || perr.Kind != KindTranscription {
				t.Fatalf("expected uniform transcription failure, got %+v", perr)
			}
			if len(rig.engine.questions) != 0 {
				t.Fatalf("QA must not run after transcription failure")
			}
			if names := transientFiles(t, rig.files.BaseDir()); len(names) != 0 {
				t.Fatalf("transients not cleaned up: %v", names)
			}
		})
	}
}

func TestProcessAudioConversionFailureSurfacesAsTranscription(t *testing.T) {
	rig := newTestRig(t)
	rig.conv.err = errors.New("ffmpeg exploded")
	rig.stt.err = errors.New("cannot open waveform")

	_, err := rig.svc.ProcessAudio(context.Background(), "q.m4a", bytes.NewReader([]byte("x")))
	var perr *Error
	if !errors.As(err, &perr) || perr.Kind != KindTranscription {
		t.Fatalf("conversion failure must surface as transcription failure, got %v", err)
	}
}

func TestProcessAudioAmplifyFailureCleansUp(t *testing.T) {
	rig := newTestRig(t)
	if err := rig.contexts.Append("some context"); err != nil {
		t.Fatalf("append: %v", err)
	}
	rig.amp.err = errors.New("ffmpeg gain failed")

	_, err := rig.svc.ProcessAudio(context.Background(), "q.m4a", bytes.NewReader([]byte("x")))
	var perr *Error
	if !errors.As(err, &perr) || perr.Stage != StageAmplify {
		t.Fatalf("expected amplify failure, got %v", err)
	}
	if names := transientFiles(t, rig.files.BaseDir()); len(names) != 0 {
		t.Fatalf("transients not cleaned up after amplify failure: %v", names)
	}
}

func TestSeedContextFromDirectory(t *testing.T) {
	rig := newTestRig(t)

	seedDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(seedDir, "aspirin.txt"),
		[]byte("Aspirin is used to reduce fever.\nTake 2 tablets every 4 to 6 hours."), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	if err := rig.svc.SeedContext(context.Background(), seedDir); err != nil {
		t.Fatalf("seed: %v", err)
	}
	full, err := rig.contexts.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if !strings.Contains(full, "Aspirin is used to reduce fever.") {
		t.Fatalf("seeded content missing: %q", full)
	}

	// a non-empty store must not be re-seeded
	before := full
	if err := rig.svc.SeedContext(context.Background(), seedDir); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	after, _ := rig.contexts.ReadAll()
	if before != after {
		t.Fatalf("re-seed mutated a non-empty store")
	}
}

func TestExtractFieldsNoPartialRecord(t *testing.T) {
	rig := newTestRig(t)
	rig.engine.err = errors.New("third question failed")

	if _, err := rig.svc.extractFields(context.Background(), "block"); err == nil {
		t.Fatal("expected extraction error")
	}
	rows, err := rig.cards.ListRows()
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("no partial record may be written, got %v", rows)
	}
}

func TestProcessImageConcurrentRuns(t *testing.T) {
	rig := newTestRig(t)
	payload := encodePNG(t)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := rig.svc.ProcessImage(context.Background(), payload); err != nil {
				t.Errorf("process image: %v", err)
			}
		}()
	}
	wg.Wait()

	full, err := rig.contexts.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if got := strings.Count(full, "Take 2 tablets!! every 4-6 hrs"); got != n {
		t.Fatalf("expected %d appended blocks, got %d", n, got)
	}
}

func TestProcessAudioUnknownQuestionStillAnswered(t *testing.T) {
	rig := newTestRig(t)
	rig.stt.text = "What color is it?"

	result, err := rig.svc.ProcessAudio(context.Background(), fmt.Sprintf("q-%d.m4a", time.Now().UnixNano()), bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("process audio: %v", err)
	}
	if result.AnswerText == "" {
		t.Fatal("expected an answer")
	}
}
