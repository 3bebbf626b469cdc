package intake

import "fmt"

// Stage identifies the pipeline step that failed. Stages already completed
// when a later stage fails keep their effects; there is no global rollback.
type Stage string

const (
	StageValidate   Stage = "validate"
	StageDecode     Stage = "decode"
	StageRecognize  Stage = "recognize"
	StageAppend     Stage = "append"
	StageExtract    Stage = "extract"
	StageReplace    Stage = "replace"
	StageConvert    Stage = "convert"
	StageTranscribe Stage = "transcribe"
	StageAnswer     Stage = "answer"
	StageSynthesize Stage = "synthesize"
	StageAmplify    Stage = "amplify"
)

// Kind classifies a failure for the HTTP layer: validation and decode are
// client-caused, the rest are server or capability failures.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindDecode        Kind = "decode"
	KindRecognition   Kind = "recognition"
	KindTranscription Kind = "transcription"
	KindExtraction    Kind = "extraction"
	KindStore         Kind = "store"
	KindSynthesis     Kind = "synthesis"
)

// Error is a pipeline failure tagged with the stage it occurred in.
type Error struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ClientCaused reports whether the failure was the caller's fault.
func (e *Error) ClientCaused() bool {
	return e.Kind == KindValidation || e.Kind == KindDecode
}

func failed(stage Stage, kind Kind, err error) *Error {
	return &Error{Stage: stage, Kind: kind, Err: err}
}
