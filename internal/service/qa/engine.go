// Package qa provides the extraction capability: given a question and a
// context string, return an answer span with a confidence score. The engine
// is a narrow port so pipelines can run against fakes in tests.
package qa

import "context"

// Answer is one extractive answer with the model's confidence in it.
type Answer struct {
	Text       string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// Engine answers a single question against a context string.
type Engine interface {
	Answer(ctx context.Context, question, contextText string) (Answer, error)
}
