package intake

import (
	"context"

	"golang.org/x/sync/errgroup"

	"medlabel/internal/models"
)

// fieldQuestions is the fixed battery run against every newly scanned label
// block, one question per card field, in card display order.
var fieldQuestions = [...]string{
	"What is the name of this medication?",
	"What disease or symptom does this medication treat?",
	"How often should this medication be taken?",
	"How should this medication be administered?",
	"What are the side effects of this medication?",
}

// extractFields asks the five questions independently and assembles the
// answers into one CardRecord. Any single failure fails the whole record; no
// partial records are ever produced.
func (s *Service) extractFields(ctx context.Context, block string) (*models.CardRecord, error) {
	answers := make([]string, len(fieldQuestions))
	g, gctx := errgroup.WithContext(ctx)
	for i, question := range fieldQuestions {
		g.Go(func() error {
			ans, err := s.engine.Answer(gctx, question, block)
			if err != nil {
				return err
			}
			answers[i] = ans.Text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &models.CardRecord{
		Medication:  answers[0],
		Treats:      answers[1],
		Frequency:   answers[2],
		Method:      answers[3],
		SideEffects: answers[4],
	}, nil
}
