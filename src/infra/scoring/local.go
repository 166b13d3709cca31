package scoring

import (
	"bytes"
	"context"
	"fmt"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
)

// LocalScorer scores with an in-process judge.
type LocalScorer struct {
	judge ports.Judge
}

var _ ports.Scorer = (*LocalScorer)(nil)

func NewLocalScorer(judge ports.Judge) *LocalScorer {
	return &LocalScorer{judge: judge}
}

// Score buffers the whole judge stream, then parses it.
func (s *LocalScorer) Score(ctx context.Context, arg ports.Argument) (domain.Assessment, error) {
	var buf bytes.Buffer
	if err := s.judge.StreamAnalysis(ctx, arg, &buf); err != nil {
		return domain.Assessment{}, fmt.Errorf("%s judge: %w", s.judge.Name(), err)
	}
	return ParseAssessment(buf.String())
}
