package judge

import (
	"context"
	"io"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
)

// Unavailable is the judge used when none is configured. Every call fails,
// so rounds are stored unscored.
type Unavailable struct{}

var _ ports.Judge = Unavailable{}

func (Unavailable) Name() string { return "unavailable" }

func (Unavailable) StreamAnalysis(context.Context, ports.Argument, io.Writer) error {
	return domain.ErrScoringUnavailable
}
