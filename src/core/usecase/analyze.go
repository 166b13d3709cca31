package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
)

// AnalyzeService streams the judge's raw verdict for an argument without
// storing anything.
type AnalyzeService struct {
	judge ports.Judge
	log   *slog.Logger
}

func NewAnalyzeService(judge ports.Judge, log *slog.Logger) *AnalyzeService {
	return &AnalyzeService{judge: judge, log: log}
}

// Validate checks the argument before any bytes are streamed.
func (s *AnalyzeService) Validate(arg ports.Argument) error {
	switch {
	case strings.TrimSpace(arg.Content) == "":
		return domain.NewValidationError("content", "cannot be empty")
	case utf8.RuneCountInString(arg.Content) > domain.MaxArgumentLength:
		return domain.NewValidationError("content", fmt.Sprintf("at most %d characters", domain.MaxArgumentLength))
	case strings.TrimSpace(arg.Topic) == "":
		return domain.NewValidationError("topic", "cannot be empty")
	case utf8.RuneCountInString(arg.Topic) > domain.MaxTopicLength:
		return domain.NewValidationError("topic", fmt.Sprintf("at most %d characters", domain.MaxTopicLength))
	}
	return nil
}

// Stream writes the judge output to w as it is produced.
func (s *AnalyzeService) Stream(ctx context.Context, sess domain.Session, arg ports.Argument, w io.Writer) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if err := s.Validate(arg); err != nil {
		return err
	}

	if err := s.judge.StreamAnalysis(ctx, arg, w); err != nil {
		s.log.Warn("analysis stream failed", "judge", s.judge.Name(), "user_id", sess.UserID, "error", err)
		return domain.NewScoringError(err)
	}
	s.log.Debug("analysis streamed", "judge", s.judge.Name(), "user_id", sess.UserID)
	return nil
}
