package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
	"scholarduel/src/core/richtext"
)

// SubmitRoundInput is an argument as sent by a client: a structured
// document, plain text, or both (the document wins).
type SubmitRoundInput struct {
	Content     json.RawMessage
	ContentText string
}

// SubmitResult is the stored round and the duel after it was applied.
type SubmitResult struct {
	Duel  *domain.Duel
	Round *domain.Round
}

// RoundService handles argument submission and round queries.
type RoundService struct {
	repo    ports.DuelRepository
	scorer  ports.Scorer
	events  ports.EventPublisher
	metrics ports.Metrics
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewRoundService(
	repo ports.DuelRepository,
	scorer ports.Scorer,
	events ports.EventPublisher,
	metrics ports.Metrics,
	scoringTimeout time.Duration,
	log *slog.Logger,
) *RoundService {
	return &RoundService{
		repo:    repo,
		scorer:  scorer,
		events:  events,
		metrics: metrics,
		log:     log,
		timeout: scoringTimeout,
		now:     time.Now,
	}
}

// Submit scores the caller's argument and appends it to the duel.
//
// The turn is checked twice: once before the judge is called, so an
// out-of-turn request never costs a scoring call, and again under the duel
// lock, which is the check that counts. A scoring failure does not fail the
// submission; the round is stored unscored with zero points.
func (s *RoundService) Submit(ctx context.Context, sess domain.Session, duelID uuid.UUID, in SubmitRoundInput) (*SubmitResult, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	content, text, err := normalizeArgument(in)
	if err != nil {
		return nil, err
	}

	duel, err := s.repo.GetDuel(ctx, duelID)
	if err != nil {
		return nil, err
	}
	if err := duel.CanSubmit(sess.UserID); err != nil {
		return nil, err
	}

	assessment, scored := s.score(ctx, duel, sess.UserID, text)
	draft := domain.RoundDraft{
		AuthorID:    sess.UserID,
		Content:     content,
		ContentText: text,
		Assessment:  assessment,
		Scored:      scored,
	}

	now := s.now()
	updated, round, err := s.repo.SubmitRound(ctx, duelID, func(d *domain.Duel, prior int) (*domain.Round, error) {
		return d.ApplyRound(prior, draft, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RoundSubmitted(round.Scored)
	log := s.log.With("duel_id", duelID, "round_id", round.ID, "user_id", sess.UserID)
	log.Info("round submitted",
		"round_number", round.RoundNumber,
		"total_score", round.TotalScore,
		"scored", round.Scored,
	)
	if updated.Status == domain.DuelCompleted {
		s.metrics.DuelTransition(updated.Status)
		log.Info("duel completed",
			"challenger_score", updated.ChallengerScore,
			"opponent_score", updated.OpponentScore,
			"outcome", updated.Outcome(),
		)
	}

	roundEv := domain.NewEvent(domain.EventRoundInserted, duelID, now)
	roundCopy := *round
	roundEv.Round = &roundCopy
	roundEv.Audience = domain.Participants(updated, nil)
	publish(ctx, s.events, s.log, roundEv, duelEvent(domain.EventDuelUpdated, updated, nil, now))

	return &SubmitResult{Duel: updated, Round: round}, nil
}

// List returns the duel's rounds in submission order.
func (s *RoundService) List(ctx context.Context, sess domain.Session, duelID uuid.UUID) ([]domain.Round, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDuel(ctx, duelID); err != nil {
		return nil, err
	}
	return s.repo.ListRounds(ctx, duelID)
}

func (s *RoundService) score(ctx context.Context, duel *domain.Duel, author uuid.UUID, text string) (domain.Assessment, bool) {
	if s.scorer == nil {
		return domain.Assessment{}, false
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	assessment, err := s.scorer.Score(ctx, ports.Argument{
		Content:  text,
		Topic:    duel.Topic,
		Position: duel.PositionOf(author),
	})
	s.metrics.ScoringDuration(time.Since(start), err == nil)
	if err != nil {
		s.log.Warn("scoring failed, storing round unscored",
			"duel_id", duel.ID,
			"user_id", author,
			"error", err,
		)
		return domain.Assessment{}, false
	}
	return assessment, true
}

func normalizeArgument(in SubmitRoundInput) (json.RawMessage, string, error) {
	var (
		content json.RawMessage
		text    string
	)
	if len(in.Content) > 0 && string(in.Content) != "null" {
		extracted, err := richtext.ExtractText(in.Content)
		if err != nil {
			return nil, "", domain.NewValidationError("content", "not a valid document")
		}
		content, text = in.Content, extracted
	} else {
		text = strings.TrimSpace(in.ContentText)
		content = richtext.FromPlainText(text)
	}

	if text == "" {
		return nil, "", domain.NewValidationError("content", "argument cannot be empty")
	}
	if utf8.RuneCountInString(text) > domain.MaxArgumentLength {
		return nil, "", domain.NewValidationError("content", fmt.Sprintf("at most %d characters", domain.MaxArgumentLength))
	}
	return content, text, nil
}
