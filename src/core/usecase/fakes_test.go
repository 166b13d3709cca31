package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
	"scholarduel/src/infra/logger"
	"scholarduel/src/infra/repo"
)

type fakeScorer struct {
	mu      sync.Mutex
	scores  []int
	err     error
	calls   int
	lastArg ports.Argument
}

func (f *fakeScorer) Score(_ context.Context, arg ports.Argument) (domain.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastArg = arg
	if f.err != nil {
		return domain.Assessment{}, f.err
	}
	var evidence int
	if len(f.scores) > 0 {
		evidence, f.scores = f.scores[0], f.scores[1:]
	}
	return domain.Assessment{Scores: domain.Scores{Evidence: evidence}}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, evs ...domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evs...)
	return f.err
}

func (f *fakePublisher) types() []domain.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.EventType, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Type
	}
	return out
}

func (f *fakePublisher) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	created  int
	scored   int
	unscored int
}

func (m *fakeMetrics) DuelCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *fakeMetrics) DuelTransition(domain.DuelStatus) {}

func (m *fakeMetrics) RoundSubmitted(scored bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if scored {
		m.scored++
	} else {
		m.unscored++
	}
}

func (m *fakeMetrics) ScoringDuration(time.Duration, bool) {}
func (m *fakeMetrics) RealtimeConnections(int)             {}
func (m *fakeMetrics) RateLimited(string)                  {}

type fakeJudge struct {
	out string
	err error
}

func (j *fakeJudge) Name() string { return "fake" }

func (j *fakeJudge) StreamAnalysis(_ context.Context, _ ports.Argument, w io.Writer) error {
	if j.err != nil {
		return j.err
	}
	_, err := io.WriteString(w, j.out)
	return err
}

var errJudgeDown = errors.New("judge down")

type harness struct {
	repo    *repo.MemoryRepository
	events  *fakePublisher
	metrics *fakeMetrics
	scorer  *fakeScorer
	duels   *DuelService
	rounds  *RoundService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:    repo.NewMemoryRepository(),
		events:  &fakePublisher{},
		metrics: &fakeMetrics{},
		scorer:  &fakeScorer{},
	}
	log := logger.Discard()
	h.duels = NewDuelService(h.repo, h.events, h.metrics, log)
	h.rounds = NewRoundService(h.repo, h.scorer, h.events, h.metrics, time.Second, log)
	return h
}

func session(id uuid.UUID) domain.Session {
	return domain.Session{UserID: id, Subject: id.String(), ExpiresAt: time.Now().Add(time.Hour)}
}

// activeDuel creates and accepts a duel between two fresh users.
func (h *harness) activeDuel(t *testing.T, maxRounds int) (*domain.Duel, domain.Session, domain.Session) {
	t.Helper()
	ctx := context.Background()
	challenger, opponent := session(uuid.New()), session(uuid.New())

	created, err := h.duels.Create(ctx, challenger, CreateDuelInput{
		OpponentID: opponent.UserID,
		Topic:      "Should universities abolish exams?",
		MaxRounds:  maxRounds,
	})
	require.NoError(t, err)

	accepted, err := h.duels.Accept(ctx, opponent, created.Duel.ID)
	require.NoError(t, err)
	h.events.reset()
	return accepted.Duel, challenger, opponent
}
