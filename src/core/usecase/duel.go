package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// CreateDuelInput carries the challenger's choices for a new duel.
type CreateDuelInput struct {
	OpponentID         uuid.UUID
	Topic              string
	Description        string
	ChallengerPosition string
	OpponentPosition   string
	MaxRounds          int
}

// ListDuelsInput filters and pages the caller's duels.
type ListDuelsInput struct {
	Status domain.DuelStatus
	Limit  int
	Offset int
}

// PageLimit is the limit List applies: the default when unset, capped at
// the maximum page size.
func (in ListDuelsInput) PageLimit() int {
	switch {
	case in.Limit <= 0:
		return defaultListLimit
	case in.Limit > maxListLimit:
		return maxListLimit
	}
	return in.Limit
}

// DuelWithInvitation is a duel and its invitation.
type DuelWithInvitation struct {
	Duel       *domain.Duel
	Invitation *domain.Invitation
}

// DuelDetail is everything a client needs to render a duel.
type DuelDetail struct {
	Duel       *domain.Duel
	Invitation *domain.Invitation
	Rounds     []domain.Round
}

// DuelService handles the duel lifecycle: create, respond, cancel, delete.
type DuelService struct {
	repo    ports.DuelRepository
	events  ports.EventPublisher
	metrics ports.Metrics
	log     *slog.Logger
	now     func() time.Time
}

func NewDuelService(repo ports.DuelRepository, events ports.EventPublisher, metrics ports.Metrics, log *slog.Logger) *DuelService {
	return &DuelService{repo: repo, events: events, metrics: metrics, log: log, now: time.Now}
}

// Create opens a pending duel challenging in.OpponentID.
func (s *DuelService) Create(ctx context.Context, sess domain.Session, in CreateDuelInput) (*DuelWithInvitation, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	duel, inv, err := domain.NewDuel(sess.UserID, in.OpponentID, domain.DuelParams{
		Topic:              in.Topic,
		Description:        in.Description,
		ChallengerPosition: in.ChallengerPosition,
		OpponentPosition:   in.OpponentPosition,
		MaxRounds:          in.MaxRounds,
	}, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateDuel(ctx, duel, inv); err != nil {
		return nil, err
	}
	s.metrics.DuelCreated()
	s.log.Info("duel created",
		"duel_id", duel.ID,
		"challenger_id", duel.ChallengerID,
		"invitee_id", inv.InviteeID,
		"max_rounds", duel.MaxRounds,
	)

	publish(ctx, s.events, s.log,
		duelEvent(domain.EventDuelCreated, duel, inv, s.now()),
		invitationEvent(duel, inv, s.now()),
	)
	return &DuelWithInvitation{Duel: duel, Invitation: inv}, nil
}

// Get returns a duel with its invitation and rounds. Duels are public
// debates, so any authenticated user may read them.
func (s *DuelService) Get(ctx context.Context, sess domain.Session, duelID uuid.UUID) (*DuelDetail, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	duel, err := s.repo.GetDuel(ctx, duelID)
	if err != nil {
		return nil, err
	}
	inv, err := s.repo.GetInvitationByDuel(ctx, duelID)
	if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}
	rounds, err := s.repo.ListRounds(ctx, duelID)
	if err != nil {
		return nil, err
	}
	return &DuelDetail{Duel: duel, Invitation: inv, Rounds: rounds}, nil
}

// List returns the duels the caller challenged, accepted or was invited to.
func (s *DuelService) List(ctx context.Context, sess domain.Session, in ListDuelsInput) ([]domain.Duel, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, domain.NewValidationError("status", "unknown duel status")
	}
	if in.Offset < 0 {
		return nil, domain.NewValidationError("offset", "must not be negative")
	}
	return s.repo.ListDuels(ctx, ports.DuelFilter{
		UserID: sess.UserID,
		Status: in.Status,
		Limit:  in.PageLimit(),
		Offset: in.Offset,
	})
}

// Accept activates the duel; only the invitee may accept.
func (s *DuelService) Accept(ctx context.Context, sess domain.Session, duelID uuid.UUID) (*DuelWithInvitation, error) {
	return s.transition(ctx, sess, duelID, "accepted", (*domain.Duel).Accept)
}

// Decline rejects the duel; only the invitee may decline.
func (s *DuelService) Decline(ctx context.Context, sess domain.Session, duelID uuid.UUID) (*DuelWithInvitation, error) {
	return s.transition(ctx, sess, duelID, "declined", (*domain.Duel).Decline)
}

// Cancel withdraws a pending duel; only the challenger may cancel.
func (s *DuelService) Cancel(ctx context.Context, sess domain.Session, duelID uuid.UUID) (*DuelWithInvitation, error) {
	return s.transition(ctx, sess, duelID, "cancelled", (*domain.Duel).Cancel)
}

type lifecycleStep func(d *domain.Duel, user uuid.UUID, inv *domain.Invitation, now time.Time) error

func (s *DuelService) transition(ctx context.Context, sess domain.Session, duelID uuid.UUID, verb string, step lifecycleStep) (*DuelWithInvitation, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	now := s.now()
	duel, inv, err := s.repo.MutateDuel(ctx, duelID, func(d *domain.Duel, inv *domain.Invitation) error {
		return step(d, sess.UserID, inv, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.DuelTransition(duel.Status)
	s.log.Info("duel "+verb, "duel_id", duel.ID, "user_id", sess.UserID, "status", duel.Status)

	events := []domain.Event{duelEvent(domain.EventDuelUpdated, duel, inv, now)}
	if inv != nil {
		events = append(events, invitationEvent(duel, inv, now))
	}
	publish(ctx, s.events, s.log, events...)
	return &DuelWithInvitation{Duel: duel, Invitation: inv}, nil
}

// Delete removes a cancelled or declined duel together with its rows.
func (s *DuelService) Delete(ctx context.Context, sess domain.Session, duelID uuid.UUID) error {
	if err := requireSession(sess); err != nil {
		return err
	}

	var deleted domain.Event
	err := s.repo.DeleteDuel(ctx, duelID, func(d *domain.Duel, inv *domain.Invitation) error {
		if err := d.CanDelete(sess.UserID, inv); err != nil {
			return err
		}
		deleted = domain.NewEvent(domain.EventDuelDeleted, d.ID, s.now())
		deleted.Audience = domain.Participants(d, inv)
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("duel deleted", "duel_id", duelID, "user_id", sess.UserID)
	publish(ctx, s.events, s.log, deleted)
	return nil
}

func requireSession(sess domain.Session) error {
	if sess.Anonymous() {
		return domain.NewUnauthorizedError("session required")
	}
	return nil
}

func duelEvent(t domain.EventType, d *domain.Duel, inv *domain.Invitation, now time.Time) domain.Event {
	ev := domain.NewEvent(t, d.ID, now)
	snapshot := *d
	ev.Duel = &snapshot
	ev.Audience = domain.Participants(d, inv)
	return ev
}

func invitationEvent(d *domain.Duel, inv *domain.Invitation, now time.Time) domain.Event {
	ev := domain.NewEvent(domain.EventInvitationUpdated, d.ID, now)
	snapshot := *inv
	ev.Invitation = &snapshot
	ev.Audience = []uuid.UUID{inv.InviterID, inv.InviteeID}
	return ev
}

// publish relays committed changes. The change is already durable, so a
// relay failure is logged and clients catch up on their next fetch.
func publish(ctx context.Context, events ports.EventPublisher, log *slog.Logger, evs ...domain.Event) {
	if events == nil || len(evs) == 0 {
		return
	}
	if err := events.Publish(ctx, evs...); err != nil {
		log.Warn("failed to publish events", "duel_id", evs[0].DuelID, "count", len(evs), "error", err)
	}
}
