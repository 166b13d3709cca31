// Package ports defines interfaces (ports) that connect core domain to infrastructure.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern.
//
// Ports are defined here in the core layer, while implementations (adapters)
// live in src/infra. This ensures the core has no dependency on infrastructure.
package ports

import (
	"context"

	"github.com/google/uuid"

	"scholarduel/src/core/domain"
)

// Repository is the base interface for all repositories.
type Repository interface {
	// Health checks if the underlying storage is reachable.
	Health(ctx context.Context) error
}

// DuelFilter selects the duels a user takes part in.
type DuelFilter struct {
	// UserID matches the challenger, the opponent or the invitee.
	UserID uuid.UUID
	// Status is optional; empty matches every status.
	Status domain.DuelStatus
	Limit  int
	Offset int
}

// InvitationFilter selects invitations addressed to a user.
type InvitationFilter struct {
	InviteeID uuid.UUID
	Status    domain.InvitationStatus
}

// DuelMutation changes a locked duel and its invitation. Returning an error
// aborts the transaction and nothing is written.
type DuelMutation func(d *domain.Duel, inv *domain.Invitation) error

// RoundSubmission receives the locked duel and the number of rounds already
// stored, mutates the duel and returns the round to insert.
type RoundSubmission func(d *domain.Duel, prior int) (*domain.Round, error)

// DuelRepository owns duels, their rounds and their invitations.
//
// MutateDuel, SubmitRound and DeleteDuel hold an exclusive lock on the duel
// for the duration of the callback, so checks made inside it are authoritative.
type DuelRepository interface {
	Repository

	CreateDuel(ctx context.Context, d *domain.Duel, inv *domain.Invitation) error
	GetDuel(ctx context.Context, id uuid.UUID) (*domain.Duel, error)
	ListDuels(ctx context.Context, f DuelFilter) ([]domain.Duel, error)

	GetInvitationByDuel(ctx context.Context, duelID uuid.UUID) (*domain.Invitation, error)
	ListInvitations(ctx context.Context, f InvitationFilter) ([]domain.Invitation, error)

	CountRounds(ctx context.Context, duelID uuid.UUID) (int, error)
	ListRounds(ctx context.Context, duelID uuid.UUID) ([]domain.Round, error)

	MutateDuel(ctx context.Context, id uuid.UUID, fn DuelMutation) (*domain.Duel, *domain.Invitation, error)
	SubmitRound(ctx context.Context, id uuid.UUID, fn RoundSubmission) (*domain.Duel, *domain.Round, error)
	DeleteDuel(ctx context.Context, id uuid.UUID, fn DuelMutation) error
}
