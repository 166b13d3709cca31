package repo

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
)

// MemoryRepository is a process-local DuelRepository. Every locking
// operation runs under one mutex, which gives it the same serialisation the
// row lock gives the Postgres store.
type MemoryRepository struct {
	mu          sync.Mutex
	duels       map[uuid.UUID]domain.Duel
	invitations map[uuid.UUID]domain.Invitation // keyed by duel id
	rounds      map[uuid.UUID][]domain.Round
}

var _ ports.DuelRepository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		duels:       make(map[uuid.UUID]domain.Duel),
		invitations: make(map[uuid.UUID]domain.Invitation),
		rounds:      make(map[uuid.UUID][]domain.Round),
	}
}

func (r *MemoryRepository) Health(context.Context) error { return nil }

func (r *MemoryRepository) CreateDuel(_ context.Context, d *domain.Duel, inv *domain.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.duels[d.ID]; ok {
		return domain.NewConflictError("duel already exists")
	}
	r.duels[d.ID] = cloneDuel(*d)
	if inv != nil {
		r.invitations[d.ID] = cloneInvitation(*inv)
	}
	return nil
}

func (r *MemoryRepository) GetDuel(_ context.Context, id uuid.UUID) (*domain.Duel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.duels[id]
	if !ok {
		return nil, domain.NewNotFoundError("duel")
	}
	out := cloneDuel(d)
	return &out, nil
}

func (r *MemoryRepository) ListDuels(_ context.Context, f ports.DuelFilter) ([]domain.Duel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Duel
	for id, d := range r.duels {
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		inv, hasInv := r.invitations[id]
		if !d.IsParticipant(f.UserID) && !(hasInv && inv.InviteeID == f.UserID) {
			continue
		}
		out = append(out, cloneDuel(d))
	}
	slices.SortFunc(out, func(a, b domain.Duel) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return page(out, f.Limit, f.Offset), nil
}

func (r *MemoryRepository) GetInvitationByDuel(_ context.Context, duelID uuid.UUID) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invitations[duelID]
	if !ok {
		return nil, domain.NewNotFoundError("invitation")
	}
	out := cloneInvitation(inv)
	return &out, nil
}

func (r *MemoryRepository) ListInvitations(_ context.Context, f ports.InvitationFilter) ([]domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Invitation
	for _, inv := range r.invitations {
		if inv.InviteeID != f.InviteeID {
			continue
		}
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		out = append(out, cloneInvitation(inv))
	}
	slices.SortFunc(out, func(a, b domain.Invitation) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) CountRounds(_ context.Context, duelID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rounds[duelID]), nil
}

func (r *MemoryRepository) ListRounds(_ context.Context, duelID uuid.UUID) ([]domain.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.rounds[duelID]), nil
}

func (r *MemoryRepository) MutateDuel(_ context.Context, id uuid.UUID, fn ports.DuelMutation) (*domain.Duel, *domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.duels[id]
	if !ok {
		return nil, nil, domain.NewNotFoundError("duel")
	}
	d := cloneDuel(stored)

	var inv *domain.Invitation
	if storedInv, ok := r.invitations[id]; ok {
		c := cloneInvitation(storedInv)
		inv = &c
	}

	if err := fn(&d, inv); err != nil {
		return nil, nil, err
	}

	r.duels[id] = cloneDuel(d)
	if inv != nil {
		r.invitations[id] = cloneInvitation(*inv)
	}
	return &d, inv, nil
}

func (r *MemoryRepository) SubmitRound(_ context.Context, id uuid.UUID, fn ports.RoundSubmission) (*domain.Duel, *domain.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.duels[id]
	if !ok {
		return nil, nil, domain.NewNotFoundError("duel")
	}
	d := cloneDuel(stored)
	existing := r.rounds[id]

	round, err := fn(&d, len(existing))
	if err != nil {
		return nil, nil, err
	}
	for _, prev := range existing {
		if prev.AuthorID == round.AuthorID && prev.RoundNumber == round.RoundNumber {
			return nil, nil, domain.NewConflictError("round already submitted")
		}
	}

	r.rounds[id] = append(existing, *round)
	r.duels[id] = cloneDuel(d)
	return &d, round, nil
}

func (r *MemoryRepository) DeleteDuel(_ context.Context, id uuid.UUID, fn ports.DuelMutation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.duels[id]
	if !ok {
		return domain.NewNotFoundError("duel")
	}
	d := cloneDuel(stored)

	var inv *domain.Invitation
	if storedInv, ok := r.invitations[id]; ok {
		c := cloneInvitation(storedInv)
		inv = &c
	}
	if err := fn(&d, inv); err != nil {
		return err
	}

	delete(r.duels, id)
	delete(r.invitations, id)
	delete(r.rounds, id)
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	offset = max(offset, 0)
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneDuel(d domain.Duel) domain.Duel {
	d.OpponentID = clonePtr(d.OpponentID)
	d.Description = clonePtr(d.Description)
	d.CurrentTurnUserID = clonePtr(d.CurrentTurnUserID)
	d.WinnerID = clonePtr(d.WinnerID)
	d.KOType = clonePtr(d.KOType)
	d.KOReason = clonePtr(d.KOReason)
	d.StartedAt = clonePtr(d.StartedAt)
	d.EndedAt = clonePtr(d.EndedAt)
	return d
}

func cloneInvitation(inv domain.Invitation) domain.Invitation {
	inv.RespondedAt = clonePtr(inv.RespondedAt)
	return inv
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
