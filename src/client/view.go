package client

import (
	"sort"

	"github.com/google/uuid"

	"scholarduel/src/app/http/dto"
	"scholarduel/src/core/domain"
)

// DuelView is a client's picture of one duel, built from a fetched detail
// and the change events that follow it. Events may arrive more than once;
// rounds are keyed by id so a replay never duplicates one.
type DuelView struct {
	DuelID     uuid.UUID
	Duel       *dto.DuelResponse
	Invitation *dto.InvitationResponse
	Deleted    bool

	// NeedsRefresh is set when a duel.updated event arrives. The event
	// carries a snapshot, but callers should re-fetch the detail rather than
	// trust deltas that may have arrived out of order.
	NeedsRefresh bool

	rounds map[uuid.UUID]dto.RoundResponse
}

func NewDuelView(duelID uuid.UUID) *DuelView {
	return &DuelView{DuelID: duelID, rounds: make(map[uuid.UUID]dto.RoundResponse)}
}

// Reset replaces the view with a freshly fetched detail.
func (v *DuelView) Reset(detail dto.DuelDetailResponse) {
	d := detail.Duel
	v.DuelID = d.ID
	v.Duel = &d
	v.Invitation = detail.Invitation
	v.Deleted = false
	v.NeedsRefresh = false
	v.rounds = make(map[uuid.UUID]dto.RoundResponse, len(detail.Rounds))
	for _, r := range detail.Rounds {
		v.rounds[r.ID] = r
	}
}

// ApplyEvent folds ev into the view and reports whether anything changed.
// Events for other duels are ignored.
func (v *DuelView) ApplyEvent(ev dto.EventResponse) bool {
	if ev.DuelID != v.DuelID {
		return false
	}

	switch domain.EventType(ev.Type) {
	case domain.EventRoundInserted:
		if ev.Round == nil {
			return false
		}
		if _, seen := v.rounds[ev.Round.ID]; seen {
			return false
		}
		v.rounds[ev.Round.ID] = *ev.Round
		return true

	case domain.EventDuelCreated, domain.EventDuelUpdated:
		if ev.Duel == nil {
			return false
		}
		if v.Duel != nil && ev.Duel.UpdatedAt.Before(v.Duel.UpdatedAt) {
			// Stale snapshot; still worth a re-fetch.
			v.NeedsRefresh = true
			return false
		}
		d := *ev.Duel
		v.Duel = &d
		if ev.Type == string(domain.EventDuelUpdated) {
			v.NeedsRefresh = true
		}
		return true

	case domain.EventInvitationUpdated:
		if ev.Invitation == nil {
			return false
		}
		v.Invitation = ev.Invitation
		return true

	case domain.EventDuelDeleted:
		if v.Deleted {
			return false
		}
		v.Deleted = true
		return true
	}
	return false
}

// Rounds returns the rounds in submission order.
func (v *DuelView) Rounds() []dto.RoundResponse {
	out := make([]dto.RoundResponse, 0, len(v.rounds))
	for _, r := range v.rounds {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundNumber != out[j].RoundNumber {
			return out[i].RoundNumber < out[j].RoundNumber
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
