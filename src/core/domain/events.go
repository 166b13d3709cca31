package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a row change relayed to clients.
type EventType string

const (
	EventDuelCreated       EventType = "duel.created"
	EventDuelUpdated       EventType = "duel.updated"
	EventDuelDeleted       EventType = "duel.deleted"
	EventRoundInserted     EventType = "round.inserted"
	EventInvitationUpdated EventType = "invitation.updated"
)

// Event is a committed change to a duel or one of its rows.
// Audience lists users who must receive it even when not subscribed to the duel.
type Event struct {
	ID         uuid.UUID
	Type       EventType
	DuelID     uuid.UUID
	Audience   []uuid.UUID
	OccurredAt time.Time
	Duel       *Duel
	Round      *Round
	Invitation *Invitation
}

// NewEvent stamps a new event for duelID.
func NewEvent(t EventType, duelID uuid.UUID, now time.Time) Event {
	return Event{ID: uuid.New(), Type: t, DuelID: duelID, OccurredAt: now}
}

// Participants returns the users that care about changes to d: the
// challenger, the opponent and (while pending) the invitee.
func Participants(d *Duel, inv *Invitation) []uuid.UUID {
	out := []uuid.UUID{d.ChallengerID}
	if d.OpponentID != nil {
		out = append(out, *d.OpponentID)
	} else if inv != nil {
		out = append(out, inv.InviteeID)
	}
	return out
}
