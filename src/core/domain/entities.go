package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DuelStatus represents the lifecycle of a duel.
type DuelStatus string

const (
	DuelPending   DuelStatus = "pending"
	DuelActive    DuelStatus = "active"
	DuelCompleted DuelStatus = "completed"
	DuelCancelled DuelStatus = "cancelled"
	DuelDeclined  DuelStatus = "declined"
)

// Valid reports whether s is a known duel status.
func (s DuelStatus) Valid() bool {
	switch s {
	case DuelPending, DuelActive, DuelCompleted, DuelCancelled, DuelDeclined:
		return true
	}
	return false
}

// Terminal reports whether no further transition (other than deletion) is possible.
func (s DuelStatus) Terminal() bool {
	return s == DuelCompleted || s == DuelCancelled || s == DuelDeclined
}

// InvitationStatus represents the lifecycle of an invitation.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationDeclined  InvitationStatus = "declined"
	InvitationCancelled InvitationStatus = "cancelled"
)

// Valid reports whether s is a known invitation status.
func (s InvitationStatus) Valid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationDeclined, InvitationCancelled:
		return true
	}
	return false
}

// KOType labels an abnormal, early termination of a duel.
// Stored and displayed only; the transition rules never set it.
type KOType string

const (
	KOFallacyLimit KOType = "fallacy_limit"
	KOScoreStreak  KOType = "score_streak"
)

// Outcome is the derived result of a duel.
type Outcome string

const (
	OutcomeUndecided     Outcome = "undecided"
	OutcomeChallengerWon Outcome = "challenger_won"
	OutcomeOpponentWon   Outcome = "opponent_won"
	OutcomeDraw          Outcome = "draw"
)

// Duel is a two-party, turn-based, scored debate.
type Duel struct {
	ID                 uuid.UUID
	ChallengerID       uuid.UUID
	OpponentID         *uuid.UUID
	Topic              string
	Description        *string
	ChallengerPosition string
	OpponentPosition   string
	MaxRounds          int
	Status             DuelStatus
	CurrentRound       int
	CurrentTurnUserID  *uuid.UUID
	ChallengerScore    int
	OpponentScore      int
	WinnerID           *uuid.UUID
	KOType             *KOType
	KOReason           *string
	CreatedAt          time.Time
	StartedAt          *time.Time
	EndedAt            *time.Time
	UpdatedAt          time.Time
}

// Scores holds the four judged dimensions of an argument.
type Scores struct {
	Evidence       int
	Citation       int
	Logic          int
	FallacyPenalty int
}

// Assessment is the judge's verdict on a single argument.
type Assessment struct {
	Scores Scores
	// Total is the judge's reported total. Nil means derive it from Scores.
	Total       *int
	HasFallacy  bool
	FallacyType *string
	Analysis    *string
}

// Round is one participant's argument within a duel.
type Round struct {
	ID          uuid.UUID
	DuelID      uuid.UUID
	RoundNumber int
	AuthorID    uuid.UUID
	Content     json.RawMessage
	ContentText string
	Scores      Scores
	TotalScore  int
	HasFallacy  bool
	FallacyType *string
	Analysis    *string
	Scored      bool
	CreatedAt   time.Time
}

// Invitation links a duel to its invitee.
type Invitation struct {
	ID          uuid.UUID
	DuelID      uuid.UUID
	InviterID   uuid.UUID
	InviteeID   uuid.UUID
	Status      InvitationStatus
	CreatedAt   time.Time
	RespondedAt *time.Time
}

// Session is the verified identity of the caller.
type Session struct {
	UserID    uuid.UUID
	Subject   string
	ExpiresAt time.Time
}

// Anonymous reports whether the session carries no identity.
func (s Session) Anonymous() bool {
	return s.UserID == uuid.Nil
}
