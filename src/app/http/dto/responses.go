package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/usecase"
)

// DuelResponse is the public view of a duel. Outcome is derived, so a draw
// is distinguishable from a duel still in progress.
type DuelResponse struct {
	ID                 uuid.UUID  `json:"id"`
	ChallengerID       uuid.UUID  `json:"challenger_id"`
	OpponentID         *uuid.UUID `json:"opponent_id"`
	Topic              string     `json:"topic"`
	Description        *string    `json:"description"`
	ChallengerPosition string     `json:"challenger_position"`
	OpponentPosition   string     `json:"opponent_position"`
	MaxRounds          int        `json:"max_rounds"`
	Status             string     `json:"status"`
	CurrentRound       int        `json:"current_round"`
	CurrentTurnUserID  *uuid.UUID `json:"current_turn_user_id"`
	ChallengerScore    int        `json:"challenger_score"`
	OpponentScore      int        `json:"opponent_score"`
	WinnerID           *uuid.UUID `json:"winner_id"`
	Outcome            string     `json:"outcome"`
	KOType             *string    `json:"ko_type"`
	KOReason           *string    `json:"ko_reason"`
	CreatedAt          time.Time  `json:"created_at"`
	StartedAt          *time.Time `json:"started_at"`
	EndedAt            *time.Time `json:"ended_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func NewDuelResponse(d *domain.Duel) DuelResponse {
	out := DuelResponse{
		ID:                 d.ID,
		ChallengerID:       d.ChallengerID,
		OpponentID:         d.OpponentID,
		Topic:              d.Topic,
		Description:        d.Description,
		ChallengerPosition: d.ChallengerPosition,
		OpponentPosition:   d.OpponentPosition,
		MaxRounds:          d.MaxRounds,
		Status:             string(d.Status),
		CurrentRound:       d.CurrentRound,
		CurrentTurnUserID:  d.CurrentTurnUserID,
		ChallengerScore:    d.ChallengerScore,
		OpponentScore:      d.OpponentScore,
		WinnerID:           d.WinnerID,
		Outcome:            string(d.Outcome()),
		KOReason:           d.KOReason,
		CreatedAt:          d.CreatedAt,
		StartedAt:          d.StartedAt,
		EndedAt:            d.EndedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	if d.KOType != nil {
		ko := string(*d.KOType)
		out.KOType = &ko
	}
	return out
}

func NewDuelResponses(duels []domain.Duel) []DuelResponse {
	out := make([]DuelResponse, 0, len(duels))
	for i := range duels {
		out = append(out, NewDuelResponse(&duels[i]))
	}
	return out
}

// RoundResponse is the public view of a round.
type RoundResponse struct {
	ID             uuid.UUID       `json:"id"`
	DuelID         uuid.UUID       `json:"duel_id"`
	RoundNumber    int             `json:"round_number"`
	AuthorID       uuid.UUID       `json:"author_id"`
	Content        json.RawMessage `json:"content"`
	ContentText    string          `json:"content_text"`
	EvidenceScore  int             `json:"evidence_score"`
	CitationScore  int             `json:"citation_score"`
	LogicScore     int             `json:"logic_score"`
	FallacyPenalty int             `json:"fallacy_penalty"`
	TotalScore     int             `json:"total_score"`
	HasFallacy     bool            `json:"has_fallacy"`
	FallacyType    *string         `json:"fallacy_type"`
	Analysis       *string         `json:"analysis"`
	Scored         bool            `json:"scored"`
	CreatedAt      time.Time       `json:"created_at"`
}

func NewRoundResponse(r *domain.Round) RoundResponse {
	return RoundResponse{
		ID:             r.ID,
		DuelID:         r.DuelID,
		RoundNumber:    r.RoundNumber,
		AuthorID:       r.AuthorID,
		Content:        r.Content,
		ContentText:    r.ContentText,
		EvidenceScore:  r.Scores.Evidence,
		CitationScore:  r.Scores.Citation,
		LogicScore:     r.Scores.Logic,
		FallacyPenalty: r.Scores.FallacyPenalty,
		TotalScore:     r.TotalScore,
		HasFallacy:     r.HasFallacy,
		FallacyType:    r.FallacyType,
		Analysis:       r.Analysis,
		Scored:         r.Scored,
		CreatedAt:      r.CreatedAt,
	}
}

func NewRoundResponses(rounds []domain.Round) []RoundResponse {
	out := make([]RoundResponse, 0, len(rounds))
	for i := range rounds {
		out = append(out, NewRoundResponse(&rounds[i]))
	}
	return out
}

// InvitationResponse is the public view of an invitation.
type InvitationResponse struct {
	ID          uuid.UUID  `json:"id"`
	DuelID      uuid.UUID  `json:"duel_id"`
	InviterID   uuid.UUID  `json:"inviter_id"`
	InviteeID   uuid.UUID  `json:"invitee_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	RespondedAt *time.Time `json:"responded_at"`
}

func NewInvitationResponse(inv *domain.Invitation) *InvitationResponse {
	if inv == nil {
		return nil
	}
	return &InvitationResponse{
		ID:          inv.ID,
		DuelID:      inv.DuelID,
		InviterID:   inv.InviterID,
		InviteeID:   inv.InviteeID,
		Status:      string(inv.Status),
		CreatedAt:   inv.CreatedAt,
		RespondedAt: inv.RespondedAt,
	}
}

func NewInvitationResponses(invs []domain.Invitation) []InvitationResponse {
	out := make([]InvitationResponse, 0, len(invs))
	for i := range invs {
		out = append(out, *NewInvitationResponse(&invs[i]))
	}
	return out
}

// DuelWithInvitationResponse is returned by create and the lifecycle verbs.
type DuelWithInvitationResponse struct {
	Duel       DuelResponse        `json:"duel"`
	Invitation *InvitationResponse `json:"invitation"`
}

func NewDuelWithInvitationResponse(in *usecase.DuelWithInvitation) DuelWithInvitationResponse {
	return DuelWithInvitationResponse{
		Duel:       NewDuelResponse(in.Duel),
		Invitation: NewInvitationResponse(in.Invitation),
	}
}

// DuelDetailResponse is a duel with its invitation and every round.
type DuelDetailResponse struct {
	Duel       DuelResponse        `json:"duel"`
	Invitation *InvitationResponse `json:"invitation"`
	Rounds     []RoundResponse     `json:"rounds"`
}

func NewDuelDetailResponse(in *usecase.DuelDetail) DuelDetailResponse {
	return DuelDetailResponse{
		Duel:       NewDuelResponse(in.Duel),
		Invitation: NewInvitationResponse(in.Invitation),
		Rounds:     NewRoundResponses(in.Rounds),
	}
}

// SubmitRoundResponse is the stored round and the duel after it.
type SubmitRoundResponse struct {
	Duel  DuelResponse  `json:"duel"`
	Round RoundResponse `json:"round"`
}

func NewSubmitRoundResponse(in *usecase.SubmitResult) SubmitRoundResponse {
	return SubmitRoundResponse{
		Duel:  NewDuelResponse(in.Duel),
		Round: NewRoundResponse(in.Round),
	}
}

// SessionResponse describes the caller's verified identity.
type SessionResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewSessionResponse(s domain.Session) SessionResponse {
	return SessionResponse{UserID: s.UserID, ExpiresAt: s.ExpiresAt}
}

// EventResponse is a change notification as written to realtime clients.
// Only the payload matching Type is set.
type EventResponse struct {
	ID         uuid.UUID           `json:"id"`
	Type       string              `json:"type"`
	DuelID     uuid.UUID           `json:"duel_id"`
	OccurredAt time.Time           `json:"occurred_at"`
	Duel       *DuelResponse       `json:"duel,omitempty"`
	Round      *RoundResponse      `json:"round,omitempty"`
	Invitation *InvitationResponse `json:"invitation,omitempty"`
}

func NewEventResponse(ev domain.Event) EventResponse {
	out := EventResponse{
		ID:         ev.ID,
		Type:       string(ev.Type),
		DuelID:     ev.DuelID,
		OccurredAt: ev.OccurredAt,
		Invitation: NewInvitationResponse(ev.Invitation),
	}
	if ev.Duel != nil {
		d := NewDuelResponse(ev.Duel)
		out.Duel = &d
	}
	if ev.Round != nil {
		r := NewRoundResponse(ev.Round)
		out.Round = &r
	}
	return out
}
