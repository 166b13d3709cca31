package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DuelParams are the debate parameters chosen by the challenger.
type DuelParams struct {
	Topic              string
	Description        string
	ChallengerPosition string
	OpponentPosition   string
	MaxRounds          int
}

// RoundDraft is a submission that has been scored (or failed to be scored)
// and is waiting to be applied to its duel.
type RoundDraft struct {
	AuthorID    uuid.UUID
	Content     json.RawMessage
	ContentText string
	Assessment  Assessment
	Scored      bool
}

// NewDuel creates a pending duel and the invitation addressed to the invitee.
func NewDuel(challengerID, inviteeID uuid.UUID, p DuelParams, now time.Time) (*Duel, *Invitation, error) {
	if challengerID == uuid.Nil {
		return nil, nil, NewUnauthorizedError("challenger identity required")
	}
	if inviteeID == uuid.Nil {
		return nil, nil, NewValidationError("opponent_id", "opponent is required")
	}
	if inviteeID == challengerID {
		return nil, nil, NewValidationError("opponent_id", "cannot challenge yourself")
	}

	topic := strings.TrimSpace(p.Topic)
	if topic == "" {
		return nil, nil, NewValidationError("topic", "cannot be empty")
	}
	if utf8.RuneCountInString(topic) > MaxTopicLength {
		return nil, nil, NewValidationError("topic", fmt.Sprintf("at most %d characters", MaxTopicLength))
	}
	if !slices.Contains(AllowedMaxRounds, p.MaxRounds) {
		return nil, nil, NewValidationError("max_rounds", "must be one of 3, 5, 7")
	}

	var description *string
	if d := strings.TrimSpace(p.Description); d != "" {
		if utf8.RuneCountInString(d) > MaxDescriptionLength {
			return nil, nil, NewValidationError("description", fmt.Sprintf("at most %d characters", MaxDescriptionLength))
		}
		description = &d
	}

	challengerPos, err := position("challenger_position", p.ChallengerPosition, DefaultChallengerPosition)
	if err != nil {
		return nil, nil, err
	}
	opponentPos, err := position("opponent_position", p.OpponentPosition, DefaultOpponentPosition)
	if err != nil {
		return nil, nil, err
	}

	turn := challengerID
	duel := &Duel{
		ID:                 uuid.New(),
		ChallengerID:       challengerID,
		Topic:              topic,
		Description:        description,
		ChallengerPosition: challengerPos,
		OpponentPosition:   opponentPos,
		MaxRounds:          p.MaxRounds,
		Status:             DuelPending,
		CurrentRound:       1,
		CurrentTurnUserID:  &turn,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	inv := &Invitation{
		ID:        uuid.New(),
		DuelID:    duel.ID,
		InviterID: challengerID,
		InviteeID: inviteeID,
		Status:    InvitationPending,
		CreatedAt: now,
	}
	return duel, inv, nil
}

func position(field, value, fallback string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return fallback, nil
	}
	if utf8.RuneCountInString(v) > MaxPositionLength {
		return "", NewValidationError(field, fmt.Sprintf("at most %d characters", MaxPositionLength))
	}
	return v, nil
}

// RoundNumberFor returns the round number of the submission that follows
// prior existing rounds. Both sides' Nth submissions share round number N.
func RoundNumberFor(prior int) int {
	return prior/2 + 1
}

// MaxTurns is the total number of submissions after which the duel ends.
func (d *Duel) MaxTurns() int {
	return d.MaxRounds * 2
}

// IsChallenger reports whether user is the challenger.
func (d *Duel) IsChallenger(user uuid.UUID) bool {
	return user == d.ChallengerID
}

// IsParticipant reports whether user is the challenger or the accepted opponent.
func (d *Duel) IsParticipant(user uuid.UUID) bool {
	return d.IsChallenger(user) || (d.OpponentID != nil && *d.OpponentID == user)
}

// OtherParticipant returns the participant facing user, or uuid.Nil when
// there is none yet.
func (d *Duel) OtherParticipant(user uuid.UUID) uuid.UUID {
	if d.IsChallenger(user) {
		if d.OpponentID == nil {
			return uuid.Nil
		}
		return *d.OpponentID
	}
	return d.ChallengerID
}

// PositionOf returns the position label argued by user.
func (d *Duel) PositionOf(user uuid.UUID) string {
	if d.IsChallenger(user) {
		return d.ChallengerPosition
	}
	return d.OpponentPosition
}

// Outcome derives the result. A completed duel without winner is a draw.
func (d *Duel) Outcome() Outcome {
	switch {
	case d.Status != DuelCompleted:
		return OutcomeUndecided
	case d.WinnerID == nil:
		return OutcomeDraw
	case *d.WinnerID == d.ChallengerID:
		return OutcomeChallengerWon
	default:
		return OutcomeOpponentWon
	}
}

// CanSubmit checks that user may submit the next round.
func (d *Duel) CanSubmit(user uuid.UUID) error {
	if d.Status != DuelActive {
		return NewConflictError(fmt.Sprintf("duel is %s", d.Status))
	}
	if !d.IsParticipant(user) {
		return NewForbiddenError("not a participant of this duel")
	}
	if d.CurrentTurnUserID == nil || *d.CurrentTurnUserID != user {
		return NewForbiddenError("not your turn")
	}
	return nil
}

// ApplyRound applies a submission to the duel, given the number of rounds
// already stored. It returns the round to persist. On error the duel is
// left untouched.
func (d *Duel) ApplyRound(prior int, draft RoundDraft, now time.Time) (*Round, error) {
	if err := d.CanSubmit(draft.AuthorID); err != nil {
		return nil, err
	}
	if prior < 0 || prior >= d.MaxTurns() {
		return nil, NewConflictError("all turns have been played")
	}

	round := &Round{
		ID:          uuid.New(),
		DuelID:      d.ID,
		RoundNumber: RoundNumberFor(prior),
		AuthorID:    draft.AuthorID,
		Content:     draft.Content,
		ContentText: draft.ContentText,
		CreatedAt:   now,
	}
	if draft.Scored {
		a := draft.Assessment
		round.Scores = a.Scores.Clamp()
		round.TotalScore = a.Points()
		round.HasFallacy = a.HasFallacy
		round.FallacyType = a.FallacyType
		round.Analysis = a.Analysis
		round.Scored = true
	}

	if d.IsChallenger(draft.AuthorID) {
		d.ChallengerScore += round.TotalScore
	} else {
		d.OpponentScore += round.TotalScore
	}

	d.CurrentRound = round.RoundNumber
	d.UpdatedAt = now

	if prior+1 >= d.MaxTurns() {
		d.Status = DuelCompleted
		d.EndedAt = &now
		d.CurrentTurnUserID = nil
		d.WinnerID = d.leader()
		return round, nil
	}

	next := d.OtherParticipant(draft.AuthorID)
	d.CurrentTurnUserID = &next
	return round, nil
}

// leader returns the participant with the strictly greater score, or nil on a tie.
func (d *Duel) leader() *uuid.UUID {
	switch {
	case d.ChallengerScore > d.OpponentScore:
		id := d.ChallengerID
		return &id
	case d.OpponentScore > d.ChallengerScore && d.OpponentID != nil:
		id := *d.OpponentID
		return &id
	}
	return nil
}

// Accept activates a pending duel on behalf of its invitee.
func (d *Duel) Accept(user uuid.UUID, inv *Invitation, now time.Time) error {
	if err := d.respondable(user, inv); err != nil {
		return err
	}
	opponent := user
	turn := d.ChallengerID
	d.OpponentID = &opponent
	d.Status = DuelActive
	d.StartedAt = &now
	d.CurrentTurnUserID = &turn
	d.UpdatedAt = now

	inv.Status = InvitationAccepted
	inv.RespondedAt = &now
	return nil
}

// Decline rejects a pending duel on behalf of its invitee.
func (d *Duel) Decline(user uuid.UUID, inv *Invitation, now time.Time) error {
	if err := d.respondable(user, inv); err != nil {
		return err
	}
	d.Status = DuelDeclined
	d.CurrentTurnUserID = nil
	d.UpdatedAt = now

	inv.Status = InvitationDeclined
	inv.RespondedAt = &now
	return nil
}

// Cancel withdraws a pending duel on behalf of its challenger.
func (d *Duel) Cancel(user uuid.UUID, inv *Invitation, now time.Time) error {
	if d.Status != DuelPending {
		return NewConflictError(fmt.Sprintf("duel is %s", d.Status))
	}
	if !d.IsChallenger(user) {
		return NewForbiddenError("only the challenger can cancel")
	}
	d.Status = DuelCancelled
	d.CurrentTurnUserID = nil
	d.UpdatedAt = now

	if inv != nil && inv.Status == InvitationPending {
		inv.Status = InvitationCancelled
		inv.RespondedAt = &now
	}
	return nil
}

// CanDelete checks that user may remove a cancelled or declined duel.
func (d *Duel) CanDelete(user uuid.UUID, inv *Invitation) error {
	if d.Status != DuelCancelled && d.Status != DuelDeclined {
		return NewConflictError(fmt.Sprintf("cannot delete a %s duel", d.Status))
	}
	if d.IsChallenger(user) || (inv != nil && inv.InviteeID == user) {
		return nil
	}
	return NewForbiddenError("not a participant of this duel")
}

func (d *Duel) respondable(user uuid.UUID, inv *Invitation) error {
	if d.Status != DuelPending {
		return NewConflictError(fmt.Sprintf("duel is %s", d.Status))
	}
	if inv == nil || inv.Status != InvitationPending {
		return NewConflictError("invitation is no longer pending")
	}
	if inv.InviteeID != user {
		return NewForbiddenError("only the invited opponent can respond")
	}
	return nil
}

// Clamp bounds each dimension to its allowed range.
func (s Scores) Clamp() Scores {
	return Scores{
		Evidence:       clamp(s.Evidence, MaxEvidenceScore),
		Citation:       clamp(s.Citation, MaxCitationScore),
		Logic:          clamp(s.Logic, MaxLogicScore),
		FallacyPenalty: clamp(s.FallacyPenalty, MaxFallacyPenalty),
	}
}

// Total is evidence + citation + logic - fallacy penalty, never below zero.
func (s Scores) Total() int {
	return max(s.Evidence+s.Citation+s.Logic-s.FallacyPenalty, 0)
}

// Points is the total the round contributes. A reported total wins over the
// sum of the sub-scores and is bounded to [0, MaxTotalScore].
func (a Assessment) Points() int {
	if a.Total != nil {
		return clamp(*a.Total, MaxTotalScore)
	}
	return a.Scores.Clamp().Total()
}

func clamp(v, hi int) int {
	return min(max(v, 0), hi)
}
