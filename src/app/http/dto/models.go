package dto

import (
	"encoding/json"

	"github.com/google/uuid"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
	"scholarduel/src/core/usecase"
)

// CreateDuelRequest is the payload for POST /v1/duels.
type CreateDuelRequest struct {
	OpponentID         uuid.UUID `json:"opponent_id" binding:"required"`
	Topic              string    `json:"topic" binding:"required"`
	Description        string    `json:"description"`
	ChallengerPosition string    `json:"challenger_position"`
	OpponentPosition   string    `json:"opponent_position"`
	MaxRounds          int       `json:"max_rounds" binding:"required"`
}

func (r *CreateDuelRequest) ToInput() usecase.CreateDuelInput {
	return usecase.CreateDuelInput{
		OpponentID:         r.OpponentID,
		Topic:              r.Topic,
		Description:        r.Description,
		ChallengerPosition: r.ChallengerPosition,
		OpponentPosition:   r.OpponentPosition,
		MaxRounds:          r.MaxRounds,
	}
}

// ListDuelsQuery is bound from the query string of GET /v1/duels.
type ListDuelsQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

func (q *ListDuelsQuery) ToInput() usecase.ListDuelsInput {
	return usecase.ListDuelsInput{
		Status: domain.DuelStatus(q.Status),
		Limit:  q.Limit,
		Offset: q.Offset,
	}
}

// SubmitRoundRequest carries an argument. Content is a structured document;
// ContentText is accepted from clients without an editor.
type SubmitRoundRequest struct {
	Content     json.RawMessage `json:"content"`
	ContentText string          `json:"content_text"`
}

func (r *SubmitRoundRequest) ToInput() usecase.SubmitRoundInput {
	return usecase.SubmitRoundInput{Content: r.Content, ContentText: r.ContentText}
}

// AnalyzeRequest is the payload for POST /api/duel/analyze.
type AnalyzeRequest struct {
	Content  string `json:"content"`
	Topic    string `json:"topic"`
	Position string `json:"position"`
}

func (r *AnalyzeRequest) ToArgument() ports.Argument {
	return ports.Argument{Content: r.Content, Topic: r.Topic, Position: r.Position}
}

// Websocket control message types sent by clients.
const (
	ClientSubscribe   = "subscribe"
	ClientUnsubscribe = "unsubscribe"
)

// ClientMessage is a control frame read from a realtime client.
type ClientMessage struct {
	Type   string    `json:"type"`
	DuelID uuid.UUID `json:"duel_id"`
}
