package handler

import (
	"github.com/gin-gonic/gin"

	"scholarduel/src/app/http/dto"
	"scholarduel/src/app/http/response"
	"scholarduel/src/app/middleware"
	"scholarduel/src/core/usecase"
)

// RoundHandler handles argument submission and round listing.
type RoundHandler struct {
	roundService *usecase.RoundService
}

func NewRoundHandler(roundService *usecase.RoundService) *RoundHandler {
	return &RoundHandler{roundService: roundService}
}

// List returns the duel's rounds in submission order.
// GET /v1/duels/:duel_id/rounds
func (h *RoundHandler) List(c *gin.Context) {
	duelID, ok := parseID(c, "duel_id")
	if !ok {
		return
	}

	rounds, err := h.roundService.List(c.Request.Context(), middleware.GetSession(c), duelID)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewRoundResponses(rounds))
}

// Submit scores and stores the caller's argument.
// POST /v1/duels/:duel_id/rounds
func (h *RoundHandler) Submit(c *gin.Context) {
	duelID, ok := parseID(c, "duel_id")
	if !ok {
		return
	}

	var req dto.SubmitRoundRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.roundService.Submit(c.Request.Context(), middleware.GetSession(c), duelID, req.ToInput())
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, dto.NewSubmitRoundResponse(res))
}
