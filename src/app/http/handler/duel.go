package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"scholarduel/src/app/http/dto"
	"scholarduel/src/app/http/response"
	"scholarduel/src/app/middleware"
	"scholarduel/src/core/domain"
	"scholarduel/src/core/usecase"
)

// DuelHandler handles the duel lifecycle endpoints.
type DuelHandler struct {
	duelService *usecase.DuelService
}

func NewDuelHandler(duelService *usecase.DuelService) *DuelHandler {
	return &DuelHandler{duelService: duelService}
}

// Create challenges another user.
// POST /v1/duels
func (h *DuelHandler) Create(c *gin.Context) {
	var req dto.CreateDuelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if middleware.IsBodyTooLarge(err) {
			response.PayloadTooLarge(c, middleware.GetRequestID(c))
			return
		}
		response.BadRequest(c, "invalid payload: opponent_id, topic and max_rounds are required", middleware.GetRequestID(c))
		return
	}

	out, err := h.duelService.Create(c.Request.Context(), middleware.GetSession(c), req.ToInput())
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, dto.NewDuelWithInvitationResponse(out))
}

// List returns the caller's duels.
// GET /v1/duels?status=&limit=&offset=
func (h *DuelHandler) List(c *gin.Context) {
	var q dto.ListDuelsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "limit and offset must be integers", middleware.GetRequestID(c))
		return
	}

	in := q.ToInput()
	duels, err := h.duelService.List(c.Request.Context(), middleware.GetSession(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	response.Paged(c, dto.NewDuelResponses(duels), in.PageLimit(), in.Offset)
}

// Get returns a duel with its invitation and rounds.
// GET /v1/duels/:duel_id
func (h *DuelHandler) Get(c *gin.Context) {
	duelID, ok := parseID(c, "duel_id")
	if !ok {
		return
	}

	detail, err := h.duelService.Get(c.Request.Context(), middleware.GetSession(c), duelID)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewDuelDetailResponse(detail))
}

// Accept POST /v1/duels/:duel_id/accept
func (h *DuelHandler) Accept(c *gin.Context) { h.respond(c, h.duelService.Accept) }

// Decline POST /v1/duels/:duel_id/decline
func (h *DuelHandler) Decline(c *gin.Context) { h.respond(c, h.duelService.Decline) }

// Cancel POST /v1/duels/:duel_id/cancel
func (h *DuelHandler) Cancel(c *gin.Context) { h.respond(c, h.duelService.Cancel) }

type duelVerb func(ctx context.Context, sess domain.Session, duelID uuid.UUID) (*usecase.DuelWithInvitation, error)

func (h *DuelHandler) respond(c *gin.Context, verb duelVerb) {
	duelID, ok := parseID(c, "duel_id")
	if !ok {
		return
	}

	out, err := verb(c.Request.Context(), middleware.GetSession(c), duelID)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewDuelWithInvitationResponse(out))
}

// Delete removes a duel that is no longer in progress.
// DELETE /v1/duels/:duel_id
func (h *DuelHandler) Delete(c *gin.Context) {
	duelID, ok := parseID(c, "duel_id")
	if !ok {
		return
	}

	if err := h.duelService.Delete(c.Request.Context(), middleware.GetSession(c), duelID); err != nil {
		fail(c, err)
		return
	}
	response.NoContent(c)
}
