package handler

import (
	"github.com/gin-gonic/gin"

	"scholarduel/src/app/http/dto"
	"scholarduel/src/app/http/response"
	"scholarduel/src/app/middleware"
	"scholarduel/src/core/domain"
	"scholarduel/src/core/usecase"
)

// InvitationHandler lists the caller's invitations.
type InvitationHandler struct {
	invitationService *usecase.InvitationService
}

func NewInvitationHandler(invitationService *usecase.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

// List GET /v1/invitations?status=pending
func (h *InvitationHandler) List(c *gin.Context) {
	status := domain.InvitationStatus(c.Query("status"))
	invs, err := h.invitationService.List(c.Request.Context(), middleware.GetSession(c), status)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewInvitationResponses(invs))
}
