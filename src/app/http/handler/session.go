package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"scholarduel/src/app/http/dto"
	"scholarduel/src/app/http/response"
	"scholarduel/src/app/middleware"
)

// SessionHandler reports the caller's identity.
type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Me returns the verified session.
// GET /v1/session/me
func (h *SessionHandler) Me(c *gin.Context) {
	response.OK(c, dto.NewSessionResponse(middleware.GetSession(c)))
}

// parseID reads a UUID path parameter, writing a 400 when it is malformed.
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.ValidationError(c, param, "must be a UUID", middleware.GetRequestID(c))
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes the body into obj, writing a 413 or 400 when it cannot.
func bindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	switch {
	case err == nil:
		return true
	case middleware.IsBodyTooLarge(err):
		response.PayloadTooLarge(c, middleware.GetRequestID(c))
	default:
		response.BadRequest(c, "invalid payload", middleware.GetRequestID(c))
	}
	return false
}

// fail attaches err for the access log and writes the mapped error response.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	response.FromDomainError(c, err, middleware.GetRequestID(c))
}
