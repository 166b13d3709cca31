package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"scholarduel/src/app/http/response"
	"scholarduel/src/core/domain"
)

// SessionKey is the context key for the verified caller.
const SessionKey = "session"

// TokenVerifier turns a bearer token into a session.
type TokenVerifier interface {
	Verify(token string) (domain.Session, error)
}

// Auth requires a valid session token. The token is read from the
// Authorization header, or from the token query parameter for websocket
// upgrades where browsers cannot set headers.
func Auth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := GetRequestID(c)

		raw := bearerToken(c)
		if raw == "" {
			response.Unauthorized(c, "missing session token", requestID)
			c.Abort()
			return
		}

		sess, err := tokens.Verify(raw)
		if err != nil {
			response.Unauthorized(c, "invalid or expired session token", requestID)
			c.Abort()
			return
		}

		c.Set(SessionKey, sess)
		c.Next()
	}
}

// GetSession returns the session stored by Auth, or an anonymous session.
func GetSession(c *gin.Context) domain.Session {
	if v, ok := c.Get(SessionKey); ok {
		if sess, ok := v.(domain.Session); ok {
			return sess
		}
	}
	return domain.Session{}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}
