package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"scholarduel/src/infra/config"
)

// CORS allows browser clients from the configured origins. A "*" entry
// allows any origin; credentials are only allowed with an explicit list.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        10 * time.Minute,
	}

	if cfg.AllowAll() {
		c.AllowAllOrigins = true
	} else {
		for _, o := range cfg.Origins {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowOrigins = append(c.AllowOrigins, o)
			}
		}
		c.AllowCredentials = true
	}

	return cors.New(c)
}
