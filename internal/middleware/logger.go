package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RequestLogger emits one structured line per request. Probe auth is
// path-scoped under /agent; there is no global authentication layer.
func RequestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	log.Debug().
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", c.Writer.Status()).
		Dur("elapsed", time.Since(start)).
		Msg("request")
}
