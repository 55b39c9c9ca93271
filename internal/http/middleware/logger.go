package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func Logger(l zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event := l.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", latency)
		if rid, ok := c.Get(RequestIDHeader); ok {
			event = event.Str("request_id", rid.(string))
		}
		if actor := c.GetString(ActorIDKey); actor != "" {
			event = event.Str("actor_id", actor)
		}
		event.Msg("request")
	}
}
