package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	HeaderRequestID = "X-Request-ID"
	FieldRequestID  = "request_id"
)

// GinMiddleware tags each request with an id, stores a child logger in the
// request context and logs the completed request.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		child := log.With().
			Str("module", "http").
			Str(FieldRequestID, reqID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Logger()

		c.Header(HeaderRequestID, reqID)
		c.Set(FieldRequestID, reqID)
		c.Request = c.Request.WithContext(child.WithContext(c.Request.Context()))

		c.Next()

		evt := child.Info()
		if c.Writer.Status() >= 500 {
			evt = child.Error()
		}
		evt.Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request completed")
	}
}
