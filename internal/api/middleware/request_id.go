package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/termstack/termd/internal/shared/id"
)

// RequestIDHeader is the header carrying the request id in both
// directions.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request id to every request: the client's, if
// it sent one, otherwise a fresh one. The id is echoed in the response
// and stored on the gin context for handlers and logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = id.NewRequestID().String()
		}
		c.Set("request_id", rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Next()
	}
}
