// Package middleware holds Gin middleware shared across the control plane.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderName is the response/request header carrying the request ID.
const HeaderName = "X-Request-ID"

// RequestID stamps every request with a UUID, reusing an inbound header value
// if the caller already supplied one, so logs can be correlated across the
// control plane and the pipeline they triggered.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(HeaderName, id)
		c.Next()
	}
}
