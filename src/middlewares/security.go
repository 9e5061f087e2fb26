package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

var contentSecurityPolicy = strings.Join([]string{
	"default-src 'self'",
	"script-src 'self' 'unsafe-eval' js.stripe.com",
	"frame-src 'self' js.stripe.com",
	"img-src 'self' https://a.basemaps.cartocdn.com https://b.basemaps.cartocdn.com https://c.basemaps.cartocdn.com data:",
	"object-src 'none'",
	"base-uri 'self'",
}, "; ")

func SecureHeaders(isProd bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		h := ctx.Writer.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		if isProd {
			h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		}
		ctx.Next()
	}
}

// RequestID keeps an incoming X-Request-ID or assigns a new one, and echoes
// it on the response.
func RequestID(ctx *gin.Context) {
	id := ctx.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	ctx.Set("requestId", id)
	ctx.Header(requestIDHeader, id)
	ctx.Next()
}
