package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSecureHeaders(t *testing.T) {
	for _, prod := range []bool{false, true} {
		r := newRouter(SecureHeaders(prod))
		r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

		w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Contains(t, w.Header().Get("Content-Security-Policy"), "script-src 'self' 'unsafe-eval' js.stripe.com")
		assert.Contains(t, w.Header().Get("Content-Security-Policy"), "https://a.basemaps.cartocdn.com")
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, prod, w.Header().Get("Strict-Transport-Security") != "")
	}
}

func TestRequestID(t *testing.T) {
	r := newRouter(RequestID)
	r.GET("/", func(ctx *gin.Context) { ctx.String(http.StatusOK, ctx.GetString("requestId")) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	id := w.Header().Get("X-Request-ID")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
