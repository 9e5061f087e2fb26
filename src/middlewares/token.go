package middlewares

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AuthCookie = "token"
	loggedOut  = "loggedout"
)

// TokenFromRequest reads the session token from the auth cookie, falling
// back to a Bearer Authorization header.
func TokenFromRequest(ctx *gin.Context) string {
	if token, err := ctx.Cookie(AuthCookie); err == nil && token != "" && token != loggedOut {
		return token
	}
	bearer := ctx.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(bearer, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// SetAuthCookie issues the HTTP-only session cookie.
func SetAuthCookie(ctx *gin.Context, token string, ttl time.Duration) {
	setCookie(ctx, token, int(ttl.Seconds()))
}

// ClearAuthCookie replaces the session cookie with one that expires in a
// second.
func ClearAuthCookie(ctx *gin.Context) {
	setCookie(ctx, loggedOut, 1)
}

func setCookie(ctx *gin.Context, value string, maxAge int) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     AuthCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  time.Now().Add(time.Duration(maxAge) * time.Second),
		Secure:   isSecure(ctx.Request),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
