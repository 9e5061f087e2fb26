package middlewares

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"natours/src/types"
)

var ErrTooManyRequests = types.NewAppError("The request limit from the current IP address has been reached", http.StatusTooManyRequests)

// PollutionWhitelist lists the query keys allowed to repeat.
var PollutionWhitelist = []string{"duration", "maxGroupSize", "ratingsAverage", "ratingsQuantity", "difficulty", "price"}

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, int64, error)
	Max() int64
}

// RateLimit counts requests per client IP. A nil limiter disables it and a
// failing one lets requests through.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if limiter == nil {
			ctx.Next()
			return
		}
		ok, remaining, err := limiter.Allow(ctx.Request.Context(), ctx.ClientIP())
		if err != nil {
			log.Printf("[RateLimit] %s\n", err.Error())
			ctx.Next()
			return
		}
		ctx.Header("X-RateLimit-Limit", strconv.FormatInt(limiter.Max(), 10))
		ctx.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !ok {
			Fail(ctx, ErrTooManyRequests)
			return
		}
		ctx.Next()
	}
}

// ParameterPollution keeps only the last value of repeated query keys,
// except for the whitelisted ones.
func ParameterPollution(whitelist ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(whitelist))
	for _, k := range whitelist {
		allowed[k] = true
	}
	return func(ctx *gin.Context) {
		q := ctx.Request.URL.Query()
		changed := false
		for key, vals := range q {
			if len(vals) > 1 && !allowed[baseKey(key)] {
				q[key] = vals[len(vals)-1:]
				changed = true
			}
		}
		if changed {
			ctx.Request.URL.RawQuery = q.Encode()
		}
		ctx.Next()
	}
}

// BodyLimit caps request bodies at max bytes, multipart uploads at
// uploadMax. Paths under the exempt prefixes are not limited.
func BodyLimit(max, uploadMax int64, exempt ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		for _, prefix := range exempt {
			if strings.HasPrefix(ctx.Request.URL.Path, prefix) {
				ctx.Next()
				return
			}
		}
		if ctx.Request.Body != nil && ctx.Request.Body != http.NoBody {
			limit := max
			if strings.HasPrefix(ctx.ContentType(), "multipart/form-data") {
				limit = uploadMax
			}
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)
		}
		ctx.Next()
	}
}

func baseKey(key string) string {
	if i := strings.IndexByte(key, '['); i > 0 {
		return key[:i]
	}
	return key
}
