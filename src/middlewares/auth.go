package middlewares

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"natours/src/models"
	"natours/src/types"
	"natours/src/utils"
)

const userKey = "user"

var ErrNotLoggedIn = types.NewAppError("You are not logged in! Please log in to get access.", http.StatusUnauthorized)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Protect rejects requests without a valid session and stores the user on
// the context.
func Protect(auth Authenticator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := TokenFromRequest(ctx)
		if token == "" {
			Fail(ctx, ErrNotLoggedIn)
			return
		}
		user, err := auth.Authenticate(ctx.Request.Context(), token)
		if err != nil {
			Fail(ctx, err)
			return
		}
		ctx.Set(userKey, user)
		ctx.Next()
	}
}

// IsLoggedIn loads the session user when there is one. It never fails.
func IsLoggedIn(auth Authenticator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie(AuthCookie)
		if err != nil || token == "" || token == loggedOut {
			ctx.Next()
			return
		}
		if user, err := auth.Authenticate(ctx.Request.Context(), token); err == nil {
			ctx.Set(userKey, user)
		}
		ctx.Next()
	}
}

// CurrentUser returns the user stored by Protect or IsLoggedIn, or nil.
func CurrentUser(ctx *gin.Context) *models.User {
	v, ok := ctx.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func RestrictTo(roles ...types.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := CurrentUser(ctx)
		if user == nil || !user.HasRole(roles...) {
			Fail(ctx, types.ErrPermissionDenied)
			return
		}
		ctx.Next()
	}
}

// RestrictToOwner loads the document named by the :id param and lets the
// request through when the session user is one of its owners. Admins always
// pass.
func RestrictToOwner[T any](load func(ctx context.Context, id uint) (*T, error), owners func(doc *T) []uint) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := CurrentUser(ctx)
		if user == nil {
			Fail(ctx, ErrNotLoggedIn)
			return
		}
		if user.Role == types.RoleAdmin {
			ctx.Next()
			return
		}
		id, err := utils.ParseID("id", ctx.Param("id"))
		if err != nil {
			Fail(ctx, err)
			return
		}
		doc, err := load(ctx.Request.Context(), id)
		if err != nil {
			Fail(ctx, err)
			return
		}
		if !slices.Contains(owners(doc), user.ID) {
			Fail(ctx, types.ErrPermissionDenied)
			return
		}
		ctx.Next()
	}
}
