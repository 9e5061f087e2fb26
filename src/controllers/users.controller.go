package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"natours/src/db"
	"natours/src/middlewares"
	"natours/src/models"
	"natours/src/services"
	"natours/src/types"
)

var ErrPasswordRoute = types.NewAppError("This route is not for password updates. Please use /account/changePassword.", http.StatusBadRequest)

var passwordFields = []string{"password", "passwordConfirm"}

type UserController struct {
	*Factory[models.User]
	auth      *services.AuthService
	images    *services.ImageService
	cookieTTL time.Duration
}

func NewUserController(coll db.Collection[models.User], auth *services.AuthService, images *services.ImageService, cookieTTL time.Duration) *UserController {
	c := &UserController{auth: auth, images: images, cookieTTL: cookieTTL}
	c.Factory = NewFactory(coll, Names{Singular: "user", Plural: "users"}, Hooks[models.User]{
		BeforeUpdate: func(_ *gin.Context, _, user *models.User) error {
			user.Email = strings.ToLower(strings.TrimSpace(user.Email))
			return nil
		},
	})
	return c
}

// sendToken issues a session for user as both cookie and response field.
func (c *UserController) sendToken(ctx *gin.Context, code int, user *models.User) {
	token, err := c.auth.SignToken(user.ID)
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	middlewares.SetAuthCookie(ctx, token, c.cookieTTL)
	ctx.JSON(code, gin.H{"status": types.StatusSuccess, "token": token, "data": gin.H{"user": user}})
}

func (c *UserController) Signup(ctx *gin.Context) {
	var body types.SignupRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	user, err := c.auth.Signup(ctx.Request.Context(), &body, baseURL(ctx)+"/account")
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	c.sendToken(ctx, http.StatusCreated, user)
}

func (c *UserController) Login(ctx *gin.Context) {
	var body types.LoginRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		middlewares.Fail(ctx, err)
		return
	}
	user, err := c.auth.Login(ctx.Request.Context(), &body)
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	c.sendToken(ctx, http.StatusOK, user)
}

func (c *UserController) Logout(ctx *gin.Context) {
	middlewares.ClearAuthCookie(ctx)
	ctx.JSON(http.StatusOK, gin.H{"status": types.StatusSuccess})
}

func (c *UserController) ForgotPassword(ctx *gin.Context) {
	var body types.ForgotPasswordRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		middlewares.Fail(ctx, err)
		return
	}
	base := baseURL(ctx)
	err := c.auth.ForgotPassword(ctx.Request.Context(), body.Email, func(token string) string {
		return base + "/api/v1/users/resetPassword/" + token
	})
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": types.StatusSuccess, "message": "Token sent to email!"})
}

func (c *UserController) ResetPassword(ctx *gin.Context) {
	var body types.ResetPasswordRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	user, err := c.auth.ResetPassword(ctx.Request.Context(), ctx.Param("token"), &body)
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	c.sendToken(ctx, http.StatusOK, user)
}

func (c *UserController) ChangePassword(ctx *gin.Context) {
	var body types.ChangePasswordRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	user, err := c.auth.ChangePassword(ctx.Request.Context(), middlewares.CurrentUser(ctx), &body)
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	c.sendToken(ctx, http.StatusOK, user)
}

func (c *UserController) GetAccount(ctx *gin.Context) {
	respond(ctx, http.StatusOK, gin.H{"user": middlewares.CurrentUser(ctx)})
}

// UpdateAccount takes name and email as JSON, or as form fields next to an
// optional photo file.
func (c *UserController) UpdateAccount(ctx *gin.Context) {
	user := middlewares.CurrentUser(ctx)
	var body types.UpdateAccountRequestBody
	if err := bindAccountUpdate(ctx, &body); err != nil {
		middlewares.Fail(ctx, err)
		return
	}

	photo := ""
	files, err := formFiles(ctx, "photo")
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	if len(files) > 0 {
		data, err := readUpload(files[0])
		if err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		if photo, err = c.images.UserPhoto(ctx.Request.Context(), user.ID, data); err != nil {
			middlewares.Fail(ctx, err)
			return
		}
	}

	user, err = c.auth.UpdateAccount(ctx.Request.Context(), user, &body, photo)
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, gin.H{"user": user})
}

func (c *UserController) DeleteAccount(ctx *gin.Context) {
	if err := c.auth.DeleteAccount(ctx.Request.Context(), middlewares.CurrentUser(ctx)); err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func bindAccountUpdate(ctx *gin.Context, body *types.UpdateAccountRequestBody) error {
	if ctx.ContentType() == "multipart/form-data" {
		for _, f := range passwordFields {
			if _, ok := ctx.GetPostForm(f); ok {
				return ErrPasswordRoute
			}
		}
		return ctx.ShouldBindWith(body, binding.FormMultipart)
	}

	raw, err := ctx.GetRawData()
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	for _, f := range passwordFields {
		if _, ok := fields[f]; ok {
			return ErrPasswordRoute
		}
	}
	if err := json.Unmarshal(raw, body); err != nil {
		return err
	}
	return models.Validate(body)
}
