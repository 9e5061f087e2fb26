package main

import (
	"github.com/gin-gonic/gin"

	"natours/src/middlewares"
	"natours/src/types"
)

func userHandlers(g *gin.RouterGroup, app *application) *gin.RouterGroup {
	c := app.userCtl
	protect := middlewares.Protect(app.auth)

	users := g.Group("/users")
	users.
		POST("/signup", c.Signup).
		POST("/login", c.Login).
		GET("/logout", c.Logout).
		POST("/forgotPassword", c.ForgotPassword).
		PATCH("/resetPassword/:token", c.ResetPassword)

	users.Group("/account", protect).
		GET("", c.GetAccount).
		PATCH("", c.UpdateAccount).
		DELETE("", c.DeleteAccount).
		PATCH("/changePassword", c.ChangePassword)

	users.Group("", protect, middlewares.RestrictTo(types.RoleAdmin)).
		GET("", c.GetAll()).
		GET("/:id", c.GetOne()).
		PATCH("/:id", c.UpdateOne()).
		DELETE("/:id", c.DeleteOne())
	return g
}
