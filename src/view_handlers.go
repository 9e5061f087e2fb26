package main

import (
	"github.com/gin-gonic/gin"

	"natours/src/controllers"
	"natours/src/middlewares"
)

func viewHandlers(g *gin.RouterGroup, app *application) *gin.RouterGroup {
	c := app.viewCtl
	protect := middlewares.Protect(app.auth)

	pages := g.Group("", middlewares.IsLoggedIn(app.auth), controllers.Alerts)
	pages.
		GET("/", c.Overview).
		GET("/tour/:slug", c.Tour).
		GET("/login", c.Login).
		GET("/signup", c.Signup).
		GET("/account", protect, c.Account).
		GET("/bookings", protect, c.MyTours)
	return g
}
