package main

import (
	"github.com/gin-gonic/gin"

	"natours/src/controllers"
	"natours/src/middlewares"
	"natours/src/types"
)

func bookingHandlers(g *gin.RouterGroup, app *application) *gin.RouterGroup {
	c := app.bookingCtl
	protect := middlewares.Protect(app.auth)
	admin := middlewares.RestrictTo(types.RoleAdmin)

	g.Group("/tours/:id/bookings", protect, admin, controllers.NestedID("tour")).
		GET("", c.GetAll()).
		POST("", c.CreateOne())

	bookings := g.Group("/bookings", protect)
	bookings.
		GET("/checkout-session/:id/:startDate", c.Checkout).
		GET("/webhook-checkout/:id/:token", c.Confirm)

	bookings.Group("", admin).
		GET("", c.GetAll()).
		POST("", c.CreateOne()).
		GET("/:id", c.GetOne("Tour", "User")).
		PATCH("/:id", c.UpdateOne()).
		DELETE("/:id", c.DeleteOne())
	return g
}
