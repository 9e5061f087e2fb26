package main

import (
	"github.com/gin-gonic/gin"

	"natours/src/controllers"
	"natours/src/middlewares"
	"natours/src/types"
)

func reviewHandlers(g *gin.RouterGroup, app *application) *gin.RouterGroup {
	c := app.reviewCtl
	protect := middlewares.Protect(app.auth)
	author := middlewares.RestrictTo(types.RoleUser, types.RoleAdmin)

	g.Group("/tours/:id/reviews", protect, controllers.NestedID("tour")).
		GET("", c.GetAll()).
		POST("", middlewares.RestrictTo(types.RoleUser), c.CreateOne())

	g.Group("/reviews", protect).
		GET("", c.GetAll()).
		POST("", middlewares.RestrictTo(types.RoleUser), c.CreateOne()).
		GET("/:id", c.GetOne()).
		PATCH("/:id", author, c.RestrictToAuthor(), c.UpdateOne()).
		DELETE("/:id", author, c.RestrictToAuthor(), c.DeleteOne())
	return g
}
