package main

import (
	"github.com/gin-gonic/gin"

	"natours/src/controllers"
	"natours/src/middlewares"
	"natours/src/types"
)

func tourHandlers(g *gin.RouterGroup, app *application) *gin.RouterGroup {
	c := app.tourCtl
	protect := middlewares.Protect(app.auth)
	staff := middlewares.RestrictTo(types.RoleAdmin, types.RoleLeadGuide)

	tours := g.Group("/tours")
	tours.
		GET("/hot", controllers.AliasTopTours, c.GetAll()).
		GET("/stats", c.Stats).
		GET("/monthly-plan/:year", protect, middlewares.RestrictTo(types.RoleAdmin, types.RoleLeadGuide, types.RoleGuide), c.MonthlyPlan).
		GET("/within/:distance/center/:coords/unit/:unit", c.Within).
		GET("/distances/:coords/unit/:unit", c.Distances).
		GET("", c.GetAll()).
		POST("", protect, staff, c.CreateOne()).
		GET("/:id", c.GetOne("Reviews", "Reviews.User")).
		PATCH("/:id", protect, staff, c.UploadImages, c.UpdateOne()).
		DELETE("/:id", protect, staff, c.DeleteOne())
	return g
}
