package main

import (
	"github.com/gin-gonic/gin"
)

// stripeWebhookRoute registers the signed Stripe callback. It sits outside
// the session routes and is exempt from the body limit since the signature
// covers the raw payload.
func stripeWebhookRoute(g *gin.Engine, app *application) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", app.bookingCtl.StripeWebhook(app.gateway))
	return apiv1
}
