package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"

	"natours/src/db"
	"natours/src/middlewares"
	"natours/src/models"
	"natours/src/services"
	"natours/src/types"
	"natours/src/utils"
)

// EventVerifier checks the signature of a payment webhook delivery.
type EventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type BookingController struct {
	*Factory[models.Booking]
	svc *services.BookingService
}

func NewBookingController(coll db.Collection[models.Booking], svc *services.BookingService) *BookingController {
	c := &BookingController{svc: svc}
	c.Factory = NewFactory(coll, Names{Singular: "booking", Plural: "bookings"}, Hooks[models.Booking]{
		BeforeCreate: func(ctx *gin.Context, booking *models.Booking) error {
			if tourID, ok := NestedValue(ctx, "tour"); ok {
				booking.TourID = tourID
			}
			return nil
		},
	})
	return c
}

// Checkout handles /bookings/checkout-session/:id/:startDate, :id being the
// tour and :startDate a unix millisecond timestamp.
func (c *BookingController) Checkout(ctx *gin.Context) {
	tourID, err := utils.ParseID("id", ctx.Param("id"))
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	startDate, err := strconv.ParseInt(ctx.Param("startDate"), 10, 64)
	if err != nil {
		middlewares.Fail(ctx, &types.CastError{Path: "startDate", Value: ctx.Param("startDate")})
		return
	}
	session, err := c.svc.Checkout(ctx.Request.Context(), middlewares.CurrentUser(ctx), tourID, startDate, baseURL(ctx))
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": types.StatusSuccess, "session": session})
}

// Confirm is where the payment page sends the customer back to, with either
// the success or the cancel token of the booking.
func (c *BookingController) Confirm(ctx *gin.Context) {
	bookingID, err := utils.ParseID("id", ctx.Param("id"))
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	alert, err := c.svc.Confirm(ctx.Request.Context(), bookingID, ctx.Param("token"))
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, "/bookings?alert="+alert)
}

// StripeWebhook settles bookings from signed checkout session events.
func (c *BookingController) StripeWebhook(verifier EventVerifier) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		payload, err := ctx.GetRawData()
		if err != nil {
			log.Printf("[Stripe] Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		event, err := verifier.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"))
		if err != nil {
			log.Printf("[Stripe] Error verifying webhook signature: %s\n", err.Error())
			ctx.JSON(http.StatusBadRequest, gin.H{"status": types.StatusFail, "message": "Webhook error: " + err.Error()})
			return
		}
		log.Printf("[StripeEvent] %s\n", event.Type)
		switch event.Type {
		case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionExpired:
			var cs stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
				log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			settle := c.svc.CompleteSession
			if event.Type == stripe.EventTypeCheckoutSessionExpired {
				settle = c.svc.ExpireSession
			}
			if err := settle(ctx.Request.Context(), cs.ID); err != nil {
				log.Printf("[Stripe] Error settling session %s: %s\n", cs.ID, err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
		}
		ctx.JSON(http.StatusOK, gin.H{"received": true})
	}
}
