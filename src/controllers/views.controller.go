package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"natours/src/middlewares"
	"natours/src/models"
	"natours/src/services"
	"natours/src/types"
)

const alertKey = "alert"

var ErrNoSuchTourPage = types.NewAppError("There is no tour with that name.", http.StatusNotFound)

var alerts = map[string]string{
	services.AlertSuccessBooking: "Your booking was successfuly paid!",
	services.AlertCancelBooking:  "Your booking was canceled!",
}

type TourPages interface {
	FindAll(ctx context.Context) ([]models.Tour, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tour, error)
}

type ViewController struct {
	tours    TourPages
	tourSvc  *services.TourService
	bookings *services.BookingService
}

func NewViewController(tours TourPages, tourSvc *services.TourService, bookings *services.BookingService) *ViewController {
	return &ViewController{tours: tours, tourSvc: tourSvc, bookings: bookings}
}

// Alerts turns a known ?alert= key into the message shown on the page.
func Alerts(ctx *gin.Context) {
	if msg, ok := alerts[ctx.Query("alert")]; ok {
		ctx.Set(alertKey, msg)
	}
	ctx.Next()
}

func render(ctx *gin.Context, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["title"] = title
	data["user"] = middlewares.CurrentUser(ctx)
	data["alert"] = ctx.GetString(alertKey)
	ctx.HTML(http.StatusOK, name, data)
}

func (c *ViewController) Overview(ctx *gin.Context) {
	tours, err := c.tours.FindAll(ctx.Request.Context())
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	render(ctx, "overview.html", "All Tours", gin.H{"tours": tours})
}

func (c *ViewController) Tour(ctx *gin.Context) {
	tour, err := c.tours.FindBySlug(ctx.Request.Context(), ctx.Param("slug"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		middlewares.Fail(ctx, ErrNoSuchTourPage)
		return
	}
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	if err := c.tourSvc.ExpandGuides(ctx.Request.Context(), tour); err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	render(ctx, "tour.html", tour.Name+" Tour", gin.H{"tour": tour})
}

func (c *ViewController) Login(ctx *gin.Context) {
	render(ctx, "login.html", "Log into your account", nil)
}

func (c *ViewController) Signup(ctx *gin.Context) {
	render(ctx, "signup.html", "Create your account!", nil)
}

func (c *ViewController) Account(ctx *gin.Context) {
	render(ctx, "account.html", "Your account", nil)
}

// MyTours lists the tours the session user has paid for.
func (c *ViewController) MyTours(ctx *gin.Context) {
	tours, err := c.bookings.BookedTours(ctx.Request.Context(), middlewares.CurrentUser(ctx).ID)
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	render(ctx, "overview.html", "My Tours", gin.H{"tours": tours})
}
