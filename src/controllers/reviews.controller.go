package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"natours/src/db"
	"natours/src/middlewares"
	"natours/src/models"
	"natours/src/services"
	"natours/src/types"
)

var ErrDuplicateReview = types.NewAppError("You have already reviewed this tour!", http.StatusBadRequest)

type ReviewCollection interface {
	db.Collection[models.Review]
	Exists(ctx context.Context, tourID, userID uint) (bool, error)
}

type TourFinder interface {
	FindByID(ctx context.Context, id uint, populate ...string) (*models.Tour, error)
}

// RatingRecomputer refreshes the review aggregate stored on tours.
type RatingRecomputer interface {
	Recompute(ctx context.Context, tourIDs ...uint) error
}

type ReviewController struct {
	*Factory[models.Review]
	reviews ReviewCollection
	tours   TourFinder
	ratings RatingRecomputer
}

func NewReviewController(reviews ReviewCollection, tours TourFinder, ratings RatingRecomputer) *ReviewController {
	c := &ReviewController{reviews: reviews, tours: tours, ratings: ratings}
	c.Factory = NewFactory[models.Review](reviews, Names{Singular: "review", Plural: "reviews"}, Hooks[models.Review]{
		BeforeCreate: c.beforeCreate,
		BeforeUpdate: c.beforeUpdate,
		AfterWrite:   c.afterWrite,
		AfterDelete:  c.afterDelete,
	})
	return c
}

// beforeCreate signs the review with the session user and, on nested routes,
// the tour of the path.
func (c *ReviewController) beforeCreate(ctx *gin.Context, review *models.Review) error {
	review.UserID = middlewares.CurrentUser(ctx).ID
	if tourID, ok := NestedValue(ctx, "tour"); ok {
		review.TourID = tourID
	}
	if review.TourID == 0 {
		return nil
	}
	if err := c.checkTour(ctx, review.TourID); err != nil {
		return err
	}
	exists, err := c.reviews.Exists(ctx.Request.Context(), review.TourID, review.UserID)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateReview
	}
	return nil
}

func (c *ReviewController) beforeUpdate(ctx *gin.Context, old, review *models.Review) error {
	review.UserID = old.UserID
	if review.TourID != old.TourID {
		return c.checkTour(ctx, review.TourID)
	}
	return nil
}

func (c *ReviewController) afterWrite(ctx *gin.Context, old, review *models.Review) error {
	ids := []uint{review.TourID}
	if old != nil {
		ids = append(ids, old.TourID)
	}
	return c.ratings.Recompute(ctx.Request.Context(), ids...)
}

func (c *ReviewController) afterDelete(ctx *gin.Context, review *models.Review) error {
	return c.ratings.Recompute(ctx.Request.Context(), review.TourID)
}

func (c *ReviewController) checkTour(ctx *gin.Context, id uint) error {
	_, err := c.tours.FindByID(ctx.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return services.ErrInvalidTour
	}
	return err
}

// RestrictToAuthor lets only the author of a review, or an admin, through.
func (c *ReviewController) RestrictToAuthor() gin.HandlerFunc {
	return middlewares.RestrictToOwner(
		func(ctx context.Context, id uint) (*models.Review, error) {
			return c.reviews.FindByID(ctx, id)
		},
		func(r *models.Review) []uint { return []uint{r.UserID} },
	)
}
