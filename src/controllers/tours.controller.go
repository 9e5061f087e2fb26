package controllers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"

	"natours/src/db"
	"natours/src/middlewares"
	"natours/src/models"
	"natours/src/services"
	"natours/src/types"
	"natours/src/utils"
)

const maxTourImages = 3

var ErrTooManyImages = types.NewAppError("Upload at most one imageCover and 3 images", http.StatusBadRequest)

type TourController struct {
	*Factory[models.Tour]
	svc    *services.TourService
	images *services.ImageService
}

func NewTourController(coll db.Collection[models.Tour], svc *services.TourService, images *services.ImageService) *TourController {
	c := &TourController{svc: svc, images: images}
	c.Factory = NewFactory(coll, Names{Singular: "tour", Plural: "tours"}, Hooks[models.Tour]{
		BeforeCreate: c.beforeCreate,
		BeforeUpdate: c.beforeUpdate,
		AfterFind:    c.expandGuides,
	})
	return c
}

func (c *TourController) beforeCreate(_ *gin.Context, tour *models.Tour) error {
	tour.Name = strings.TrimSpace(tour.Name)
	tour.Summary = strings.TrimSpace(tour.Summary)
	tour.Slug = slug.Make(tour.Name)
	tour.RatingsAverage = 0
	tour.RatingsQuantity = 0
	return nil
}

// beforeUpdate keeps the review aggregate out of client hands and follows
// renames with the slug.
func (c *TourController) beforeUpdate(_ *gin.Context, old, tour *models.Tour) error {
	tour.RatingsAverage = old.RatingsAverage
	tour.RatingsQuantity = old.RatingsQuantity
	tour.Name = strings.TrimSpace(tour.Name)
	tour.Summary = strings.TrimSpace(tour.Summary)
	if tour.Name != old.Name || tour.Slug == "" {
		tour.Slug = slug.Make(tour.Name)
	}
	return nil
}

func (c *TourController) expandGuides(ctx *gin.Context, tour *models.Tour) error {
	return c.svc.ExpandGuides(ctx.Request.Context(), tour)
}

// AliasTopTours rewrites the query to the five best rated, cheapest first.
func AliasTopTours(ctx *gin.Context) {
	q := url.Values{}
	q.Set("limit", "5")
	q.Set("sort", "-ratingsAverage,price")
	q.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	ctx.Request.URL.RawQuery = q.Encode()
	ctx.Next()
}

func (c *TourController) Stats(ctx *gin.Context) {
	stats, err := c.svc.Stats(ctx.Request.Context())
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, gin.H{"stats": stats})
}

func (c *TourController) MonthlyPlan(ctx *gin.Context) {
	year, err := strconv.Atoi(ctx.Param("year"))
	if err != nil {
		middlewares.Fail(ctx, &types.CastError{Path: "year", Value: ctx.Param("year")})
		return
	}
	plan, err := c.svc.MonthlyPlan(ctx.Request.Context(), year)
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": types.StatusSuccess, "results": len(plan), "data": gin.H{"plan": plan}})
}

// Within handles /tours/within/:distance/center/:coords/unit/:unit.
func (c *TourController) Within(ctx *gin.Context) {
	distance, err := strconv.ParseFloat(ctx.Param("distance"), 64)
	if err != nil {
		middlewares.Fail(ctx, &types.CastError{Path: "distance", Value: ctx.Param("distance")})
		return
	}
	tours, err := c.svc.Within(ctx.Request.Context(), distance, ctx.Param("coords"), ctx.Param("unit"))
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": types.StatusSuccess, "results": len(tours), "data": gin.H{"tours": tours}})
}

// Distances handles /tours/distances/:coords/unit/:unit.
func (c *TourController) Distances(ctx *gin.Context) {
	distances, err := c.svc.Distances(ctx.Request.Context(), ctx.Param("coords"), ctx.Param("unit"))
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": types.StatusSuccess, "results": len(distances), "data": gin.H{"distances": distances}})
}

// UploadImages resizes the imageCover and images files of a multipart
// update and adds their names to the update document.
func (c *TourController) UploadImages(ctx *gin.Context) {
	id, err := utils.ParseID("id", ctx.Param("id"))
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	covers, err := formFiles(ctx, "imageCover")
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	images, err := formFiles(ctx, "images")
	if err != nil {
		middlewares.Fail(ctx, err)
		return
	}
	if len(covers) > 1 || len(images) > maxTourImages {
		middlewares.Fail(ctx, ErrTooManyImages)
		return
	}
	if len(covers) == 1 {
		data, err := readUpload(covers[0])
		if err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		name, err := c.images.TourCover(ctx.Request.Context(), id, data)
		if err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		setPatch(ctx, "imageCover", name)
	}
	if len(images) > 0 {
		files := make([][]byte, 0, len(images))
		for _, fh := range images {
			data, err := readUpload(fh)
			if err != nil {
				middlewares.Fail(ctx, err)
				return
			}
			files = append(files, data)
		}
		names, err := c.images.TourImages(ctx.Request.Context(), id, files)
		if err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		setPatch(ctx, "images", names)
	}
	ctx.Next()
}
