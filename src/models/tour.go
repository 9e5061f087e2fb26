package models

import (
	"net/http"
	"time"

	"gorm.io/datatypes"

	"natours/src/types"
)

type Location struct {
	Type        string    `json:"type,omitempty"`
	Coordinates []float64 `json:"coordinates" binding:"omitempty,lnglat"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	Day         int       `json:"day,omitempty" binding:"gte=0"`
}

// StartDate is a scheduled departure. Participants counts the seats reserved
// by checkouts that have not been released.
type StartDate struct {
	Date         time.Time `json:"date" binding:"required"`
	Participants int       `json:"participants" binding:"gte=0"`
}

type Tour struct {
	ID              uint                           `gorm:"primarykey" json:"id"`
	Name            string                         `gorm:"uniqueIndex;size:40;not null" json:"name" binding:"required,min=10,max=40"`
	Slug            string                         `gorm:"index" json:"slug"`
	Duration        int                            `gorm:"not null" json:"duration" binding:"required,gt=0"`
	MaxGroupSize    int                            `gorm:"not null" json:"maxGroupSize" binding:"required,gt=0"`
	Difficulty      types.Difficulty               `gorm:"not null" json:"difficulty" binding:"required,oneof=easy medium difficult"`
	RatingsAverage  float64                        `gorm:"not null;default:0" json:"ratingsAverage" binding:"gte=0,lte=5"`
	RatingsQuantity int                            `gorm:"not null;default:0" json:"ratingsQuantity" binding:"gte=0"`
	Price           float64                        `gorm:"not null" json:"price" binding:"required,gt=0"`
	PriceDiscount   float64                        `json:"priceDiscount,omitempty" binding:"omitempty,gt=0,ltfield=Price"`
	Summary         string                         `gorm:"not null" json:"summary" binding:"required"`
	Description     string                         `json:"description"`
	ImageCover      string                         `gorm:"not null" json:"imageCover" binding:"required"`
	Images          datatypes.JSONSlice[string]    `json:"images"`
	StartLocation   datatypes.JSONType[Location]   `json:"startLocation"`
	Locations       datatypes.JSONSlice[Location]  `json:"locations" binding:"dive"`
	GuideIDs        datatypes.JSONSlice[uint]      `json:"guides"`
	StartDates      datatypes.JSONSlice[StartDate] `json:"startDates" binding:"dive"`

	Reviews []Review `gorm:"foreignKey:TourID;constraint:OnDelete:CASCADE" json:"reviews,omitempty" binding:"-"`
	Guides  []User   `gorm:"-" json:"guideDetails,omitempty" binding:"-"`

	types.Versioned
	types.Timestamps
}

// Validate checks the rules struct tags cannot express.
func (t *Tour) Validate() error {
	loc := t.StartLocation.Data()
	if len(loc.Coordinates) > 0 && !validLngLat(loc.Coordinates) {
		return types.NewAppError("Invalid input data: startLocation coordinates must be [lng, lat]", http.StatusBadRequest)
	}
	return nil
}

// StartDateAt returns the departure scheduled at the given unix millisecond
// timestamp, or nil.
func (t *Tour) StartDateAt(ms int64) *StartDate {
	for i := range t.StartDates {
		if t.StartDates[i].Date.UnixMilli() == ms {
			return &t.StartDates[i]
		}
	}
	return nil
}

// Coordinates returns the start location as lng, lat.
func (t *Tour) Coordinates() (lng, lat float64, ok bool) {
	loc := t.StartLocation.Data()
	if !validLngLat(loc.Coordinates) {
		return 0, 0, false
	}
	return loc.Coordinates[0], loc.Coordinates[1], true
}

type TourStats struct {
	Difficulty types.Difficulty `json:"difficulty"`
	Total      int              `json:"total"`
	NRatings   int              `gorm:"column:n_ratings" json:"nRatings"`
	AvgRating  float64          `json:"avgRating"`
	AvgPrice   float64          `json:"avgPrice"`
	MinPrice   float64          `json:"minPrice"`
	MaxPrice   float64          `json:"maxPrice"`
}

type PlannedTour struct {
	Name       string           `json:"name"`
	Rating     float64          `json:"rating"`
	Difficulty types.Difficulty `json:"difficulty"`
	Price      float64          `json:"price"`
}

type MonthlyPlan struct {
	Month  string        `json:"month"`
	NMonth int           `json:"nMonth"`
	Total  int           `json:"total"`
	Tours  []PlannedTour `json:"tours"`
}

type TourDistance struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}
