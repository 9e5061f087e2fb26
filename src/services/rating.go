package services

import (
	"context"
	"log"
	"math"
)

type ReviewAggregator interface {
	RatingStats(ctx context.Context, tourID uint) (float64, int, error)
}

type TourRatingWriter interface {
	SetRatings(ctx context.Context, id uint, average float64, quantity int) error
}

// RatingService keeps the rating aggregate of tours in sync with their
// reviews.
type RatingService struct {
	reviews ReviewAggregator
	tours   TourRatingWriter
}

func NewRatingService(reviews ReviewAggregator, tours TourRatingWriter) *RatingService {
	return &RatingService{reviews: reviews, tours: tours}
}

// Recompute sets the average (one decimal) and count of reviews on each
// distinct tour. A tour without reviews gets 0 and 0.
func (s *RatingService) Recompute(ctx context.Context, tourIDs ...uint) error {
	seen := map[uint]bool{}
	for _, id := range tourIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		avg, n, err := s.reviews.RatingStats(ctx, id)
		if err != nil {
			return err
		}
		if err := s.tours.SetRatings(ctx, id, roundRating(avg), n); err != nil {
			return err
		}
		log.Printf("[Ratings] tour=%d average=%.1f quantity=%d\n", id, roundRating(avg), n)
	}
	return nil
}

func roundRating(v float64) float64 {
	return math.Round(v*10) / 10
}
