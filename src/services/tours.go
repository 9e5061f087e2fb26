package services

import (
	"context"
	"math"
	"net/http"
	"sort"
	"time"

	"natours/src/models"
	"natours/src/types"
	"natours/src/utils"
)

// Stats only covers tours rated at least this high.
const statsMinRating = 4.5

// Mean earth radius used for spherical distances, in meters.
const earthRadiusMeters = 6378100.0

var earthRadius = map[string]float64{"mi": 3963.2, "km": 6378.1}

var metersPerUnit = map[string]float64{"mi": 1609.344, "km": 1000}

var (
	ErrBadCoordinates = types.NewAppError("Provide the coordinates of the current location in the format: lng,lat", http.StatusBadRequest)
	ErrBadUnit        = types.NewAppError("Provide the distance unit in the format: mi or km", http.StatusBadRequest)
	ErrBadDistance    = types.NewAppError("Provide the distance as a positive number", http.StatusBadRequest)
	ErrBadYear        = types.NewAppError("Provide the year as a number", http.StatusBadRequest)
)

type TourReader interface {
	FindAll(ctx context.Context) ([]models.Tour, error)
	Stats(ctx context.Context, minRating float64) ([]models.TourStats, error)
}

type GuideReader interface {
	FindByIDs(ctx context.Context, ids ...uint) ([]models.User, error)
}

// TourService answers the aggregate and geospatial tour queries.
type TourService struct {
	tours  TourReader
	guides GuideReader
}

func NewTourService(tours TourReader, guides GuideReader) *TourService {
	return &TourService{tours: tours, guides: guides}
}

func (s *TourService) Stats(ctx context.Context) ([]models.TourStats, error) {
	return s.tours.Stats(ctx, statsMinRating)
}

// MonthlyPlan counts the start dates falling in each month of year, busiest
// month first.
func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error) {
	if year <= 0 {
		return nil, ErrBadYear
	}
	tours, err := s.tours.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	months := map[time.Month]*models.MonthlyPlan{}
	for _, tour := range tours {
		for _, sd := range tour.StartDates {
			d := sd.Date.UTC()
			if d.Year() != year {
				continue
			}
			plan, ok := months[d.Month()]
			if !ok {
				plan = &models.MonthlyPlan{Month: d.Month().String(), NMonth: int(d.Month()), Tours: []models.PlannedTour{}}
				months[d.Month()] = plan
			}
			plan.Total++
			plan.Tours = append(plan.Tours, models.PlannedTour{
				Name:       tour.Name,
				Rating:     tour.RatingsAverage,
				Difficulty: tour.Difficulty,
				Price:      tour.Price,
			})
		}
	}
	plans := make([]models.MonthlyPlan, 0, len(months))
	for _, p := range months {
		plans = append(plans, *p)
	}
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].Total != plans[j].Total {
			return plans[i].Total > plans[j].Total
		}
		return plans[i].NMonth < plans[j].NMonth
	})
	return plans, nil
}

// Within lists the tours starting at most distance units away from coords.
func (s *TourService) Within(ctx context.Context, distance float64, coords, unit string) ([]models.Tour, error) {
	lng, lat, err := parseCenter(coords)
	if err != nil {
		return nil, err
	}
	r, ok := earthRadius[unit]
	if !ok {
		return nil, ErrBadUnit
	}
	if distance <= 0 || math.IsNaN(distance) {
		return nil, ErrBadDistance
	}
	radius := distance / r
	tours, err := s.tours.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	within := []models.Tour{}
	for _, tour := range tours {
		tlng, tlat, ok := tour.Coordinates()
		if ok && angularDistance(lng, lat, tlng, tlat) <= radius {
			within = append(within, tour)
		}
	}
	return within, nil
}

// Distances reports how far the start of every tour is from coords, nearest
// first.
func (s *TourService) Distances(ctx context.Context, coords, unit string) ([]models.TourDistance, error) {
	lng, lat, err := parseCenter(coords)
	if err != nil {
		return nil, err
	}
	perUnit, ok := metersPerUnit[unit]
	if !ok {
		return nil, ErrBadUnit
	}
	tours, err := s.tours.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	distances := []models.TourDistance{}
	for _, tour := range tours {
		tlng, tlat, ok := tour.Coordinates()
		if !ok {
			continue
		}
		meters := angularDistance(lng, lat, tlng, tlat) * earthRadiusMeters
		distances = append(distances, models.TourDistance{ID: tour.ID, Name: tour.Name, Distance: meters / perUnit})
	}
	sort.SliceStable(distances, func(i, j int) bool { return distances[i].Distance < distances[j].Distance })
	return distances, nil
}

// ExpandGuides fills in the guide users referenced by a tour.
func (s *TourService) ExpandGuides(ctx context.Context, tour *models.Tour) error {
	guides, err := s.guides.FindByIDs(ctx, tour.GuideIDs...)
	if err != nil {
		return err
	}
	byID := make(map[uint]models.User, len(guides))
	for _, g := range guides {
		byID[g.ID] = g
	}
	tour.Guides = make([]models.User, 0, len(tour.GuideIDs))
	for _, id := range tour.GuideIDs {
		if g, ok := byID[id]; ok {
			tour.Guides = append(tour.Guides, g)
		}
	}
	return nil
}

func parseCenter(coords string) (float64, float64, error) {
	lng, lat, err := utils.ParseLngLat(coords)
	if err != nil || lng == 0 || lat == 0 {
		return 0, 0, ErrBadCoordinates
	}
	return lng, lat, nil
}

// angularDistance is the great circle distance between two points in
// radians.
func angularDistance(lng1, lat1, lng2, lat2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
