package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"natours/src/models"
	"natours/src/models/scopes"
)

type TourStore struct {
	*GormCollection[models.Tour]
}

func NewTourStore(db *gorm.DB) *TourStore {
	return &TourStore{NewCollection[models.Tour](db)}
}

func (s *TourStore) FindBySlug(ctx context.Context, slug string) (*models.Tour, error) {
	var tour models.Tour
	err := s.DB(ctx).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Reviews.User").
		Where("slug = ?", slug).
		First(&tour).Error
	if err != nil {
		return nil, err
	}
	return &tour, nil
}

func (s *TourStore) FindAll(ctx context.Context) ([]models.Tour, error) {
	tours := []models.Tour{}
	if err := s.DB(ctx).Order("id").Find(&tours).Error; err != nil {
		return nil, err
	}
	return tours, nil
}

func (s *TourStore) FindByIDs(ctx context.Context, ids ...uint) ([]models.Tour, error) {
	tours := []models.Tour{}
	if len(ids) == 0 {
		return tours, nil
	}
	if err := s.DB(ctx).Scopes(scopes.WithIDs(ids...)).Order("id").Find(&tours).Error; err != nil {
		return nil, err
	}
	return tours, nil
}

// Stats groups the tours rated at least minRating by difficulty, busiest
// group first.
func (s *TourStore) Stats(ctx context.Context, minRating float64) ([]models.TourStats, error) {
	stats := []models.TourStats{}
	err := s.DB(ctx).
		Select(`difficulty,
			COUNT(*) AS total,
			COALESCE(SUM(ratings_quantity), 0) AS n_ratings,
			AVG(ratings_average) AS avg_rating,
			AVG(price) AS avg_price,
			MIN(price) AS min_price,
			MAX(price) AS max_price`).
		Where("ratings_average >= ?", minRating).
		Group("difficulty").
		Order("total DESC").
		Scan(&stats).Error
	return stats, err
}

// SaveStartDates writes back the start dates of tour, participant counts
// included.
func (s *TourStore) SaveStartDates(ctx context.Context, tour *models.Tour) error {
	tour.IncrementVersion()
	return s.db.WithContext(ctx).
		Model(&models.Tour{}).
		Scopes(scopes.WithID(tour.ID)).
		Updates(map[string]any{"start_dates": tour.StartDates, "version": tour.Version}).Error
}

func (s *TourStore) SetRatings(ctx context.Context, id uint, average float64, quantity int) error {
	return s.db.WithContext(ctx).
		Model(&models.Tour{}).
		Scopes(scopes.WithID(id)).
		Updates(map[string]any{"ratings_average": average, "ratings_quantity": quantity}).Error
}

// UserStore only ever sees active accounts.
type UserStore struct {
	*GormCollection[models.User]
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{NewCollection[models.User](db, scopes.Active)}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.DB(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByResetToken returns the user holding the hashed reset token, provided
// it has not expired at now.
func (s *UserStore) FindByResetToken(ctx context.Context, hashed string, now time.Time) (*models.User, error) {
	var user models.User
	err := s.DB(ctx).
		Where("password_reset_token = ? AND password_reset_expires > ?", hashed, now).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) FindByIDs(ctx context.Context, ids ...uint) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	if err := s.DB(ctx).Scopes(scopes.WithIDs(ids...)).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

type ReviewStore struct {
	*GormCollection[models.Review]
}

func NewReviewStore(db *gorm.DB) *ReviewStore {
	return &ReviewStore{NewCollection[models.Review](db)}
}

func (s *ReviewStore) Exists(ctx context.Context, tourID, userID uint) (bool, error) {
	var n int64
	err := s.DB(ctx).Scopes(scopes.WithTourAndUser(tourID, userID)).Count(&n).Error
	return n > 0, err
}

// RatingStats returns the mean rating and the number of reviews of a tour.
// A tour without reviews yields 0, 0.
func (s *ReviewStore) RatingStats(ctx context.Context, tourID uint) (float64, int, error) {
	var row struct {
		Average  float64
		Quantity int
	}
	err := s.DB(ctx).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS quantity").
		Where("tour_id = ?", tourID).
		Scan(&row).Error
	return row.Average, row.Quantity, err
}

type BookingStore struct {
	*GormCollection[models.Booking]
}

func NewBookingStore(db *gorm.DB) *BookingStore {
	return &BookingStore{NewCollection[models.Booking](db)}
}

// FindByTourAndUser returns nil, nil when the user has not booked the tour.
func (s *BookingStore) FindByTourAndUser(ctx context.Context, tourID, userID uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.DB(ctx).Scopes(scopes.WithTourAndUser(tourID, userID)).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *BookingStore) FindBySessionID(ctx context.Context, sessionID string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.DB(ctx).Where("stripe_session_id = ?", sessionID).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindStalePending lists unpaid bookings created before the cutoff that
// still hold their payment tokens.
func (s *BookingStore) FindStalePending(ctx context.Context, before time.Time) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := s.DB(ctx).
		Scopes(scopes.WithPendingPayment, scopes.CreatedBefore(before)).
		Order("id").
		Find(&bookings).Error
	return bookings, err
}

func (s *BookingStore) FindPaidByUser(ctx context.Context, userID uint) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := s.DB(ctx).
		Preload("Tour").
		Where("user_id = ? AND paid = ?", userID, true).
		Order("date").
		Find(&bookings).Error
	return bookings, err
}

func (s *BookingStore) Delete(ctx context.Context, booking *models.Booking) error {
	return s.db.WithContext(ctx).Delete(booking).Error
}
