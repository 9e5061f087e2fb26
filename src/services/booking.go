package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"natours/src/models"
	"natours/src/types"
	"natours/src/utils"
)

const (
	AlertSuccessBooking = "success-booking"
	AlertCancelBooking  = "cancel-booking"

	paidTokenBytes = 32
	currencyUSD    = "usd"
)

var (
	ErrInvalidTour     = types.NewAppError("Invalid tour ID!", http.StatusNotFound)
	ErrInvalidTourDate = types.NewAppError("Invalid tour date!", http.StatusBadRequest)
	ErrTourDateFull    = types.NewAppError("All available spots are taken for this date!", http.StatusBadRequest)
	ErrAlreadyBooked   = types.NewAppError("You have already booked this tour!", http.StatusBadRequest)
	ErrInvalidBooking  = types.NewAppError("Invalid booking!", http.StatusBadRequest)
)

type TourRepository interface {
	FindByID(ctx context.Context, id uint, populate ...string) (*models.Tour, error)
	SaveStartDates(ctx context.Context, tour *models.Tour) error
}

type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id uint, populate ...string) (*models.Booking, error)
	FindByTourAndUser(ctx context.Context, tourID, userID uint) (*models.Booking, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Booking, error)
	FindStalePending(ctx context.Context, before time.Time) ([]models.Booking, error)
	FindPaidByUser(ctx context.Context, userID uint) ([]models.Booking, error)
	Save(ctx context.Context, booking *models.Booking) error
	Delete(ctx context.Context, booking *models.Booking) error
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, params *types.CheckoutSessionParams) (*types.CheckoutSession, error)
	ExpireCheckoutSession(ctx context.Context, id string) error
}

// BookingService reserves a seat on a tour start date, opens the payment
// session and settles the booking when the payment outcome comes back.
type BookingService struct {
	tours      TourRepository
	bookings   BookingRepository
	payments   PaymentGateway
	pendingTTL time.Duration
	now        func() time.Time
}

func NewBookingService(tours TourRepository, bookings BookingRepository, payments PaymentGateway, pendingTTL time.Duration) *BookingService {
	return &BookingService{tours: tours, bookings: bookings, payments: payments, pendingTTL: pendingTTL, now: time.Now}
}

// Checkout reserves one seat of the start date at startDateMs (unix ms) and
// returns the payment session. Capacity and duplicates are checked before
// anything is written or any payment call is made.
func (s *BookingService) Checkout(ctx context.Context, user *models.User, tourID uint, startDateMs int64, baseURL string) (*types.CheckoutSession, error) {
	tour, err := s.tours.FindByID(ctx, tourID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidTour
	}
	if err != nil {
		return nil, err
	}
	startDate := tour.StartDateAt(startDateMs)
	if startDate == nil {
		return nil, ErrInvalidTourDate
	}
	if startDate.Participants+1 > tour.MaxGroupSize {
		return nil, ErrTourDateFull
	}
	existing, err := s.bookings.FindByTourAndUser(ctx, tour.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyBooked
	}

	startDate.Participants++
	if err := s.tours.SaveStartDates(ctx, tour); err != nil {
		return nil, err
	}

	successToken, err := utils.GenerateRandomToken(paidTokenBytes)
	if err != nil {
		s.release(ctx, tour.ID, startDate.Date)
		return nil, err
	}
	cancelToken, err := utils.GenerateRandomToken(paidTokenBytes)
	if err != nil {
		s.release(ctx, tour.ID, startDate.Date)
		return nil, err
	}
	successHash, cancelHash := utils.HashToken(successToken), utils.HashToken(cancelToken)
	booking := &models.Booking{
		TourID:           tour.ID,
		UserID:           user.ID,
		Price:            tour.Price,
		Date:             startDate.Date,
		SuccessPaidToken: &successHash,
		CancelPaidToken:  &cancelHash,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		s.release(ctx, tour.ID, startDate.Date)
		return nil, err
	}

	session, err := s.payments.CreateCheckoutSession(ctx, &types.CheckoutSessionParams{
		BookingID:     booking.ID,
		SuccessURL:    confirmURL(baseURL, booking.ID, successToken),
		CancelURL:     confirmURL(baseURL, booking.ID, cancelToken),
		CustomerEmail: user.Email,
		ReferenceID:   strconv.FormatUint(uint64(tour.ID), 10),
		ProductName:   fmt.Sprintf("%s Tour", tour.Name),
		Description:   tour.Summary,
		Images:        []string{fmt.Sprintf("%s/img/tours/%s", baseURL, tour.ImageCover)},
		UnitAmount:    int64(math.Round(tour.Price * 100)),
		Currency:      currencyUSD,
	})
	if err != nil {
		s.release(ctx, tour.ID, startDate.Date)
		if derr := s.bookings.Delete(ctx, booking); derr != nil {
			log.Printf("[Booking] Could not remove booking %d: %s\n", booking.ID, derr.Error())
		}
		return nil, err
	}

	booking.StripeSessionID = &session.ID
	if err := s.bookings.Save(ctx, booking); err != nil {
		log.Printf("[Booking] Could not store session %s on booking %d: %s\n", session.ID, booking.ID, err.Error())
	}
	return session, nil
}

// Confirm redeems one of the two payment tokens of a booking. The success
// token marks it paid; the cancel token gives the seat back and removes the
// booking. It returns the alert to show on the bookings page.
func (s *BookingService) Confirm(ctx context.Context, bookingID uint, token string) (string, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrInvalidBooking
	}
	if err != nil {
		return "", err
	}
	switch {
	case utils.TokenMatches(token, booking.SuccessPaidToken):
		booking.Paid = true
		booking.ClearPaidTokens()
		if err := s.bookings.Save(ctx, booking); err != nil {
			return "", err
		}
		return AlertSuccessBooking, nil
	case utils.TokenMatches(token, booking.CancelPaidToken):
		if booking.StripeSessionID != nil {
			_ = s.payments.ExpireCheckoutSession(ctx, *booking.StripeSessionID)
		}
		if err := s.drop(ctx, booking); err != nil {
			return "", err
		}
		return AlertCancelBooking, nil
	}
	return "", ErrInvalidBooking
}

// CompleteSession settles the booking of a paid checkout session. Unknown
// sessions are ignored.
func (s *BookingService) CompleteSession(ctx context.Context, sessionID string) error {
	booking, err := s.bookings.FindBySessionID(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[Booking] No booking for session %s\n", sessionID)
		return nil
	}
	if err != nil {
		return err
	}
	if booking.Paid {
		return nil
	}
	booking.Paid = true
	booking.ClearPaidTokens()
	return s.bookings.Save(ctx, booking)
}

// ExpireSession drops the unpaid booking of an expired checkout session.
func (s *BookingService) ExpireSession(ctx context.Context, sessionID string) error {
	booking, err := s.bookings.FindBySessionID(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !booking.Pending() {
		return nil
	}
	return s.drop(ctx, booking)
}

// ExpireStale drops pending bookings older than the pending TTL and returns
// how many were dropped.
func (s *BookingService) ExpireStale(ctx context.Context) (int, error) {
	stale, err := s.bookings.FindStalePending(ctx, s.now().Add(-s.pendingTTL))
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range stale {
		booking := &stale[i]
		if booking.StripeSessionID != nil {
			// The session may already be closed; the booking goes either way.
			_ = s.payments.ExpireCheckoutSession(ctx, *booking.StripeSessionID)
		}
		if err := s.drop(ctx, booking); err != nil {
			log.Printf("[Booking] Could not expire booking %d: %s\n", booking.ID, err.Error())
			continue
		}
		n++
	}
	return n, nil
}

// BookedTours lists the tours of the paid bookings of a user.
func (s *BookingService) BookedTours(ctx context.Context, userID uint) ([]models.Tour, error) {
	bookings, err := s.bookings.FindPaidByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	tours := make([]models.Tour, 0, len(bookings))
	for _, b := range bookings {
		if b.Tour != nil {
			tours = append(tours, *b.Tour)
		}
	}
	return tours, nil
}

func (s *BookingService) drop(ctx context.Context, booking *models.Booking) error {
	s.release(ctx, booking.TourID, booking.Date)
	booking.ClearPaidTokens()
	return s.bookings.Delete(ctx, booking)
}

// release gives back the seat held on the start date of a tour. Failures are
// logged only.
func (s *BookingService) release(ctx context.Context, tourID uint, date time.Time) {
	tour, err := s.tours.FindByID(ctx, tourID)
	if err != nil {
		log.Printf("[Booking] Could not load tour %d to release a seat: %s\n", tourID, err.Error())
		return
	}
	startDate := tour.StartDateAt(date.UnixMilli())
	if startDate == nil || startDate.Participants == 0 {
		return
	}
	startDate.Participants--
	if err := s.tours.SaveStartDates(ctx, tour); err != nil {
		log.Printf("[Booking] Could not release a seat of tour %d: %s\n", tourID, err.Error())
	}
}

func confirmURL(baseURL string, bookingID uint, token string) string {
	return fmt.Sprintf("%s/api/v1/bookings/webhook-checkout/%d/%s", baseURL, bookingID, token)
}
