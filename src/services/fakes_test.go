package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"natours/src/models"
	"natours/src/types"
)

type fakeUsers struct {
	mu    sync.Mutex
	next  uint
	byID  map[uint]*models.User
	saves int
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{byID: map[uint]*models.User{}}
	for _, u := range users {
		f.add(u)
	}
	return f
}

func (f *fakeUsers) add(u *models.User) {
	f.next++
	if u.ID == 0 {
		u.ID = f.next
	}
	f.byID[u.ID] = u
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return errors.New("duplicate email")
		}
	}
	f.add(u)
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uint, _ ...string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || !u.Active {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email && u.Active {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) FindByResetToken(_ context.Context, hashed string, now time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == hashed &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) FindByIDs(_ context.Context, ids ...uint) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := []models.User{}
	for _, id := range ids {
		if u, ok := f.byID[id]; ok && u.Active {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (f *fakeUsers) Save(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.byID[u.ID] = u
	return nil
}

type fakeMailer struct {
	err        error
	welcomeURL string
	resetURL   string
}

func (m *fakeMailer) SendWelcome(_ context.Context, _ *models.User, url string) error {
	m.welcomeURL = url
	return m.err
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, _ *models.User, url string) error {
	m.resetURL = url
	return m.err
}

// fakeTours hands out copies so that callers only change stored state
// through SaveStartDates.
type fakeTours struct {
	mu        sync.Mutex
	byID      map[uint]models.Tour
	order     []uint
	minRating float64
}

func newFakeTours(tours ...models.Tour) *fakeTours {
	f := &fakeTours{byID: map[uint]models.Tour{}}
	for _, t := range tours {
		f.byID[t.ID] = copyTour(t)
		f.order = append(f.order, t.ID)
	}
	return f
}

func copyTour(t models.Tour) models.Tour {
	t.StartDates = append(t.StartDates[:0:0], t.StartDates...)
	return t
}

func (f *fakeTours) FindByID(_ context.Context, id uint, _ ...string) (*models.Tour, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := copyTour(t)
	return &c, nil
}

func (f *fakeTours) SaveStartDates(_ context.Context, t *models.Tour) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.byID[t.ID]
	stored.StartDates = append(t.StartDates[:0:0], t.StartDates...)
	stored.Version++
	f.byID[t.ID] = stored
	return nil
}

func (f *fakeTours) FindAll(_ context.Context) ([]models.Tour, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tours := make([]models.Tour, 0, len(f.order))
	for _, id := range f.order {
		tours = append(tours, copyTour(f.byID[id]))
	}
	return tours, nil
}

func (f *fakeTours) Stats(_ context.Context, minRating float64) ([]models.TourStats, error) {
	f.minRating = minRating
	return []models.TourStats{{Difficulty: types.DifficultyEasy, Total: 1}}, nil
}

func (f *fakeTours) participants(id uint, i int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].StartDates[i].Participants
}

type fakeBookings struct {
	mu      sync.Mutex
	next    uint
	byID    map[uint]*models.Booking
	deleted []uint
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{byID: map[uint]*models.Booking{}}
}

func (f *fakeBookings) Create(_ context.Context, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	b.ID = f.next
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	c := *b
	f.byID[b.ID] = &c
	return nil
}

func (f *fakeBookings) FindByID(_ context.Context, id uint, _ ...string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *b
	return &c, nil
}

func (f *fakeBookings) FindByTourAndUser(_ context.Context, tourID, userID uint) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.byID {
		if b.TourID == tourID && b.UserID == userID {
			c := *b
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeBookings) FindBySessionID(_ context.Context, sessionID string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.byID {
		if b.StripeSessionID != nil && *b.StripeSessionID == sessionID {
			c := *b
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBookings) FindStalePending(_ context.Context, before time.Time) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stale := []models.Booking{}
	for _, b := range f.byID {
		if b.Pending() && b.CreatedAt.Before(before) {
			stale = append(stale, *b)
		}
	}
	return stale, nil
}

func (f *fakeBookings) FindPaidByUser(_ context.Context, userID uint) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	paid := []models.Booking{}
	for _, b := range f.byID {
		if b.UserID == userID && b.Paid {
			paid = append(paid, *b)
		}
	}
	return paid, nil
}

func (f *fakeBookings) Save(_ context.Context, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *b
	f.byID[b.ID] = &c
	return nil
}

func (f *fakeBookings) Delete(_ context.Context, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, b.ID)
	f.deleted = append(f.deleted, b.ID)
	return nil
}

func (f *fakeBookings) get(id uint) *models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

type fakePayments struct {
	createErr error
	created   []*types.CheckoutSessionParams
	expired   []string
}

func (p *fakePayments) CreateCheckoutSession(_ context.Context, params *types.CheckoutSessionParams) (*types.CheckoutSession, error) {
	p.created = append(p.created, params)
	if p.createErr != nil {
		return nil, p.createErr
	}
	return &types.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func (p *fakePayments) ExpireCheckoutSession(_ context.Context, id string) error {
	p.expired = append(p.expired, id)
	return nil
}
