package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"natours/src/middlewares"
	"natours/src/models"
	"natours/src/query"
	"natours/src/types"
	"natours/src/views"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memCollection keeps documents by id. Find only honours equality filters,
// which is what nested routes produce.
type memCollection[T any] struct {
	mu    sync.Mutex
	next  uint
	docs  map[uint]T
	order []uint
	id    func(*T) *uint
}

func newMemCollection[T any](id func(*T) *uint, docs ...T) *memCollection[T] {
	m := &memCollection[T]{docs: map[uint]T{}, id: id}
	for _, d := range docs {
		m.put(d)
	}
	return m
}

func (m *memCollection[T]) put(doc T) uint {
	id := m.id(&doc)
	if *id == 0 {
		m.next++
		*id = m.next
	} else if *id > m.next {
		m.next = *id
	}
	if _, ok := m.docs[*id]; !ok {
		m.order = append(m.order, *id)
	}
	m.docs[*id] = doc
	return *id
}

func (m *memCollection[T]) Find(_ context.Context, spec query.Spec) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := []T{}
	for _, id := range m.order {
		doc, ok := m.docs[id]
		if ok && matches(doc, spec.Filters) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func matches(doc any, filters []query.Filter) bool {
	raw, _ := json.Marshal(doc)
	fields := map[string]any{}
	_ = json.Unmarshal(raw, &fields)
	for _, f := range filters {
		if f.Op == "=" && fmt.Sprint(fields[f.Field]) != f.Values[0] {
			return false
		}
	}
	return true
}

func (m *memCollection[T]) FindByID(_ context.Context, id uint, _ ...string) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &doc, nil
}

func (m *memCollection[T]) Create(_ context.Context, doc *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.id(doc) = m.put(*doc)
	return nil
}

func (m *memCollection[T]) FindByIDAndUpdate(_ context.Context, id uint, update func(doc *T) error) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if err := update(&doc); err != nil {
		return nil, err
	}
	m.docs[id] = doc
	return &doc, nil
}

func (m *memCollection[T]) FindByIDAndDelete(_ context.Context, id uint) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	delete(m.docs, id)
	return &doc, nil
}

func (m *memCollection[T]) Save(_ context.Context, doc *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(*doc)
	return nil
}

func (m *memCollection[T]) Delete(_ context.Context, doc *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, *m.id(doc))
	return nil
}

func (m *memCollection[T]) all() []T {
	docs, _ := m.Find(context.Background(), query.Spec{})
	return docs
}

func tourID(t *models.Tour) *uint       { return &t.ID }
func userID(u *models.User) *uint       { return &u.ID }
func reviewID(r *models.Review) *uint   { return &r.ID }
func bookingID(b *models.Booking) *uint { return &b.ID }

// memTours copies start dates in and out so participant counts only change
// through SaveStartDates.
type memTours struct {
	*memCollection[models.Tour]
	stats []models.TourStats
}

func newMemTours(tours ...models.Tour) *memTours {
	return &memTours{memCollection: newMemCollection(tourID, tours...)}
}

func (m *memTours) FindByID(ctx context.Context, id uint, populate ...string) (*models.Tour, error) {
	t, err := m.memCollection.FindByID(ctx, id, populate...)
	if err != nil {
		return nil, err
	}
	t.StartDates = append(t.StartDates[:0:0], t.StartDates...)
	return t, nil
}

func (m *memTours) FindAll(ctx context.Context) ([]models.Tour, error) {
	return m.Find(ctx, query.Spec{})
}

func (m *memTours) FindBySlug(_ context.Context, slug string) (*models.Tour, error) {
	for _, t := range m.all() {
		if t.Slug == slug {
			return &t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memTours) Stats(_ context.Context, _ float64) ([]models.TourStats, error) {
	return m.stats, nil
}

func (m *memTours) SaveStartDates(_ context.Context, tour *models.Tour) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.docs[tour.ID]
	stored.StartDates = append(tour.StartDates[:0:0], tour.StartDates...)
	m.docs[tour.ID] = stored
	return nil
}

func (m *memTours) SetRatings(_ context.Context, id uint, average float64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.docs[id]
	stored.RatingsAverage = average
	stored.RatingsQuantity = quantity
	m.docs[id] = stored
	return nil
}

type memUsers struct {
	*memCollection[models.User]
}

func newMemUsers(users ...models.User) *memUsers {
	return &memUsers{newMemCollection(userID, users...)}
}

func (m *memUsers) FindByID(ctx context.Context, id uint, populate ...string) (*models.User, error) {
	u, err := m.memCollection.FindByID(ctx, id, populate...)
	if err != nil || !u.Active {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.all() {
		if u.Email == email && u.Active {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) FindByResetToken(_ context.Context, hashed string, now time.Time) (*models.User, error) {
	for _, u := range m.all() {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == hashed && u.PasswordResetExpires.After(now) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) FindByIDs(_ context.Context, ids ...uint) ([]models.User, error) {
	users := []models.User{}
	for _, id := range ids {
		if u, err := m.FindByID(context.Background(), id); err == nil {
			users = append(users, *u)
		}
	}
	return users, nil
}

type memReviews struct {
	*memCollection[models.Review]
}

func newMemReviews(reviews ...models.Review) *memReviews {
	return &memReviews{newMemCollection(reviewID, reviews...)}
}

func (m *memReviews) Exists(_ context.Context, tourID, userID uint) (bool, error) {
	for _, r := range m.all() {
		if r.TourID == tourID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memReviews) RatingStats(_ context.Context, tourID uint) (float64, int, error) {
	sum, n := 0, 0
	for _, r := range m.all() {
		if r.TourID == tourID {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(n), n, nil
}

type memBookings struct {
	*memCollection[models.Booking]
}

func newMemBookings(bookings ...models.Booking) *memBookings {
	return &memBookings{newMemCollection(bookingID, bookings...)}
}

func (m *memBookings) FindByTourAndUser(_ context.Context, tourID, userID uint) (*models.Booking, error) {
	for _, b := range m.all() {
		if b.TourID == tourID && b.UserID == userID {
			return &b, nil
		}
	}
	return nil, nil
}

func (m *memBookings) FindBySessionID(_ context.Context, sessionID string) (*models.Booking, error) {
	for _, b := range m.all() {
		if b.StripeSessionID != nil && *b.StripeSessionID == sessionID {
			return &b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memBookings) FindStalePending(_ context.Context, before time.Time) ([]models.Booking, error) {
	stale := []models.Booking{}
	for _, b := range m.all() {
		if b.Pending() && b.CreatedAt.Before(before) {
			stale = append(stale, b)
		}
	}
	return stale, nil
}

func (m *memBookings) FindPaidByUser(_ context.Context, userID uint) ([]models.Booking, error) {
	paid := []models.Booking{}
	for _, b := range m.all() {
		if b.UserID == userID && b.Paid {
			paid = append(paid, b)
		}
	}
	return paid, nil
}

type fakeMailer struct {
	welcomeURL string
	resetURL   string
}

func (m *fakeMailer) SendWelcome(_ context.Context, _ *models.User, url string) error {
	m.welcomeURL = url
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, _ *models.User, url string) error {
	m.resetURL = url
	return nil
}

type memImageStore struct {
	mu   sync.Mutex
	keys []string
}

func (s *memImageStore) Put(_ context.Context, key string, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return nil
}

// fakeAuth resolves fixed session tokens.
type fakeAuth map[string]*models.User

func (f fakeAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, middlewares.ErrNotLoggedIn
}

var (
	leo   = &models.User{ID: 7, Name: "Leo Gillespie", Email: "leo@example.com", Role: types.RoleUser, Photo: "user-7.jpg", Active: true}
	aarav = &models.User{ID: 9, Name: "Aarav Lynn", Email: "aarav@example.com", Role: types.RoleUser, Photo: "user-9.jpg", Active: true}
	miyah = &models.User{ID: 5, Name: "Miyah Myles", Email: "miyah@example.com", Role: types.RoleLeadGuide, Photo: "user-5.jpg", Active: true}
	jonas = &models.User{ID: 1, Name: "Jonas Schmedtmann", Email: "admin@natours.io", Role: types.RoleAdmin, Photo: "user-1.jpg", Active: true}
	auth  = fakeAuth{"leo": leo, "aarav": aarav, "miyah": miyah, "jonas": jonas}
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	pages, err := views.Load()
	require.NoError(t, err)
	r := gin.New()
	r.SetHTMLTemplate(pages)
	r.Use(middlewares.ErrorHandler(true))
	r.NoRoute(middlewares.NoRoute)
	return r
}

func newPagesRouter(t *testing.T) *gin.Engine {
	t.Helper()
	r := newRouter(t)
	r.Use(middlewares.IsLoggedIn(auth), Alerts)
	return r
}

// send performs a request, with the session of token when it is not empty.
func send(r http.Handler, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middlewares.AuthCookie, Value: token})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sendJSON(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return send(r, method, path, token, raw)
}

type upload struct {
	field, name string
	data        []byte
}

func sendMultipart(t *testing.T, r http.Handler, method, path, token string, fields map[string]string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middlewares.AuthCookie, Value: token})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, h/2, color.RGBA{R: 85, G: 197, B: 122, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
