package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"natours/src/models"
	"natours/src/types"
	"natours/src/utils"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newAuth(t *testing.T, users *fakeUsers, mailer *fakeMailer) (*AuthService, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewAuthService(users, mailer, AuthConfig{
		Secret:         "a-very-long-and-secret-signing-key",
		ExpiresIn:      90 * 24 * time.Hour,
		ResetExpiresIn: 10 * time.Minute,
		BcryptCost:     bcrypt.MinCost,
		Now:            clock.Now,
	})
	return svc, clock
}

func storedUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{Name: "Leo Gillespie", Email: email, Role: types.RoleUser, Password: string(hash), Active: true}
}

func TestSignAndParseToken(t *testing.T) {
	svc, _ := newAuth(t, newFakeUsers(), &fakeMailer{})

	token, err := svc.SignToken(42)
	require.NoError(t, err)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, time.Date(2026, 5, 30, 9, 0, 0, 0, time.UTC), claims.ExpiresAt.Time.UTC())
}

func TestParseTokenExpired(t *testing.T) {
	svc, clock := newAuth(t, newFakeUsers(), &fakeMailer{})
	token, err := svc.SignToken(1)
	require.NoError(t, err)

	clock.Advance(91 * 24 * time.Hour)
	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseTokenTampered(t *testing.T) {
	svc, _ := newAuth(t, newFakeUsers(), &fakeMailer{})
	other := NewAuthService(newFakeUsers(), &fakeMailer{}, AuthConfig{Secret: "another-secret", ExpiresIn: time.Hour})
	token, err := other.SignToken(1)
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	_, err = svc.ParseToken("not.a.token")
	assert.ErrorIs(t, err, jwt.ErrTokenMalformed)
}

func TestAuthenticate(t *testing.T) {
	user := storedUser(t, "leo@example.com", "pass1234")
	users := newFakeUsers(user)
	svc, clock := newAuth(t, users, &fakeMailer{})
	ctx := context.Background()

	token, err := svc.SignToken(user.ID)
	require.NoError(t, err)
	got, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	clock.Advance(time.Hour)
	_, err = svc.ChangePassword(ctx, user, &types.ChangePasswordRequestBody{
		CurrentPassword: "pass1234", Password: "newpass123", PasswordConfirm: "newpass123",
	})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrPasswordChanged)

	fresh, err := svc.SignToken(user.ID)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, fresh)
	assert.NoError(t, err)

	user.Active = false
	_, err = svc.Authenticate(ctx, fresh)
	assert.ErrorIs(t, err, ErrUserGone)
}

func TestLogin(t *testing.T) {
	users := newFakeUsers(storedUser(t, "leo@example.com", "pass1234"))
	svc, _ := newAuth(t, users, &fakeMailer{})
	ctx := context.Background()

	tests := []struct {
		name  string
		body  types.LoginRequestBody
		error error
	}{
		{"missing password", types.LoginRequestBody{Email: "leo@example.com"}, ErrMissingCredentials},
		{"missing email", types.LoginRequestBody{Password: "pass1234"}, ErrMissingCredentials},
		{"unknown email", types.LoginRequestBody{Email: "nobody@example.com", Password: "pass1234"}, ErrBadCredentials},
		{"wrong password", types.LoginRequestBody{Email: "leo@example.com", Password: "wrong-pass"}, ErrBadCredentials},
		{"ok", types.LoginRequestBody{Email: " Leo@Example.com ", Password: "pass1234"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Login(ctx, &tt.body)
			if tt.error != nil {
				assert.ErrorIs(t, err, tt.error)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "leo@example.com", user.Email)
		})
	}
}

func TestSignup(t *testing.T) {
	users := newFakeUsers()
	mailer := &fakeMailer{err: errors.New("smtp down")}
	svc, _ := newAuth(t, users, mailer)

	user, err := svc.Signup(context.Background(), &types.SignupRequestBody{
		Name: "Leo Gillespie", Email: "LEO@example.com", Password: "pass1234", PasswordConfirm: "pass1234",
	}, "http://localhost:3000/me")
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "leo@example.com", user.Email)
	assert.Equal(t, types.RoleUser, user.Role)
	assert.Equal(t, models.DefaultPhoto, user.Photo)
	assert.NotEqual(t, "pass1234", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("pass1234")))
	assert.Equal(t, "http://localhost:3000/me", mailer.welcomeURL)
}

func TestForgotAndResetPassword(t *testing.T) {
	user := storedUser(t, "leo@example.com", "pass1234")
	users := newFakeUsers(user)
	mailer := &fakeMailer{}
	svc, clock := newAuth(t, users, mailer)
	ctx := context.Background()
	resetURL := func(token string) string { return "http://localhost:3000/api/v1/users/resetPassword/" + token }

	assert.ErrorIs(t, svc.ForgotPassword(ctx, "nobody@example.com", resetURL), ErrNoSuchEmail)

	require.NoError(t, svc.ForgotPassword(ctx, "leo@example.com", resetURL))
	u, err := url.Parse(mailer.resetURL)
	require.NoError(t, err)
	token := u.Path[strings.LastIndex(u.Path, "/")+1:]
	require.NotEmpty(t, token)
	require.NotNil(t, user.PasswordResetToken)
	assert.Equal(t, utils.HashToken(token), *user.PasswordResetToken)
	assert.Equal(t, clock.Now().Add(10*time.Minute), *user.PasswordResetExpires)

	body := &types.ResetPasswordRequestBody{Password: "newpass123", PasswordConfirm: "newpass123"}
	_, err = svc.ResetPassword(ctx, "wrong-token", body)
	assert.ErrorIs(t, err, ErrResetTokenInvalid)

	clock.Advance(time.Minute)
	got, err := svc.ResetPassword(ctx, token, body)
	require.NoError(t, err)
	assert.Nil(t, got.PasswordResetToken)
	assert.Nil(t, got.PasswordResetExpires)
	assert.Equal(t, clock.Now().Add(-time.Second), *got.PasswordChangedAt)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.Password), []byte("newpass123")))

	// single use
	_, err = svc.ResetPassword(ctx, token, body)
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestResetPasswordExpired(t *testing.T) {
	user := storedUser(t, "leo@example.com", "pass1234")
	mailer := &fakeMailer{}
	svc, clock := newAuth(t, newFakeUsers(user), mailer)
	ctx := context.Background()

	var token string
	require.NoError(t, svc.ForgotPassword(ctx, "leo@example.com", func(tok string) string {
		token = tok
		return tok
	}))

	clock.Advance(11 * time.Minute)
	_, err := svc.ResetPassword(ctx, token, &types.ResetPasswordRequestBody{Password: "newpass123", PasswordConfirm: "newpass123"})
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestForgotPasswordMailFailure(t *testing.T) {
	user := storedUser(t, "leo@example.com", "pass1234")
	svc, _ := newAuth(t, newFakeUsers(user), &fakeMailer{err: errors.New("smtp down")})

	err := svc.ForgotPassword(context.Background(), "leo@example.com", func(tok string) string { return tok })
	assert.ErrorIs(t, err, ErrResetMailFailed)
	assert.Nil(t, user.PasswordResetToken)
	assert.Nil(t, user.PasswordResetExpires)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	user := storedUser(t, "leo@example.com", "pass1234")
	svc, _ := newAuth(t, newFakeUsers(user), &fakeMailer{})

	_, err := svc.ChangePassword(context.Background(), user, &types.ChangePasswordRequestBody{
		CurrentPassword: "not-it", Password: "newpass123", PasswordConfirm: "newpass123",
	})
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.Nil(t, user.PasswordChangedAt)
}

func TestUpdateAndDeleteAccount(t *testing.T) {
	user := storedUser(t, "leo@example.com", "pass1234")
	users := newFakeUsers(user)
	svc, _ := newAuth(t, users, &fakeMailer{})
	ctx := context.Background()

	name, email := "Leo J. Gillespie", "LEO.J@example.com"
	got, err := svc.UpdateAccount(ctx, user, &types.UpdateAccountRequestBody{Name: &name, Email: &email}, "user-1-1700000000000.jpeg")
	require.NoError(t, err)
	assert.Equal(t, "Leo J. Gillespie", got.Name)
	assert.Equal(t, "leo.j@example.com", got.Email)
	assert.Equal(t, "user-1-1700000000000.jpeg", got.Photo)

	bad := "not-an-email"
	_, err = svc.UpdateAccount(ctx, user, &types.UpdateAccountRequestBody{Email: &bad}, "")
	assert.Error(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, user))
	assert.False(t, user.Active)
	_, err = users.FindByID(ctx, user.ID)
	assert.Error(t, err)
}
