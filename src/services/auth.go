package services

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"natours/src/models"
	"natours/src/types"
	"natours/src/utils"
)

const resetTokenBytes = 32

var (
	ErrMissingCredentials = types.NewAppError("The body must contain email and password fields!", http.StatusBadRequest)
	ErrBadCredentials     = types.NewAppError("Invalid email or password. Check them out and try again!", http.StatusUnauthorized)
	ErrUserGone           = types.NewAppError("The user belonging to this token does no longer exist!", http.StatusUnauthorized)
	ErrPasswordChanged    = types.NewAppError("The password has been changed. The token is no longer valid!", http.StatusUnauthorized)
	ErrWrongPassword      = types.NewAppError("Your current password is wrong!", http.StatusUnauthorized)
	ErrNoSuchEmail        = types.NewAppError("There is no user with that email address!", http.StatusNotFound)
	ErrResetTokenInvalid  = types.NewAppError("The token is invalid or has expired!", http.StatusBadRequest)
	ErrResetMailFailed    = types.NewAppError("Failed to send email. Try to reset your password later!", http.StatusInternalServerError)
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint, populate ...string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByResetToken(ctx context.Context, hashed string, now time.Time) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

type Mailer interface {
	SendWelcome(ctx context.Context, user *models.User, url string) error
	SendPasswordReset(ctx context.Context, user *models.User, url string) error
}

type AuthConfig struct {
	Secret         string
	ExpiresIn      time.Duration
	ResetExpiresIn time.Duration
	BcryptCost     int
	// Now defaults to time.Now.
	Now func() time.Time
}

// AuthService owns session tokens and every password related flow.
type AuthService struct {
	users  UserRepository
	mailer Mailer
	cfg    AuthConfig
}

func NewAuthService(users UserRepository, mailer Mailer, cfg AuthConfig) *AuthService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, mailer: mailer, cfg: cfg}
}

func (s *AuthService) SignToken(userID uint) (string, error) {
	now := s.cfg.Now()
	claims := types.NewClaims(userID, *jwt.NewNumericDate(now), *jwt.NewNumericDate(now.Add(s.cfg.ExpiresIn)))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
}

// ParseToken verifies signature and expiry. The jwt errors are returned
// untouched so that expired and invalid tokens can be told apart.
func (s *AuthService) ParseToken(token string) (*types.Claims, error) {
	claims := &types.Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.cfg.Now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Authenticate resolves a session token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.ParseToken(token)
	if err != nil {
		return nil, err
	}
	uid, err := claims.UserID()
	if err != nil {
		return nil, jwt.ErrTokenInvalidSubject
	}
	user, err := s.users.FindByID(ctx, uid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserGone
	}
	if err != nil {
		return nil, err
	}
	if !user.TokenIssuedAfterPasswordChange(claims.IssuedAtUnix()) {
		return nil, ErrPasswordChanged
	}
	return user, nil
}

// Signup stores a new user with the default role. A failed welcome email is
// logged and does not fail the signup.
func (s *AuthService) Signup(ctx context.Context, body *types.SignupRequestBody, accountURL string) (*models.User, error) {
	hash, err := s.hashPassword(body.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:     strings.TrimSpace(body.Name),
		Email:    normalizeEmail(body.Email),
		Role:     types.RoleUser,
		Photo:    models.DefaultPhoto,
		Password: hash,
		Active:   true,
	}
	if err := models.Validate(user); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.mailer.SendWelcome(ctx, user, accountURL); err != nil {
		log.Printf("[Auth] Welcome email to %s failed: %s\n", user.Email, err.Error())
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, body *types.LoginRequestBody) (*models.User, error) {
	if body.Email == "" || body.Password == "" {
		return nil, ErrMissingCredentials
	}
	user, err := s.users.FindByEmail(ctx, normalizeEmail(body.Email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !checkPassword(user.Password, body.Password) {
		return nil, ErrBadCredentials
	}
	return user, nil
}

// ForgotPassword stores the hash of a fresh reset token and mails the
// plaintext one, embedded by resetURL.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, resetURL func(token string) string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoSuchEmail
	}
	if err != nil {
		return err
	}
	token, err := utils.GenerateRandomToken(resetTokenBytes)
	if err != nil {
		return err
	}
	hashed := utils.HashToken(token)
	expires := s.cfg.Now().Add(s.cfg.ResetExpiresIn)
	user.PasswordResetToken = &hashed
	user.PasswordResetExpires = &expires
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, user, resetURL(token)); err != nil {
		log.Printf("[Auth] Reset email to %s failed: %s\n", user.Email, err.Error())
		user.ClearPasswordReset()
		if err := s.users.Save(ctx, user); err != nil {
			log.Printf("[Auth] Could not clear reset token of user %d: %s\n", user.ID, err.Error())
		}
		return ErrResetMailFailed
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, body *types.ResetPasswordRequestBody) (*models.User, error) {
	user, err := s.users.FindByResetToken(ctx, utils.HashToken(token), s.cfg.Now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResetTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if err := s.setPassword(user, body.Password); err != nil {
		return nil, err
	}
	user.ClearPasswordReset()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, body *types.ChangePasswordRequestBody) (*models.User, error) {
	if !checkPassword(user.Password, body.CurrentPassword) {
		return nil, ErrWrongPassword
	}
	if err := s.setPassword(user, body.Password); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateAccount applies the self-service fields. photo is empty when no new
// photo was uploaded.
func (s *AuthService) UpdateAccount(ctx context.Context, user *models.User, body *types.UpdateAccountRequestBody, photo string) (*models.User, error) {
	if body.Name != nil {
		user.Name = strings.TrimSpace(*body.Name)
	}
	if body.Email != nil {
		user.Email = normalizeEmail(*body.Email)
	}
	if photo != "" {
		user.Photo = photo
	}
	if err := models.Validate(user); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAccount deactivates the user. The row is kept.
func (s *AuthService) DeleteAccount(ctx context.Context, user *models.User) error {
	user.Active = false
	return s.users.Save(ctx, user)
}

// setPassword also stamps passwordChangedAt one second in the past so the
// token issued right after is still accepted.
func (s *AuthService) setPassword(user *models.User, password string) error {
	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	changed := s.cfg.Now().Add(-time.Second)
	user.Password = hash
	user.PasswordChangedAt = &changed
	return nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
