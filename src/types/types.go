package types

import (
	"time"
)

type Timestamps struct {
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt,omitempty"`
}

// Versioned carries the internal document revision. It is bumped on every
// update and never serialized.
type Versioned struct {
	Version int `gorm:"not null;default:0" json:"-"`
}

func (v *Versioned) IncrementVersion() {
	v.Version++
}

type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"
)

type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
	Test        Environment = "test"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

type SignupRequestBody struct {
	Name            string `json:"name" binding:"required,min=1,max=20"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8,max=20"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

type LoginRequestBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequestBody struct {
	Email string `json:"email"`
}

type ResetPasswordRequestBody struct {
	Password        string `json:"password" binding:"required,min=8,max=20"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

type ChangePasswordRequestBody struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	Password        string `json:"password" binding:"required,min=8,max=20"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

// UpdateAccountRequestBody lists the only account fields a user may change
// by themselves. The photo arrives as a multipart file.
type UpdateAccountRequestBody struct {
	Name  *string `json:"name" form:"name" binding:"omitempty,min=1,max=20"`
	Email *string `json:"email" form:"email" binding:"omitempty,email"`
}

type CheckoutSessionParams struct {
	BookingID     uint
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	ReferenceID   string
	ProductName   string
	Description   string
	Images        []string
	UnitAmount    int64
	Currency      string
}

type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url,omitempty"`
}
