package models

import (
	"time"

	"natours/src/types"
)

const DefaultPhoto = "default.jpg"

type User struct {
	ID                   uint       `gorm:"primarykey" json:"id"`
	Name                 string     `gorm:"size:20;not null" json:"name" binding:"required,min=1,max=20"`
	Email                string     `gorm:"uniqueIndex;not null" json:"email" binding:"required,email"`
	Photo                string     `gorm:"not null;default:default.jpg" json:"photo"`
	Role                 types.Role `gorm:"not null;default:user" json:"role" binding:"omitempty,oneof=user guide lead-guide admin"`
	Password             string     `gorm:"not null" json:"-"`
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetToken   *string    `gorm:"index" json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `gorm:"not null;default:true;index" json:"-"`

	types.Versioned
	types.Timestamps
}

// TokenIssuedAfterPasswordChange reports whether a token issued at iat (unix
// seconds) is still acceptable.
func (u *User) TokenIssuedAfterPasswordChange(iat int64) bool {
	if u.PasswordChangedAt == nil {
		return true
	}
	return u.PasswordChangedAt.Unix() < iat
}

func (u *User) HasRole(roles ...types.Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func (u *User) FirstName() string {
	for i, r := range u.Name {
		if r == ' ' {
			return u.Name[:i]
		}
	}
	return u.Name
}

// ClearPasswordReset drops the pending reset token.
func (u *User) ClearPasswordReset() {
	u.PasswordResetToken = nil
	u.PasswordResetExpires = nil
}
