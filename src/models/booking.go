package models

import (
	"time"

	"natours/src/types"
)

type Booking struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	TourID           uint      `gorm:"not null;uniqueIndex:idx_bookings_tour_user" json:"tour" binding:"required"`
	UserID           uint      `gorm:"not null;uniqueIndex:idx_bookings_tour_user" json:"user" binding:"required"`
	Price            float64   `gorm:"not null" json:"price" binding:"required,gt=0"`
	Date             time.Time `gorm:"not null" json:"date" binding:"required"`
	Paid             bool      `gorm:"not null;default:false;index" json:"paid"`
	SuccessPaidToken *string   `json:"-"`
	CancelPaidToken  *string   `json:"-"`
	StripeSessionID  *string   `gorm:"index" json:"-"`

	Tour *Tour `gorm:"foreignKey:TourID;constraint:OnDelete:CASCADE" json:"tourDetails,omitempty" binding:"-"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"userDetails,omitempty" binding:"-"`

	types.Versioned
	types.Timestamps
}

// Pending reports whether the booking still waits for its payment callback.
func (b *Booking) Pending() bool {
	return !b.Paid && b.SuccessPaidToken != nil
}

func (b *Booking) ClearPaidTokens() {
	b.SuccessPaidToken = nil
	b.CancelPaidToken = nil
}
