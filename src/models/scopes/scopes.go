package scopes

import (
	"time"

	"gorm.io/gorm"
)

func WithID(id uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

func WithIDs(ids ...uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id IN (?)", ids)
	}
}

// Active hides deactivated accounts.
func Active(db *gorm.DB) *gorm.DB {
	return db.Where("active = ?", true)
}

func WithTourAndUser(tourID, userID uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tour_id = ? AND user_id = ?", tourID, userID)
	}
}

// WithPendingPayment matches bookings still holding their payment tokens.
func WithPendingPayment(db *gorm.DB) *gorm.DB {
	return db.Where("paid = ? AND success_paid_token IS NOT NULL", false)
}

func CreatedBefore(t time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("created_at < ?", t)
	}
}
