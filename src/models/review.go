package models

import "natours/src/types"

type Review struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	Content string `gorm:"size:300;not null" json:"content" binding:"required,min=1,max=300"`
	Rating  int    `gorm:"not null" json:"rating" binding:"required,min=1,max=5"`
	TourID  uint   `gorm:"not null;uniqueIndex:idx_reviews_tour_user" json:"tour" binding:"required"`
	UserID  uint   `gorm:"not null;uniqueIndex:idx_reviews_tour_user" json:"user" binding:"required"`

	Tour *Tour `gorm:"foreignKey:TourID" json:"tourDetails,omitempty" binding:"-"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author,omitempty" binding:"-"`

	types.Versioned
	types.Timestamps
}
