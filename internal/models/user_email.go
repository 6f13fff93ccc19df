package models

import "time"

type UserEmail struct {
	ID                uint64    `gorm:"primarykey" json:"id"`
	UserID            uint64    `gorm:"not null;index" json:"user_id"`
	Email             string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Verified          bool      `gorm:"not null" json:"verified"`
	Primary           bool      `gorm:"not null" json:"primary"`
	VerificationToken *string   `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
