package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	ServerRole   Role           `gorm:"type:varchar(32);not null" json:"server_role"`
	Locale       string         `gorm:"type:varchar(16);not null;default:'en'" json:"locale"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Emails     []UserEmail     `gorm:"foreignKey:UserID" json:"-"`
	Workspaces []WorkspaceRole `gorm:"foreignKey:UserID" json:"-"`
}
