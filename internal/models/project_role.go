package models

import "time"

type ProjectRole struct {
	ProjectID uint64    `gorm:"primarykey;autoIncrement:false" json:"project_id"`
	UserID    uint64    `gorm:"primarykey;autoIncrement:false;index" json:"user_id"`
	Role      Role      `gorm:"type:varchar(32);not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
