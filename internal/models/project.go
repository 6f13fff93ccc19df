package models

import "time"

// Project is a container of user content, optionally owned by a workspace.
type Project struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	WorkspaceID *uint64   `gorm:"index" json:"workspace_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Roles []ProjectRole `gorm:"foreignKey:ProjectID" json:"roles,omitempty"`
}
