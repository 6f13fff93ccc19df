package models

import "time"

// WorkspaceRole assigns a user a role in a workspace. One row per (workspace, user).
type WorkspaceRole struct {
	WorkspaceID uint64    `gorm:"primarykey;autoIncrement:false" json:"workspace_id"`
	UserID      uint64    `gorm:"primarykey;autoIncrement:false;index" json:"user_id"`
	Role        Role      `gorm:"type:varchar(32);not null" json:"role"`
	CreatedAt   time.Time `json:"created_at"`

	// Relations
	Workspace Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
