package models

import "time"

// WorkspaceDomain is a verified email domain claimed by a workspace.
type WorkspaceDomain struct {
	ID              uint64    `gorm:"primarykey" json:"id"`
	WorkspaceID     uint64    `gorm:"not null;uniqueIndex:idx_workspace_domains_workspace_domain,priority:1" json:"workspace_id"`
	Domain          string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_workspace_domains_workspace_domain,priority:2;index" json:"domain"`
	CreatedByUserID uint64    `gorm:"not null" json:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
}
