package models

import "time"

type Workspace struct {
	ID                                     uint64    `gorm:"primarykey" json:"id"`
	Name                                   string    `gorm:"type:varchar(255);not null" json:"name"`
	Description                            *string   `gorm:"type:text" json:"description"`
	Logo                                   *string   `gorm:"type:text" json:"logo"`
	DefaultLogoIndex                       int       `gorm:"not null" json:"default_logo_index"`
	DiscoverabilityEnabled                 bool      `gorm:"not null" json:"discoverability_enabled"`
	DomainBasedMembershipProtectionEnabled bool      `gorm:"not null" json:"domain_based_membership_protection_enabled"`
	CreatedAt                              time.Time `json:"created_at"`
	UpdatedAt                              time.Time `json:"updated_at"`

	// Relations
	Roles    []WorkspaceRole   `gorm:"foreignKey:WorkspaceID" json:"roles,omitempty"`
	Domains  []WorkspaceDomain `gorm:"foreignKey:WorkspaceID" json:"domains,omitempty"`
	Projects []Project         `gorm:"foreignKey:WorkspaceID" json:"projects,omitempty"`
}
