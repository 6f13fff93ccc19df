package dto

import (
	"time"

	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/utils"
)

// InviteDTO represents a created invite. The token is never returned to the inviter.
type InviteDTO struct {
	ID             uint64                `json:"id"`
	ResourceType   models.ResourceType   `json:"resource_type"`
	ResourceID     uint64                `json:"resource_id"`
	Role           models.Role           `json:"role"`
	SecondaryRoles models.SecondaryRoles `json:"secondary_roles,omitempty"`
	UserID         *uint64               `json:"user_id,omitempty"`
	Email          string                `json:"email,omitempty"`
	InviterID      uint64                `json:"inviter_id"`
	EmailQueued    bool                  `json:"email_queued"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// PendingInviteListResponse represents a paginated list of pending invites
type PendingInviteListResponse[T any] struct {
	Invites    []T                      `json:"invites"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToInviteDTO converts an invite model to DTO
func ToInviteDTO(invite models.ResourceInvite, emailQueued bool) InviteDTO {
	dto := InviteDTO{
		ID:             invite.ID,
		ResourceType:   invite.ResourceType,
		ResourceID:     invite.ResourceID,
		Role:           invite.Role,
		SecondaryRoles: invite.SecondaryRoles.Data(),
		InviterID:      invite.InviterID,
		EmailQueued:    emailQueued,
		UpdatedAt:      invite.UpdatedAt,
	}
	if id, ok := invite.TargetUserID(); ok {
		dto.UserID = &id
	} else if email, ok := invite.TargetEmail(); ok {
		dto.Email = email
	}
	return dto
}
