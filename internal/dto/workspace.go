package dto

import (
	"time"

	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/utils"
)

// WorkspaceDTO represents a workspace in API responses
type WorkspaceDTO struct {
	ID                                     uint64    `json:"id"`
	Name                                   string    `json:"name"`
	Description                            *string   `json:"description"`
	Logo                                   *string   `json:"logo"`
	DefaultLogoIndex                       int       `json:"default_logo_index"`
	DiscoverabilityEnabled                 bool      `json:"discoverability_enabled"`
	DomainBasedMembershipProtectionEnabled bool      `json:"domain_based_membership_protection_enabled"`
	CreatedAt                              time.Time `json:"created_at"`
	UpdatedAt                              time.Time `json:"updated_at"`
}

// WorkspaceWithRoleDTO represents a workspace with the user's role
type WorkspaceWithRoleDTO struct {
	WorkspaceDTO
	Role models.Role `json:"role"`
}

// CollaboratorDTO represents a member in a workspace
type CollaboratorDTO struct {
	User     UserDTO     `json:"user"`
	Role     models.Role `json:"role"`
	JoinedAt time.Time   `json:"joined_at"`
}

// CollaboratorListResponse represents a paginated list of collaborators
type CollaboratorListResponse struct {
	Collaborators []CollaboratorDTO        `json:"collaborators"`
	Pagination    utils.PaginationResponse `json:"pagination"`
}

// DomainDTO represents a workspace email domain
type DomainDTO struct {
	ID        uint64    `json:"id"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}

// ToWorkspaceDTO converts a workspace model to DTO
func ToWorkspaceDTO(workspace models.Workspace) WorkspaceDTO {
	return WorkspaceDTO{
		ID:                                     workspace.ID,
		Name:                                   workspace.Name,
		Description:                            workspace.Description,
		Logo:                                   workspace.Logo,
		DefaultLogoIndex:                       workspace.DefaultLogoIndex,
		DiscoverabilityEnabled:                 workspace.DiscoverabilityEnabled,
		DomainBasedMembershipProtectionEnabled: workspace.DomainBasedMembershipProtectionEnabled,
		CreatedAt:                              workspace.CreatedAt,
		UpdatedAt:                              workspace.UpdatedAt,
	}
}

// ToWorkspaceDTOs converts workspaces to DTOs
func ToWorkspaceDTOs(workspaces []models.Workspace) []WorkspaceDTO {
	dtos := make([]WorkspaceDTO, len(workspaces))
	for i, workspace := range workspaces {
		dtos[i] = ToWorkspaceDTO(workspace)
	}
	return dtos
}

// ToWorkspaceWithRoleDTOs converts role rows with preloaded workspaces to DTOs
func ToWorkspaceWithRoleDTOs(roles []models.WorkspaceRole) []WorkspaceWithRoleDTO {
	dtos := make([]WorkspaceWithRoleDTO, len(roles))
	for i, role := range roles {
		dtos[i] = WorkspaceWithRoleDTO{
			WorkspaceDTO: ToWorkspaceDTO(role.Workspace),
			Role:         role.Role,
		}
	}
	return dtos
}

// ToCollaboratorDTO converts a role row with a preloaded user to DTO
func ToCollaboratorDTO(role models.WorkspaceRole) CollaboratorDTO {
	return CollaboratorDTO{
		User:     ToUserDTO(role.User),
		Role:     role.Role,
		JoinedAt: role.CreatedAt,
	}
}

// ToCollaboratorListResponse converts a page of role rows to a response
func ToCollaboratorListResponse(roles []models.WorkspaceRole, pagination utils.PaginationParams, total int64) CollaboratorListResponse {
	collaborators := make([]CollaboratorDTO, len(roles))
	for i, role := range roles {
		collaborators[i] = ToCollaboratorDTO(role)
	}
	return CollaboratorListResponse{
		Collaborators: collaborators,
		Pagination:    pagination.Response(total),
	}
}

// ToDomainDTOs converts workspace domains to DTOs
func ToDomainDTOs(domains []models.WorkspaceDomain) []DomainDTO {
	dtos := make([]DomainDTO, len(domains))
	for i, domain := range domains {
		dtos[i] = DomainDTO{ID: domain.ID, Domain: domain.Domain, CreatedAt: domain.CreatedAt}
	}
	return dtos
}
