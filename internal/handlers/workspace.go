package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/yukikurage/workspace-api/internal/dto"
	apierrors "github.com/yukikurage/workspace-api/internal/errors"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/services"
	"github.com/yukikurage/workspace-api/internal/utils"
)

type WorkspaceHandler struct {
	workspaceService *services.WorkspaceService
}

func NewWorkspaceHandler(workspaceService *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService}
}

// CreateWorkspace creates a workspace with the caller as admin
func (h *WorkspaceHandler) CreateWorkspace(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	type CreateWorkspaceRequest struct {
		Name             string  `json:"name" binding:"required,max=255"`
		Description      *string `json:"description" binding:"omitempty,max=2000"`
		Logo             *string `json:"logo"`
		DefaultLogoIndex int     `json:"default_logo_index" binding:"min=0"`
	}

	var req CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	workspace, err := h.workspaceService.CreateWorkspace(c.Request.Context(), userID, services.CreateWorkspaceInput{
		Name:             req.Name,
		Description:      req.Description,
		Logo:             req.Logo,
		DefaultLogoIndex: req.DefaultLogoIndex,
	}, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToWorkspaceDTO(*workspace))
}

// ListWorkspaces returns the workspaces the user belongs to
func (h *WorkspaceHandler) ListWorkspaces(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	roles, err := h.workspaceService.WorkspacesForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"workspaces": dto.ToWorkspaceWithRoleDTOs(roles)})
}

// ListDiscoverableWorkspaces returns workspaces the user may join by email domain
func (h *WorkspaceHandler) ListDiscoverableWorkspaces(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	workspaces, err := h.workspaceService.DiscoverableWorkspacesForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"workspaces": dto.ToWorkspaceDTOs(workspaces)})
}

// AdminListWorkspaces lists every workspace for server admins
func (h *WorkspaceHandler) AdminListWorkspaces(c *gin.Context) {
	workspaces, err := h.workspaceService.AdminWorkspaceList(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"workspaces": dto.ToWorkspaceDTOs(workspaces)})
}

// GetWorkspace returns workspace details
func (h *WorkspaceHandler) GetWorkspace(c *gin.Context) {
	workspaceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	workspace, err := h.workspaceService.GetWorkspace(c.Request.Context(), workspaceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceDTO(*workspace))
}

// UpdateWorkspace changes the fields present in the request body
func (h *WorkspaceHandler) UpdateWorkspace(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	type UpdateWorkspaceRequest struct {
		Name                                   *string `json:"name" binding:"omitempty,max=255"`
		Description                            *string `json:"description" binding:"omitempty,max=2000"`
		Logo                                   *string `json:"logo"`
		DefaultLogoIndex                       *int    `json:"default_logo_index" binding:"omitempty,min=0"`
		DiscoverabilityEnabled                 *bool   `json:"discoverability_enabled"`
		DomainBasedMembershipProtectionEnabled *bool   `json:"domain_based_membership_protection_enabled"`
	}

	var req UpdateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	workspace, err := h.workspaceService.UpdateWorkspace(c.Request.Context(), workspaceID, userID, services.UpdateWorkspaceInput{
		Name:                                   req.Name,
		Description:                            req.Description,
		Logo:                                   req.Logo,
		DefaultLogoIndex:                       req.DefaultLogoIndex,
		DiscoverabilityEnabled:                 req.DiscoverabilityEnabled,
		DomainBasedMembershipProtectionEnabled: req.DomainBasedMembershipProtectionEnabled,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceDTO(*workspace))
}

// DeleteWorkspace deletes the workspace with its members, domains, projects and invites
func (h *WorkspaceHandler) DeleteWorkspace(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.workspaceService.DeleteWorkspace(c.Request.Context(), workspaceID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Workspace deleted successfully"})
}

// JoinWorkspace joins a discoverable workspace
func (h *WorkspaceHandler) JoinWorkspace(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	workspace, err := h.workspaceService.JoinWorkspace(c.Request.Context(), userID, workspaceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WorkspaceWithRoleDTO{
		WorkspaceDTO: dto.ToWorkspaceDTO(*workspace),
		Role:         models.RoleWorkspaceMember,
	})
}

// LeaveWorkspace removes the caller from the workspace
func (h *WorkspaceHandler) LeaveWorkspace(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.workspaceService.LeaveWorkspace(c.Request.Context(), workspaceID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left workspace successfully"})
}

// ListCollaborators returns a page of workspace members
func (h *WorkspaceHandler) ListCollaborators(c *gin.Context) {
	workspaceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	pagination := utils.GetPaginationParams(c)
	roles := lo.Map(c.QueryArray("role"), func(r string, _ int) models.Role { return models.Role(r) })

	collaborators, total, err := h.workspaceService.Collaborators(c.Request.Context(), workspaceID, repository.RoleFilter{
		Roles:      roles,
		Search:     c.Query("search"),
		Pagination: pagination,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCollaboratorListResponse(collaborators, pagination, total))
}

// UpdateCollaboratorRole sets a member's workspace role
func (h *WorkspaceHandler) UpdateCollaboratorRole(c *gin.Context) {
	actorID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}

	type UpdateRoleRequest struct {
		Role models.Role `json:"role" binding:"required"`
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	role, err := h.workspaceService.UpdateWorkspaceRole(c.Request.Context(), services.UpdateRoleInput{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        req.Role,
		ActorID:     actorID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"workspace_id": role.WorkspaceID,
		"user_id":      role.UserID,
		"role":         role.Role,
	})
}

// RemoveCollaborator removes a member from the workspace
func (h *WorkspaceHandler) RemoveCollaborator(c *gin.Context) {
	workspaceID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}

	if err := h.workspaceService.DeleteWorkspaceRole(c.Request.Context(), workspaceID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Collaborator removed successfully"})
}

// ListDomains returns the workspace's email domains
func (h *WorkspaceHandler) ListDomains(c *gin.Context) {
	workspaceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	domains, err := h.workspaceService.Domains(c.Request.Context(), workspaceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"domains": dto.ToDomainDTOs(domains)})
}

// AddDomain registers an email domain the caller has verified
func (h *WorkspaceHandler) AddDomain(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	type AddDomainRequest struct {
		Domain string `json:"domain" binding:"required"`
	}

	var req AddDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	domain, err := h.workspaceService.AddDomain(c.Request.Context(), workspaceID, userID, req.Domain)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToDomainDTOs([]models.WorkspaceDomain{*domain})[0])
}

// DeleteDomain removes an email domain
func (h *WorkspaceHandler) DeleteDomain(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := paramID(c, "id")
	if !ok {
		return
	}
	domainID, ok := paramID(c, "domain_id")
	if !ok {
		return
	}

	if err := h.workspaceService.DeleteDomain(c.Request.Context(), workspaceID, domainID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Domain deleted successfully"})
}
