package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/dto"
	apierrors "github.com/yukikurage/workspace-api/internal/errors"
	"github.com/yukikurage/workspace-api/internal/middleware"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
	"github.com/yukikurage/workspace-api/internal/utils"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	authorizer     services.Authorizer
}

func NewProjectHandler(projectService *services.ProjectService, authorizer services.Authorizer) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, authorizer: authorizer}
}

// CreateProject creates a personal project, or a workspace project when
// workspace_id is set and the caller is a workspace member
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	type CreateProjectRequest struct {
		Name        string  `json:"name" binding:"required,max=255"`
		Description string  `json:"description" binding:"max=2000"`
		WorkspaceID *uint64 `json:"workspace_id"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if req.WorkspaceID != nil {
		ref := services.ResourceRef{Type: models.ResourceWorkspace, ID: *req.WorkspaceID}
		if err := h.authorizer.Authorize(c.Request.Context(), userID, ref, models.RoleWorkspaceMember, nil); err != nil {
			respondError(c, err)
			return
		}
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		WorkspaceID: req.WorkspaceID,
		CreatorID:   userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// GetProject returns the project loaded by the access middleware
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, exists := middleware.GetProject(c)
	if !exists {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(project))
}

// ListWorkspaceProjects returns a page of a workspace's projects
func (h *ProjectHandler) ListWorkspaceProjects(c *gin.Context) {
	workspaceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	pagination := utils.GetPaginationParams(c)
	projects, total, err := h.projectService.ListWorkspaceProjects(c.Request.Context(), workspaceID, pagination)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectListResponse(projects, pagination, total))
}

// DeleteProject deletes a project
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.projectService.DeleteProject(c.Request.Context(), projectID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

// RevokeCollaborator removes a user's project role
func (h *ProjectHandler) RevokeCollaborator(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}

	if err := h.projectService.RevokeProjectRole(c.Request.Context(), projectID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Collaborator removed successfully"})
}
