package middleware

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/constants"
	apierrors "github.com/yukikurage/workspace-api/internal/errors"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
)

// WorkspaceFinder loads a workspace by id.
type WorkspaceFinder interface {
	GetWorkspace(ctx context.Context, workspaceID uint64) (*models.Workspace, error)
}

// ProjectFinder loads a project by id.
type ProjectFinder interface {
	GetProject(ctx context.Context, projectID uint64) (*models.Project, error)
}

// ParamID parses a numeric path parameter.
func ParamID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// RequireWorkspaceRole checks that the user holds at least minimum on the
// workspace named by the :id parameter.
func RequireWorkspaceRole(workspaces WorkspaceFinder, authorizer services.Authorizer, minimum models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, ok := ParamID(c, "id")
		if !ok {
			apierrors.BadRequest(c, "Invalid workspace ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		workspace, err := workspaces.GetWorkspace(c.Request.Context(), workspaceID)
		if err != nil {
			apierrors.RespondWithDomainError(c, err)
			c.Abort()
			return
		}

		ref := services.ResourceRef{Type: models.ResourceWorkspace, ID: workspaceID}
		if err := authorizer.Authorize(c.Request.Context(), userID, ref, minimum, nil); err != nil {
			apierrors.RespondWithDomainError(c, err)
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyWorkspace, *workspace)
		c.Next()
	}
}

// RequireProjectRole checks that the user holds at least minimum on the
// project named by the :id parameter.
func RequireProjectRole(projects ProjectFinder, authorizer services.Authorizer, minimum models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := ParamID(c, "id")
		if !ok {
			apierrors.BadRequest(c, "Invalid project ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		project, err := projects.GetProject(c.Request.Context(), projectID)
		if err != nil {
			apierrors.RespondWithDomainError(c, err)
			c.Abort()
			return
		}

		ref := services.ResourceRef{Type: models.ResourceProject, ID: projectID}
		if err := authorizer.Authorize(c.Request.Context(), userID, ref, minimum, nil); err != nil {
			// Hide projects the user cannot see at all.
			if minimum == models.RoleStreamReviewer {
				apierrors.NotFound(c, "Project not found")
			} else {
				apierrors.RespondWithDomainError(c, err)
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyProject, *project)
		c.Next()
	}
}

// RequireServerRole checks the user's server role.
func RequireServerRole(authorizer services.Authorizer, minimum models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		ref := services.ResourceRef{Type: models.ResourceServer}
		if err := authorizer.Authorize(c.Request.Context(), userID, ref, minimum, nil); err != nil {
			apierrors.RespondWithDomainError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireFeature answers 404 for every route while a feature flag is off.
func RequireFeature(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			apierrors.NotFound(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetWorkspace returns the workspace loaded by RequireWorkspaceRole.
func GetWorkspace(c *gin.Context) (models.Workspace, bool) {
	value, exists := c.Get(constants.ContextKeyWorkspace)
	if !exists {
		return models.Workspace{}, false
	}
	workspace, ok := value.(models.Workspace)
	return workspace, ok
}

// GetProject returns the project loaded by RequireProjectRole.
func GetProject(c *gin.Context) (models.Project, bool) {
	value, exists := c.Get(constants.ContextKeyProject)
	if !exists {
		return models.Project{}, false
	}
	project, ok := value.(models.Project)
	return project, ok
}
