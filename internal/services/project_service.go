package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProjectService handles project business logic
type ProjectService struct {
	store  *repository.Store
	perms  ProjectPermissions
	logger *zap.Logger
}

// NewProjectService creates a new ProjectService
func NewProjectService(store *repository.Store, perms ProjectPermissions, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		store:  store,
		perms:  perms,
		logger: logger,
	}
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	Name        string
	Description string
	WorkspaceID *uint64
	CreatorID   uint64
}

// CreateProject creates a project owned by its creator. Workspace projects
// also grant workspace members the project role their workspace role implies.
func (s *ProjectService) CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidProjectName
	}

	project := &models.Project{
		Name:        name,
		Description: input.Description,
		WorkspaceID: input.WorkspaceID,
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if input.WorkspaceID != nil {
			if _, err := findWorkspace(ctx, tx, *input.WorkspaceID); err != nil {
				return err
			}
		}

		if err := tx.Projects.Create(ctx, project); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		if input.WorkspaceID != nil {
			roles, _, err := tx.Roles.ListByWorkspace(ctx, *input.WorkspaceID, repository.RoleFilter{
				Roles: []models.Role{models.RoleWorkspaceAdmin, models.RoleWorkspaceMember},
			})
			if err != nil {
				return fmt.Errorf("failed to list workspace members: %w", err)
			}
			for _, role := range roles {
				projectRole, _ := models.ImplicitProjectRole(role.Role)
				if err := s.perms.Grant(ctx, tx, project.ID, role.UserID, projectRole); err != nil {
					return err
				}
			}
		}

		if err := tx.Projects.GrantRoles(ctx, []uint64{project.ID}, input.CreatorID, models.RoleStreamOwner); err != nil {
			return fmt.Errorf("failed to assign creator to project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return project, nil
}

// GetProject retrieves a project by ID
func (s *ProjectService) GetProject(ctx context.Context, projectID uint64) (*models.Project, error) {
	return findProject(ctx, s.store, projectID)
}

// ListWorkspaceProjects lists the projects of a workspace
func (s *ProjectService) ListWorkspaceProjects(ctx context.Context, workspaceID uint64, pagination utils.PaginationParams) ([]models.Project, int64, error) {
	projects, total, err := s.store.Projects.ListByWorkspace(ctx, workspaceID, pagination)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

// DeleteProject deletes a project with its roles and pending invites
func (s *ProjectService) DeleteProject(ctx context.Context, projectID uint64) error {
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := findProject(ctx, tx, projectID); err != nil {
			return err
		}
		if err := tx.Invites.DeleteAllResourceInvites(ctx, models.ResourceProject, projectID); err != nil {
			return fmt.Errorf("failed to delete project invites: %w", err)
		}
		if err := tx.Projects.Delete(ctx, projectID); err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		return nil
	})
}

// RevokeProjectRole removes a collaborator from a project
func (s *ProjectService) RevokeProjectRole(ctx context.Context, projectID, userID uint64) error {
	if _, err := findProject(ctx, s.store, projectID); err != nil {
		return err
	}
	return s.perms.Revoke(ctx, s.store, projectID, userID)
}

func findProject(ctx context.Context, store *repository.Store, projectID uint64) (*models.Project, error) {
	project, err := store.Projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}
