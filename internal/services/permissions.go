package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"gorm.io/gorm"
)

// ProjectPermissions grants and revokes project roles. Every method acts on
// the store it is handed so the change joins the caller's transaction.
type ProjectPermissions interface {
	// Grant gives the user role on the project unless they already hold it or more.
	Grant(ctx context.Context, store *repository.Store, projectID, userID uint64, role models.Role) error
	Revoke(ctx context.Context, store *repository.Store, projectID, userID uint64) error
	// SyncWorkspaceRole sets the project role implied by a workspace role on
	// every workspace project. Roles implying none revoke them.
	SyncWorkspaceRole(ctx context.Context, store *repository.Store, workspaceID, userID uint64, workspaceRole models.Role) error
	RevokeAllInWorkspace(ctx context.Context, store *repository.Store, workspaceID, userID uint64) error
}

type projectACL struct{}

// NewProjectPermissions returns the store-backed ProjectPermissions.
func NewProjectPermissions() ProjectPermissions {
	return projectACL{}
}

func (projectACL) Grant(ctx context.Context, store *repository.Store, projectID, userID uint64, role models.Role) error {
	if !role.IsRoleFor(models.ResourceProject) {
		return fmt.Errorf("role %s is not a project role", role)
	}

	existing, err := store.Projects.GetRole(ctx, projectID, userID)
	switch {
	case err == nil && existing.Role.AtLeast(role):
		return nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to find project role: %w", err)
	}

	if err := store.Projects.GrantRoles(ctx, []uint64{projectID}, userID, role); err != nil {
		return fmt.Errorf("failed to grant project role: %w", err)
	}
	return nil
}

func (projectACL) Revoke(ctx context.Context, store *repository.Store, projectID, userID uint64) error {
	if err := store.Projects.RevokeRoles(ctx, []uint64{projectID}, userID); err != nil {
		return fmt.Errorf("failed to revoke project role: %w", err)
	}
	return nil
}

func (p projectACL) SyncWorkspaceRole(ctx context.Context, store *repository.Store, workspaceID, userID uint64, workspaceRole models.Role) error {
	projectRole, ok := models.ImplicitProjectRole(workspaceRole)
	if !ok {
		return p.RevokeAllInWorkspace(ctx, store, workspaceID, userID)
	}

	projectIDs, err := store.Projects.ListIDsByWorkspace(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list workspace projects: %w", err)
	}
	if err := store.Projects.GrantRoles(ctx, projectIDs, userID, projectRole); err != nil {
		return fmt.Errorf("failed to grant workspace project roles: %w", err)
	}
	return nil
}

func (projectACL) RevokeAllInWorkspace(ctx context.Context, store *repository.Store, workspaceID, userID uint64) error {
	projectIDs, err := store.Projects.ListIDsByWorkspace(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list workspace projects: %w", err)
	}
	if err := store.Projects.RevokeRoles(ctx, projectIDs, userID); err != nil {
		return fmt.Errorf("failed to revoke workspace project roles: %w", err)
	}
	return nil
}
