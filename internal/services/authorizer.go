package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"gorm.io/gorm"
)

// ResourceRef points at a server, project or workspace. Server refs use ID 0.
type ResourceRef struct {
	Type models.ResourceType
	ID   uint64
}

// AccessRules limit a credential to a set of resources. A nil *AccessRules
// grants access to everything the user's roles allow.
type AccessRules struct {
	Resources []ResourceRef
}

// Allows reports whether the rules permit acting on ref.
func (r *AccessRules) Allows(ref ResourceRef) bool {
	if r == nil {
		return true
	}
	return lo.Contains(r.Resources, ref)
}

// Restricted reports whether the rules narrow access at all.
func (r *AccessRules) Restricted() bool {
	return r != nil
}

// Authorizer decides whether a user holds at least a role on a resource.
type Authorizer interface {
	Authorize(ctx context.Context, userID uint64, ref ResourceRef, minimum models.Role, rules *AccessRules) error
}

// RoleAuthorizer resolves roles from the store.
type RoleAuthorizer struct {
	store *repository.Store
}

// NewRoleAuthorizer creates a new RoleAuthorizer.
func NewRoleAuthorizer(store *repository.Store) *RoleAuthorizer {
	return &RoleAuthorizer{store: store}
}

// Authorize returns ErrResourceAccessDenied unless the user's role on ref
// is at least minimum and rules allow ref.
func (a *RoleAuthorizer) Authorize(ctx context.Context, userID uint64, ref ResourceRef, minimum models.Role, rules *AccessRules) error {
	if !minimum.IsRoleFor(ref.Type) {
		return fmt.Errorf("role %s does not apply to %s", minimum, ref.Type)
	}
	if !rules.Allows(ref) {
		return ErrResourceAccessDenied
	}

	role, err := a.resolve(ctx, userID, ref)
	if err != nil {
		return err
	}
	if !role.AtLeast(minimum) {
		return ErrResourceAccessDenied
	}
	return nil
}

func (a *RoleAuthorizer) resolve(ctx context.Context, userID uint64, ref ResourceRef) (models.Role, error) {
	switch ref.Type {
	case models.ResourceServer:
		user, err := a.store.Users.FindByID(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to find user: %w", err)
		}
		return user.ServerRole, nil

	case models.ResourceWorkspace:
		role, err := a.store.Roles.Get(ctx, ref.ID, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to find workspace role: %w", err)
		}
		return role.Role, nil

	case models.ResourceProject:
		role, err := a.store.Projects.GetRole(ctx, ref.ID, userID)
		if err == nil {
			return role.Role, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("failed to find project role: %w", err)
		}
		return a.implicitProjectRole(ctx, userID, ref.ID)
	}
	return "", nil
}

// implicitProjectRole covers workspace projects created before the user's
// workspace role was synced onto them.
func (a *RoleAuthorizer) implicitProjectRole(ctx context.Context, userID, projectID uint64) (models.Role, error) {
	project, err := a.store.Projects.FindByID(ctx, projectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find project: %w", err)
	}
	if project.WorkspaceID == nil {
		return "", nil
	}

	workspaceRole, err := a.store.Roles.Get(ctx, *project.WorkspaceID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find workspace role: %w", err)
	}

	role, _ := models.ImplicitProjectRole(workspaceRole.Role)
	return role, nil
}
