package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/yukikurage/workspace-api/internal/events"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var validate = validator.New()

// blockedDomains are public mail providers no workspace may claim.
var blockedDomains = []string{
	"aol.com",
	"gmail.com",
	"gmx.de",
	"googlemail.com",
	"hotmail.com",
	"icloud.com",
	"outlook.com",
	"proton.me",
	"protonmail.com",
	"web.de",
	"yahoo.com",
}

// WorkspaceService provides business logic for workspaces and their members.
type WorkspaceService struct {
	store     *repository.Store
	perms     ProjectPermissions
	publisher events.Publisher
	logger    *zap.Logger
}

// NewWorkspaceService creates a new WorkspaceService.
func NewWorkspaceService(store *repository.Store, perms ProjectPermissions, publisher events.Publisher, logger *zap.Logger) *WorkspaceService {
	return &WorkspaceService{
		store:     store,
		perms:     perms,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateWorkspaceInput represents parameters to create a new workspace.
type CreateWorkspaceInput struct {
	Name             string
	Description      *string
	Logo             *string
	DefaultLogoIndex int
}

// CreateWorkspace creates a workspace with the creator as its admin.
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, userID uint64, input CreateWorkspaceInput, rules *AccessRules) (*models.Workspace, error) {
	if rules.Restricted() {
		return nil, ErrWorkspaceCreateForbidden
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidWorkspaceName
	}

	workspace := &models.Workspace{
		Name:             name,
		Description:      input.Description,
		Logo:             input.Logo,
		DefaultLogoIndex: input.DefaultLogoIndex,
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Workspaces.Create(ctx, workspace); err != nil {
			return fmt.Errorf("failed to create workspace: %w", err)
		}

		admin := &models.WorkspaceRole{
			WorkspaceID: workspace.ID,
			UserID:      userID,
			Role:        models.RoleWorkspaceAdmin,
		}
		if err := tx.Roles.Upsert(ctx, admin); err != nil {
			return fmt.Errorf("failed to add workspace admin: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events.New(events.WorkspaceCreated, events.WorkspacePayload{Workspace: *workspace, ActorID: userID}))
	return workspace, nil
}

// UpdateWorkspaceInput holds the fields to change. Nil fields are kept.
type UpdateWorkspaceInput struct {
	Name                                   *string
	Description                            *string
	Logo                                   *string
	DefaultLogoIndex                       *int
	DiscoverabilityEnabled                 *bool
	DomainBasedMembershipProtectionEnabled *bool
}

// UpdateWorkspace merges the non-nil fields of input into the workspace.
// Turning on discoverability or domain protection needs a registered domain,
// checked inside the update transaction.
func (s *WorkspaceService) UpdateWorkspace(ctx context.Context, workspaceID, actorID uint64, input UpdateWorkspaceInput) (*models.Workspace, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, ErrInvalidWorkspaceName
	}

	var workspace *models.Workspace
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		workspace, err = findWorkspace(ctx, tx, workspaceID)
		if err != nil {
			return err
		}

		if input.Name != nil {
			workspace.Name = strings.TrimSpace(*input.Name)
		}
		if input.Description != nil {
			workspace.Description = input.Description
		}
		if input.Logo != nil {
			workspace.Logo = input.Logo
		}
		if input.DefaultLogoIndex != nil {
			workspace.DefaultLogoIndex = *input.DefaultLogoIndex
		}
		if input.DiscoverabilityEnabled != nil {
			workspace.DiscoverabilityEnabled = *input.DiscoverabilityEnabled
		}
		if input.DomainBasedMembershipProtectionEnabled != nil {
			workspace.DomainBasedMembershipProtectionEnabled = *input.DomainBasedMembershipProtectionEnabled
		}

		if lo.FromPtr(input.DiscoverabilityEnabled) || lo.FromPtr(input.DomainBasedMembershipProtectionEnabled) {
			domains, err := tx.Domains.ListByWorkspace(ctx, workspaceID)
			if err != nil {
				return fmt.Errorf("failed to list workspace domains: %w", err)
			}
			if len(domains) == 0 {
				return ErrWorkspaceInvalidState
			}
		}

		if err := tx.Workspaces.Update(ctx, workspace); err != nil {
			return fmt.Errorf("failed to update workspace: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events.New(events.WorkspaceUpdated, events.WorkspacePayload{Workspace: *workspace, ActorID: actorID}))
	return workspace, nil
}

// UpdateRoleInput describes a workspace role assignment.
type UpdateRoleInput struct {
	WorkspaceID uint64
	UserID      uint64
	Role        models.Role
	ActorID     uint64
	// SkipDomainCheck is set by callers that validated the user's domain already.
	SkipDomainCheck bool
	// OnlyRaise leaves an equal or higher existing role untouched.
	OnlyRaise bool
}

// UpdateWorkspaceRole assigns a workspace role and syncs the user's project roles.
func (s *WorkspaceService) UpdateWorkspaceRole(ctx context.Context, input UpdateRoleInput) (*models.WorkspaceRole, error) {
	var (
		role *models.WorkspaceRole
		evts []events.Event
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		role, evts, err = s.applyRole(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, evts...)
	return role, nil
}

// applyRole assigns a role within tx and returns the events to publish after commit.
func (s *WorkspaceService) applyRole(ctx context.Context, tx *repository.Store, input UpdateRoleInput) (*models.WorkspaceRole, []events.Event, error) {
	if !input.Role.IsRoleFor(models.ResourceWorkspace) {
		return nil, nil, ErrInvalidWorkspaceRole
	}

	workspace, err := lockWorkspace(ctx, tx, input.WorkspaceID)
	if err != nil {
		return nil, nil, err
	}

	if _, err := tx.Users.FindByID(ctx, input.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	current, err := tx.Roles.GetForUpdate(ctx, input.WorkspaceID, input.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("failed to find workspace role: %w", err)
	}
	if current != nil && current.Role == input.Role {
		return current, nil, nil
	}
	if current != nil && input.OnlyRaise && current.Role.AtLeast(input.Role) {
		return current, nil, nil
	}

	if current != nil && current.Role == models.RoleWorkspaceAdmin {
		if err := ensureAnotherAdmin(ctx, tx, input.WorkspaceID); err != nil {
			return nil, nil, err
		}
	}

	if !input.SkipDomainCheck && workspace.DomainBasedMembershipProtectionEnabled && input.Role != models.RoleWorkspaceGuest {
		ok, err := hasVerifiedDomainEmail(ctx, tx, input.WorkspaceID, input.UserID)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, ErrWorkspaceDomainNeeded
		}
	}

	role := &models.WorkspaceRole{
		WorkspaceID: input.WorkspaceID,
		UserID:      input.UserID,
		Role:        input.Role,
	}
	if err := tx.Roles.Upsert(ctx, role); err != nil {
		return nil, nil, fmt.Errorf("failed to save workspace role: %w", err)
	}

	if err := s.perms.SyncWorkspaceRole(ctx, tx, input.WorkspaceID, input.UserID, input.Role); err != nil {
		return nil, nil, err
	}

	event := events.New(events.WorkspaceRoleUpdated, events.WorkspaceRolePayload{
		WorkspaceID: input.WorkspaceID,
		UserID:      input.UserID,
		Role:        input.Role,
	})
	return role, []events.Event{event}, nil
}

// DeleteWorkspaceRole removes a member and the project roles the membership implied.
func (s *WorkspaceService) DeleteWorkspaceRole(ctx context.Context, workspaceID, userID uint64) error {
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := lockWorkspace(ctx, tx, workspaceID); err != nil {
			return err
		}

		current, err := tx.Roles.GetForUpdate(ctx, workspaceID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWorkspaceRoleNotFound
			}
			return fmt.Errorf("failed to find workspace role: %w", err)
		}

		if current.Role == models.RoleWorkspaceAdmin {
			if err := ensureAnotherAdmin(ctx, tx, workspaceID); err != nil {
				return err
			}
		}

		if _, err := tx.Roles.Delete(ctx, workspaceID, userID); err != nil {
			return fmt.Errorf("failed to delete workspace role: %w", err)
		}
		return s.perms.RevokeAllInWorkspace(ctx, tx, workspaceID, userID)
	})
	if err != nil {
		return err
	}

	publish(ctx, s.publisher, s.logger, events.New(events.WorkspaceRoleDeleted, events.WorkspaceRolePayload{
		WorkspaceID: workspaceID,
		UserID:      userID,
	}))
	return nil
}

// LeaveWorkspace removes the caller's own membership.
func (s *WorkspaceService) LeaveWorkspace(ctx context.Context, workspaceID, userID uint64) error {
	return s.DeleteWorkspaceRole(ctx, workspaceID, userID)
}

// DeleteWorkspace removes a workspace with its projects, invites, domains and roles.
func (s *WorkspaceService) DeleteWorkspace(ctx context.Context, workspaceID, actorID uint64) error {
	var workspace *models.Workspace
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		workspace, err = findWorkspace(ctx, tx, workspaceID)
		if err != nil {
			return err
		}

		projectIDs, err := tx.Projects.ListIDsByWorkspace(ctx, workspaceID)
		if err != nil {
			return fmt.Errorf("failed to list workspace projects: %w", err)
		}
		for _, projectID := range projectIDs {
			if err := tx.Invites.DeleteAllResourceInvites(ctx, models.ResourceProject, projectID); err != nil {
				return fmt.Errorf("failed to delete project invites: %w", err)
			}
			if err := tx.Projects.Delete(ctx, projectID); err != nil {
				return fmt.Errorf("failed to delete project: %w", err)
			}
		}

		if err := tx.Invites.DeleteAllResourceInvites(ctx, models.ResourceWorkspace, workspaceID); err != nil {
			return fmt.Errorf("failed to delete workspace invites: %w", err)
		}
		if err := tx.Domains.DeleteAllForWorkspace(ctx, workspaceID); err != nil {
			return fmt.Errorf("failed to delete workspace domains: %w", err)
		}
		if err := tx.Roles.DeleteAllForWorkspace(ctx, workspaceID); err != nil {
			return fmt.Errorf("failed to delete workspace roles: %w", err)
		}
		if err := tx.Workspaces.Delete(ctx, workspaceID); err != nil {
			return fmt.Errorf("failed to delete workspace: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	publish(ctx, s.publisher, s.logger, events.New(events.WorkspaceDeleted, events.WorkspacePayload{Workspace: *workspace, ActorID: actorID}))
	return nil
}

// AddDomain registers a domain the user owns a verified email at.
func (s *WorkspaceService) AddDomain(ctx context.Context, workspaceID, userID uint64, domain string) (*models.WorkspaceDomain, error) {
	domain = utils.NormalizeDomain(domain)
	if err := validate.Var(domain, "required,fqdn"); err != nil {
		return nil, ErrInvalidDomain
	}
	if lo.Contains(blockedDomains, domain) {
		return nil, ErrDomainBlocked
	}

	emails, err := s.store.Emails.ListVerifiedByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user emails: %w", err)
	}
	if !lo.ContainsBy(emails, func(e models.UserEmail) bool { return utils.EmailDomain(e.Email) == domain }) {
		return nil, ErrDomainNotVerified
	}

	workspace, err := findWorkspace(ctx, s.store, workspaceID)
	if err != nil {
		return nil, err
	}

	record := &models.WorkspaceDomain{
		WorkspaceID:     workspaceID,
		Domain:          domain,
		CreatedByUserID: userID,
	}
	if err := s.store.Domains.Store(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDomainAlreadyAdded
		}
		return nil, fmt.Errorf("failed to add workspace domain: %w", err)
	}

	publish(ctx, s.publisher, s.logger, events.New(events.WorkspaceUpdated, events.WorkspacePayload{Workspace: *workspace, ActorID: userID}))
	return record, nil
}

// DeleteDomain removes a domain. Removing the last one also turns off
// discoverability and domain protection.
func (s *WorkspaceService) DeleteDomain(ctx context.Context, workspaceID, domainID, actorID uint64) error {
	var workspace *models.Workspace
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		workspace, err = findWorkspace(ctx, tx, workspaceID)
		if err != nil {
			return err
		}

		deleted, err := tx.Domains.Delete(ctx, workspaceID, domainID)
		if err != nil {
			return fmt.Errorf("failed to delete workspace domain: %w", err)
		}
		if !deleted {
			return ErrWorkspaceDomainNotFound
		}

		remaining, err := tx.Domains.ListByWorkspace(ctx, workspaceID)
		if err != nil {
			return fmt.Errorf("failed to list workspace domains: %w", err)
		}
		if len(remaining) > 0 {
			return nil
		}

		workspace.DiscoverabilityEnabled = false
		workspace.DomainBasedMembershipProtectionEnabled = false
		if err := tx.Workspaces.Update(ctx, workspace); err != nil {
			return fmt.Errorf("failed to update workspace: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	publish(ctx, s.publisher, s.logger, events.New(events.WorkspaceUpdated, events.WorkspacePayload{Workspace: *workspace, ActorID: actorID}))
	return nil
}

// JoinWorkspace adds the user as a member of a discoverable workspace whose
// domains include one of the user's verified emails.
func (s *WorkspaceService) JoinWorkspace(ctx context.Context, userID, workspaceID uint64) (*models.Workspace, error) {
	var (
		workspace *models.Workspace
		evts      []events.Event
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		workspace, err = lockWorkspace(ctx, tx, workspaceID)
		if err != nil {
			return err
		}

		if _, err := tx.Roles.GetForUpdate(ctx, workspaceID, userID); err == nil {
			return ErrAlreadyWorkspaceMember
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to verify membership: %w", err)
		}

		if !workspace.DiscoverabilityEnabled {
			return ErrWorkspaceJoinNotAllowed
		}
		ok, err := hasVerifiedDomainEmail(ctx, tx, workspaceID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWorkspaceJoinNotAllowed
		}

		_, evts, err = s.applyRole(ctx, tx, UpdateRoleInput{
			WorkspaceID:     workspaceID,
			UserID:          userID,
			Role:            models.RoleWorkspaceMember,
			ActorID:         userID,
			SkipDomainCheck: true,
			OnlyRaise:       true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	evts = append(evts, events.New(events.WorkspaceJoined, events.WorkspaceRolePayload{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        models.RoleWorkspaceMember,
	}))
	publish(ctx, s.publisher, s.logger, evts...)
	return workspace, nil
}

// GetWorkspace returns a workspace.
func (s *WorkspaceService) GetWorkspace(ctx context.Context, workspaceID uint64) (*models.Workspace, error) {
	return findWorkspace(ctx, s.store, workspaceID)
}

// WorkspacesForUser returns the user's memberships with their workspaces.
func (s *WorkspaceService) WorkspacesForUser(ctx context.Context, userID uint64) ([]models.WorkspaceRole, error) {
	roles, err := s.store.Roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return roles, nil
}

// DiscoverableWorkspacesForUser lists workspaces the user could join.
func (s *WorkspaceService) DiscoverableWorkspacesForUser(ctx context.Context, userID uint64) ([]models.Workspace, error) {
	emails, err := s.store.Emails.ListVerifiedByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user emails: %w", err)
	}
	domains := lo.Uniq(lo.Map(emails, func(e models.UserEmail, _ int) string {
		return utils.EmailDomain(e.Email)
	}))

	workspaces, err := s.store.Workspaces.ListDiscoverableByDomains(ctx, domains)
	if err != nil {
		return nil, fmt.Errorf("failed to list discoverable workspaces: %w", err)
	}

	memberships, err := s.store.Roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	joined := lo.SliceToMap(memberships, func(r models.WorkspaceRole) (uint64, struct{}) {
		return r.WorkspaceID, struct{}{}
	})

	return lo.Filter(workspaces, func(w models.Workspace, _ int) bool {
		_, ok := joined[w.ID]
		return !ok
	}), nil
}

// Collaborators lists a workspace's members.
func (s *WorkspaceService) Collaborators(ctx context.Context, workspaceID uint64, filter repository.RoleFilter) ([]models.WorkspaceRole, int64, error) {
	if _, err := findWorkspace(ctx, s.store, workspaceID); err != nil {
		return nil, 0, err
	}

	for _, role := range filter.Roles {
		if !role.IsRoleFor(models.ResourceWorkspace) {
			return nil, 0, ErrInvalidWorkspaceRole
		}
	}

	roles, total, err := s.store.Roles.ListByWorkspace(ctx, workspaceID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list workspace collaborators: %w", err)
	}
	return roles, total, nil
}

// Domains lists a workspace's domains.
func (s *WorkspaceService) Domains(ctx context.Context, workspaceID uint64) ([]models.WorkspaceDomain, error) {
	domains, err := s.store.Domains.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace domains: %w", err)
	}
	return domains, nil
}

// AdminWorkspaceList is reserved for server admins and not available yet.
func (s *WorkspaceService) AdminWorkspaceList(ctx context.Context) ([]models.Workspace, error) {
	return nil, ErrAdminWorkspaceListUnavailable
}

func findWorkspace(ctx context.Context, store *repository.Store, workspaceID uint64) (*models.Workspace, error) {
	workspace, err := store.Workspaces.FindByID(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}
	return workspace, nil
}

// lockWorkspace loads the workspace and holds its row lock until tx ends.
// Every membership change takes this lock first.
func lockWorkspace(ctx context.Context, tx *repository.Store, workspaceID uint64) (*models.Workspace, error) {
	workspace, err := tx.Workspaces.FindByIDForUpdate(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to lock workspace: %w", err)
	}
	return workspace, nil
}

func ensureAnotherAdmin(ctx context.Context, tx *repository.Store, workspaceID uint64) error {
	admins, err := tx.Roles.ListByRoleForUpdate(ctx, workspaceID, models.RoleWorkspaceAdmin)
	if err != nil {
		return fmt.Errorf("failed to lock workspace admins: %w", err)
	}
	if len(admins) <= 1 {
		return ErrWorkspaceAdminRequired
	}
	return nil
}

// hasVerifiedDomainEmail reports whether the user owns a verified email at
// one of the workspace's domains.
func hasVerifiedDomainEmail(ctx context.Context, store *repository.Store, workspaceID, userID uint64) (bool, error) {
	emails, err := store.Emails.ListVerifiedByUserID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to list user emails: %w", err)
	}
	return emailsMatchWorkspaceDomains(ctx, store, workspaceID, lo.Map(emails, func(e models.UserEmail, _ int) string {
		return e.Email
	}))
}

func emailsMatchWorkspaceDomains(ctx context.Context, store *repository.Store, workspaceID uint64, emails []string) (bool, error) {
	domains, err := store.Domains.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return false, fmt.Errorf("failed to list workspace domains: %w", err)
	}
	allowed := lo.Map(domains, func(d models.WorkspaceDomain, _ int) string { return d.Domain })

	return lo.ContainsBy(emails, func(email string) bool {
		return lo.Contains(allowed, utils.EmailDomain(email))
	}), nil
}
