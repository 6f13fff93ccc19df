package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/yukikurage/workspace-api/internal/events"
	"github.com/yukikurage/workspace-api/internal/mailer"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"gorm.io/gorm"
)

// InviteResource holds the rules for invites to one resource type.
type InviteResource interface {
	mailer.ContentBuilder

	// DefaultRole is used when an invite names no role.
	DefaultRole() models.Role

	// AuthorizeManager checks that the user may create, resend or cancel
	// invites to the resource.
	AuthorizeManager(ctx context.Context, userID uint64, ref ResourceRef, rules *AccessRules) error

	// ValidateCreate applies resource rules to a new invite.
	ValidateCreate(ctx context.Context, invite *models.ResourceInvite, recipient inviteRecipient) error

	// Process grants what an accepted invite offers. It runs inside tx and
	// returns events to publish after commit.
	Process(ctx context.Context, tx *repository.Store, invite models.ResourceInvite, userID uint64) ([]events.Event, error)
}

// inviteContents builds the parts of invite emails shared by all resources.
type inviteContents struct {
	store *repository.Store
	cfg   InviteConfig
}

func (c inviteContents) render(ctx context.Context, invite models.ResourceInvite, resourceName, path string) (mailer.Message, error) {
	email := mailer.InviteEmail{
		Locale:       c.cfg.DefaultLocale,
		ResourceType: invite.ResourceType,
		ResourceName: resourceName,
		Role:         invite.Role,
		Note:         invite.Message,
		Link:         strings.TrimSuffix(c.cfg.AppOrigin, "/") + path + "?token=" + invite.Token,
	}

	inviter, err := c.store.Users.FindByID(ctx, invite.InviterID)
	if err != nil {
		return mailer.Message{}, fmt.Errorf("failed to find inviter: %w", err)
	}
	email.InviterName = inviter.Name

	if userID, ok := invite.TargetUserID(); ok {
		user, err := c.store.Users.FindByID(ctx, userID)
		if err != nil {
			return mailer.Message{}, fmt.Errorf("failed to find invited user: %w", err)
		}
		email.RecipientName = user.Name
		email.Locale = user.Locale

		emails, err := c.store.Emails.ListByUserID(ctx, userID)
		if err != nil {
			return mailer.Message{}, fmt.Errorf("failed to list invited user emails: %w", err)
		}
		if primary, ok := lo.Find(emails, func(e models.UserEmail) bool { return e.Primary }); ok {
			email.To = primary.Email
		} else if len(emails) > 0 {
			email.To = emails[0].Email
		}
	} else if address, ok := invite.TargetEmail(); ok {
		email.To = address
	}

	return email.Render()
}

type workspaceInvites struct {
	inviteContents
	store      *repository.Store
	authorizer Authorizer
	workspaces *WorkspaceService
}

func (r *workspaceInvites) DefaultRole() models.Role {
	return models.RoleWorkspaceMember
}

func (r *workspaceInvites) AuthorizeManager(ctx context.Context, userID uint64, ref ResourceRef, rules *AccessRules) error {
	if _, err := findWorkspace(ctx, r.store, ref.ID); err != nil {
		return err
	}
	return r.authorizer.Authorize(ctx, userID, ref, models.RoleWorkspaceAdmin, rules)
}

func (r *workspaceInvites) ValidateCreate(ctx context.Context, invite *models.ResourceInvite, recipient inviteRecipient) error {
	if recipient.user != nil {
		if _, err := r.store.Roles.Get(ctx, invite.ResourceID, recipient.user.ID); err == nil {
			return ErrInviteAlreadyMember
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to verify membership: %w", err)
		}
	}
	return checkInviteDomain(ctx, r.store, invite.ResourceID, invite.InviterID, invite.Role, recipient)
}

func (r *workspaceInvites) Process(ctx context.Context, tx *repository.Store, invite models.ResourceInvite, userID uint64) ([]events.Event, error) {
	_, evts, err := r.workspaces.applyRole(ctx, tx, UpdateRoleInput{
		WorkspaceID:     invite.ResourceID,
		UserID:          userID,
		Role:            invite.Role,
		ActorID:         invite.InviterID,
		SkipDomainCheck: true,
		OnlyRaise:       true,
	})
	return evts, err
}

func (r *workspaceInvites) Build(ctx context.Context, invite models.ResourceInvite) (mailer.Message, error) {
	workspace, err := findWorkspace(ctx, r.store, invite.ResourceID)
	if err != nil {
		return mailer.Message{}, err
	}
	return r.render(ctx, invite, workspace.Name, fmt.Sprintf("/workspaces/%d/invite", workspace.ID))
}

type projectInvites struct {
	inviteContents
	store      *repository.Store
	authorizer Authorizer
	workspaces *WorkspaceService
	perms      ProjectPermissions
}

func (r *projectInvites) DefaultRole() models.Role {
	return models.RoleStreamContributor
}

func (r *projectInvites) AuthorizeManager(ctx context.Context, userID uint64, ref ResourceRef, rules *AccessRules) error {
	if _, err := findProject(ctx, r.store, ref.ID); err != nil {
		return err
	}
	return r.authorizer.Authorize(ctx, userID, ref, models.RoleStreamOwner, rules)
}

func (r *projectInvites) ValidateCreate(ctx context.Context, invite *models.ResourceInvite, recipient inviteRecipient) error {
	project, err := findProject(ctx, r.store, invite.ResourceID)
	if err != nil {
		return err
	}

	if recipient.user != nil {
		if _, err := r.store.Projects.GetRole(ctx, project.ID, recipient.user.ID); err == nil {
			return ErrInviteAlreadyMember
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to verify project role: %w", err)
		}
	}

	workspaceRole, ok := invite.SecondaryRole(models.ResourceWorkspace)
	if !ok {
		return nil
	}
	if project.WorkspaceID == nil {
		return ErrInvalidInviteRole
	}
	if err := checkInviterWorkspaceRole(ctx, r.store, *project.WorkspaceID, invite.InviterID, workspaceRole); err != nil {
		return err
	}
	return checkInviteDomain(ctx, r.store, *project.WorkspaceID, invite.InviterID, workspaceRole, recipient)
}

// Process gives the user the invite's workspace role when it raises their
// current one, or guest access to the project's workspace when they have
// none, then grants the project role.
func (r *projectInvites) Process(ctx context.Context, tx *repository.Store, invite models.ResourceInvite, userID uint64) ([]events.Event, error) {
	project, err := findProject(ctx, tx, invite.ResourceID)
	if err != nil {
		return nil, err
	}

	var evts []events.Event
	if project.WorkspaceID != nil {
		current, err := tx.Roles.Get(ctx, *project.WorkspaceID, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find workspace role: %w", err)
		}

		role, hasSecondary := invite.SecondaryRole(models.ResourceWorkspace)
		switch {
		case hasSecondary && (current == nil || role.Weight() > current.Role.Weight()):
		case current == nil:
			role = models.RoleWorkspaceGuest
		default:
			role = ""
		}

		if role != "" {
			_, evts, err = r.workspaces.applyRole(ctx, tx, UpdateRoleInput{
				WorkspaceID:     *project.WorkspaceID,
				UserID:          userID,
				Role:            role,
				ActorID:         invite.InviterID,
				SkipDomainCheck: true,
				OnlyRaise:       true,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	if err := r.perms.Grant(ctx, tx, project.ID, userID, invite.Role); err != nil {
		return nil, err
	}
	return evts, nil
}

func (r *projectInvites) Build(ctx context.Context, invite models.ResourceInvite) (mailer.Message, error) {
	project, err := findProject(ctx, r.store, invite.ResourceID)
	if err != nil {
		return mailer.Message{}, err
	}
	return r.render(ctx, invite, project.Name, fmt.Sprintf("/projects/%d", project.ID))
}

type serverInvites struct {
	inviteContents
	store      *repository.Store
	authorizer Authorizer
}

func (r *serverInvites) DefaultRole() models.Role {
	return models.RoleServerUser
}

func (r *serverInvites) AuthorizeManager(ctx context.Context, userID uint64, ref ResourceRef, rules *AccessRules) error {
	return r.authorizer.Authorize(ctx, userID, ResourceRef{Type: models.ResourceServer}, models.RoleServerAdmin, rules)
}

func (r *serverInvites) ValidateCreate(ctx context.Context, invite *models.ResourceInvite, recipient inviteRecipient) error {
	if recipient.user != nil {
		return ErrInviteAlreadyMember
	}
	return nil
}

// Process has nothing to grant: registration already made the user a server member.
func (r *serverInvites) Process(ctx context.Context, tx *repository.Store, invite models.ResourceInvite, userID uint64) ([]events.Event, error) {
	return nil, nil
}

func (r *serverInvites) Build(ctx context.Context, invite models.ResourceInvite) (mailer.Message, error) {
	return r.render(ctx, invite, r.cfg.ServerName, "/register")
}

// checkInviterWorkspaceRole caps the workspace role a project invite can
// carry at the inviter's own workspace role. Guest access needs no check
// since accepting a project invite grants it anyway.
func checkInviterWorkspaceRole(ctx context.Context, store *repository.Store, workspaceID, inviterID uint64, role models.Role) error {
	if role == models.RoleWorkspaceGuest {
		return nil
	}

	inviterRole, err := store.Roles.Get(ctx, workspaceID, inviterID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInviteRoleAboveInviter
	}
	if err != nil {
		return fmt.Errorf("failed to find inviter role: %w", err)
	}
	if !inviterRole.Role.AtLeast(role) {
		return ErrInviteRoleAboveInviter
	}
	return nil
}

// checkInviteDomain rejects non-guest invites to a domain-protected workspace
// whose recipient has no email at a workspace domain, unless the inviter is
// a workspace admin.
func checkInviteDomain(ctx context.Context, store *repository.Store, workspaceID, inviterID uint64, role models.Role, recipient inviteRecipient) error {
	if role == models.RoleWorkspaceGuest {
		return nil
	}

	workspace, err := findWorkspace(ctx, store, workspaceID)
	if err != nil {
		return err
	}
	if !workspace.DomainBasedMembershipProtectionEnabled {
		return nil
	}

	inviterRole, err := store.Roles.Get(ctx, workspaceID, inviterID)
	if err == nil && inviterRole.Role == models.RoleWorkspaceAdmin {
		return nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to find inviter role: %w", err)
	}

	var ok bool
	if recipient.user != nil {
		ok, err = hasVerifiedDomainEmail(ctx, store, workspaceID, recipient.user.ID)
	} else {
		ok, err = emailsMatchWorkspaceDomains(ctx, store, workspaceID, []string{recipient.email})
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrInviteDomainNotAllowed
	}
	return nil
}
