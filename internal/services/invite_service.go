package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/yukikurage/workspace-api/internal/constants"
	"github.com/yukikurage/workspace-api/internal/events"
	"github.com/yukikurage/workspace-api/internal/mailer"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EmailQueue accepts messages for asynchronous delivery. Enqueue reports
// false when the message was not accepted.
type EmailQueue interface {
	Enqueue(msg mailer.Message) bool
}

// InviteConfig holds invite policy settings.
type InviteConfig struct {
	// TTL is how long an invite stays valid after it was created or resent. Zero disables expiry.
	TTL time.Duration
	// ResendCooldown is the minimum time between resends. Zero disables the check.
	ResendCooldown time.Duration
	AppOrigin      string
	DefaultLocale  string
	ServerName     string
}

// InviteService drives the invite lifecycle for every resource type.
type InviteService struct {
	store      *repository.Store
	authorizer Authorizer
	resources  map[models.ResourceType]InviteResource
	emails     EmailQueue
	publisher  events.Publisher
	logger     *zap.Logger
	cfg        InviteConfig
	now        func() time.Time
}

// NewInviteService creates a new InviteService with the workspace, project
// and server invite resources.
func NewInviteService(
	store *repository.Store,
	authorizer Authorizer,
	workspaces *WorkspaceService,
	perms ProjectPermissions,
	emails EmailQueue,
	publisher events.Publisher,
	logger *zap.Logger,
	cfg InviteConfig,
) *InviteService {
	contents := inviteContents{store: store, cfg: cfg}

	return &InviteService{
		store:      store,
		authorizer: authorizer,
		resources: map[models.ResourceType]InviteResource{
			models.ResourceWorkspace: &workspaceInvites{inviteContents: contents, store: store, authorizer: authorizer, workspaces: workspaces},
			models.ResourceProject:   &projectInvites{inviteContents: contents, store: store, authorizer: authorizer, workspaces: workspaces, perms: perms},
			models.ResourceServer:    &serverInvites{inviteContents: contents, store: store, authorizer: authorizer},
		},
		emails:    emails,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// InviteTarget names who to invite and at which role.
type InviteTarget struct {
	UserID         uint64
	Email          string
	Role           models.Role
	SecondaryRoles models.SecondaryRoles
	Message        *string
}

// CreateInviteInput represents parameters to create one invite.
type CreateInviteInput struct {
	ResourceType models.ResourceType
	ResourceID   uint64
	InviterID    uint64
	Rules        *AccessRules
	Target       InviteTarget
}

// CreateInviteResult reports a created invite. EmailQueued is false when the
// invite exists but its email could not be queued.
type CreateInviteResult struct {
	Invite      *models.ResourceInvite
	EmailQueued bool
}

// Create validates and stores an invite, replacing any pending invite for
// the same resource and target, and queues its email.
func (s *InviteService) Create(ctx context.Context, input CreateInviteInput) (*CreateInviteResult, error) {
	resource, err := s.resource(input.ResourceType)
	if err != nil {
		return nil, err
	}

	target := input.Target
	if target.Role == "" {
		target.Role = resource.DefaultRole()
	}
	if err := validateInviteRoles(input.ResourceType, target); err != nil {
		return nil, err
	}

	ref := ResourceRef{Type: input.ResourceType, ID: input.ResourceID}
	if err := resource.AuthorizeManager(ctx, input.InviterID, ref, input.Rules); err != nil {
		return nil, err
	}

	return s.create(ctx, resource, input, target)
}

func (s *InviteService) create(ctx context.Context, resource InviteResource, input CreateInviteInput, target InviteTarget) (*CreateInviteResult, error) {
	recipient, err := s.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	if recipient.user != nil && recipient.user.ID == input.InviterID {
		return nil, ErrInviteSelf
	}

	invite := &models.ResourceInvite{
		ResourceType: input.ResourceType,
		ResourceID:   input.ResourceID,
		Target:       recipient.target(),
		InviterID:    input.InviterID,
		Role:         target.Role,
		Message:      target.Message,
	}
	if len(target.SecondaryRoles) > 0 {
		invite.SecondaryRoles = datatypes.NewJSONType(target.SecondaryRoles)
	}

	if err := resource.ValidateCreate(ctx, invite, recipient); err != nil {
		return nil, err
	}

	token, err := utils.GenerateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite token: %w", err)
	}
	invite.Token = token

	msg, err := resource.Build(ctx, *invite)
	if err != nil {
		return nil, fmt.Errorf("failed to build invite email: %w", err)
	}

	if err := s.store.Invites.InsertInviteAndDeleteOld(ctx, invite); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrInviteConflict
		}
		return nil, fmt.Errorf("failed to save invite: %w", err)
	}

	publish(ctx, s.publisher, s.logger, events.New(events.InviteCreated, events.InvitePayload{Invite: *invite, ActorID: input.InviterID}))

	return &CreateInviteResult{
		Invite:      invite,
		EmailQueued: s.queueEmail(invite, msg),
	}, nil
}

// BatchCreateInput represents parameters to invite several targets to one resource.
type BatchCreateInput struct {
	ResourceType models.ResourceType
	ResourceID   uint64
	InviterID    uint64
	Rules        *AccessRules
	Targets      []InviteTarget
}

// BatchCreate creates invites in chunks. Every target is validated before
// anything is stored. Invites of a chunk are created concurrently; the first
// failure cancels the chunk's unfinished siblings and no later chunk starts.
// Invites committed before the failure are kept and returned with the error.
func (s *InviteService) BatchCreate(ctx context.Context, input BatchCreateInput) ([]CreateInviteResult, error) {
	resource, err := s.resource(input.ResourceType)
	if err != nil {
		return nil, err
	}

	if len(input.Targets) > constants.MaxInviteBatchSize {
		admin, err := s.isServerAdmin(ctx, input.InviterID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, ErrInviteBatchTooLarge
		}
	}

	targets := make([]InviteTarget, len(input.Targets))
	for i, target := range input.Targets {
		if target.Role == "" {
			target.Role = resource.DefaultRole()
		}
		if err := validateInviteRoles(input.ResourceType, target); err != nil {
			return nil, err
		}
		targets[i] = target
	}

	ref := ResourceRef{Type: input.ResourceType, ID: input.ResourceID}
	if err := resource.AuthorizeManager(ctx, input.InviterID, ref, input.Rules); err != nil {
		return nil, err
	}

	results := make([]CreateInviteResult, 0, len(targets))
	for _, chunk := range lo.Chunk(targets, constants.MaxInviteBatchSize) {
		chunkResults := make([]*CreateInviteResult, len(chunk))

		g, gctx := errgroup.WithContext(ctx)
		for i, target := range chunk {
			i, target := i, target
			g.Go(func() error {
				result, err := s.create(gctx, resource, CreateInviteInput{
					ResourceType: input.ResourceType,
					ResourceID:   input.ResourceID,
					InviterID:    input.InviterID,
					Rules:        input.Rules,
					Target:       target,
				}, target)
				if err != nil {
					return err
				}
				chunkResults[i] = result
				return nil
			})
		}
		err := g.Wait()

		for _, result := range chunkResults {
			if result != nil {
				results = append(results, *result)
			}
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// ResendInviteInput identifies an invite to send again.
type ResendInviteInput struct {
	InviteID     uint64
	ResourceType models.ResourceType
	ResourceID   uint64
	ActorID      uint64
	Rules        *AccessRules
}

// Resend queues the invite email again and restarts the invite's validity window.
func (s *InviteService) Resend(ctx context.Context, input ResendInviteInput) (bool, error) {
	resource, err := s.resource(input.ResourceType)
	if err != nil {
		return false, err
	}

	ref := ResourceRef{Type: input.ResourceType, ID: input.ResourceID}
	if err := resource.AuthorizeManager(ctx, input.ActorID, ref, input.Rules); err != nil {
		return false, err
	}

	invite, err := s.findInvite(ctx, repository.InviteFilter{
		ID:           input.InviteID,
		ResourceType: input.ResourceType,
		ResourceID:   &input.ResourceID,
	})
	if err != nil {
		return false, err
	}

	if s.cfg.ResendCooldown > 0 && s.now().Sub(invite.UpdatedAt) < s.cfg.ResendCooldown {
		return false, ErrInviteResendTooSoon
	}

	msg, err := resource.Build(ctx, *invite)
	if err != nil {
		return false, fmt.Errorf("failed to build invite email: %w", err)
	}

	if err := s.store.Invites.MarkInviteUpdated(ctx, invite.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrInviteNotFound
		}
		return false, fmt.Errorf("failed to update invite: %w", err)
	}

	publish(ctx, s.publisher, s.logger, events.New(events.InviteResent, events.InvitePayload{Invite: *invite, ActorID: input.ActorID}))
	return s.queueEmail(invite, msg), nil
}

// CancelInviteInput identifies an invite to withdraw.
type CancelInviteInput struct {
	InviteID     uint64
	ResourceType models.ResourceType
	ResourceID   uint64
	ActorID      uint64
	Rules        *AccessRules
}

// Cancel withdraws a pending invite. Only resource managers may cancel.
func (s *InviteService) Cancel(ctx context.Context, input CancelInviteInput) error {
	resource, err := s.resource(input.ResourceType)
	if err != nil {
		return err
	}

	ref := ResourceRef{Type: input.ResourceType, ID: input.ResourceID}
	if err := resource.AuthorizeManager(ctx, input.ActorID, ref, input.Rules); err != nil {
		return err
	}

	invite, err := s.findInvite(ctx, repository.InviteFilter{
		ID:           input.InviteID,
		ResourceType: input.ResourceType,
		ResourceID:   &input.ResourceID,
	})
	if err != nil {
		return err
	}

	deleted, err := s.store.Invites.DeleteInvite(ctx, invite.ID)
	if err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	if !deleted {
		return ErrInviteNotFound
	}

	publish(ctx, s.publisher, s.logger, events.New(events.InviteCanceled, events.InvitePayload{Invite: *invite, ActorID: input.ActorID}))
	return nil
}

// FinalizeInviteInput accepts or declines an invite.
type FinalizeInviteInput struct {
	Token        string
	UserID       uint64
	Accept       bool
	ResourceType models.ResourceType
	// AllowAttachingNewEmail lets an invite addressed to an unregistered email
	// be accepted by attaching that email to the user.
	AllowAttachingNewEmail bool
	Rules                  *AccessRules
}

// Finalize consumes an invite. Accepting claims the invite, applies the
// resource's role and reconciles the invited email in one transaction, so a
// second finalize of the same token fails with ErrInviteNotFound.
func (s *InviteService) Finalize(ctx context.Context, input FinalizeInviteInput) error {
	resource, err := s.resource(input.ResourceType)
	if err != nil {
		return err
	}

	invite, err := s.findInvite(ctx, repository.InviteFilter{
		Token:        input.Token,
		ResourceType: input.ResourceType,
	})
	if err != nil {
		return err
	}

	if !input.Rules.Allows(ResourceRef{Type: invite.ResourceType, ID: invite.ResourceID}) {
		return ErrResourceAccessDenied
	}

	claim, err := s.matchFinalizer(ctx, invite, input)
	if err != nil {
		return err
	}

	if !input.Accept {
		deleted, err := s.store.Invites.DeleteInvite(ctx, invite.ID)
		if err != nil {
			return fmt.Errorf("failed to delete invite: %w", err)
		}
		if !deleted {
			return ErrInviteNotFound
		}
		publish(ctx, s.publisher, s.logger, events.New(events.InviteDeclined, events.InvitePayload{Invite: *invite, ActorID: input.UserID}))
		return nil
	}

	var evts []events.Event
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		deleted, err := tx.Invites.DeleteInvite(ctx, invite.ID)
		if err != nil {
			return fmt.Errorf("failed to claim invite: %w", err)
		}
		if !deleted {
			return ErrInviteNotFound
		}

		if err := claim.apply(ctx, tx, input.UserID); err != nil {
			return err
		}

		evts, err = resource.Process(ctx, tx, *invite, input.UserID)
		return err
	})
	if err != nil {
		return err
	}

	evts = append(evts, events.New(events.InviteAccepted, events.InvitePayload{Invite: *invite, ActorID: input.UserID}))
	publish(ctx, s.publisher, s.logger, evts...)
	return nil
}

// emailClaim is what accepting an email-addressed invite does to the finalizer's emails.
type emailClaim struct {
	email    string
	verifyID uint64
	attach   bool
}

func (c emailClaim) apply(ctx context.Context, tx *repository.Store, userID uint64) error {
	if c.email == "" {
		return nil
	}

	switch {
	case c.attach:
		record := &models.UserEmail{UserID: userID, Email: c.email, Verified: true}
		if err := tx.Emails.Create(ctx, record); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to attach email: %w", err)
		}
	case c.verifyID != 0:
		if err := tx.Emails.MarkVerified(ctx, c.verifyID); err != nil {
			return fmt.Errorf("failed to verify email: %w", err)
		}
	}

	if err := tx.Invites.UpdateAllInviteTargets(ctx, c.email, userID); err != nil {
		return fmt.Errorf("failed to update invite targets: %w", err)
	}
	return nil
}

// matchFinalizer checks that the invite is addressed to the user. A user id
// target must match exactly. An email target must belong to the user or, when
// allowed, be unclaimed.
func (s *InviteService) matchFinalizer(ctx context.Context, invite *models.ResourceInvite, input FinalizeInviteInput) (emailClaim, error) {
	if userID, ok := invite.TargetUserID(); ok {
		if userID != input.UserID {
			return emailClaim{}, ErrInviteNotForUser
		}
		return emailClaim{}, nil
	}

	email, ok := invite.TargetEmail()
	if !ok {
		return emailClaim{}, ErrInviteNotForUser
	}

	record, err := s.store.Emails.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if record.UserID != input.UserID {
			return emailClaim{}, ErrInviteNotForUser
		}
		claim := emailClaim{email: email}
		if !record.Verified {
			claim.verifyID = record.ID
		}
		return claim, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if !input.AllowAttachingNewEmail {
			return emailClaim{}, ErrInviteNotForUser
		}
		return emailClaim{email: email, attach: true}, nil
	default:
		return emailClaim{}, fmt.Errorf("failed to find email: %w", err)
	}
}

// FinalizeInvitedServerRegistration drops the server invites of a newly
// registered email and readdresses its remaining invites to the user.
func (s *InviteService) FinalizeInvitedServerRegistration(ctx context.Context, email string, userID uint64) error {
	target := models.EmailTarget(email)
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Invites.DeleteServerOnlyInvites(ctx, target); err != nil {
			return fmt.Errorf("failed to delete server invites: %w", err)
		}
		if err := tx.Invites.UpdateAllInviteTargets(ctx, target, userID); err != nil {
			return fmt.Errorf("failed to update invite targets: %w", err)
		}
		return nil
	})
}

// FindRegistrationInvite returns a valid invite addressed to email.
func (s *InviteService) FindRegistrationInvite(ctx context.Context, token, email string) (*models.ResourceInvite, error) {
	invite, err := s.findInvite(ctx, repository.InviteFilter{Token: token})
	if err != nil {
		return nil, err
	}
	if invite.Target != models.EmailTarget(email) {
		return nil, ErrInviteNotForUser
	}
	return invite, nil
}

// PurgeExpired deletes invites whose validity window has passed.
func (s *InviteService) PurgeExpired(ctx context.Context) (int64, error) {
	if s.cfg.TTL <= 0 {
		return 0, nil
	}
	purged, err := s.store.Invites.DeleteExpiredInvites(ctx, s.now().Add(-s.cfg.TTL))
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired invites: %w", err)
	}
	return purged, nil
}

func (s *InviteService) resource(t models.ResourceType) (InviteResource, error) {
	resource, ok := s.resources[t]
	if !ok {
		return nil, ErrInvalidInviteResource
	}
	return resource, nil
}

func (s *InviteService) validSince() time.Time {
	if s.cfg.TTL <= 0 {
		return time.Time{}
	}
	return s.now().Add(-s.cfg.TTL)
}

func (s *InviteService) findInvite(ctx context.Context, filter repository.InviteFilter) (*models.ResourceInvite, error) {
	filter.ValidSince = s.validSince()
	invite, err := s.store.Invites.FindInvite(ctx, filter)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to find invite: %w", err)
	}
	return invite, nil
}

func (s *InviteService) isServerAdmin(ctx context.Context, userID uint64) (bool, error) {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("failed to find user: %w", err)
	}
	return user.ServerRole == models.RoleServerAdmin, nil
}

// queueEmail hands the message to the mail workers. A full or stopped queue
// is logged and reported as false; the invite stays valid.
func (s *InviteService) queueEmail(invite *models.ResourceInvite, msg mailer.Message) bool {
	if msg.To == "" {
		s.logger.Warn("invite has no email recipient", zap.Uint64("invite_id", invite.ID))
		return false
	}
	if !s.emails.Enqueue(msg) {
		s.logger.Warn("failed to queue invite email",
			zap.Uint64("invite_id", invite.ID),
			zap.String("resource_type", string(invite.ResourceType)),
		)
		return false
	}
	return true
}

// inviteRecipient is a resolved invite target.
type inviteRecipient struct {
	user  *models.User
	email string
}

func (r inviteRecipient) target() string {
	if r.user != nil {
		return models.UserTarget(r.user.ID)
	}
	return models.EmailTarget(r.email)
}

// resolveTarget turns a user id or email into a recipient. An email that a
// user verified resolves to that user.
func (s *InviteService) resolveTarget(ctx context.Context, target InviteTarget) (inviteRecipient, error) {
	hasEmail := target.Email != ""
	if (target.UserID != 0) == hasEmail {
		return inviteRecipient{}, ErrInvalidInviteTarget
	}

	userID := target.UserID
	if hasEmail {
		email := utils.NormalizeEmail(target.Email)
		if err := validate.Var(email, "required,email"); err != nil {
			return inviteRecipient{}, ErrInvalidInviteEmail
		}

		record, err := s.store.Emails.FindByEmail(ctx, email)
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !record.Verified) {
			return inviteRecipient{email: email}, nil
		}
		if err != nil {
			return inviteRecipient{}, fmt.Errorf("failed to find email: %w", err)
		}
		userID = record.UserID
	}

	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inviteRecipient{}, ErrInviteTargetNotFound
		}
		return inviteRecipient{}, fmt.Errorf("failed to find user: %w", err)
	}
	return inviteRecipient{user: user, email: utils.NormalizeEmail(target.Email)}, nil
}

func validateInviteRoles(resourceType models.ResourceType, target InviteTarget) error {
	if !target.Role.IsRoleFor(resourceType) {
		return ErrInvalidInviteRole
	}
	for t, role := range target.SecondaryRoles {
		if t == resourceType || !role.IsRoleFor(t) {
			return ErrInvalidInviteRole
		}
	}
	return nil
}
