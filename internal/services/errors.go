package services

import (
	apierrors "github.com/yukikurage/workspace-api/internal/errors"
)

var (
	ErrUserNotFound      = apierrors.New(apierrors.ErrNotFound, "user not found")
	ErrWorkspaceNotFound = apierrors.New(apierrors.ErrNotFound, "workspace not found")
	ErrProjectNotFound   = apierrors.New(apierrors.ErrNotFound, "project not found")
	ErrInviteNotFound    = apierrors.New(apierrors.ErrNotFound, "invite not found")

	ErrWorkspaceRoleNotFound   = apierrors.New(apierrors.ErrNotFound, "user is not a member of this workspace")
	ErrWorkspaceDomainNotFound = apierrors.New(apierrors.ErrNotFound, "workspace domain not found")

	ErrInvalidWorkspaceName  = apierrors.New(apierrors.ErrValidation, "workspace name cannot be empty")
	ErrInvalidProjectName    = apierrors.New(apierrors.ErrValidation, "project name cannot be empty")
	ErrInvalidWorkspaceRole  = apierrors.New(apierrors.ErrValidation, "invalid workspace role")
	ErrWorkspaceInvalidState = apierrors.New(apierrors.ErrValidation, "workspace must have a verified domain first")
	ErrWorkspaceDomainNeeded = apierrors.New(apierrors.ErrValidation, "user has no verified email at a workspace domain")
	ErrInvalidDomain         = apierrors.New(apierrors.ErrValidation, "invalid domain")
	ErrDomainBlocked         = apierrors.New(apierrors.ErrValidation, "public email domains cannot be added to a workspace")
	ErrDomainNotVerified     = apierrors.New(apierrors.ErrValidation, "a verified email at this domain is required")

	ErrInvalidInviteResource  = apierrors.New(apierrors.ErrValidation, "unsupported invite resource")
	ErrInvalidInviteRole      = apierrors.New(apierrors.ErrValidation, "invalid role for this invite")
	ErrInvalidInviteTarget    = apierrors.New(apierrors.ErrValidation, "invite needs exactly one of user id or email")
	ErrInvalidInviteEmail     = apierrors.New(apierrors.ErrValidation, "invalid invite email")
	ErrInviteTargetNotFound   = apierrors.New(apierrors.ErrValidation, "invited user does not exist")
	ErrInviteSelf             = apierrors.New(apierrors.ErrValidation, "you cannot invite yourself")
	ErrInviteAlreadyMember    = apierrors.New(apierrors.ErrValidation, "the invited user already has access to this resource")
	ErrInviteDomainNotAllowed = apierrors.New(apierrors.ErrValidation, "the invited email is not on a verified workspace domain")
	ErrInviteBatchTooLarge    = apierrors.New(apierrors.ErrValidation, "too many invites in one batch")
	ErrInviteResendTooSoon    = apierrors.New(apierrors.ErrValidation, "invite was sent too recently")

	ErrWorkspaceCreateForbidden = apierrors.New(apierrors.ErrAuthorization, "this token cannot create workspaces")
	ErrWorkspaceJoinNotAllowed  = apierrors.New(apierrors.ErrAuthorization, "you cannot join this workspace")
	ErrInviteNotForUser         = apierrors.New(apierrors.ErrAuthorization, "this invite is addressed to someone else")
	ErrResourceAccessDenied     = apierrors.New(apierrors.ErrAuthorization, "you do not have access to this resource")
	ErrSignupRequiresInvite     = apierrors.New(apierrors.ErrAuthorization, "registration requires an invite")
	ErrInviteRoleAboveInviter   = apierrors.New(apierrors.ErrAuthorization, "you cannot grant a workspace role above your own")

	ErrWorkspaceAdminRequired = apierrors.New(apierrors.ErrConflict, "workspace must keep at least one admin")
	ErrAlreadyWorkspaceMember = apierrors.New(apierrors.ErrConflict, "user is already a member of this workspace")
	ErrDomainAlreadyAdded     = apierrors.New(apierrors.ErrConflict, "domain already added to this workspace")
	ErrInviteConflict         = apierrors.New(apierrors.ErrConflict, "a pending invite was created concurrently")
	ErrEmailTaken             = apierrors.New(apierrors.ErrConflict, "email already in use")

	ErrAdminWorkspaceListUnavailable = apierrors.New(apierrors.ErrNotYetImplemented, "admin workspace listing is not available yet")
)
