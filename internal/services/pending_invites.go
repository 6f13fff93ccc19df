package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/utils"
)

// PendingWorkspaceCollaborator is a read view of a pending workspace invite.
type PendingWorkspaceCollaborator struct {
	InviteID      uint64       `json:"invite_id"`
	WorkspaceID   uint64       `json:"workspace_id"`
	WorkspaceName string       `json:"workspace_name"`
	Role          models.Role  `json:"role"`
	InviterID     uint64       `json:"inviter_id"`
	InviterName   string       `json:"inviter_name"`
	User          *models.User `json:"user,omitempty"`
	Email         string       `json:"email,omitempty"`
	// Token is only filled for the invited user or when looked up by token.
	Token     string    `json:"token,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PendingInviteQuery filters a workspace's pending invites.
type PendingInviteQuery struct {
	Search     string
	Pagination utils.PaginationParams
}

// PendingWorkspaceCollaborators lists a workspace's pending invites without tokens.
func (s *InviteService) PendingWorkspaceCollaborators(ctx context.Context, workspaceID uint64, query PendingInviteQuery) ([]PendingWorkspaceCollaborator, int64, error) {
	workspace, err := findWorkspace(ctx, s.store, workspaceID)
	if err != nil {
		return nil, 0, err
	}

	invites, total, err := s.store.Invites.QueryAllResourceInvites(ctx, models.ResourceWorkspace, workspaceID, repository.InviteQuery{
		Search:     query.Search,
		Pagination: query.Pagination,
		ValidSince: s.validSince(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list workspace invites: %w", err)
	}

	views, err := s.pendingViews(ctx, invites, map[uint64]models.Workspace{workspace.ID: *workspace}, 0)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// UserPendingWorkspaceInvites lists the workspace invites addressed to the
// user or to one of the user's verified emails.
func (s *InviteService) UserPendingWorkspaceInvites(ctx context.Context, userID uint64) ([]PendingWorkspaceCollaborator, error) {
	invites, err := s.userWorkspaceInvites(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.pendingViews(ctx, invites, nil, userID)
}

// UserPendingWorkspaceInvite returns one pending invite to the workspace. A
// token selects that exact invite; otherwise the user's own invite is used.
func (s *InviteService) UserPendingWorkspaceInvite(ctx context.Context, userID, workspaceID uint64, token string) (*PendingWorkspaceCollaborator, error) {
	var invite *models.ResourceInvite
	if token != "" {
		found, err := s.findInvite(ctx, repository.InviteFilter{
			Token:        token,
			ResourceType: models.ResourceWorkspace,
			ResourceID:   &workspaceID,
		})
		if err != nil {
			return nil, err
		}
		invite = found
	} else {
		invites, err := s.userWorkspaceInvites(ctx, userID)
		if err != nil {
			return nil, err
		}
		found, ok := lo.Find(invites, func(i models.ResourceInvite) bool { return i.ResourceID == workspaceID })
		if !ok {
			return nil, ErrInviteNotFound
		}
		invite = &found
	}

	views, err := s.pendingViews(ctx, []models.ResourceInvite{*invite}, nil, userID)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, ErrInviteNotFound
	}
	view := views[0]
	view.Token = invite.Token
	return &view, nil
}

func (s *InviteService) userWorkspaceInvites(ctx context.Context, userID uint64) ([]models.ResourceInvite, error) {
	emails, err := s.store.Emails.ListVerifiedByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user emails: %w", err)
	}

	invites, err := s.store.Invites.QueryAllUserResourceInvites(ctx, userID, repository.InviteQuery{
		ResourceType: models.ResourceWorkspace,
		ValidSince:   s.validSince(),
		Emails:       lo.Map(emails, func(e models.UserEmail, _ int) string { return e.Email }),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list user invites: %w", err)
	}
	return invites, nil
}

// pendingViews joins invites with their workspaces and users. Tokens are
// filled for invites the viewer may accept.
func (s *InviteService) pendingViews(ctx context.Context, invites []models.ResourceInvite, workspaces map[uint64]models.Workspace, viewerID uint64) ([]PendingWorkspaceCollaborator, error) {
	if workspaces == nil {
		workspaces = map[uint64]models.Workspace{}
	}
	for _, id := range lo.Uniq(lo.Map(invites, func(i models.ResourceInvite, _ int) uint64 { return i.ResourceID })) {
		if _, ok := workspaces[id]; ok {
			continue
		}
		workspace, err := findWorkspace(ctx, s.store, id)
		if errors.Is(err, ErrWorkspaceNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		workspaces[id] = *workspace
	}

	userIDs := lo.Map(invites, func(i models.ResourceInvite, _ int) uint64 { return i.InviterID })
	for _, invite := range invites {
		if id, ok := invite.TargetUserID(); ok {
			userIDs = append(userIDs, id)
		}
	}
	users, err := s.store.Users.FindByIDs(ctx, lo.Uniq(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	byID := lo.KeyBy(users, func(u models.User) uint64 { return u.ID })

	views := make([]PendingWorkspaceCollaborator, 0, len(invites))
	for _, invite := range invites {
		workspace, ok := workspaces[invite.ResourceID]
		if !ok {
			continue
		}

		view := PendingWorkspaceCollaborator{
			InviteID:      invite.ID,
			WorkspaceID:   workspace.ID,
			WorkspaceName: workspace.Name,
			Role:          invite.Role,
			InviterID:     invite.InviterID,
			InviterName:   byID[invite.InviterID].Name,
			UpdatedAt:     invite.UpdatedAt,
		}
		if id, ok := invite.TargetUserID(); ok {
			if user, found := byID[id]; found {
				view.User = &user
			}
		} else if email, ok := invite.TargetEmail(); ok {
			view.Email = email
		}
		if viewerID != 0 {
			view.Token = invite.Token
		}
		views = append(views, view)
	}
	return views, nil
}
