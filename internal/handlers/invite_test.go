package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/services"
)

func TestInviteHandler_WorkspaceInviteLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin, adminCookies := env.signupAndLogin(t, "Ada", "ada@acme.com")
	bob, bobCookies := env.signupAndLogin(t, "Bob", "bob@example.com")

	workspace, err := env.workspaces.CreateWorkspace(ctx, admin.ID, services.CreateWorkspaceInput{Name: "Acme"}, nil)
	require.NoError(t, err)
	base := fmt.Sprintf("/api/workspaces/%d/invites", workspace.ID)

	w := env.do(t, http.MethodPost, base, map[string]any{"user_id": bob.ID}, bobCookies)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, base, map[string]any{"user_id": bob.ID, "message": "Welcome aboard"}, adminCookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.InviteDTO](t, w)
	require.NotNil(t, created.UserID)
	assert.Equal(t, bob.ID, *created.UserID)
	assert.Equal(t, models.RoleWorkspaceMember, created.Role)
	assert.True(t, created.EmailQueued)
	assert.NotContains(t, w.Body.String(), "token")

	w = env.do(t, http.MethodGet, base, nil, adminCookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"token"`)

	w = env.do(t, http.MethodGet, base+"/mine", nil, bobCookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	mine := decode[services.PendingWorkspaceCollaborator](t, w)
	require.NotEmpty(t, mine.Token)
	assert.Equal(t, "Acme", mine.WorkspaceName)

	finalize := map[string]any{"resource_type": "workspace", "token": mine.Token, "accept": true}
	w = env.do(t, http.MethodPost, "/api/invites/finalize", finalize, bobCookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	role, err := env.store.Roles.Get(ctx, workspace.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleWorkspaceMember, role.Role)

	w = env.do(t, http.MethodPost, "/api/invites/finalize", finalize, bobCookies)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/invites/finalize", map[string]any{"resource_type": "workspace", "token": mine.Token}, bobCookies)
	require.Equal(t, http.StatusBadRequest, w.Code, "accept is required")
}

func TestInviteHandler_ResendAndCancel(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin, adminCookies := env.signupAndLogin(t, "Ada", "ada@acme.com")

	workspace, err := env.workspaces.CreateWorkspace(ctx, admin.ID, services.CreateWorkspaceInput{Name: "Acme"}, nil)
	require.NoError(t, err)
	base := fmt.Sprintf("/api/workspaces/%d/invites", workspace.ID)

	w := env.do(t, http.MethodPost, base, map[string]any{"email": "new@example.com"}, adminCookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.InviteDTO](t, w)
	assert.Equal(t, "new@example.com", created.Email)

	w = env.do(t, http.MethodPost, fmt.Sprintf("%s/%d/resend", base, created.ID), nil, adminCookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", base, created.ID), nil, adminCookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", base, created.ID), nil, adminCookies)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestInviteHandler_BatchCreate(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	_, _ = env.signupAndLogin(t, "Root", "root@example.com")
	owner, ownerCookies := env.signupAndLogin(t, "Ada", "ada@acme.com")

	workspace, err := env.workspaces.CreateWorkspace(ctx, owner.ID, services.CreateWorkspaceInput{Name: "Acme"}, nil)
	require.NoError(t, err)
	url := fmt.Sprintf("/api/workspaces/%d/invites/batch", workspace.ID)

	targets := make([]map[string]any, 11)
	for i := range targets {
		targets[i] = map[string]any{"email": fmt.Sprintf("user%d@example.com", i)}
	}

	w := env.do(t, http.MethodPost, url, map[string]any{"targets": targets}, ownerCookies)
	require.Equal(t, http.StatusBadRequest, w.Code, "non-admins are limited to ten targets")

	_, total, err := env.store.Invites.QueryAllResourceInvites(ctx, models.ResourceWorkspace, workspace.ID, repository.InviteQuery{})
	require.NoError(t, err)
	require.Zero(t, total)

	w = env.do(t, http.MethodPost, url, map[string]any{"targets": targets[:3]}, ownerCookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	response := decode[struct {
		Invites []dto.InviteDTO `json:"invites"`
	}](t, w)
	require.Len(t, response.Invites, 3)

	w = env.do(t, http.MethodPost, url, map[string]any{"targets": []any{}}, ownerCookies)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
