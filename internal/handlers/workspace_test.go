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
	"github.com/yukikurage/workspace-api/internal/services"
)

func TestWorkspaceHandler_CreateAndGet(t *testing.T) {
	env := setupTestEnv(t)
	_, ownerCookies := env.signupAndLogin(t, "Ada", "ada@acme.com")
	_, outsiderCookies := env.signupAndLogin(t, "Eve", "eve@example.com")

	w := env.do(t, http.MethodPost, "/api/workspaces", map[string]any{"name": "Acme", "description": "Rockets"}, ownerCookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	workspace := decode[dto.WorkspaceDTO](t, w)
	require.Equal(t, "Acme", workspace.Name)

	url := fmt.Sprintf("/api/workspaces/%d", workspace.ID)

	w = env.do(t, http.MethodGet, url, nil, ownerCookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, url, nil, outsiderCookies)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/workspaces/999", nil, ownerCookies)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/workspaces/abc", nil, ownerCookies)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/me/workspaces", nil, ownerCookies)
	require.Equal(t, http.StatusOK, w.Code)
	mine := decode[struct {
		Workspaces []dto.WorkspaceWithRoleDTO `json:"workspaces"`
	}](t, w)
	require.Len(t, mine.Workspaces, 1)
	assert.Equal(t, models.RoleWorkspaceAdmin, mine.Workspaces[0].Role)
}

func TestWorkspaceHandler_Update(t *testing.T) {
	env := setupTestEnv(t)
	_, cookies := env.signupAndLogin(t, "Ada", "ada@acme.com")

	w := env.do(t, http.MethodPost, "/api/workspaces", map[string]any{"name": "Acme"}, cookies)
	require.Equal(t, http.StatusCreated, w.Code)
	workspace := decode[dto.WorkspaceDTO](t, w)
	url := fmt.Sprintf("/api/workspaces/%d", workspace.ID)

	w = env.do(t, http.MethodPatch, url, map[string]any{"discoverability_enabled": true}, cookies)
	require.Equal(t, http.StatusBadRequest, w.Code, "discoverability needs a domain")

	w = env.do(t, http.MethodPatch, url, map[string]any{"name": "Acme Corp"}, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Acme Corp", decode[dto.WorkspaceDTO](t, w).Name)

	w = env.do(t, http.MethodPost, url+"/domains", map[string]string{"domain": "acme.com"}, cookies)
	require.Equal(t, http.StatusBadRequest, w.Code, "signup emails start unverified")
}

func TestWorkspaceHandler_Collaborators(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin, adminCookies := env.signupAndLogin(t, "Ada", "ada@acme.com")
	member, memberCookies := env.signupAndLogin(t, "Bob", "bob@acme.com")

	workspace, err := env.workspaces.CreateWorkspace(ctx, admin.ID, services.CreateWorkspaceInput{Name: "Acme"}, nil)
	require.NoError(t, err)
	_, err = env.workspaces.UpdateWorkspaceRole(ctx, services.UpdateRoleInput{
		WorkspaceID: workspace.ID, UserID: member.ID, Role: models.RoleWorkspaceMember, SkipDomainCheck: true,
	})
	require.NoError(t, err)

	base := fmt.Sprintf("/api/workspaces/%d/collaborators", workspace.ID)

	w := env.do(t, http.MethodGet, base+"?role=workspace:member", nil, memberCookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode[dto.CollaboratorListResponse](t, w)
	require.Len(t, page.Collaborators, 1)
	assert.Equal(t, "Bob", page.Collaborators[0].User.Name)
	assert.EqualValues(t, 1, page.Pagination.Total)

	w = env.do(t, http.MethodPut, fmt.Sprintf("%s/%d", base, admin.ID), map[string]string{"role": "workspace:guest"}, memberCookies)
	require.Equal(t, http.StatusForbidden, w.Code, "members cannot change roles")

	w = env.do(t, http.MethodPut, fmt.Sprintf("%s/%d", base, admin.ID), map[string]string{"role": "workspace:member"}, adminCookies)
	require.Equal(t, http.StatusConflict, w.Code, "the last admin stays")

	w = env.do(t, http.MethodPut, fmt.Sprintf("%s/%d", base, member.ID), map[string]string{"role": "workspace:admin"}, adminCookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/workspaces/%d/leave", workspace.ID), nil, adminCookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/workspaces/%d", workspace.ID), nil, adminCookies)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestWorkspaceHandler_FeatureFlag(t *testing.T) {
	env := setupTestEnvWithFeature(t, false)
	_, cookies := env.signupAndLogin(t, "Ada", "ada@acme.com")

	w := env.do(t, http.MethodPost, "/api/workspaces", map[string]any{"name": "Acme"}, cookies)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/me/workspaces", nil, cookies)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/auth/me", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestWorkspaceHandler_AdminList(t *testing.T) {
	env := setupTestEnv(t)
	_, adminCookies := env.signupAndLogin(t, "Ada", "ada@acme.com")
	_, userCookies := env.signupAndLogin(t, "Bob", "bob@acme.com")

	w := env.do(t, http.MethodGet, "/api/admin/workspaces", nil, userCookies)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/workspaces", nil, adminCookies)
	require.Equal(t, http.StatusNotImplemented, w.Code)
}
