package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_AtLeast(t *testing.T) {
	assert.True(t, RoleWorkspaceAdmin.AtLeast(RoleWorkspaceMember))
	assert.True(t, RoleWorkspaceMember.AtLeast(RoleWorkspaceMember))
	assert.False(t, RoleWorkspaceGuest.AtLeast(RoleWorkspaceMember))
	assert.False(t, RoleStreamOwner.AtLeast(RoleWorkspaceGuest), "cross-resource roles never compare")
	assert.False(t, Role("workspace:owner").AtLeast(RoleWorkspaceGuest))
}

func TestRole_ResourceType(t *testing.T) {
	assert.Equal(t, ResourceServer, RoleServerAdmin.ResourceType())
	assert.Equal(t, ResourceProject, RoleStreamReviewer.ResourceType())
	assert.Equal(t, ResourceWorkspace, RoleWorkspaceGuest.ResourceType())
	assert.True(t, RoleWorkspaceMember.IsRoleFor(ResourceWorkspace))
	assert.False(t, RoleWorkspaceMember.IsRoleFor(ResourceProject))
}

func TestImplicitProjectRole(t *testing.T) {
	role, ok := ImplicitProjectRole(RoleWorkspaceAdmin)
	assert.True(t, ok)
	assert.Equal(t, RoleStreamOwner, role)

	role, ok = ImplicitProjectRole(RoleWorkspaceMember)
	assert.True(t, ok)
	assert.Equal(t, RoleStreamContributor, role)

	_, ok = ImplicitProjectRole(RoleWorkspaceGuest)
	assert.False(t, ok)
}
