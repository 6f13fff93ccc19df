package models

import "strings"

// ResourceType identifies what an invite or role refers to.
type ResourceType string

const (
	ResourceServer    ResourceType = "server"
	ResourceProject   ResourceType = "project"
	ResourceWorkspace ResourceType = "workspace"
)

func (t ResourceType) Valid() bool {
	switch t {
	case ResourceServer, ResourceProject, ResourceWorkspace:
		return true
	}
	return false
}

// Role is a scoped role name such as "workspace:admin".
type Role string

const (
	RoleServerGuest Role = "server:guest"
	RoleServerUser  Role = "server:user"
	RoleServerAdmin Role = "server:admin"

	RoleStreamReviewer    Role = "stream:reviewer"
	RoleStreamContributor Role = "stream:contributor"
	RoleStreamOwner       Role = "stream:owner"

	RoleWorkspaceGuest  Role = "workspace:guest"
	RoleWorkspaceMember Role = "workspace:member"
	RoleWorkspaceAdmin  Role = "workspace:admin"
)

var roleWeights = map[Role]int{
	RoleServerGuest:       1,
	RoleServerUser:        2,
	RoleServerAdmin:       3,
	RoleStreamReviewer:    1,
	RoleStreamContributor: 2,
	RoleStreamOwner:       3,
	RoleWorkspaceGuest:    1,
	RoleWorkspaceMember:   2,
	RoleWorkspaceAdmin:    3,
}

func (r Role) Valid() bool {
	_, ok := roleWeights[r]
	return ok
}

// ResourceType returns the resource a role applies to. Project roles keep the
// historical "stream" prefix.
func (r Role) ResourceType() ResourceType {
	switch {
	case strings.HasPrefix(string(r), "server:"):
		return ResourceServer
	case strings.HasPrefix(string(r), "stream:"):
		return ResourceProject
	case strings.HasPrefix(string(r), "workspace:"):
		return ResourceWorkspace
	}
	return ""
}

func (r Role) Weight() int {
	return roleWeights[r]
}

// AtLeast reports whether r grants at least the privileges of min. Roles of
// different resource types never compare.
func (r Role) AtLeast(min Role) bool {
	if !r.Valid() || !min.Valid() || r.ResourceType() != min.ResourceType() {
		return false
	}
	return r.Weight() >= min.Weight()
}

// IsRoleFor reports whether r is a valid role of the given resource type.
func (r Role) IsRoleFor(t ResourceType) bool {
	return r.Valid() && r.ResourceType() == t
}

// ImplicitProjectRole maps a workspace role to the project role it grants on
// every workspace project. Guests get none.
func ImplicitProjectRole(workspaceRole Role) (Role, bool) {
	switch workspaceRole {
	case RoleWorkspaceAdmin:
		return RoleStreamOwner, true
	case RoleWorkspaceMember:
		return RoleStreamContributor, true
	}
	return "", false
}
