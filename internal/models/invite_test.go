package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestResourceInvite_Targets(t *testing.T) {
	userInvite := ResourceInvite{Target: UserTarget(42)}
	id, ok := userInvite.TargetUserID()
	assert.True(t, ok)
	assert.Equal(t, uint64(42), id)
	_, ok = userInvite.TargetEmail()
	assert.False(t, ok)

	emailInvite := ResourceInvite{Target: EmailTarget("  X@Acme.COM ")}
	email, ok := emailInvite.TargetEmail()
	assert.True(t, ok)
	assert.Equal(t, "x@acme.com", email)
	_, ok = emailInvite.TargetUserID()
	assert.False(t, ok)

	malformed := ResourceInvite{Target: "@abc"}
	_, ok = malformed.TargetUserID()
	assert.False(t, ok)
}

func TestResourceInvite_SecondaryRole(t *testing.T) {
	invite := ResourceInvite{}
	_, ok := invite.SecondaryRole(ResourceWorkspace)
	assert.False(t, ok)

	invite.SecondaryRoles = datatypes.NewJSONType(SecondaryRoles{ResourceWorkspace: RoleWorkspaceMember})
	role, ok := invite.SecondaryRole(ResourceWorkspace)
	assert.True(t, ok)
	assert.Equal(t, RoleWorkspaceMember, role)
}
