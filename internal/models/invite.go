package models

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// SecondaryRoles holds roles on related resources granted alongside the
// primary one, e.g. a workspace role attached to a project invite.
type SecondaryRoles map[ResourceType]Role

// ResourceInvite is a pending offer to join a server, project or workspace.
// At most one exists per (ResourceType, ResourceID, Target).
type ResourceInvite struct {
	ID             uint64                             `gorm:"primarykey" json:"id"`
	ResourceType   ResourceType                       `gorm:"type:varchar(20);not null;uniqueIndex:idx_resource_invites_pending,priority:1" json:"resource_type"`
	ResourceID     uint64                             `gorm:"not null;uniqueIndex:idx_resource_invites_pending,priority:2" json:"resource_id"`
	Target         string                             `gorm:"type:varchar(320);not null;uniqueIndex:idx_resource_invites_pending,priority:3;index" json:"target"`
	InviterID      uint64                             `gorm:"not null" json:"inviter_id"`
	Token          string                             `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	Role           Role                               `gorm:"type:varchar(32);not null" json:"role"`
	SecondaryRoles datatypes.JSONType[SecondaryRoles] `json:"secondary_roles"`
	Message        *string                            `gorm:"type:text" json:"message,omitempty"`
	CreatedAt      time.Time                          `json:"created_at"`
	UpdatedAt      time.Time                          `json:"updated_at"`
}

const userTargetPrefix = "@"

// UserTarget encodes a registered user as an invite target.
func UserTarget(userID uint64) string {
	return userTargetPrefix + strconv.FormatUint(userID, 10)
}

// EmailTarget normalizes an email address into an invite target.
func EmailTarget(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TargetUserID returns the invited user's id for user-addressed invites.
func (i ResourceInvite) TargetUserID() (uint64, bool) {
	if !strings.HasPrefix(i.Target, userTargetPrefix) {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(i.Target, userTargetPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// TargetEmail returns the invited address for email-addressed invites.
func (i ResourceInvite) TargetEmail() (string, bool) {
	if i.Target == "" || strings.HasPrefix(i.Target, userTargetPrefix) {
		return "", false
	}
	return i.Target, true
}

// SecondaryRole returns the role attached for another resource type, if any.
func (i ResourceInvite) SecondaryRole(t ResourceType) (Role, bool) {
	roles := i.SecondaryRoles.Data()
	if roles == nil {
		return "", false
	}
	role, ok := roles[t]
	return role, ok
}
