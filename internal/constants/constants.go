package constants

// Session and context keys
const (
	SessionCookieName   = "workspace_session"
	ContextKeyUserID    = "user_id"
	ContextKeyWorkspace = "workspace"
	ContextKeyRole      = "workspace_role"
	ContextKeyProject   = "project"
)

// Authentication
const (
	MinPasswordLength = 8
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Invites
const (
	// MaxInviteBatchSize is both the chunk size for batch invite creation and the
	// largest batch a non-admin caller may submit.
	MaxInviteBatchSize = 10
)
