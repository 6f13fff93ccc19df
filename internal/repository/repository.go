package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/utils"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = gorm.ErrRecordNotFound
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("repository: duplicate record")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// CreateWithPrimaryEmail creates a user and their primary email within a
	// single transaction.
	CreateWithPrimaryEmail(ctx context.Context, user *models.User, email *models.UserEmail) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByIDs returns the users that exist among ids
	FindByIDs(ctx context.Context, ids []uint64) ([]models.User, error)

	// Count returns the number of registered users
	Count(ctx context.Context) (int64, error)
}

// UserEmailRepository defines the interface for user email data access
type UserEmailRepository interface {
	Create(ctx context.Context, email *models.UserEmail) error
	FindByEmail(ctx context.Context, email string) (*models.UserEmail, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.UserEmail, error)
	ListByUserID(ctx context.Context, userID uint64) ([]models.UserEmail, error)
	ListVerifiedByUserID(ctx context.Context, userID uint64) ([]models.UserEmail, error)
	MarkVerified(ctx context.Context, id uint64) error
}

// WorkspaceRepository defines the interface for workspace data access
type WorkspaceRepository interface {
	// Create creates a new workspace
	Create(ctx context.Context, workspace *models.Workspace) error

	// FindByID finds a workspace by ID
	FindByID(ctx context.Context, id uint64) (*models.Workspace, error)

	// FindByIDForUpdate finds a workspace and locks its row until the
	// transaction ends, serializing membership changes of the workspace
	FindByIDForUpdate(ctx context.Context, id uint64) (*models.Workspace, error)

	// Update saves every field of the workspace
	Update(ctx context.Context, workspace *models.Workspace) error

	// Delete deletes the workspace row only; callers remove children first
	Delete(ctx context.Context, id uint64) error

	// ListDiscoverableByDomains lists discoverable workspaces owning any of the domains
	ListDiscoverableByDomains(ctx context.Context, domains []string) ([]models.Workspace, error)
}

// RoleFilter narrows a workspace collaborator listing.
type RoleFilter struct {
	Roles      []models.Role
	Search     string
	Pagination utils.PaginationParams
}

// RoleStore is the single source of truth for workspace membership.
type RoleStore interface {
	// Get returns the role of a user in a workspace
	Get(ctx context.Context, workspaceID, userID uint64) (*models.WorkspaceRole, error)

	// GetForUpdate is Get with a row lock held until the transaction ends
	GetForUpdate(ctx context.Context, workspaceID, userID uint64) (*models.WorkspaceRole, error)

	// ListByWorkspace lists roles of a workspace with their users
	ListByWorkspace(ctx context.Context, workspaceID uint64, filter RoleFilter) ([]models.WorkspaceRole, int64, error)

	// ListByUser lists the workspaces a user belongs to
	ListByUser(ctx context.Context, userID uint64) ([]models.WorkspaceRole, error)

	// Upsert creates the role or changes it if one exists
	Upsert(ctx context.Context, role *models.WorkspaceRole) error

	// Delete removes a role and reports whether one existed
	Delete(ctx context.Context, workspaceID, userID uint64) (bool, error)

	// DeleteAllForWorkspace removes every role of a workspace
	DeleteAllForWorkspace(ctx context.Context, workspaceID uint64) error

	// ListByRoleForUpdate returns and locks the rows holding role in the workspace
	ListByRoleForUpdate(ctx context.Context, workspaceID uint64, role models.Role) ([]models.WorkspaceRole, error)
}

// DomainRegistry maps verified email domains to workspaces.
type DomainRegistry interface {
	Store(ctx context.Context, domain *models.WorkspaceDomain) error
	Delete(ctx context.Context, workspaceID, domainID uint64) (bool, error)
	ListByWorkspace(ctx context.Context, workspaceID uint64) ([]models.WorkspaceDomain, error)
	DeleteAllForWorkspace(ctx context.Context, workspaceID uint64) error
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a new project
	Create(ctx context.Context, project *models.Project) error

	// FindByID finds a project by ID
	FindByID(ctx context.Context, id uint64) (*models.Project, error)

	// ListByWorkspace lists workspace projects, newest first
	ListByWorkspace(ctx context.Context, workspaceID uint64, pagination utils.PaginationParams) ([]models.Project, int64, error)

	// ListIDsByWorkspace returns the ids of every workspace project
	ListIDsByWorkspace(ctx context.Context, workspaceID uint64) ([]uint64, error)

	// Delete deletes a project and its roles
	Delete(ctx context.Context, id uint64) error

	// GetRole returns a user's role on a project
	GetRole(ctx context.Context, projectID, userID uint64) (*models.ProjectRole, error)

	// GrantRoles sets role for the user on each project
	GrantRoles(ctx context.Context, projectIDs []uint64, userID uint64, role models.Role) error

	// RevokeRoles removes the user's role on each project
	RevokeRoles(ctx context.Context, projectIDs []uint64, userID uint64) error
}

// InviteFilter selects a single invite.
type InviteFilter struct {
	ID           uint64
	Token        string
	ResourceType models.ResourceType
	ResourceID   *uint64
	// ValidSince hides invites last updated before it. Zero disables the check.
	ValidSince time.Time
}

// InviteQuery narrows invite listings.
type InviteQuery struct {
	ResourceType models.ResourceType
	Search       string
	Pagination   utils.PaginationParams
	ValidSince   time.Time
	// Emails adds email-addressed invites to a user listing.
	Emails []string
}

// InviteLedger stores resource invites.
type InviteLedger interface {
	FindInvite(ctx context.Context, filter InviteFilter) (*models.ResourceInvite, error)

	// InsertInviteAndDeleteOld replaces any invite with the same
	// (resource type, resource id, target) in one transaction.
	InsertInviteAndDeleteOld(ctx context.Context, invite *models.ResourceInvite) error

	// DeleteInvite removes an invite and reports whether it existed
	DeleteInvite(ctx context.Context, id uint64) (bool, error)
	DeleteInvitesByTarget(ctx context.Context, resourceType models.ResourceType, target string) error
	DeleteAllResourceInvites(ctx context.Context, resourceType models.ResourceType, resourceID uint64) error
	DeleteServerOnlyInvites(ctx context.Context, target string) error
	DeleteExpiredInvites(ctx context.Context, before time.Time) (int64, error)

	QueryAllResourceInvites(ctx context.Context, resourceType models.ResourceType, resourceID uint64, query InviteQuery) ([]models.ResourceInvite, int64, error)
	QueryAllUserResourceInvites(ctx context.Context, userID uint64, query InviteQuery) ([]models.ResourceInvite, error)

	MarkInviteUpdated(ctx context.Context, id uint64) error

	// UpdateAllInviteTargets readdresses email invites to a user id
	UpdateAllInviteTargets(ctx context.Context, email string, userID uint64) error
}

// Store bundles every repository bound to one database handle.
type Store struct {
	db *gorm.DB

	Users      UserRepository
	Emails     UserEmailRepository
	Workspaces WorkspaceRepository
	Roles      RoleStore
	Domains    DomainRegistry
	Projects   ProjectRepository
	Invites    InviteLedger
}

// NewStore creates a Store over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Users:      NewUserRepository(db),
		Emails:     NewUserEmailRepository(db),
		Workspaces: NewWorkspaceRepository(db),
		Roles:      NewRoleStore(db),
		Domains:    NewDomainRegistry(db),
		Projects:   NewProjectRepository(db),
		Invites:    NewInviteLedger(db),
	}
}

// Transaction runs fn with every repository bound to one transaction. Calls
// on a Store that is already transactional nest as savepoints.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}
