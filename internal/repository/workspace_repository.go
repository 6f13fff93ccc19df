package repository

import (
	"context"

	"github.com/yukikurage/workspace-api/internal/database"
	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWorkspaceRepository is a GORM implementation of WorkspaceRepository
type GormWorkspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &GormWorkspaceRepository{db: db}
}

// Create creates a new workspace
func (r *GormWorkspaceRepository) Create(ctx context.Context, workspace *models.Workspace) error {
	return r.db.WithContext(ctx).Create(workspace).Error
}

// FindByID finds a workspace by ID
func (r *GormWorkspaceRepository) FindByID(ctx context.Context, id uint64) (*models.Workspace, error) {
	var workspace models.Workspace
	if err := r.db.WithContext(ctx).First(&workspace, id).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

// FindByIDForUpdate finds a workspace with SELECT ... FOR UPDATE
func (r *GormWorkspaceRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*models.Workspace, error) {
	var workspace models.Workspace
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&workspace, id).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

// Update updates a workspace
func (r *GormWorkspaceRepository) Update(ctx context.Context, workspace *models.Workspace) error {
	return r.db.WithContext(ctx).Save(workspace).Error
}

// Delete deletes a workspace
func (r *GormWorkspaceRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&models.Workspace{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListDiscoverableByDomains lists discoverable workspaces that registered any of the domains
func (r *GormWorkspaceRepository) ListDiscoverableByDomains(ctx context.Context, domains []string) ([]models.Workspace, error) {
	var workspaces []models.Workspace
	if len(domains) == 0 {
		return workspaces, nil
	}

	domainSubQuery := r.db.Model(&models.WorkspaceDomain{}).
		Select("workspace_domains.workspace_id").
		Where("workspace_domains.domain IN ?", domains)

	err := r.db.WithContext(ctx).
		Where("workspaces.discoverability_enabled = ?", true).
		Where("workspaces.id IN (?)", domainSubQuery).
		Order("workspaces.name ASC").
		Find(&workspaces).Error
	return workspaces, err
}

// GormRoleStore is a GORM implementation of RoleStore
type GormRoleStore struct {
	db *gorm.DB
}

// NewRoleStore creates a new RoleStore
func NewRoleStore(db *gorm.DB) RoleStore {
	return &GormRoleStore{db: db}
}

// Get returns a user's workspace role
func (r *GormRoleStore) Get(ctx context.Context, workspaceID, userID uint64) (*models.WorkspaceRole, error) {
	var role models.WorkspaceRole
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// GetForUpdate returns a user's workspace role and locks the row
func (r *GormRoleStore) GetForUpdate(ctx context.Context, workspaceID, userID uint64) (*models.WorkspaceRole, error) {
	var role models.WorkspaceRole
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// ListByWorkspace lists workspace roles with their users, admins first,
// then members, then guests
func (r *GormRoleStore) ListByWorkspace(ctx context.Context, workspaceID uint64, filter RoleFilter) ([]models.WorkspaceRole, int64, error) {
	var roles []models.WorkspaceRole

	query := r.db.WithContext(ctx).
		Model(&models.WorkspaceRole{}).
		Joins("JOIN users ON users.id = workspace_roles.user_id AND users.deleted_at IS NULL").
		Where("workspace_roles.workspace_id = ?", workspaceID)

	if len(filter.Roles) > 0 {
		query = query.Where("workspace_roles.role IN ?", filter.Roles)
	}
	query = query.Scopes(database.Search("users.name", filter.Search))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("User").
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "CASE workspace_roles.role WHEN ? THEN 0 WHEN ? THEN 1 ELSE 2 END, workspace_roles.created_at ASC",
			Vars:               []interface{}{models.RoleWorkspaceAdmin, models.RoleWorkspaceMember},
			WithoutParentheses: true,
		}}).
		Scopes(database.Paginate(filter.Pagination)).
		Find(&roles).Error
	if err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

// ListByUser lists a user's workspace roles with their workspaces
func (r *GormRoleStore) ListByUser(ctx context.Context, userID uint64) ([]models.WorkspaceRole, error) {
	var roles []models.WorkspaceRole
	err := r.db.WithContext(ctx).
		Preload("Workspace").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&roles).Error
	return roles, err
}

// Upsert creates a workspace role or replaces an existing one
func (r *GormRoleStore) Upsert(ctx context.Context, role *models.WorkspaceRole) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).
		Create(role).Error
}

// Delete removes a workspace role
func (r *GormRoleStore) Delete(ctx context.Context, workspaceID, userID uint64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Delete(&models.WorkspaceRole{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteAllForWorkspace removes every role of the workspace
func (r *GormRoleStore) DeleteAllForWorkspace(ctx context.Context, workspaceID uint64) error {
	return r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Delete(&models.WorkspaceRole{}).Error
}

// ListByRoleForUpdate locks and returns the rows holding role in the
// workspace. A locking read sees the latest committed rows, so a concurrent
// demotion that committed first is not counted.
func (r *GormRoleStore) ListByRoleForUpdate(ctx context.Context, workspaceID uint64, role models.Role) ([]models.WorkspaceRole, error) {
	var roles []models.WorkspaceRole
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("workspace_id = ? AND role = ?", workspaceID, role).
		Order("user_id ASC").
		Find(&roles).Error
	return roles, err
}

// GormDomainRegistry is a GORM implementation of DomainRegistry
type GormDomainRegistry struct {
	db *gorm.DB
}

// NewDomainRegistry creates a new DomainRegistry
func NewDomainRegistry(db *gorm.DB) DomainRegistry {
	return &GormDomainRegistry{db: db}
}

// Store registers a domain for a workspace
func (r *GormDomainRegistry) Store(ctx context.Context, domain *models.WorkspaceDomain) error {
	return translate(r.db.WithContext(ctx).Create(domain).Error)
}

// Delete removes a domain from a workspace
func (r *GormDomainRegistry) Delete(ctx context.Context, workspaceID, domainID uint64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, domainID).
		Delete(&models.WorkspaceDomain{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByWorkspace lists the domains of a workspace
func (r *GormDomainRegistry) ListByWorkspace(ctx context.Context, workspaceID uint64) ([]models.WorkspaceDomain, error) {
	var domains []models.WorkspaceDomain
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("domain ASC").
		Find(&domains).Error
	return domains, err
}

// DeleteAllForWorkspace removes every domain of the workspace
func (r *GormDomainRegistry) DeleteAllForWorkspace(ctx context.Context, workspaceID uint64) error {
	return r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Delete(&models.WorkspaceDomain{}).Error
}
