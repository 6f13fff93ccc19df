package repository

import (
	"context"

	"github.com/yukikurage/workspace-api/internal/database"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a new project
func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error
}

// FindByID finds a project by ID
func (r *GormProjectRepository) FindByID(ctx context.Context, id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// ListByWorkspace retrieves workspace projects with pagination
func (r *GormProjectRepository) ListByWorkspace(ctx context.Context, workspaceID uint64, pagination utils.PaginationParams) ([]models.Project, int64, error) {
	var projects []models.Project

	query := r.db.WithContext(ctx).Model(&models.Project{}).Where("projects.workspace_id = ?", workspaceID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Order("projects.created_at DESC").
		Scopes(database.Paginate(pagination)).
		Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

// ListIDsByWorkspace returns the ids of every project in the workspace
func (r *GormProjectRepository) ListIDsByWorkspace(ctx context.Context, workspaceID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("workspace_id = ?", workspaceID).
		Pluck("id", &ids).Error
	return ids, err
}

// Delete deletes a project and its roles
func (r *GormProjectRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectRole{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Project{}, id).Error
	})
}

// GetRole finds a user's role on a project
func (r *GormProjectRepository) GetRole(ctx context.Context, projectID, userID uint64) (*models.ProjectRole, error) {
	var role models.ProjectRole
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// GrantRoles gives the user role on each of the projects
func (r *GormProjectRepository) GrantRoles(ctx context.Context, projectIDs []uint64, userID uint64, role models.Role) error {
	if len(projectIDs) == 0 {
		return nil
	}

	roles := make([]models.ProjectRole, len(projectIDs))
	for i, projectID := range projectIDs {
		roles[i] = models.ProjectRole{
			ProjectID: projectID,
			UserID:    userID,
			Role:      role,
		}
	}

	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).
		Create(&roles).Error
}

// RevokeRoles removes the user's roles from each of the projects
func (r *GormProjectRepository) RevokeRoles(ctx context.Context, projectIDs []uint64, userID uint64) error {
	if len(projectIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("project_id IN ? AND user_id = ?", projectIDs, userID).
		Delete(&models.ProjectRole{}).Error
}
