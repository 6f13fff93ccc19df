package repository

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/yukikurage/workspace-api/internal/database"
	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/gorm"
)

// GormInviteLedger is a GORM implementation of InviteLedger
type GormInviteLedger struct {
	db *gorm.DB
}

// NewInviteLedger creates a new InviteLedger
func NewInviteLedger(db *gorm.DB) InviteLedger {
	return &GormInviteLedger{db: db}
}

func validSince(since time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if since.IsZero() {
			return db
		}
		return db.Where("resource_invites.updated_at >= ?", since)
	}
}

// FindInvite finds one invite by id or token, optionally scoped to a resource
func (r *GormInviteLedger) FindInvite(ctx context.Context, filter InviteFilter) (*models.ResourceInvite, error) {
	if filter.ID == 0 && filter.Token == "" {
		return nil, gorm.ErrRecordNotFound
	}

	query := r.db.WithContext(ctx).Model(&models.ResourceInvite{})
	if filter.ID != 0 {
		query = query.Where("resource_invites.id = ?", filter.ID)
	}
	if filter.Token != "" {
		query = query.Where("resource_invites.token = ?", filter.Token)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_invites.resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != nil {
		query = query.Where("resource_invites.resource_id = ?", *filter.ResourceID)
	}

	var invite models.ResourceInvite
	if err := query.Scopes(validSince(filter.ValidSince)).First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// InsertInviteAndDeleteOld replaces the pending invite for the same resource and target
func (r *GormInviteLedger) InsertInviteAndDeleteOld(ctx context.Context, invite *models.ResourceInvite) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("resource_type = ? AND resource_id = ? AND target = ?", invite.ResourceType, invite.ResourceID, invite.Target).
			Delete(&models.ResourceInvite{}).Error; err != nil {
			return err
		}

		return translate(tx.Create(invite).Error)
	})
}

// DeleteInvite deletes an invite, reporting whether a row was removed
func (r *GormInviteLedger) DeleteInvite(ctx context.Context, id uint64) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.ResourceInvite{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteInvitesByTarget deletes a target's invites for one resource type
func (r *GormInviteLedger) DeleteInvitesByTarget(ctx context.Context, resourceType models.ResourceType, target string) error {
	return r.db.WithContext(ctx).
		Where("resource_type = ? AND target = ?", resourceType, target).
		Delete(&models.ResourceInvite{}).Error
}

// DeleteAllResourceInvites deletes every invite to a resource
func (r *GormInviteLedger) DeleteAllResourceInvites(ctx context.Context, resourceType models.ResourceType, resourceID uint64) error {
	return r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Delete(&models.ResourceInvite{}).Error
}

// DeleteServerOnlyInvites deletes the server invites addressed to target
func (r *GormInviteLedger) DeleteServerOnlyInvites(ctx context.Context, target string) error {
	return r.DeleteInvitesByTarget(ctx, models.ResourceServer, target)
}

// DeleteExpiredInvites deletes invites not touched since before
func (r *GormInviteLedger) DeleteExpiredInvites(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("updated_at < ?", before).
		Delete(&models.ResourceInvite{})
	return result.RowsAffected, result.Error
}

// QueryAllResourceInvites lists the pending invites of a resource, newest first
func (r *GormInviteLedger) QueryAllResourceInvites(ctx context.Context, resourceType models.ResourceType, resourceID uint64, q InviteQuery) ([]models.ResourceInvite, int64, error) {
	var invites []models.ResourceInvite

	query := r.db.WithContext(ctx).
		Model(&models.ResourceInvite{}).
		Where("resource_invites.resource_type = ? AND resource_invites.resource_id = ?", resourceType, resourceID).
		Scopes(validSince(q.ValidSince), database.Search("resource_invites.target", q.Search))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Order("resource_invites.created_at DESC, resource_invites.id DESC").
		Scopes(database.Paginate(q.Pagination)).
		Find(&invites).Error; err != nil {
		return nil, 0, err
	}
	return invites, total, nil
}

// QueryAllUserResourceInvites lists invites addressed to the user or any of q.Emails
func (r *GormInviteLedger) QueryAllUserResourceInvites(ctx context.Context, userID uint64, q InviteQuery) ([]models.ResourceInvite, error) {
	targets := append([]string{models.UserTarget(userID)}, lo.Map(q.Emails, func(email string, _ int) string {
		return models.EmailTarget(email)
	})...)

	query := r.db.WithContext(ctx).
		Model(&models.ResourceInvite{}).
		Where("resource_invites.target IN ?", lo.Uniq(targets)).
		Scopes(validSince(q.ValidSince))
	if q.ResourceType != "" {
		query = query.Where("resource_invites.resource_type = ?", q.ResourceType)
	}

	var invites []models.ResourceInvite
	err := query.
		Order("resource_invites.created_at DESC, resource_invites.id DESC").
		Scopes(database.Paginate(q.Pagination)).
		Find(&invites).Error
	return invites, err
}

// MarkInviteUpdated bumps the invite's updated_at, restarting its validity window
func (r *GormInviteLedger) MarkInviteUpdated(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).
		Model(&models.ResourceInvite{}).
		Where("id = ?", id).
		Update("updated_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateAllInviteTargets readdresses the email's invites to the user. When the
// user already holds an invite for the same resource the email one is dropped.
func (r *GormInviteLedger) UpdateAllInviteTargets(ctx context.Context, email string, userID uint64) error {
	emailTarget := models.EmailTarget(email)
	userTarget := models.UserTarget(userID)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invites []models.ResourceInvite
		if err := tx.Where("target = ?", emailTarget).Find(&invites).Error; err != nil {
			return err
		}

		for _, invite := range invites {
			var existing int64
			if err := tx.Model(&models.ResourceInvite{}).
				Where("resource_type = ? AND resource_id = ? AND target = ?", invite.ResourceType, invite.ResourceID, userTarget).
				Count(&existing).Error; err != nil {
				return err
			}

			if existing > 0 {
				if err := tx.Delete(&models.ResourceInvite{}, invite.ID).Error; err != nil {
					return err
				}
				continue
			}

			if err := tx.Model(&models.ResourceInvite{}).
				Where("id = ?", invite.ID).
				UpdateColumn("target", userTarget).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
