package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

var (
	// ErrCreateUser is returned when creating a user fails inside the signup transaction.
	ErrCreateUser = errors.New("user repository: create user failed")
	// ErrCreateUserEmail is returned when creating the primary email fails inside the signup transaction.
	ErrCreateUserEmail = errors.New("user repository: create user email failed")
)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// CreateWithPrimaryEmail creates a user and the primary email atomically.
func (r *GormUserRepository) CreateWithPrimaryEmail(ctx context.Context, user *models.User, email *models.UserEmail) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("%w: %w", ErrCreateUser, translate(err))
		}

		email.UserID = user.ID
		email.Primary = true

		if err := tx.Create(email).Error; err != nil {
			return fmt.Errorf("%w: %w", ErrCreateUserEmail, translate(err))
		}

		return nil
	})
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs returns the users that exist among ids
func (r *GormUserRepository) FindByIDs(ctx context.Context, ids []uint64) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Count returns the number of registered users
func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

// GormUserEmailRepository is a GORM implementation of UserEmailRepository
type GormUserEmailRepository struct {
	db *gorm.DB
}

// NewUserEmailRepository creates a new UserEmailRepository
func NewUserEmailRepository(db *gorm.DB) UserEmailRepository {
	return &GormUserEmailRepository{db: db}
}

func (r *GormUserEmailRepository) Create(ctx context.Context, email *models.UserEmail) error {
	return translate(r.db.WithContext(ctx).Create(email).Error)
}

// FindByEmail looks an address up case-insensitively
func (r *GormUserEmailRepository) FindByEmail(ctx context.Context, email string) (*models.UserEmail, error) {
	var record models.UserEmail
	if err := r.db.WithContext(ctx).Where("email = ?", models.EmailTarget(email)).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormUserEmailRepository) FindByVerificationToken(ctx context.Context, token string) (*models.UserEmail, error) {
	var record models.UserEmail
	if err := r.db.WithContext(ctx).Where("verification_token = ?", token).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormUserEmailRepository) ListByUserID(ctx context.Context, userID uint64) ([]models.UserEmail, error) {
	var emails []models.UserEmail
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&emails).Error
	return emails, err
}

func (r *GormUserEmailRepository) ListVerifiedByUserID(ctx context.Context, userID uint64) ([]models.UserEmail, error) {
	var emails []models.UserEmail
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND verified = ?", userID, true).
		Order("id ASC").
		Find(&emails).Error
	return emails, err
}

// MarkVerified flags the email verified and clears its token
func (r *GormUserEmailRepository) MarkVerified(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&models.UserEmail{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"verified": true, "verification_token": nil}).Error
}
