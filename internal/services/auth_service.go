package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/workspace-api/internal/constants"
	apierrors "github.com/yukikurage/workspace-api/internal/errors"
	"github.com/yukikurage/workspace-api/internal/mailer"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrPasswordTooShort         = apierrors.New(apierrors.ErrValidation, fmt.Sprintf("password must be at least %d characters", constants.MinPasswordLength))
	ErrNameRequired             = apierrors.New(apierrors.ErrValidation, "name is required")
	ErrInvalidEmail             = apierrors.New(apierrors.ErrValidation, "invalid email")
	ErrVerificationTokenInvalid = apierrors.New(apierrors.ErrNotFound, "verification token not found")
	ErrFailedToHashPassword     = errors.New("failed to hash password")
	ErrFailedToCreateUser       = errors.New("failed to create user")
)

// RegistrationInvites is the part of the invite lifecycle registration depends on.
type RegistrationInvites interface {
	FindRegistrationInvite(ctx context.Context, token, email string) (*models.ResourceInvite, error)
	FinalizeInvitedServerRegistration(ctx context.Context, email string, userID uint64) error
}

// AuthConfig holds registration settings.
type AuthConfig struct {
	// InviteOnly requires a pending invite for the signup email.
	InviteOnly    bool
	AppOrigin     string
	DefaultLocale string
}

// AuthService handles authentication related business logic.
type AuthService struct {
	store   *repository.Store
	invites RegistrationInvites
	emails  EmailQueue
	logger  *zap.Logger
	cfg     AuthConfig
}

// NewAuthService creates a new AuthService.
func NewAuthService(store *repository.Store, invites RegistrationInvites, emails EmailQueue, logger *zap.Logger, cfg AuthConfig) *AuthService {
	return &AuthService{
		store:   store,
		invites: invites,
		emails:  emails,
		logger:  logger,
		cfg:     cfg,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Name        string
	Email       string
	Password    string
	InviteToken string
	Locale      string
}

// Signup creates a new user with a primary email. The first user becomes
// server admin. Signing up with an invite for the email verifies it and
// claims the email's pending invites.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	email := utils.NormalizeEmail(input.Email)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}

	if _, err := s.store.Emails.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	invited := false
	if input.InviteToken != "" {
		if _, err := s.invites.FindRegistrationInvite(ctx, input.InviteToken, email); err == nil {
			invited = true
		} else if apierrors.Kind(err) == nil {
			return nil, err
		}
	}
	if s.cfg.InviteOnly && !invited {
		return nil, ErrSignupRequiresInvite
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	users, err := s.store.Users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	serverRole := models.RoleServerUser
	if users == 0 {
		serverRole = models.RoleServerAdmin
	}

	locale := input.Locale
	if locale == "" {
		locale = s.cfg.DefaultLocale
	}

	user := &models.User{
		Name:         name,
		PasswordHash: string(hashedPassword),
		ServerRole:   serverRole,
		Locale:       locale,
	}
	record := &models.UserEmail{Email: email, Verified: invited}
	if !invited {
		token, err := utils.GenerateToken(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate verification token: %w", err)
		}
		record.VerificationToken = &token
	}

	if err := s.store.Users.CreateWithPrimaryEmail(ctx, user, record); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrCreateUser):
			return nil, ErrFailedToCreateUser
		default:
			return nil, fmt.Errorf("failed to complete signup: %w", err)
		}
	}

	if invited {
		if err := s.invites.FinalizeInvitedServerRegistration(ctx, email, user.ID); err != nil {
			return nil, err
		}
	} else {
		s.sendVerification(user, record)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	record, err := s.store.Emails.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find email: %w", err)
	}

	user, err := s.GetUser(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// ListEmails returns the user's email addresses.
func (s *AuthService) ListEmails(ctx context.Context, userID uint64) ([]models.UserEmail, error) {
	emails, err := s.store.Emails.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	return emails, nil
}

// AddEmail attaches an unverified address to the user and sends its verification link.
func (s *AuthService) AddEmail(ctx context.Context, userID uint64, address string) (*models.UserEmail, error) {
	email := utils.NormalizeEmail(address)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	token, err := utils.GenerateToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	record := &models.UserEmail{
		UserID:            userID,
		Email:             email,
		VerificationToken: &token,
	}
	if err := s.store.Emails.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to add email: %w", err)
	}

	s.sendVerification(user, record)
	return record, nil
}

// VerifyEmail confirms an address and readdresses its pending invites to the owner.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.UserEmail, error) {
	record, err := s.store.Emails.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationTokenInvalid
		}
		return nil, fmt.Errorf("failed to find email: %w", err)
	}

	if err := s.store.Emails.MarkVerified(ctx, record.ID); err != nil {
		return nil, fmt.Errorf("failed to verify email: %w", err)
	}
	record.Verified = true
	record.VerificationToken = nil

	if err := s.invites.FinalizeInvitedServerRegistration(ctx, record.Email, record.UserID); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *AuthService) sendVerification(user *models.User, record *models.UserEmail) {
	if record.VerificationToken == nil {
		return
	}
	link := strings.TrimSuffix(s.cfg.AppOrigin, "/") + "/verify-email?token=" + *record.VerificationToken
	if !s.emails.Enqueue(mailer.VerificationEmail(user.Locale, record.Email, user.Name, link)) {
		s.logger.Warn("failed to queue verification email", zap.Uint64("user_id", user.ID))
	}
}
