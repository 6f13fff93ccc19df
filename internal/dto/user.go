package dto

import (
	"time"

	"github.com/yukikurage/workspace-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID         uint64      `json:"id"`
	Name       string      `json:"name"`
	ServerRole models.Role `json:"server_role,omitempty"`
}

// EmailDTO represents one of the current user's email addresses
type EmailDTO struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	Primary   bool      `json:"primary"`
	CreatedAt time.Time `json:"created_at"`
}

// ToUserDTO converts a user model to DTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:         user.ID,
		Name:       user.Name,
		ServerRole: user.ServerRole,
	}
}

// ToEmailDTOs converts email records to DTOs
func ToEmailDTOs(emails []models.UserEmail) []EmailDTO {
	dtos := make([]EmailDTO, len(emails))
	for i, email := range emails {
		dtos[i] = EmailDTO{
			ID:        email.ID,
			Email:     email.Email,
			Verified:  email.Verified,
			Primary:   email.Primary,
			CreatedAt: email.CreatedAt,
		}
	}
	return dtos
}
