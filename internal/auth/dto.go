package auth

import (
	"github.com/google/uuid"

	"github.com/mgastelum/freshmart-backend/internal/users"
)

// RegisterRequest carries the sign-up form.
type RegisterRequest struct {
	Email         string    `json:"email" validate:"required,email"`
	Password      string    `json:"password" validate:"required,min=8,max=128"`
	FirstName     string    `json:"first_name" validate:"required,max=100"`
	LastName      string    `json:"last_name" validate:"required,max=100"`
	CaptchaID     uuid.UUID `json:"captcha_id"`
	CaptchaAnswer string    `json:"captcha_answer"`
}

// LoginRequest carries the credential payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest rotates a refresh session.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResponse returns the token pair plus the user profile.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// RefreshResponse returns the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
