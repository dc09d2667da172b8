package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type RegisterRequest struct {
	Email    string
	Name     string
	Password string
}

type LoginRequest struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Service interface {
	Register(context.Context, RegisterRequest) (AuthResponse, error)
	Login(context.Context, LoginRequest) (AuthResponse, error)

	// Verify validates a bearer token and returns the user ID it carries.
	Verify(ctx context.Context, token string) (snowflake.ID, error)
}

var (
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
)
