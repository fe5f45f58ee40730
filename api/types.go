package api

import (
	"github.com/jrsteele09/storefront-admin/users"
)

const (
	RouteLogin      = "/auth/login"
	RouteAdminLogin = "/auth/admin-login"
	RouteProfile    = "/auth/profile"
)

// Credentials are the email/password pair posted to the login endpoints
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Envelope is the response wrapper every storefront endpoint uses
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    *T     `json:"data,omitempty"`
}

type LoginData struct {
	Token        string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
	User         *users.Profile `json:"user"`
}

type ProfileData struct {
	User *users.Profile `json:"user"`
}

type LoginResponse = Envelope[LoginData]

type ProfileResponse = Envelope[ProfileData]
