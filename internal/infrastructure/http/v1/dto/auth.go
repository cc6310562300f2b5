package dto

import (
	"time"

	"pomegranate/internal/domain/auth"
)

// LoginRequest for admin login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ToCredentials converts to domain credentials.
func (r *LoginRequest) ToCredentials() auth.Credentials {
	return auth.Credentials{Username: r.Username, Password: r.Password}
}

// RefreshTokenRequest for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AdminResponse represents an admin in API responses.
type AdminResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// FromAdmin creates response from domain admin.
func FromAdmin(a *auth.Admin) *AdminResponse {
	if a == nil {
		return nil
	}
	return &AdminResponse{ID: a.ID, Username: a.Username, CreatedAt: a.CreatedAt}
}

// LoginResponse includes tokens and admin info.
type LoginResponse struct {
	Token        string         `json:"token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int64          `json:"expires_in"`
	Admin        *AdminResponse `json:"admin"`
}

// FromLoginResult creates response from the domain login result.
func FromLoginResult(r *auth.LoginResult) *LoginResponse {
	return &LoginResponse{
		Token:        r.Tokens.AccessToken,
		RefreshToken: r.Tokens.RefreshToken,
		ExpiresIn:    r.Tokens.ExpiresIn,
		Admin:        FromAdmin(r.Admin),
	}
}
