// Package auth provides administrator authentication.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "pomegranate/internal/core/context"
)

// Token uses.
const (
	useAccess  = "access"
	useRefresh = "refresh"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret          string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:          secret,
		Issuer:          "pomegranate",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	PrincipalID int64  `json:"pid"`
	Username    string `json:"username"`
	Kind        string `json:"type"`
	Use         string `json:"use"`
}

// JWTService handles JWT operations.
type JWTService struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config, now: time.Now}
}

// AccessTTL is the lifetime of access tokens.
func (s *JWTService) AccessTTL() time.Duration {
	return s.config.AccessTokenTTL
}

// GenerateAccessToken signs a short-lived token for p.
func (s *JWTService) GenerateAccessToken(p appctx.Principal) (string, time.Time, error) {
	return s.generate(p, useAccess, s.config.AccessTokenTTL)
}

// GenerateRefreshToken signs a long-lived token that can only mint access tokens.
func (s *JWTService) GenerateRefreshToken(p appctx.Principal) (string, time.Time, error) {
	return s.generate(p, useRefresh, s.config.RefreshTokenTTL)
}

func (s *JWTService) generate(p appctx.Principal, use string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   fmt.Sprintf("%s:%d", p.Kind, p.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		PrincipalID: p.ID,
		Username:    p.Username,
		Kind:        p.Kind,
		Use:         use,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken validates an access token and returns its principal.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.Principal, error) {
	return s.validate(tokenString, useAccess)
}

// ValidateRefreshToken validates a refresh token and returns its principal.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*appctx.Principal, error) {
	return s.validate(tokenString, useRefresh)
}

func (s *JWTService) validate(tokenString, use string) (*appctx.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	},
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Use != use {
		return nil, fmt.Errorf("token use %q, want %q", claims.Use, use)
	}

	return &appctx.Principal{
		ID:       claims.PrincipalID,
		Username: claims.Username,
		Kind:     claims.Kind,
	}, nil
}
