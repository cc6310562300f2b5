package auth

import (
	"context"
	"fmt"
	"strings"

	"pomegranate/internal/core/apperror"
	appctx "pomegranate/internal/core/context"
	"pomegranate/pkg/logger"
)

// Service authenticates administrators.
type Service struct {
	admins     AdminRepository
	jwtService *JWTService
}

// NewService creates a new auth service.
func NewService(admins AdminRepository, jwtService *JWTService) *Service {
	return &Service{admins: admins, jwtService: jwtService}
}

// Login checks credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		return nil, apperror.NewValidation("username and password are required")
	}

	admin, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}
	if admin == nil {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	ok, err := CheckPassword(admin.PasswordHash, creds.Password)
	if err != nil {
		return nil, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		logger.Warn(ctx, "admin login failed", "username", username)
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	tokens, err := s.issue(principalOf(admin))
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "admin logged in", "admin_id", admin.ID, "username", admin.Username)
	return &LoginResult{Admin: admin, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new pair. The account must still exist.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	p, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid refresh token").WithCause(err)
	}
	if p.Kind != appctx.KindAdmin {
		return nil, apperror.NewForbidden("admin token required")
	}
	admin, err := s.admins.GetByID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}
	if admin == nil {
		return nil, apperror.NewUnauthorized("admin no longer exists")
	}
	return s.issue(principalOf(admin))
}

// Me returns the calling administrator.
func (s *Service) Me(ctx context.Context) (*Admin, error) {
	p := appctx.GetPrincipal(ctx)
	if p == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	if !p.IsAdmin() {
		return nil, apperror.NewForbidden("admin access required")
	}
	admin, err := s.admins.GetByID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}
	if admin == nil {
		return nil, apperror.NewNotFound("admin", p.ID)
	}
	return admin, nil
}

// CreateAdmin hashes password and stores a new account.
func (s *Service) CreateAdmin(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return 0, apperror.NewValidation("username and password are required")
	}
	existing, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("load admin: %w", err)
	}
	if existing != nil {
		return 0, apperror.NewDuplicate("admin", "username", username)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}
	adminID, err := s.admins.Create(ctx, username, hash)
	if err != nil {
		return 0, fmt.Errorf("create admin: %w", err)
	}
	logger.Info(ctx, "admin created", "admin_id", adminID, "username", username)
	return adminID, nil
}

// Validator returns the token validator used by the auth middleware.
func (s *Service) Validator() *JWTService {
	return s.jwtService
}

func (s *Service) issue(p appctx.Principal) (*TokenPair, error) {
	access, _, err := s.jwtService.GenerateAccessToken(p)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, _, err := s.jwtService.GenerateRefreshToken(p)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtService.AccessTTL().Seconds()),
	}, nil
}

func principalOf(a *Admin) appctx.Principal {
	return appctx.Principal{ID: a.ID, Username: a.Username, Kind: appctx.KindAdmin}
}
