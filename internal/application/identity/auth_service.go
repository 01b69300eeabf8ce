package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/identity"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/pdv/backend/internal/infrastructure/auth"
	"github.com/pdv/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // failed logins before the account is locked
	LockDuration     time.Duration // how long the lock lasts
	// RevocationTTL bounds how long a user wide revocation is remembered; it
	// must cover the refresh token lifetime
	RevocationTTL time.Duration
}

// AuthServiceConfigFrom builds the auth configuration from application config
func AuthServiceConfigFrom(sec config.SecurityConfig, jwt config.JWTConfig) AuthServiceConfig {
	cfg := AuthServiceConfig{
		MaxLoginAttempts: sec.MaxLoginAttempts,
		LockDuration:     sec.LockDuration,
		RevocationTTL:    jwt.RefreshTokenExpiration,
	}
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = 5
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = 15 * time.Minute
	}
	if cfg.RevocationTTL <= 0 {
		cfg.RevocationTTL = 7 * 24 * time.Hour
	}
	return cfg
}

var errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// AuthService handles authentication operations
type AuthService struct {
	users     identity.UserRepository
	companies company.CompanyRepository
	jwt       *auth.JWTService
	blacklist auth.TokenBlacklist
	config    AuthServiceConfig
	logger    *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users identity.UserRepository,
	companies company.CompanyRepository,
	jwt *auth.JWTService,
	blacklist auth.TokenBlacklist,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		companies: companies,
		jwt:       jwt,
		blacklist: blacklist,
		config:    config,
		logger:    logger,
	}
}

// Login authenticates a user by email and password and returns tokens
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login attempt for unknown email", zap.String("ip", req.IP))
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if user.IsLocked() {
		s.logger.Warn("Login attempt for locked account", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later")
	}
	if !user.IsActive() {
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account has been deactivated")
	}

	if !user.VerifyPassword(req.Password) {
		locked := user.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.users.Save(ctx, user); err != nil {
			s.logger.Error("Failed to record login failure", zap.Error(err))
		}
		if locked {
			s.logger.Warn("Account locked after too many failed attempts",
				zap.String("user_id", user.ID.String()),
				zap.Int("max_attempts", s.config.MaxLoginAttempts))
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Account has been locked")
		}
		return nil, errInvalidCredentials
	}

	comp, err := s.companies.FindByID(ctx, user.CompanyID)
	if err != nil {
		return nil, err
	}
	if !comp.IsActive() {
		return nil, shared.NewDomainError("COMPANY_SUSPENDED", "Company account is suspended")
	}

	pair, err := s.jwt.GenerateTokenPair(SubjectOf(user))
	if err != nil {
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens", err)
	}

	user.RecordLoginSuccess()
	if err := s.users.Save(ctx, user); err != nil {
		// the login itself succeeded
		s.logger.Error("Failed to record login success", zap.Error(err))
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("company_id", user.CompanyID.String()))
	return NewLoginResponse(pair, user), nil
}

// Refresh exchanges a refresh token for a new token pair. The used refresh
// token is revoked.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*LoginResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
		}
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	userID, err := claims.UserUUID()
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid user in token")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TOKEN_INVALID", "User no longer exists")
		}
		return nil, err
	}
	if !user.IsActive() || user.IsLocked() {
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account cannot log in")
	}
	comp, err := s.companies.FindByID(ctx, user.CompanyID)
	if err != nil {
		return nil, err
	}
	if !comp.IsActive() {
		return nil, shared.NewDomainError("COMPANY_SUSPENDED", "Company account is suspended")
	}

	pair, err := s.jwt.GenerateTokenPair(SubjectOf(user))
	if err != nil {
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens", err)
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		s.logger.Error("Failed to revoke used refresh token", zap.Error(err))
	}
	return NewLoginResponse(pair, user), nil
}

// Logout revokes the access token until it expires
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return shared.ErrUnauthorized
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		return err
	}
	s.logger.Info("User logged out", zap.String("user_id", claims.UserID))
	return nil
}

// Me returns the authenticated user
func (s *AuthService) Me(ctx context.Context, companyID, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.users.FindByIDForCompany(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// ChangePassword changes the password of the authenticated user and revokes
// every token issued before the change
func (s *AuthService) ChangePassword(ctx context.Context, companyID, userID uuid.UUID, req ChangePasswordRequest) error {
	user, err := s.users.FindByIDForCompany(ctx, companyID, userID)
	if err != nil {
		return err
	}
	if req.CurrentPassword == req.NewPassword {
		return shared.NewDomainError("SAME_PASSWORD", "New password must differ from the current one")
	}
	if err := user.ChangePassword(req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	if err := s.blacklist.RevokeUser(ctx, user.ID.String(), s.config.RevocationTTL); err != nil {
		s.logger.Error("Failed to revoke tokens after password change", zap.Error(err))
	}
	return nil
}

func (s *AuthService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !revoked {
		revoked, err = s.blacklist.IsUserRevoked(ctx, claims.UserID, claims.IssuedAtTime())
		if err != nil {
			return err
		}
	}
	if revoked {
		return shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
	}
	return nil
}
