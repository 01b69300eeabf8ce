package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "pdv-test",
	})
}

func newTestSubject() Subject {
	return Subject{
		CompanyID:   uuid.New(),
		UserID:      uuid.New(),
		Name:        "Maria Caixa",
		Email:       "maria@loja.com.br",
		Role:        "cashier",
		Permissions: []string{"sale:create", "cash:open"},
	}
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestJWTService()
	sub := newTestSubject()

	pair, err := svc.GenerateTokenPair(sub)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.AccessTokenExpiresAt, time.Second)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	companyID, err := claims.CompanyUUID()
	require.NoError(t, err)
	assert.Equal(t, sub.CompanyID, companyID)
	assert.Equal(t, "cashier", claims.Role)
	assert.True(t, claims.HasPermission("sale:create"))
	assert.False(t, claims.HasPermission("user:create"))
	assert.True(t, claims.HasAnyPermission("user:create", "cash:open"))
	assert.NotEmpty(t, claims.ID)

	refresh, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, refresh.Permissions)
	assert.NotEqual(t, claims.ID, refresh.ID)
}

func TestJWTService_RejectsWrongTokenType(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair(newTestSubject())
	require.NoError(t, err)

	// the refresh token is signed with another secret
	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	shared := NewJWTService(config.JWTConfig{
		Secret:                 "same-secret-for-both-token-kinds",
		AccessTokenExpiration:  time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "pdv-test",
	})
	pair, err = shared.GenerateTokenPair(newTestSubject())
	require.NoError(t, err)
	_, err = shared.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestJWTService_Expired(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		AccessTokenExpiration:  -time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "pdv-test",
	})
	pair, err := svc.GenerateTokenPair(newTestSubject())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_RejectsForeignIssuerAndAlgorithm(t *testing.T) {
	svc := newTestJWTService()

	other := NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		AccessTokenExpiration:  time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "someone-else",
	})
	pair, err := other.GenerateTokenPair(newTestSubject())
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{TokenType: TokenTypeAccess, CompanyID: "x", UserID: "y"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaims_RemainingTTL(t *testing.T) {
	c := &Claims{}
	assert.Zero(t, c.RemainingTTL())

	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	assert.Zero(t, c.RemainingTTL())

	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	assert.InDelta(t, time.Hour.Seconds(), c.RemainingTTL().Seconds(), 2)
}
