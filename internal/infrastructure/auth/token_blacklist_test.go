package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenBlacklist_Revoke(t *testing.T) {
	b := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	require.NoError(t, b.Revoke(ctx, "jti-1", time.Hour))
	require.NoError(t, b.Revoke(ctx, "jti-short", time.Millisecond))

	revoked, err := b.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = b.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	time.Sleep(5 * time.Millisecond)
	revoked, err = b.IsRevoked(ctx, "jti-short")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryTokenBlacklist_RevokeUser(t *testing.T) {
	b := NewInMemoryTokenBlacklist()
	ctx := context.Background()
	issued := time.Now().Add(-time.Hour)

	revoked, err := b.IsUserRevoked(ctx, "user-1", issued)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, b.RevokeUser(ctx, "user-1", time.Hour))

	revoked, err = b.IsUserRevoked(ctx, "user-1", issued)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = b.IsUserRevoked(ctx, "user-1", time.Now().Add(2*time.Second))
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = b.IsUserRevoked(ctx, "user-2", issued)
	require.NoError(t, err)
	assert.False(t, revoked)
}
