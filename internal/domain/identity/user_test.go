package identity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	companyID := uuid.New()

	t.Run("normalizes email and hashes password", func(t *testing.T) {
		u, err := NewUser(companyID, "Ana", "  Ana@Loja.com.BR ", "s3nha-forte", RoleCashier)
		require.NoError(t, err)
		assert.Equal(t, "ana@loja.com.br", u.Email)
		assert.NotEqual(t, "s3nha-forte", u.PasswordHash)
		assert.True(t, u.VerifyPassword("s3nha-forte"))
		assert.False(t, u.VerifyPassword("wrong-password"))
		assert.Equal(t, companyID, u.CompanyID)
		assert.True(t, u.IsActive())
	})

	t.Run("validates input", func(t *testing.T) {
		_, err := NewUser(companyID, "", "a@b.com", "12345678", RoleSeller)
		assert.Error(t, err)
		_, err = NewUser(companyID, "Ana", "not-an-email", "12345678", RoleSeller)
		assert.Error(t, err)
		_, err = NewUser(companyID, "Ana", "a@b.com", "short", RoleSeller)
		assert.Error(t, err)
		_, err = NewUser(companyID, "Ana", "a@b.com", "12345678", Role("root"))
		assert.Error(t, err)
	})
}

func TestUser_LoginLock(t *testing.T) {
	u := &User{Role: RoleCashier, Status: UserStatusActive}

	for i := 0; i < 4; i++ {
		assert.False(t, u.RecordLoginFailure(5, 15*time.Minute))
	}
	assert.True(t, u.RecordLoginFailure(5, 15*time.Minute))
	assert.True(t, u.IsLocked())

	u.RecordLoginSuccess()
	assert.False(t, u.IsLocked())
	assert.Equal(t, 0, u.FailedAttempts)
	assert.NotNil(t, u.LastLoginAt)
}

func TestUser_OwnerIsProtected(t *testing.T) {
	owner := &User{Role: RoleOwner, Status: UserStatusActive}
	assert.Error(t, owner.Deactivate())
	assert.Error(t, owner.ChangeRole(RoleAdmin))

	cashier := &User{Role: RoleCashier, Status: UserStatusActive}
	assert.Error(t, cashier.ChangeRole(RoleOwner))
	require.NoError(t, cashier.ChangeRole(RoleManager))
	assert.Equal(t, RoleManager, cashier.Role)

	require.NoError(t, cashier.Deactivate())
	assert.Error(t, cashier.Deactivate())
	require.NoError(t, cashier.Activate())
}

func TestRolePermissions(t *testing.T) {
	assert.True(t, RoleOwner.Can("anything:goes"))
	assert.True(t, RoleManager.Can("sale:cancel"))
	assert.False(t, RoleManager.Can("user:create"))
	assert.True(t, RoleCashier.Can("cash:close"))
	assert.False(t, RoleCashier.Can("sale:cancel"))
	assert.True(t, RoleSeller.Can("sale:create"))
	assert.False(t, RoleSeller.Can("bill:read"))
	assert.Greater(t, RoleAdmin.Rank(), RoleManager.Rank())
	assert.False(t, Role("guest").IsValid())
}
