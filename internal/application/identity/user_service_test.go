package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/identity"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/pdv/backend/internal/infrastructure/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func newUserService(users *MockUserRepository) (*UserService, *auth.InMemoryTokenBlacklist, *recordingPublisher) {
	bl := auth.NewInMemoryTokenBlacklist()
	pub := &recordingPublisher{}
	cfg := AuthServiceConfig{MaxLoginAttempts: 5, LockDuration: time.Minute, RevocationTTL: time.Hour}
	return NewUserService(users, bl, pub, cfg, zap.NewNop()), bl, pub
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	de, ok := shared.AsDomainError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	return de.Code
}

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	admin := Actor{CompanyID: companyID, UserID: uuid.New(), Role: identity.RoleAdmin}

	t.Run("creates lower role", func(t *testing.T) {
		users := new(MockUserRepository)
		svc, _, pub := newUserService(users)
		users.On("ExistsByEmail", ctx, "caixa@loja.com.br").Return(false, nil)
		users.On("Save", ctx, mock.AnythingOfType("*identity.User")).Return(nil)

		resp, err := svc.Create(ctx, admin, CreateUserRequest{
			Name: "Caixa 1", Email: "caixa@loja.com.br", Password: "senha-caixa", Role: "cashier",
		})
		require.NoError(t, err)
		assert.Equal(t, companyID, resp.CompanyID)
		assert.Equal(t, "cashier", resp.Role)
		require.Len(t, pub.events, 1)
		assert.Equal(t, identity.EventTypeUserCreated, pub.events[0].EventType())
	})

	t.Run("cannot assign own rank", func(t *testing.T) {
		users := new(MockUserRepository)
		svc, _, _ := newUserService(users)
		_, err := svc.Create(ctx, admin, CreateUserRequest{Name: "X", Email: "x@loja.com.br", Password: "12345678", Role: "admin"})
		assert.Equal(t, "FORBIDDEN", domainCode(t, err))
		users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("owner role is never assignable", func(t *testing.T) {
		users := new(MockUserRepository)
		svc, _, _ := newUserService(users)
		owner := Actor{CompanyID: companyID, UserID: uuid.New(), Role: identity.RoleOwner}
		_, err := svc.Create(ctx, owner, CreateUserRequest{Name: "X", Email: "x@loja.com.br", Password: "12345678", Role: "owner"})
		assert.Equal(t, "INVALID_ROLE", domainCode(t, err))
	})

	t.Run("duplicate email", func(t *testing.T) {
		users := new(MockUserRepository)
		svc, _, _ := newUserService(users)
		users.On("ExistsByEmail", ctx, "dup@loja.com.br").Return(true, nil)
		_, err := svc.Create(ctx, admin, CreateUserRequest{Name: "X", Email: "dup@loja.com.br", Password: "12345678", Role: "seller"})
		assert.Equal(t, "ALREADY_EXISTS", domainCode(t, err))
	})
}

func TestUserService_Deactivate(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	manager := Actor{CompanyID: companyID, UserID: uuid.New(), Role: identity.RoleManager}

	t.Run("owner cannot be deactivated", func(t *testing.T) {
		users := new(MockUserRepository)
		svc, _, _ := newUserService(users)
		owner := newUser(t, companyID, identity.RoleOwner)
		admin := Actor{CompanyID: companyID, UserID: uuid.New(), Role: identity.RoleAdmin}
		users.On("FindByIDForCompany", ctx, companyID, owner.ID).Return(owner, nil)

		_, err := svc.Deactivate(ctx, admin, owner.ID)
		assert.Equal(t, "OWNER_ROLE_LOCKED", domainCode(t, err))
	})

	t.Run("self", func(t *testing.T) {
		users := new(MockUserRepository)
		svc, _, _ := newUserService(users)
		_, err := svc.Deactivate(ctx, manager, manager.UserID)
		assert.Equal(t, "CANNOT_DEACTIVATE_SELF", domainCode(t, err))
	})

	t.Run("revokes tokens", func(t *testing.T) {
		users := new(MockUserRepository)
		svc, bl, _ := newUserService(users)
		cashier := newUser(t, companyID, identity.RoleCashier)
		users.On("FindByIDForCompany", ctx, companyID, cashier.ID).Return(cashier, nil)
		users.On("Save", ctx, cashier).Return(nil)

		resp, err := svc.Deactivate(ctx, manager, cashier.ID)
		require.NoError(t, err)
		assert.Equal(t, "inactive", resp.Status)
		revoked, err := bl.IsUserRevoked(ctx, cashier.ID.String(), time.Now().Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("higher role", func(t *testing.T) {
		users := new(MockUserRepository)
		svc, _, _ := newUserService(users)
		admin := newUser(t, companyID, identity.RoleAdmin)
		users.On("FindByIDForCompany", ctx, companyID, admin.ID).Return(admin, nil)
		_, err := svc.Deactivate(ctx, manager, admin.ID)
		assert.Equal(t, "FORBIDDEN", domainCode(t, err))
	})
}

func TestUserService_ChangeRole(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	admin := Actor{CompanyID: companyID, UserID: uuid.New(), Role: identity.RoleAdmin}
	users := new(MockUserRepository)
	svc, _, pub := newUserService(users)
	seller := newUser(t, companyID, identity.RoleSeller)
	users.On("FindByIDForCompany", ctx, companyID, seller.ID).Return(seller, nil)
	users.On("Save", ctx, seller).Return(nil)

	resp, err := svc.ChangeRole(ctx, admin, seller.ID, ChangeRoleRequest{Role: "manager"})
	require.NoError(t, err)
	assert.Equal(t, "manager", resp.Role)
	require.NotEmpty(t, pub.events)
	assert.Equal(t, identity.EventTypeUserRoleChanged, pub.events[len(pub.events)-1].EventType())

	_, err = svc.ChangeRole(ctx, admin, seller.ID, ChangeRoleRequest{Role: "admin"})
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))
}

func TestUserService_UpdateSelf(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	users := new(MockUserRepository)
	svc, _, _ := newUserService(users)
	cashier := newUser(t, companyID, identity.RoleCashier)
	actor := Actor{CompanyID: companyID, UserID: cashier.ID, Role: identity.RoleCashier}
	users.On("FindByIDForCompany", ctx, companyID, cashier.ID).Return(cashier, nil)
	users.On("ExistsByEmail", ctx, "nova@loja.com.br").Return(false, nil)
	users.On("Save", ctx, cashier).Return(nil)

	resp, err := svc.Update(ctx, actor, cashier.ID, UpdateUserRequest{Name: "Ana Maria", Email: "Nova@Loja.com.br "})
	require.NoError(t, err)
	assert.Equal(t, "nova@loja.com.br", resp.Email)
	assert.Equal(t, "Ana Maria", resp.Name)
}

func TestUserService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	users := new(MockUserRepository)
	svc, _, _ := newUserService(users)
	seller := newUser(t, companyID, identity.RoleSeller)
	owner := Actor{CompanyID: companyID, UserID: uuid.New(), Role: identity.RoleOwner}
	users.On("FindByIDForCompany", ctx, companyID, seller.ID).Return(seller, nil)
	users.On("Save", ctx, seller).Return(nil)

	require.NoError(t, svc.ResetPassword(ctx, owner, seller.ID, ResetPasswordRequest{TemporaryPassword: "temporaria1"}))
	assert.True(t, seller.MustChangePassword)
	assert.True(t, seller.VerifyPassword("temporaria1"))
}
