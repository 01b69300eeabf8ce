package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/identity"
	"github.com/pdv/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID finds a user by ID regardless of company (token refresh)
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var u identity.User
	if err := conn(ctx, r.db).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	u.MarkPersisted()
	return &u, nil
}

// FindByIDForCompany finds a user of a company
func (r *GormUserRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*identity.User, error) {
	var u identity.User
	if err := conn(ctx, r.db).Scopes(forCompany(companyID)).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	u.MarkPersisted()
	return &u, nil
}

// FindByEmail finds a user by the globally unique login email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var u identity.User
	if err := conn(ctx, r.db).First(&u, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error; err != nil {
		return nil, notFound(err)
	}
	u.MarkPersisted()
	return &u, nil
}

var userOrder = map[string]string{"name": "name", "email": "email", "role": "role", "created_at": "created_at", "last_login_at": "last_login_at"}

// FindAllForCompany lists users of a company. Filters: role, status.
func (r *GormUserRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]identity.User, int64, error) {
	filter.Normalize()
	q := conn(ctx, r.db).Model(&identity.User{}).
		Scopes(forCompany(companyID), search(filter.Search, "name", "email"))
	if role, ok := filter.Filters["role"]; ok {
		q = q.Where("role = ?", role)
	}
	if status, ok := filter.Filters["status"]; ok {
		q = q.Where("status = ?", status)
	}
	users, total, err := findPage[identity.User](q, filter, userOrder, "name ASC")
	if err != nil {
		return nil, 0, err
	}
	markAll(users)
	return users, total, nil
}

// CountActiveOwners counts active owners of a company
func (r *GormUserRepository) CountActiveOwners(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&identity.User{}).
		Scopes(forCompany(companyID)).
		Where("role = ? AND status = ?", identity.RoleOwner, identity.UserStatusActive).
		Count(&n).Error
	return n, err
}

// ExistsByEmail checks whether an email is already taken
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return exists(conn(ctx, r.db), &identity.User{}, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// Save creates or updates a user
func (r *GormUserRepository) Save(ctx context.Context, u *identity.User) error {
	return saveVersioned(conn(ctx, r.db), u)
}
