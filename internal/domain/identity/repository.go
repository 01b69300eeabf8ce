package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
)

// UserRepository defines persistence for users
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]User, int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountActiveOwners(ctx context.Context, companyID uuid.UUID) (int64, error)
	Save(ctx context.Context, user *User) error
}
