package company

import (
	"context"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
)

// CompanyRepository defines persistence for companies
type CompanyRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Company, error)
	FindByCNPJ(ctx context.Context, cnpj string) (*Company, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Company, int64, error)
	FindActiveIDs(ctx context.Context) ([]uuid.UUID, error)
	ExistsByCNPJ(ctx context.Context, cnpj string) (bool, error)
	Save(ctx context.Context, company *Company) error
}
