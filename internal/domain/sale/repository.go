package sale

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
)

// SaleFilter narrows sale listings
type SaleFilter struct {
	shared.Filter
	From       *time.Time
	To         *time.Time
	Status     Status
	SellerID   *uuid.UUID
	CustomerID *uuid.UUID
	OperatorID *uuid.UUID
}

// SaleRepository defines persistence for sales
type SaleRepository interface {
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Sale, error)
	FindByNumber(ctx context.Context, companyID uuid.UUID, number int64) (*Sale, error)
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter SaleFilter) ([]Sale, int64, error)
	FindCompletedBySession(ctx context.Context, companyID, sessionID uuid.UUID) ([]Sale, error)
	// NextNumber allocates the next sequential sale number of the company
	NextNumber(ctx context.Context, companyID uuid.UUID) (int64, error)
	Save(ctx context.Context, sale *Sale) error
}
