package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
)

// ProductRepository defines persistence for products
type ProductRepository interface {
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Product, error)
	FindByCode(ctx context.Context, companyID uuid.UUID, code string) (*Product, error)
	FindByBarcode(ctx context.Context, companyID uuid.UUID, barcode string) (*Product, error)
	FindByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]Product, error)
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]Product, int64, error)
	CountLowStock(ctx context.Context, companyID uuid.UUID) (int64, error)
	ExistsByCode(ctx context.Context, companyID uuid.UUID, code string) (bool, error)
	ExistsByBarcode(ctx context.Context, companyID uuid.UUID, barcode string) (bool, error)
	HasSales(ctx context.Context, companyID, id uuid.UUID) (bool, error)
	Save(ctx context.Context, product *Product) error
	DeleteForCompany(ctx context.Context, companyID, id uuid.UUID) error
}

// StockMovementRepository stores stock movements
type StockMovementRepository interface {
	Create(ctx context.Context, movements ...*StockMovement) error
	FindByProduct(ctx context.Context, companyID, productID uuid.UUID, filter shared.Filter) ([]StockMovement, int64, error)
}
