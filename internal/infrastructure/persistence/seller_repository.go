package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/seller"
	"github.com/pdv/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormSellerRepository implements seller.SellerRepository using GORM
type GormSellerRepository struct {
	db *gorm.DB
}

// NewGormSellerRepository creates a new GormSellerRepository
func NewGormSellerRepository(db *gorm.DB) *GormSellerRepository {
	return &GormSellerRepository{db: db}
}

func (r *GormSellerRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*seller.Seller, error) {
	return findOne[seller.Seller](conn(ctx, r.db), "company_id = ? AND id = ?", companyID, id)
}

// FindByUserID finds the seller linked to a login
func (r *GormSellerRepository) FindByUserID(ctx context.Context, companyID, userID uuid.UUID) (*seller.Seller, error) {
	return findOne[seller.Seller](conn(ctx, r.db), "company_id = ? AND user_id = ?", companyID, userID)
}

var sellerOrder = map[string]string{"name": "name", "commission_rate": "commission_rate", "created_at": "created_at"}

// FindAllForCompany lists sellers. Filters: active.
func (r *GormSellerRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]seller.Seller, int64, error) {
	filter.Normalize()
	q := conn(ctx, r.db).Model(&seller.Seller{}).
		Scopes(forCompany(companyID), search(filter.Search, "name", "cpf", "email"))
	if v, ok := filter.Filters["active"]; ok {
		q = q.Where("active = ?", v == "true" || v == true)
	}
	sellers, total, err := findPage[seller.Seller](q, filter, sellerOrder, "name ASC")
	if err != nil {
		return nil, 0, err
	}
	markAll(sellers)
	return sellers, total, nil
}

func (r *GormSellerRepository) HasSales(ctx context.Context, companyID, id uuid.UUID) (bool, error) {
	return exists(conn(ctx, r.db), &sale.Sale{}, "company_id = ? AND seller_id = ?", companyID, id)
}

func (r *GormSellerRepository) Save(ctx context.Context, s *seller.Seller) error {
	return saveVersioned(conn(ctx, r.db), s)
}

func (r *GormSellerRepository) DeleteForCompany(ctx context.Context, companyID, id uuid.UUID) error {
	return deleteForCompany(conn(ctx, r.db), &seller.Seller{}, companyID, id)
}
