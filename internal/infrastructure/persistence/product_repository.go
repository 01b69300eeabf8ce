package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/catalog"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByIDForCompany finds a product by ID within a company
func (r *GormProductRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*catalog.Product, error) {
	return findOne[catalog.Product](conn(ctx, r.db), "company_id = ? AND id = ?", companyID, id)
}

// FindByCode finds a product by its company-unique code
func (r *GormProductRepository) FindByCode(ctx context.Context, companyID uuid.UUID, code string) (*catalog.Product, error) {
	return findOne[catalog.Product](conn(ctx, r.db), "company_id = ? AND code = ?", companyID, strings.ToUpper(strings.TrimSpace(code)))
}

// FindByBarcode finds a product by GTIN
func (r *GormProductRepository) FindByBarcode(ctx context.Context, companyID uuid.UUID, barcode string) (*catalog.Product, error) {
	return findOne[catalog.Product](conn(ctx, r.db), "company_id = ? AND barcode = ?", companyID, shared.OnlyDigits(barcode))
}

// FindByIDs loads the products of a company with the given IDs
func (r *GormProductRepository) FindByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]catalog.Product, error) {
	var products []catalog.Product
	if len(ids) == 0 {
		return products, nil
	}
	if err := conn(ctx, r.db).Scopes(forCompany(companyID)).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	markAll(products)
	return products, nil
}

var productOrder = map[string]string{
	"code": "code", "name": "name", "sale_price": "sale_price",
	"stock_quantity": "stock_quantity", "created_at": "created_at", "updated_at": "updated_at",
}

// FindAllForCompany lists products. Filters: status, low_stock.
func (r *GormProductRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]catalog.Product, int64, error) {
	filter.Normalize()
	q := conn(ctx, r.db).Model(&catalog.Product{}).
		Scopes(forCompany(companyID), search(filter.Search, "name", "code", "barcode"))
	if status, ok := filter.Filters["status"]; ok {
		q = q.Where("status = ?", status)
	}
	if v, ok := filter.Filters["low_stock"]; ok && v == "true" {
		q = q.Scopes(lowStock)
	}
	products, total, err := findPage[catalog.Product](q, filter, productOrder, "name ASC")
	if err != nil {
		return nil, 0, err
	}
	markAll(products)
	return products, total, nil
}

func lowStock(db *gorm.DB) *gorm.DB {
	return db.Where("track_stock = ? AND status = ? AND min_stock > 0 AND stock_quantity <= min_stock", true, catalog.ProductStatusActive)
}

// CountLowStock counts active tracked products at or below their minimum
func (r *GormProductRepository) CountLowStock(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&catalog.Product{}).Scopes(forCompany(companyID), lowStock).Count(&n).Error
	return n, err
}

// ExistsByCode checks if a code is taken within the company
func (r *GormProductRepository) ExistsByCode(ctx context.Context, companyID uuid.UUID, code string) (bool, error) {
	return exists(conn(ctx, r.db), &catalog.Product{}, "company_id = ? AND code = ?", companyID, strings.ToUpper(strings.TrimSpace(code)))
}

// ExistsByBarcode checks if a GTIN is taken within the company
func (r *GormProductRepository) ExistsByBarcode(ctx context.Context, companyID uuid.UUID, barcode string) (bool, error) {
	return exists(conn(ctx, r.db), &catalog.Product{}, "company_id = ? AND barcode = ?", companyID, shared.OnlyDigits(barcode))
}

// HasSales reports whether any sale item references the product
func (r *GormProductRepository) HasSales(ctx context.Context, companyID, id uuid.UUID) (bool, error) {
	return exists(conn(ctx, r.db), &sale.SaleItem{}, "product_id = ? AND sale_id IN (?)",
		id, conn(ctx, r.db).Model(&sale.Sale{}).Select("id").Where("company_id = ?", companyID))
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	return saveVersioned(conn(ctx, r.db), p)
}

// DeleteForCompany removes a product
func (r *GormProductRepository) DeleteForCompany(ctx context.Context, companyID, id uuid.UUID) error {
	return deleteForCompany(conn(ctx, r.db), &catalog.Product{}, companyID, id)
}

// GormStockMovementRepository implements catalog.StockMovementRepository
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create appends movements
func (r *GormStockMovementRepository) Create(ctx context.Context, movements ...*catalog.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return conn(ctx, r.db).Create(movements).Error
}

// FindByProduct lists the movements of a product, newest first
func (r *GormStockMovementRepository) FindByProduct(ctx context.Context, companyID, productID uuid.UUID, filter shared.Filter) ([]catalog.StockMovement, int64, error) {
	filter.Normalize()
	q := conn(ctx, r.db).Model(&catalog.StockMovement{}).
		Scopes(forCompany(companyID)).
		Where("product_id = ?", productID)
	if kind, ok := filter.Filters["type"]; ok {
		q = q.Where("type = ?", kind)
	}
	return findPage[catalog.StockMovement](q, filter, map[string]string{"created_at": "created_at"}, "created_at DESC")
}
