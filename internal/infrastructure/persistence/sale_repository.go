package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/sale"
	"gorm.io/gorm"
)

const saleCounter = "sale"

// GormSaleRepository implements sale.SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_number ASC") }).
		Preload("Payments")
}

// FindByIDForCompany loads a sale with its items and payments
func (r *GormSaleRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*sale.Sale, error) {
	return findOne[sale.Sale](conn(ctx, r.db).Scopes(withLines), "company_id = ? AND id = ?", companyID, id)
}

// FindByNumber loads a sale by its sequential number
func (r *GormSaleRepository) FindByNumber(ctx context.Context, companyID uuid.UUID, number int64) (*sale.Sale, error) {
	return findOne[sale.Sale](conn(ctx, r.db).Scopes(withLines), "company_id = ? AND number = ?", companyID, number)
}

var saleOrder = map[string]string{"number": "number", "total": "total", "created_at": "created_at", "completed_at": "completed_at"}

// FindAllForCompany lists sales without their lines
func (r *GormSaleRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter sale.SaleFilter) ([]sale.Sale, int64, error) {
	filter.Normalize()
	q := conn(ctx, r.db).Model(&sale.Sale{}).
		Scopes(forCompany(companyID), search(filter.Search, "consumer_name", "consumer_document"))
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.SellerID != nil {
		q = q.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.OperatorID != nil {
		q = q.Where("operator_id = ?", *filter.OperatorID)
	}
	sales, total, err := findPage[sale.Sale](q, filter.Filter, saleOrder, "number DESC")
	if err != nil {
		return nil, 0, err
	}
	markAll(sales)
	return sales, total, nil
}

// FindCompletedBySession loads completed sales of a cash session with payments
func (r *GormSaleRepository) FindCompletedBySession(ctx context.Context, companyID, sessionID uuid.UUID) ([]sale.Sale, error) {
	var sales []sale.Sale
	err := conn(ctx, r.db).Preload("Payments").
		Scopes(forCompany(companyID)).
		Where("cash_session_id = ? AND status = ?", sessionID, sale.StatusCompleted).
		Order("number ASC").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	markAll(sales)
	return sales, nil
}

// NextNumber allocates the next sale number of the company
func (r *GormSaleRepository) NextNumber(ctx context.Context, companyID uuid.UUID) (int64, error) {
	return nextValue(ctx, r.db, companyID, saleCounter)
}

// Save writes the sale header and replaces its items and payments
func (r *GormSaleRepository) Save(ctx context.Context, s *sale.Sale) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := saveVersioned(tx, s); err != nil {
			return err
		}
		if err := tx.Where("sale_id = ?", s.ID).Delete(&sale.SaleItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sale_id = ?", s.ID).Delete(&sale.SalePayment{}).Error; err != nil {
			return err
		}
		for i := range s.Items {
			s.Items[i].SaleID = s.ID
		}
		for i := range s.Payments {
			s.Payments[i].SaleID = s.ID
		}
		if len(s.Items) > 0 {
			if err := tx.Create(&s.Items).Error; err != nil {
				return err
			}
		}
		if len(s.Payments) > 0 {
			if err := tx.Create(&s.Payments).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
