package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/report"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormSalesQueryRepository implements report.SalesQueryRepository using GORM
type GormSalesQueryRepository struct {
	db *gorm.DB
}

// NewGormSalesQueryRepository creates a new GormSalesQueryRepository
func NewGormSalesQueryRepository(db *gorm.DB) *GormSalesQueryRepository {
	return &GormSalesQueryRepository{db: db}
}

// completedIn restricts the sales table (aliased s) to completed sales of the
// period, optionally of a single seller
func completedIn(companyID uuid.UUID, p report.Period, sellerID *uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("s.company_id = ? AND s.status = ? AND s.completed_at >= ? AND s.completed_at < ?",
			companyID, sale.StatusCompleted, p.From, p.To)
		if sellerID != nil {
			db = db.Where("s.seller_id = ?", *sellerID)
		}
		return db
	}
}

type salesTotalsRow struct {
	Count     int64
	Gross     decimal.NullDecimal
	Discounts decimal.NullDecimal
	Net       decimal.NullDecimal
}

// Totals aggregates count, gross, discounts and net of the period
func (r *GormSalesQueryRepository) Totals(ctx context.Context, companyID uuid.UUID, p report.Period, sellerID *uuid.UUID) (report.SalesTotals, error) {
	var row salesTotalsRow
	err := conn(ctx, r.db).Table("sales AS s").
		Select("COUNT(*) AS count, COALESCE(SUM(s.subtotal), 0) AS gross, COALESCE(SUM(s.discount), 0) AS discounts, COALESCE(SUM(s.total), 0) AS net").
		Scopes(completedIn(companyID, p, sellerID)).
		Scan(&row).Error
	if err != nil {
		return report.SalesTotals{}, err
	}
	return report.SalesTotals{
		Count:     row.Count,
		Gross:     row.Gross.Decimal,
		Discounts: row.Discounts.Decimal,
		Net:       row.Net.Decimal,
	}, nil
}

type methodRow struct {
	Method string
	Count  int64
	Amount decimal.NullDecimal
}

// ByMethod sums payments per method; cash is reported net of change given
func (r *GormSalesQueryRepository) ByMethod(ctx context.Context, companyID uuid.UUID, p report.Period, sellerID *uuid.UUID) ([]report.MethodTotal, error) {
	db := conn(ctx, r.db)
	var rows []methodRow
	err := db.Table("sale_payments AS p").
		Joins("JOIN sales AS s ON s.id = p.sale_id").
		Select("p.method AS method, COUNT(*) AS count, COALESCE(SUM(p.amount), 0) AS amount").
		Scopes(completedIn(companyID, p, sellerID)).
		Group("p.method").
		Order("amount DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	var change decimal.NullDecimal
	if err := db.Table("sales AS s").
		Select("COALESCE(SUM(s.change_amount), 0)").
		Scopes(completedIn(companyID, p, sellerID)).
		Scan(&change).Error; err != nil {
		return nil, err
	}
	totals := make([]report.MethodTotal, 0, len(rows))
	for _, row := range rows {
		amount := row.Amount.Decimal
		if row.Method == string(sale.MethodCash) {
			amount = amount.Sub(change.Decimal)
		}
		totals = append(totals, report.MethodTotal{Method: row.Method, Count: row.Count, Amount: amount})
	}
	return totals, nil
}

type sellerRow struct {
	SellerID       uuid.UUID
	SellerName     string
	CommissionRate decimal.NullDecimal
	Count          int64
	Total          decimal.NullDecimal
}

// BySeller ranks sellers by revenue and computes their commission
func (r *GormSalesQueryRepository) BySeller(ctx context.Context, companyID uuid.UUID, p report.Period, sellerID *uuid.UUID) ([]report.SellerTotal, error) {
	q := conn(ctx, r.db).Table("sales AS s").
		Joins("JOIN sellers AS sl ON sl.id = s.seller_id").
		Select("s.seller_id AS seller_id, sl.name AS seller_name, sl.commission_rate AS commission_rate, COUNT(*) AS count, COALESCE(SUM(s.total), 0) AS total").
		Scopes(completedIn(companyID, p, sellerID))
	var rows []sellerRow
	if err := q.Group("s.seller_id, sl.name, sl.commission_rate").Order("total DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	hundred := decimal.NewFromInt(100)
	totals := make([]report.SellerTotal, 0, len(rows))
	for _, row := range rows {
		rate := row.CommissionRate.Decimal
		totals = append(totals, report.SellerTotal{
			SellerID:       row.SellerID,
			SellerName:     row.SellerName,
			Count:          row.Count,
			Total:          row.Total.Decimal,
			CommissionRate: rate,
			Commission:     row.Total.Decimal.Mul(rate).Div(hundred).Round(2),
		})
	}
	return totals, nil
}

type productRow struct {
	ProductID   uuid.UUID
	ProductCode string
	ProductName string
	Quantity    decimal.NullDecimal
	Total       decimal.NullDecimal
}

// TopProducts ranks products by revenue
func (r *GormSalesQueryRepository) TopProducts(ctx context.Context, companyID uuid.UUID, p report.Period, sellerID *uuid.UUID, limit int) ([]report.ProductRanking, error) {
	if limit <= 0 {
		limit = report.DefaultTopN
	}
	var rows []productRow
	err := conn(ctx, r.db).Table("sale_items AS i").
		Joins("JOIN sales AS s ON s.id = i.sale_id").
		Select("i.product_id AS product_id, MAX(i.product_code) AS product_code, MAX(i.product_name) AS product_name, COALESCE(SUM(i.quantity), 0) AS quantity, COALESCE(SUM(i.total), 0) AS total").
		Scopes(completedIn(companyID, p, sellerID)).
		Group("i.product_id").
		Order("total DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	ranking := make([]report.ProductRanking, 0, len(rows))
	for i, row := range rows {
		ranking = append(ranking, report.ProductRanking{
			Rank:        i + 1,
			ProductID:   row.ProductID,
			ProductCode: row.ProductCode,
			ProductName: row.ProductName,
			Quantity:    row.Quantity.Decimal,
			Total:       row.Total.Decimal,
		})
	}
	return ranking, nil
}
