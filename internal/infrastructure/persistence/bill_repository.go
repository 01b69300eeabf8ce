package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/bill"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormBillRepository implements bill.BillRepository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

var openBillStatuses = []bill.Status{bill.StatusPending, bill.StatusPartial}

// FindByIDForCompany finds a bill by ID within a company
func (r *GormBillRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*bill.Bill, error) {
	return findOne[bill.Bill](conn(ctx, r.db), "company_id = ? AND id = ?", companyID, id)
}

var billOrder = map[string]string{
	"due_date": "due_date", "amount": "amount", "created_at": "created_at",
	"description": "description", "status": "status",
}

// FindAllForCompany lists bills, by due date by default
func (r *GormBillRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter bill.BillFilter) ([]bill.Bill, int64, error) {
	filter.Normalize()
	q := conn(ctx, r.db).Model(&bill.Bill{}).
		Scopes(forCompany(companyID), search(filter.Search, "description", "counterparty", "document_number", "category"))
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.DueFrom != nil {
		q = q.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		q = q.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.Overdue {
		q = q.Where("status IN ? AND due_date < ?", openBillStatuses, today())
	}
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	bills, total, err := findPage[bill.Bill](q, filter.Filter, billOrder, "due_date ASC")
	if err != nil {
		return nil, 0, err
	}
	markAll(bills)
	return bills, total, nil
}

// FindBySale returns the bills generated by a sale
func (r *GormBillRepository) FindBySale(ctx context.Context, companyID, saleID uuid.UUID) ([]bill.Bill, error) {
	var bills []bill.Bill
	err := conn(ctx, r.db).Scopes(forCompany(companyID)).
		Where("sale_id = ?", saleID).
		Order("installment ASC").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	markAll(bills)
	return bills, nil
}

// FindDueForReminder returns open receivables with a customer, due by the
// given date and not reminded today, across all companies
func (r *GormBillRepository) FindDueForReminder(ctx context.Context, dueBy time.Time, limit int) ([]bill.Bill, error) {
	var bills []bill.Bill
	start := truncate(time.Now())
	err := conn(ctx, r.db).
		Where("type = ? AND status IN ? AND customer_id IS NOT NULL", bill.TypeReceivable, openBillStatuses).
		Where("due_date <= ?", dueBy).
		Where("last_reminder_at IS NULL OR last_reminder_at < ?", start).
		Order("due_date ASC").
		Limit(limit).
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	markAll(bills)
	return bills, nil
}

type billTotalsRow struct {
	Type          bill.Type
	OpenCount     int64
	OpenAmount    decimal.NullDecimal
	OverdueCount  int64
	OverdueAmount decimal.NullDecimal
	PaidAmount    decimal.NullDecimal
}

// Summary aggregates open, overdue and paid amounts per bill type
func (r *GormBillRepository) Summary(ctx context.Context, companyID uuid.UUID, now time.Time) ([]bill.Totals, error) {
	day := truncate(now)
	var rows []billTotalsRow
	err := conn(ctx, r.db).Model(&bill.Bill{}).
		Scopes(forCompany(companyID)).
		Select(`type,
			COALESCE(SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END), 0) AS open_count,
			COALESCE(SUM(CASE WHEN status IN ? THEN amount - amount_paid ELSE 0 END), 0) AS open_amount,
			COALESCE(SUM(CASE WHEN status IN ? AND due_date < ? THEN 1 ELSE 0 END), 0) AS overdue_count,
			COALESCE(SUM(CASE WHEN status IN ? AND due_date < ? THEN amount - amount_paid ELSE 0 END), 0) AS overdue_amount,
			COALESCE(SUM(amount_paid), 0) AS paid_amount`,
			openBillStatuses, openBillStatuses, openBillStatuses, day, openBillStatuses, day).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := make([]bill.Totals, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, bill.Totals{
			Type:          row.Type,
			OpenCount:     row.OpenCount,
			OpenAmount:    row.OpenAmount.Decimal,
			OverdueCount:  row.OverdueCount,
			OverdueAmount: row.OverdueAmount.Decimal,
			PaidAmount:    row.PaidAmount.Decimal,
		})
	}
	return totals, nil
}

// Save creates or updates a bill
func (r *GormBillRepository) Save(ctx context.Context, b *bill.Bill) error {
	return saveVersioned(conn(ctx, r.db), b)
}

// SaveBatch stores a group of installments atomically
func (r *GormBillRepository) SaveBatch(ctx context.Context, bills []*bill.Bill) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		for _, b := range bills {
			if err := saveVersioned(tx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteForCompany removes a bill
func (r *GormBillRepository) DeleteForCompany(ctx context.Context, companyID, id uuid.UUID) error {
	return deleteForCompany(conn(ctx, r.db), &bill.Bill{}, companyID, id)
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func today() time.Time {
	return truncate(time.Now())
}
