package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/printing"
	"github.com/pdv/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPrinterRepository implements printing.PrinterRepository using GORM
type GormPrinterRepository struct {
	db *gorm.DB
}

// NewGormPrinterRepository creates a new GormPrinterRepository
func NewGormPrinterRepository(db *gorm.DB) *GormPrinterRepository {
	return &GormPrinterRepository{db: db}
}

func (r *GormPrinterRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*printing.Printer, error) {
	return findOne[printing.Printer](conn(ctx, r.db), "company_id = ? AND id = ?", companyID, id)
}

// FindDefault returns the active default printer of the company
func (r *GormPrinterRepository) FindDefault(ctx context.Context, companyID uuid.UUID) (*printing.Printer, error) {
	return findOne[printing.Printer](conn(ctx, r.db), "company_id = ? AND is_default = ? AND active = ?", companyID, true, true)
}

func (r *GormPrinterRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID) ([]printing.Printer, error) {
	var printers []printing.Printer
	if err := conn(ctx, r.db).Scopes(forCompany(companyID)).Order("is_default DESC, name ASC").Find(&printers).Error; err != nil {
		return nil, err
	}
	markAll(printers)
	return printers, nil
}

func (r *GormPrinterRepository) Save(ctx context.Context, p *printing.Printer) error {
	return saveVersioned(conn(ctx, r.db), p)
}

// SetDefault makes one printer the default and clears the flag on the others
func (r *GormPrinterRepository) SetDefault(ctx context.Context, companyID, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&printing.Printer{}).
			Where("company_id = ? AND id <> ? AND is_default = ?", companyID, id, true).
			Updates(map[string]any{"is_default": false, "version": gorm.Expr("version + 1")}).Error; err != nil {
			return err
		}
		res := tx.Model(&printing.Printer{}).
			Where("company_id = ? AND id = ?", companyID, id).
			Updates(map[string]any{"is_default": true, "version": gorm.Expr("version + 1")})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *GormPrinterRepository) DeleteForCompany(ctx context.Context, companyID, id uuid.UUID) error {
	return deleteForCompany(conn(ctx, r.db), &printing.Printer{}, companyID, id)
}

// GormPrintJobRepository implements printing.JobRepository using GORM
type GormPrintJobRepository struct {
	db *gorm.DB
}

// NewGormPrintJobRepository creates a new GormPrintJobRepository
func NewGormPrintJobRepository(db *gorm.DB) *GormPrintJobRepository {
	return &GormPrintJobRepository{db: db}
}

func (r *GormPrintJobRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter printing.JobFilter) ([]printing.Job, int64, error) {
	filter.Normalize()
	q := conn(ctx, r.db).Model(&printing.Job{}).Scopes(forCompany(companyID))
	if filter.PrinterID != nil {
		q = q.Where("printer_id = ?", *filter.PrinterID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	return findPage[printing.Job](q, filter.Filter, map[string]string{"created_at": "created_at"}, "created_at DESC")
}

// Save upserts a job
func (r *GormPrintJobRepository) Save(ctx context.Context, j *printing.Job) error {
	return conn(ctx, r.db).Clauses(clause.OnConflict{UpdateAll: true}).Create(j).Error
}
