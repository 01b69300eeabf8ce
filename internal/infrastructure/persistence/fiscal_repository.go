package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/fiscal"
	"gorm.io/gorm"
)

// GormFiscalDocumentRepository implements fiscal.DocumentRepository using GORM
type GormFiscalDocumentRepository struct {
	db *gorm.DB
}

// NewGormFiscalDocumentRepository creates a new GormFiscalDocumentRepository
func NewGormFiscalDocumentRepository(db *gorm.DB) *GormFiscalDocumentRepository {
	return &GormFiscalDocumentRepository{db: db}
}

func (r *GormFiscalDocumentRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*fiscal.Document, error) {
	return findOne[fiscal.Document](conn(ctx, r.db), "company_id = ? AND id = ?", companyID, id)
}

// FindByProviderRef resolves a gateway callback to its document
func (r *GormFiscalDocumentRepository) FindByProviderRef(ctx context.Context, ref string) (*fiscal.Document, error) {
	return findOne[fiscal.Document](conn(ctx, r.db), "provider_ref = ?", ref)
}

// FindActiveBySale returns the pending, processing or authorized document of a sale
func (r *GormFiscalDocumentRepository) FindActiveBySale(ctx context.Context, companyID, saleID uuid.UUID, docType fiscal.DocumentType) (*fiscal.Document, error) {
	return findOne[fiscal.Document](conn(ctx, r.db).Order("created_at DESC"),
		"company_id = ? AND sale_id = ? AND type = ? AND status IN ?",
		companyID, saleID, docType,
		[]fiscal.Status{fiscal.StatusPending, fiscal.StatusProcessing, fiscal.StatusAuthorized})
}

var fiscalOrder = map[string]string{"number": "number", "created_at": "created_at", "authorized_at": "authorized_at", "total": "total"}

func (r *GormFiscalDocumentRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter fiscal.DocumentFilter) ([]fiscal.Document, int64, error) {
	filter.Normalize()
	q := conn(ctx, r.db).Model(&fiscal.Document{}).
		Scopes(forCompany(companyID), search(filter.Search, "access_key", "recipient_name", "recipient_document"))
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.SaleID != nil {
		q = q.Where("sale_id = ?", *filter.SaleID)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}
	docs, total, err := findPage[fiscal.Document](q, filter.Filter, fiscalOrder, "created_at DESC")
	if err != nil {
		return nil, 0, err
	}
	markAll(docs)
	return docs, total, nil
}

// FindProcessing returns documents of every company still awaiting the gateway
func (r *GormFiscalDocumentRepository) FindProcessing(ctx context.Context, olderThan time.Time, limit int) ([]fiscal.Document, error) {
	var docs []fiscal.Document
	err := conn(ctx, r.db).
		Where("status = ? AND updated_at < ?", fiscal.StatusProcessing, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	markAll(docs)
	return docs, nil
}

func (r *GormFiscalDocumentRepository) Save(ctx context.Context, d *fiscal.Document) error {
	return saveVersioned(conn(ctx, r.db), d)
}

// GormFiscalSequenceRepository implements fiscal.SequenceRepository
type GormFiscalSequenceRepository struct {
	db *gorm.DB
}

// NewGormFiscalSequenceRepository creates a new GormFiscalSequenceRepository
func NewGormFiscalSequenceRepository(db *gorm.DB) *GormFiscalSequenceRepository {
	return &GormFiscalSequenceRepository{db: db}
}

const nextFiscalNumberSQL = `INSERT INTO fiscal_sequences (company_id, type, series, last_number, updated_at) VALUES (?, ?, ?, 1, ?)
ON CONFLICT (company_id, type, series) DO UPDATE SET last_number = fiscal_sequences.last_number + 1, updated_at = excluded.updated_at
RETURNING last_number`

// Next increments the sequence of a company, type and series
func (r *GormFiscalSequenceRepository) Next(ctx context.Context, companyID uuid.UUID, docType fiscal.DocumentType, series int) (int64, error) {
	var n int64
	if err := conn(ctx, r.db).Raw(nextFiscalNumberSQL, companyID, docType, series, time.Now()).Scan(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
