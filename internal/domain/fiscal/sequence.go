package fiscal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
)

// Sequence tracks the last number used per company, type and series
type Sequence struct {
	CompanyID  uuid.UUID    `gorm:"type:uuid;primaryKey"`
	Type       DocumentType `gorm:"type:varchar(10);primaryKey"`
	Series     int          `gorm:"primaryKey"`
	LastNumber int64        `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (Sequence) TableName() string {
	return "fiscal_sequences"
}

// DocumentFilter narrows fiscal document listings
type DocumentFilter struct {
	shared.Filter
	Type   DocumentType
	Status Status
	SaleID *uuid.UUID
	From   *time.Time
	To     *time.Time
}

// DocumentRepository defines persistence for fiscal documents
type DocumentRepository interface {
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Document, error)
	FindByProviderRef(ctx context.Context, ref string) (*Document, error)
	FindActiveBySale(ctx context.Context, companyID, saleID uuid.UUID, docType DocumentType) (*Document, error)
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter DocumentFilter) ([]Document, int64, error)
	// FindProcessing returns documents awaiting a gateway answer, oldest first
	FindProcessing(ctx context.Context, olderThan time.Time, limit int) ([]Document, error)
	Save(ctx context.Context, doc *Document) error
}

// SequenceRepository allocates document numbers
type SequenceRepository interface {
	// Next atomically increments and returns the next number
	Next(ctx context.Context, companyID uuid.UUID, docType DocumentType, series int) (int64, error)
}
