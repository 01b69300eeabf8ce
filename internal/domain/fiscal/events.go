package fiscal

import (
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
)

const AggregateTypeFiscalDocument = "FiscalDocument"

const (
	EventTypeDocumentAuthorized = "FiscalDocumentAuthorized"
	EventTypeDocumentRejected   = "FiscalDocumentRejected"
	EventTypeDocumentCancelled  = "FiscalDocumentCancelled"
)

// DocumentAuthorizedEvent is published when the gateway authorizes a document
type DocumentAuthorizedEvent struct {
	shared.BaseDomainEvent
	DocType   DocumentType `json:"doc_type"`
	SaleID    *uuid.UUID   `json:"sale_id,omitempty"`
	AccessKey string       `json:"access_key"`
}

// NewDocumentAuthorizedEvent creates a DocumentAuthorizedEvent
func NewDocumentAuthorizedEvent(d *Document) *DocumentAuthorizedEvent {
	return &DocumentAuthorizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentAuthorized, AggregateTypeFiscalDocument, d.ID, d.CompanyID),
		DocType:         d.Type,
		SaleID:          d.SaleID,
		AccessKey:       d.AccessKey,
	}
}

// DocumentRejectedEvent is published on rejection
type DocumentRejectedEvent struct {
	shared.BaseDomainEvent
	DocType DocumentType `json:"doc_type"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
}

// NewDocumentRejectedEvent creates a DocumentRejectedEvent
func NewDocumentRejectedEvent(d *Document) *DocumentRejectedEvent {
	return &DocumentRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentRejected, AggregateTypeFiscalDocument, d.ID, d.CompanyID),
		DocType:         d.Type,
		Code:            d.RejectionCode,
		Message:         d.RejectionMessage,
	}
}

// DocumentCancelledEvent is published when a document is cancelled
type DocumentCancelledEvent struct {
	shared.BaseDomainEvent
	DocType DocumentType `json:"doc_type"`
	SaleID  *uuid.UUID   `json:"sale_id,omitempty"`
}

// NewDocumentCancelledEvent creates a DocumentCancelledEvent
func NewDocumentCancelledEvent(d *Document) *DocumentCancelledEvent {
	return &DocumentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCancelled, AggregateTypeFiscalDocument, d.ID, d.CompanyID),
		DocType:         d.Type,
		SaleID:          d.SaleID,
	}
}
