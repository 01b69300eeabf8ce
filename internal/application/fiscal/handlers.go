package fiscal

import (
	"context"
	"fmt"

	"github.com/pdv/backend/internal/domain/fiscal"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AutoNFCeHandler issues the NFCe of completed sales for companies that
// enabled automatic issuing
type AutoNFCeHandler struct {
	service   *Service
	companies CompanyLookup
	logger    *zap.Logger
}

// NewAutoNFCeHandler creates a new automatic NFCe handler
func NewAutoNFCeHandler(service *Service, companies CompanyLookup, logger *zap.Logger) *AutoNFCeHandler {
	return &AutoNFCeHandler{service: service, companies: companies, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *AutoNFCeHandler) EventTypes() []string {
	return []string{sale.EventTypeSaleCompleted}
}

// Handle issues the NFCe of a completed sale
func (h *AutoNFCeHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*sale.SaleCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	if !h.service.config.Enabled {
		return nil
	}
	comp, err := h.companies.Lookup(ctx, e.CompanyID())
	if err != nil {
		return err
	}
	if !comp.Fiscal.AutoIssueNFCe {
		return nil
	}
	if err := comp.CanIssueFiscal(); err != nil {
		h.logger.Warn("Skipping automatic NFCe, fiscal registration incomplete",
			zap.String("company_id", comp.ID.String()), zap.Error(err))
		return nil
	}

	doc, err := h.service.IssueForSale(ctx, e.CompanyID(), e.SaleID, IssueForSaleRequest{Type: string(fiscal.TypeNFCe)})
	if err != nil {
		if de, ok := shared.AsDomainError(err); ok && de.Code == "DOCUMENT_ALREADY_ISSUED" {
			return nil
		}
		return fmt.Errorf("failed to issue NFCe for sale %s: %w", e.SaleID, err)
	}
	h.logger.Info("NFCe issued automatically",
		zap.String("sale_id", e.SaleID.String()),
		zap.Int64("number", doc.Number),
		zap.String("status", doc.Status))
	return nil
}
