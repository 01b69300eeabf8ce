package bill

import (
	"context"
	"fmt"
	"time"

	"github.com/pdv/backend/internal/domain/bill"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// StoreCreditHandler creates the receivables of sales paid with store credit
// and cancels them when the sale is cancelled
type StoreCreditHandler struct {
	bills  bill.BillRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewStoreCreditHandler creates a new store credit handler
func NewStoreCreditHandler(bills bill.BillRepository, logger *zap.Logger) *StoreCreditHandler {
	return &StoreCreditHandler{bills: bills, logger: logger, now: time.Now}
}

// EventTypes returns the event types this handler is interested in
func (h *StoreCreditHandler) EventTypes() []string {
	return []string{sale.EventTypeSaleCompleted, sale.EventTypeSaleCancelled}
}

// Handle processes sale events
func (h *StoreCreditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *sale.SaleCompletedEvent:
		return h.onCompleted(ctx, e)
	case *sale.SaleCancelledEvent:
		return h.onCancelled(ctx, e)
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
}

func (h *StoreCreditHandler) onCompleted(ctx context.Context, e *sale.SaleCompletedEvent) error {
	if !e.StoreCredit.IsPositive() || e.CustomerID == nil {
		return nil
	}
	existing, err := h.bills.FindBySale(ctx, e.CompanyID(), e.SaleID)
	if err != nil {
		return fmt.Errorf("failed to check existing receivables: %w", err)
	}
	if len(existing) > 0 {
		h.logger.Warn("Receivables already exist for sale, skipping", zap.String("sale_id", e.SaleID.String()))
		return nil
	}

	// never more installments than cents
	installments := e.StoreCreditInstallments
	if cents := shared.Cents(e.StoreCredit); int64(installments) > cents {
		installments = int(cents)
	}

	saleID, customerID := e.SaleID, *e.CustomerID
	bills, err := bill.NewBills(e.CompanyID(), bill.Draft{
		Type:           bill.TypeReceivable,
		Description:    fmt.Sprintf("Venda #%d - crediário", e.Number),
		Category:       "crediario",
		CustomerID:     &customerID,
		SaleID:         &saleID,
		DocumentNumber: fmt.Sprintf("%d", e.Number),
		Amount:         e.StoreCredit,
		DueDate:        h.now().AddDate(0, 1, 0),
		Installments:   installments,
	})
	if err != nil {
		return err
	}
	for _, b := range bills {
		b.ClearDomainEvents()
	}
	if err := h.bills.SaveBatch(ctx, bills); err != nil {
		return fmt.Errorf("failed to save receivables: %w", err)
	}
	h.logger.Info("Store credit receivables created",
		zap.String("sale_id", e.SaleID.String()),
		zap.Int("installments", len(bills)),
		zap.String("amount", e.StoreCredit.StringFixed(2)))
	return nil
}

func (h *StoreCreditHandler) onCancelled(ctx context.Context, e *sale.SaleCancelledEvent) error {
	if !e.WasCompleted {
		return nil
	}
	bills, err := h.bills.FindBySale(ctx, e.CompanyID(), e.SaleID)
	if err != nil {
		return err
	}
	for i := range bills {
		b := &bills[i]
		if b.Status == bill.StatusPaid || b.Status == bill.StatusCancelled {
			continue
		}
		if err := b.Cancel(); err != nil {
			return err
		}
		if err := h.bills.Save(ctx, b); err != nil {
			return err
		}
	}
	return nil
}
