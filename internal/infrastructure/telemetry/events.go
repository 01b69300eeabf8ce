package telemetry

import (
	"context"

	"github.com/pdv/backend/internal/domain/fiscal"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/shared"
)

// EventMetrics turns sale and fiscal domain events into business counters
type EventMetrics struct {
	metrics *Metrics
}

// NewEventMetrics creates an event handler recording into m
func NewEventMetrics(m *Metrics) *EventMetrics {
	return &EventMetrics{metrics: m}
}

// EventTypes implements shared.EventHandler
func (h *EventMetrics) EventTypes() []string {
	return []string{
		sale.EventTypeSaleCompleted,
		sale.EventTypeSaleCancelled,
		fiscal.EventTypeDocumentAuthorized,
		fiscal.EventTypeDocumentRejected,
		fiscal.EventTypeDocumentCancelled,
	}
}

// Handle implements shared.EventHandler
func (h *EventMetrics) Handle(_ context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *sale.SaleCompletedEvent:
		byMethod := make(map[string]float64, len(e.ByMethod))
		for method, amount := range e.ByMethod {
			byMethod[string(method)] = amount.InexactFloat64()
		}
		h.metrics.SaleCompleted(byMethod)
	case *sale.SaleCancelledEvent:
		h.metrics.SaleCancelled()
	case *fiscal.DocumentAuthorizedEvent:
		h.metrics.FiscalDocument(string(e.DocType), "authorized")
	case *fiscal.DocumentRejectedEvent:
		h.metrics.FiscalDocument(string(e.DocType), "rejected")
	case *fiscal.DocumentCancelledEvent:
		h.metrics.FiscalDocument(string(e.DocType), "cancelled")
	}
	return nil
}
