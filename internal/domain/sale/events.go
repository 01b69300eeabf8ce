package sale

import (
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const AggregateTypeSale = "Sale"

const (
	EventTypeSaleCompleted = "SaleCompleted"
	EventTypeSaleCancelled = "SaleCancelled"
)

// SaleCompletedEvent is published when a sale is paid and closed
type SaleCompletedEvent struct {
	shared.BaseDomainEvent
	SaleID      uuid.UUID       `json:"sale_id"`
	Number      int64           `json:"number"`
	CustomerID  *uuid.UUID      `json:"customer_id,omitempty"`
	OperatorID  uuid.UUID       `json:"operator_id"`
	Total       decimal.Decimal `json:"total"`
	StoreCredit decimal.Decimal `json:"store_credit"`
	// Installments of the store credit payment, when present
	StoreCreditInstallments int `json:"store_credit_installments"`
	// ByMethod is the amount received per payment method, change excluded
	ByMethod map[PaymentMethod]decimal.Decimal `json:"by_method"`
}

// NewSaleCompletedEvent creates a SaleCompletedEvent
func NewSaleCompletedEvent(s *Sale) *SaleCompletedEvent {
	e := &SaleCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCompleted, AggregateTypeSale, s.ID, s.CompanyID),
		SaleID:          s.ID,
		Number:          s.Number,
		CustomerID:      s.CustomerID,
		OperatorID:      s.OperatorID,
		Total:           s.Total,
		StoreCredit:     decimal.Zero,
		ByMethod:        make(map[PaymentMethod]decimal.Decimal, len(s.Payments)),
	}
	for _, p := range s.Payments {
		e.ByMethod[p.Method] = e.ByMethod[p.Method].Add(p.Amount)
	}
	if s.Change.IsPositive() {
		e.ByMethod[MethodCash] = e.ByMethod[MethodCash].Sub(s.Change)
	}
	for _, p := range s.StoreCreditPayments() {
		e.StoreCredit = e.StoreCredit.Add(p.Amount)
		if p.Installments > e.StoreCreditInstallments {
			e.StoreCreditInstallments = p.Installments
		}
	}
	return e
}

// SaleCancelledEvent is published when a sale is cancelled
type SaleCancelledEvent struct {
	shared.BaseDomainEvent
	SaleID       uuid.UUID `json:"sale_id"`
	Number       int64     `json:"number"`
	Reason       string    `json:"reason"`
	WasCompleted bool      `json:"was_completed"`
}

// NewSaleCancelledEvent creates a SaleCancelledEvent
func NewSaleCancelledEvent(s *Sale, wasCompleted bool) *SaleCancelledEvent {
	return &SaleCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCancelled, AggregateTypeSale, s.ID, s.CompanyID),
		SaleID:          s.ID,
		Number:          s.Number,
		Reason:          s.CancelReason,
		WasCompleted:    wasCompleted,
	}
}
