package bill

import (
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const AggregateTypeBill = "Bill"

const (
	EventTypeBillCreated = "BillCreated"
	EventTypeBillPaid    = "BillPaid"
)

// BillCreatedEvent is published for each created bill
type BillCreatedEvent struct {
	shared.BaseDomainEvent
	BillType Type            `json:"bill_type"`
	Amount   decimal.Decimal `json:"amount"`
}

// NewBillCreatedEvent creates a BillCreatedEvent
func NewBillCreatedEvent(b *Bill) *BillCreatedEvent {
	return &BillCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillCreated, AggregateTypeBill, b.ID, b.CompanyID),
		BillType:        b.Type,
		Amount:          b.Amount,
	}
}

// BillPaidEvent is published when a payment is registered
type BillPaidEvent struct {
	shared.BaseDomainEvent
	BillID  uuid.UUID       `json:"bill_id"`
	Amount  decimal.Decimal `json:"amount"`
	Balance decimal.Decimal `json:"balance"`
	Status  Status          `json:"status"`
}

// NewBillPaidEvent creates a BillPaidEvent
func NewBillPaidEvent(b *Bill, amount decimal.Decimal) *BillPaidEvent {
	return &BillPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillPaid, AggregateTypeBill, b.ID, b.CompanyID),
		BillID:          b.ID,
		Amount:          amount,
		Balance:         b.Balance(),
		Status:          b.Status,
	}
}
