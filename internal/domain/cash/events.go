package cash

import (
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const AggregateTypeCashSession = "CashSession"

const (
	EventTypeSessionOpened = "CashSessionOpened"
	EventTypeSessionClosed = "CashSessionClosed"
)

// SessionOpenedEvent is published when an operator opens the drawer
type SessionOpenedEvent struct {
	shared.BaseDomainEvent
	OperatorID     uuid.UUID       `json:"operator_id"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// NewSessionOpenedEvent creates a SessionOpenedEvent
func NewSessionOpenedEvent(s *Session) *SessionOpenedEvent {
	return &SessionOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionOpened, AggregateTypeCashSession, s.ID, s.CompanyID),
		OperatorID:      s.OperatorID,
		OpeningBalance:  s.OpeningBalance,
	}
}

// SessionClosedEvent is published when the drawer is closed
type SessionClosedEvent struct {
	shared.BaseDomainEvent
	OperatorID uuid.UUID       `json:"operator_id"`
	Expected   decimal.Decimal `json:"expected"`
	Counted    decimal.Decimal `json:"counted"`
	Difference decimal.Decimal `json:"difference"`
}

// NewSessionClosedEvent creates a SessionClosedEvent
func NewSessionClosedEvent(s *Session) *SessionClosedEvent {
	return &SessionClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionClosed, AggregateTypeCashSession, s.ID, s.CompanyID),
		OperatorID:      s.OperatorID,
		Expected:        s.ExpectedBalance,
		Counted:         s.CountedBalance,
		Difference:      s.Difference,
	}
}
