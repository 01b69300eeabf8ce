package cash

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SessionStatus is the state of a cash session
type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

// MovementType classifies manual cash drawer movements
type MovementType string

const (
	MovementWithdrawal MovementType = "withdrawal"
	MovementSupply     MovementType = "supply"
)

// Movement is a manual entry into or out of the drawer
type Movement struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type      MovementType    `gorm:"type:varchar(20);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Reason    string          `gorm:"type:varchar(255);not null"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (Movement) TableName() string {
	return "cash_movements"
}

// MethodTotal is the amount received with a payment method during a session
type MethodTotal struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Method    string          `gorm:"type:varchar(20);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (MethodTotal) TableName() string {
	return "cash_session_totals"
}

// SaleTotals are the figures of the completed sales of a session, computed
// when the session is closed
type SaleTotals struct {
	Count    int
	Total    decimal.Decimal
	Cash     decimal.Decimal // cash received, before change
	Change   decimal.Decimal
	ByMethod map[string]decimal.Decimal
}

// Session is an operator's cash drawer shift
type Session struct {
	shared.CompanyAggregateRoot
	OperatorID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status          SessionStatus   `gorm:"type:varchar(20);not null;default:'open';index"`
	OpenedAt        time.Time       `gorm:"not null"`
	OpeningBalance  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Movements       []Movement      `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	Totals          []MethodTotal   `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	ClosedAt        *time.Time
	ClosedBy        *uuid.UUID      `gorm:"type:uuid"`
	CountedBalance  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ExpectedBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Difference      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	SalesCount      int             `gorm:"not null;default:0"`
	SalesTotal      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CashSales       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ChangeGiven     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Notes           string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Session) TableName() string {
	return "cash_sessions"
}

// OpenSession starts a session with the amount counted in the drawer
func OpenSession(companyID, operatorID uuid.UUID, openingBalance decimal.Decimal) (*Session, error) {
	if operatorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OPERATOR", "Operator is required")
	}
	if openingBalance.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Opening balance cannot be negative")
	}
	s := &Session{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		OperatorID:           operatorID,
		Status:               SessionOpen,
		OpenedAt:             time.Now(),
		OpeningBalance:       shared.RoundMoney(openingBalance),
		Movements:            make([]Movement, 0),
		CountedBalance:       decimal.Zero,
		ExpectedBalance:      decimal.Zero,
		Difference:           decimal.Zero,
		SalesTotal:           decimal.Zero,
		CashSales:            decimal.Zero,
		ChangeGiven:          decimal.Zero,
	}
	s.SetCreatedBy(operatorID)
	s.AddDomainEvent(NewSessionOpenedEvent(s))
	return s, nil
}

// IsOpen reports whether the session accepts sales and movements
func (s *Session) IsOpen() bool {
	return s.Status == SessionOpen
}

// AddMovement registers a supply or withdrawal. A withdrawal cannot exceed
// the cash expected in the drawer given the cash sales so far.
func (s *Session) AddMovement(kind MovementType, amount decimal.Decimal, reason string, userID uuid.UUID, sales SaleTotals) (*Movement, error) {
	if !s.IsOpen() {
		return nil, shared.NewDomainError("CASH_SESSION_CLOSED", "Cash session is closed")
	}
	if kind != MovementWithdrawal && kind != MovementSupply {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Movement type must be withdrawal or supply")
	}
	amount = shared.RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Reason is required")
	}
	if kind == MovementWithdrawal && amount.GreaterThan(s.ExpectedCash(sales)) {
		return nil, shared.NewDomainError("INSUFFICIENT_CASH", "Withdrawal exceeds the cash in the drawer")
	}
	m := Movement{
		ID:        uuid.New(),
		SessionID: s.ID,
		Type:      kind,
		Amount:    amount,
		Reason:    reason,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	s.Movements = append(s.Movements, m)
	s.IncrementVersion()
	return &m, nil
}

// MovementTotal sums the movements of a type
func (s *Session) MovementTotal(kind MovementType) decimal.Decimal {
	total := decimal.Zero
	for _, m := range s.Movements {
		if m.Type == kind {
			total = total.Add(m.Amount)
		}
	}
	return total
}

// ExpectedCash = opening + cash sales - change + supplies - withdrawals
func (s *Session) ExpectedCash(sales SaleTotals) decimal.Decimal {
	return s.OpeningBalance.
		Add(sales.Cash).
		Sub(sales.Change).
		Add(s.MovementTotal(MovementSupply)).
		Sub(s.MovementTotal(MovementWithdrawal))
}

// Close closes the session with the amount counted by the operator
func (s *Session) Close(userID uuid.UUID, counted decimal.Decimal, notes string, sales SaleTotals) error {
	if !s.IsOpen() {
		return shared.NewDomainError("CASH_SESSION_CLOSED", "Cash session is already closed")
	}
	if counted.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Counted balance cannot be negative")
	}
	now := time.Now()
	s.Preview(sales)
	s.CountedBalance = shared.RoundMoney(counted)
	s.Difference = s.CountedBalance.Sub(s.ExpectedBalance)
	s.Notes = notes
	s.Status = SessionClosed
	s.ClosedAt = &now
	if userID != uuid.Nil {
		s.ClosedBy = &userID
	}
	s.IncrementVersion()
	s.AddDomainEvent(NewSessionClosedEvent(s))
	return nil
}

// Preview fills the sales figures and expected balance without closing,
// as printed on a partial reading of an open drawer
func (s *Session) Preview(sales SaleTotals) {
	s.ExpectedBalance = s.ExpectedCash(sales)
	s.SalesCount = sales.Count
	s.SalesTotal = sales.Total
	s.CashSales = sales.Cash
	s.ChangeGiven = sales.Change
	s.Totals = make([]MethodTotal, 0, len(sales.ByMethod))
	for method, amount := range sales.ByMethod {
		s.Totals = append(s.Totals, MethodTotal{ID: uuid.New(), SessionID: s.ID, Method: method, Amount: amount})
	}
	sort.Slice(s.Totals, func(i, j int) bool { return s.Totals[i].Method < s.Totals[j].Method })
}

// SessionFilter narrows session listings
type SessionFilter struct {
	shared.Filter
	OperatorID *uuid.UUID
	Status     SessionStatus
	From       *time.Time
	To         *time.Time
}

// SessionRepository defines persistence for cash sessions
type SessionRepository interface {
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Session, error)
	FindOpenByOperator(ctx context.Context, companyID, operatorID uuid.UUID) (*Session, error)
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter SessionFilter) ([]Session, int64, error)
	Save(ctx context.Context, session *Session) error
	AddMovement(ctx context.Context, session *Session, movement *Movement) error
	CountOpen(ctx context.Context, companyID uuid.UUID) (int64, error)
}
