package bill

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Type distinguishes money owed by the company from money owed to it
type Type string

const (
	TypePayable    Type = "payable"
	TypeReceivable Type = "receivable"
)

// IsValid checks if the bill type is known
func (t Type) IsValid() bool {
	return t == TypePayable || t == TypeReceivable
}

// Status is the payment state of a bill
type Status string

const (
	StatusPending   Status = "pending"
	StatusPartial   Status = "partial"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// MaxInstallments bounds how many monthly bills Create may generate
const MaxInstallments = 60

// MaxDescriptionLength is the stored description limit, installment suffix included
const MaxDescriptionLength = 255

// Bill is an account payable or receivable
type Bill struct {
	shared.CompanyAggregateRoot
	Type              Type            `gorm:"type:varchar(20);not null;index"`
	Description       string          `gorm:"type:varchar(255);not null"`
	Category          string          `gorm:"type:varchar(100)"`
	Counterparty      string          `gorm:"type:varchar(200)"`
	CustomerID        *uuid.UUID      `gorm:"type:uuid;index"`
	SaleID            *uuid.UUID      `gorm:"type:uuid;index"`
	DocumentNumber    string          `gorm:"type:varchar(60)"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AmountPaid        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	DueDate           time.Time       `gorm:"type:date;not null;index"`
	PaidAt            *time.Time
	Status            Status     `gorm:"type:varchar(20);not null;default:'pending';index"`
	GroupID           *uuid.UUID `gorm:"type:uuid;index"`
	Installment       int        `gorm:"not null;default:1"`
	TotalInstallments int        `gorm:"not null;default:1"`
	Notes             string     `gorm:"type:text"`
	CancelledAt       *time.Time
	LastReminderAt    *time.Time
}

// TableName returns the table name for GORM
func (Bill) TableName() string {
	return "bills"
}

// Draft holds the fields used to create one or more bills
type Draft struct {
	Type           Type
	Description    string
	Category       string
	Counterparty   string
	CustomerID     *uuid.UUID
	SaleID         *uuid.UUID
	DocumentNumber string
	Amount         decimal.Decimal
	DueDate        time.Time
	Installments   int
	Notes          string
}

// NewBills creates the bills of a draft. With N installments the amount is
// split in N monthly bills, the rounding remainder going to the first one.
func NewBills(companyID uuid.UUID, d Draft) ([]*Bill, error) {
	if !d.Type.IsValid() {
		return nil, shared.NewDomainError("INVALID_BILL_TYPE", "Bill type must be payable or receivable")
	}
	d.Description = strings.TrimSpace(d.Description)
	if d.Description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description is required")
	}
	if !shared.RoundMoney(d.Amount).IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if d.DueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}
	if d.CustomerID != nil && d.Type != TypeReceivable {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Only receivables can reference a customer")
	}
	n := d.Installments
	if n <= 0 {
		n = 1
	}
	if n > MaxInstallments {
		return nil, shared.NewDomainError("INVALID_INSTALLMENTS", fmt.Sprintf("Installments cannot exceed %d", MaxInstallments))
	}
	if int64(n) > shared.Cents(d.Amount) {
		return nil, shared.NewDomainError("INVALID_INSTALLMENTS", "Each installment must be at least 0.01")
	}
	if limit := MaxDescriptionLength - len(installmentSuffix(n, n)); utf8.RuneCountInString(d.Description) > limit {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", fmt.Sprintf("Description cannot exceed %d characters", limit))
	}

	parts := shared.SplitAmount(d.Amount, n)
	due := truncateDay(d.DueDate)
	var group *uuid.UUID
	if n > 1 {
		g := uuid.New()
		group = &g
	}
	bills := make([]*Bill, 0, n)
	for i := 0; i < n; i++ {
		desc := d.Description + installmentSuffix(i+1, n)
		b := &Bill{
			CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
			Type:                 d.Type,
			Description:          desc,
			Category:             strings.TrimSpace(d.Category),
			Counterparty:         strings.TrimSpace(d.Counterparty),
			CustomerID:           d.CustomerID,
			SaleID:               d.SaleID,
			DocumentNumber:       d.DocumentNumber,
			Amount:               parts[i],
			AmountPaid:           decimal.Zero,
			DueDate:              addMonths(due, i),
			Status:               StatusPending,
			GroupID:              group,
			Installment:          i + 1,
			TotalInstallments:    n,
			Notes:                d.Notes,
		}
		b.AddDomainEvent(NewBillCreatedEvent(b))
		bills = append(bills, b)
	}
	return bills, nil
}

// installmentSuffix is appended to the description of split bills
func installmentSuffix(i, n int) string {
	if n <= 1 {
		return ""
	}
	return fmt.Sprintf(" (%d/%d)", i, n)
}

// Update changes the descriptive data, amount and due date of a pending bill
func (b *Bill) Update(description, category, counterparty, documentNumber string, amount decimal.Decimal, dueDate time.Time, notes string) error {
	if b.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending bills can be updated")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Description is required")
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return shared.NewDomainError("INVALID_DESCRIPTION", fmt.Sprintf("Description cannot exceed %d characters", MaxDescriptionLength))
	}
	if !shared.RoundMoney(amount).IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if dueDate.IsZero() {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}
	b.Description = description
	b.Category = strings.TrimSpace(category)
	b.Counterparty = strings.TrimSpace(counterparty)
	b.DocumentNumber = documentNumber
	b.Amount = shared.RoundMoney(amount)
	b.DueDate = truncateDay(dueDate)
	b.Notes = notes
	b.IncrementVersion()
	return nil
}

// Pay registers a full or partial payment. It cannot exceed the balance.
func (b *Bill) Pay(amount decimal.Decimal, paidAt time.Time) error {
	if b.Status == StatusPaid || b.Status == StatusCancelled {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot pay a %s bill", b.Status))
	}
	amount = shared.RoundMoney(amount)
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.GreaterThan(b.Balance()) {
		return shared.NewDomainError("PAYMENT_EXCEEDS_BALANCE", "Payment exceeds the bill balance")
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	b.AmountPaid = b.AmountPaid.Add(amount)
	if b.AmountPaid.Equal(b.Amount) {
		b.Status = StatusPaid
		b.PaidAt = &paidAt
	} else {
		b.Status = StatusPartial
	}
	b.IncrementVersion()
	b.AddDomainEvent(NewBillPaidEvent(b, amount))
	return nil
}

// Cancel cancels a bill that is not paid
func (b *Bill) Cancel() error {
	switch b.Status {
	case StatusPaid:
		return shared.NewDomainError("INVALID_STATE", "Paid bills cannot be cancelled")
	case StatusCancelled:
		return shared.NewDomainError("INVALID_STATE", "Bill is already cancelled")
	}
	now := time.Now()
	b.Status = StatusCancelled
	b.CancelledAt = &now
	b.IncrementVersion()
	return nil
}

// CanDelete reports whether the bill may be removed
func (b *Bill) CanDelete() bool {
	return b.Status == StatusPending && b.AmountPaid.IsZero()
}

// MarkReminded records that a due reminder was sent
func (b *Bill) MarkReminded(at time.Time) {
	b.LastReminderAt = &at
	b.Touch()
}

// Balance returns the amount still open
func (b *Bill) Balance() decimal.Decimal {
	return b.Amount.Sub(b.AmountPaid)
}

// IsOpen reports whether the bill still expects payments
func (b *Bill) IsOpen() bool {
	return b.Status == StatusPending || b.Status == StatusPartial
}

// IsOverdue reports whether an open bill was due before the day of now
func (b *Bill) IsOverdue(now time.Time) bool {
	return b.IsOpen() && b.DueDate.Before(truncateDay(now))
}

// addMonths keeps the day of month, clamped to the last day of shorter months
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// BillFilter narrows bill listings
type BillFilter struct {
	shared.Filter
	Type       Type
	Status     Status
	DueFrom    *time.Time
	DueTo      *time.Time
	Overdue    bool
	CustomerID *uuid.UUID
}

// Totals are aggregated amounts for a bill type
type Totals struct {
	Type          Type
	OpenCount     int64
	OpenAmount    decimal.Decimal
	OverdueCount  int64
	OverdueAmount decimal.Decimal
	PaidAmount    decimal.Decimal
}

// BillRepository defines persistence for bills
type BillRepository interface {
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Bill, error)
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter BillFilter) ([]Bill, int64, error)
	FindBySale(ctx context.Context, companyID, saleID uuid.UUID) ([]Bill, error)
	// FindDueForReminder returns open receivables with a customer due on or before the date
	FindDueForReminder(ctx context.Context, dueBy time.Time, limit int) ([]Bill, error)
	Summary(ctx context.Context, companyID uuid.UUID, today time.Time) ([]Totals, error)
	Save(ctx context.Context, bill *Bill) error
	SaveBatch(ctx context.Context, bills []*Bill) error
	DeleteForCompany(ctx context.Context, companyID, id uuid.UUID) error
}
