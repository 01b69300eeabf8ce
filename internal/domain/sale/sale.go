package sale

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a sale
type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusOpen:
		return target == StatusCompleted || target == StatusCancelled
	case StatusCompleted:
		return target == StatusCancelled
	}
	return false
}

// MinCancelReasonLength is the minimum length of a cancellation reason
const MinCancelReasonLength = 15

// MaxCancelReasonLength is counted in characters, not bytes
const MaxCancelReasonLength = 255

// MaxItems caps the number of lines of a single sale
const MaxItems = 500

// Sale is a point of sale transaction
type Sale struct {
	shared.CompanyAggregateRoot
	Number           int64           `gorm:"not null;index"`
	Status           Status          `gorm:"type:varchar(20);not null;default:'open';index"`
	CustomerID       *uuid.UUID      `gorm:"type:uuid;index"`
	SellerID         *uuid.UUID      `gorm:"type:uuid;index"`
	OperatorID       uuid.UUID       `gorm:"type:uuid;not null"`
	CashSessionID    *uuid.UUID      `gorm:"type:uuid;index"`
	ConsumerDocument string          `gorm:"type:varchar(14)"`
	ConsumerName     string          `gorm:"type:varchar(200)"`
	Items            []SaleItem      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Payments         []SalePayment   `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Discount         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Total            decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Paid             decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Change           decimal.Decimal `gorm:"column:change_amount;type:decimal(18,2);not null;default:0"`
	Notes            string          `gorm:"type:text"`
	CompletedAt      *time.Time
	CancelledAt      *time.Time
	CancelledBy      *uuid.UUID `gorm:"type:uuid"`
	CancelReason     string     `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// NewSale opens a sale for the operator. number is allocated by the repository.
func NewSale(companyID, operatorID uuid.UUID, number int64) (*Sale, error) {
	if operatorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OPERATOR", "Operator is required")
	}
	s := &Sale{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Number:               number,
		Status:               StatusOpen,
		OperatorID:           operatorID,
		Items:                make([]SaleItem, 0),
		Payments:             make([]SalePayment, 0),
		Subtotal:             decimal.Zero,
		Discount:             decimal.Zero,
		Total:                decimal.Zero,
		Paid:                 decimal.Zero,
		Change:               decimal.Zero,
	}
	s.SetCreatedBy(operatorID)
	return s, nil
}

// SetCustomer links a registered customer. uuid.Nil clears it.
func (s *Sale) SetCustomer(customerID uuid.UUID) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if customerID == uuid.Nil {
		s.CustomerID = nil
	} else {
		s.CustomerID = &customerID
	}
	s.IncrementVersion()
	return nil
}

// SetSeller links the seller credited with the sale. uuid.Nil clears it.
func (s *Sale) SetSeller(sellerID uuid.UUID) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if sellerID == uuid.Nil {
		s.SellerID = nil
	} else {
		s.SellerID = &sellerID
	}
	s.IncrementVersion()
	return nil
}

// SetConsumer sets the CPF/CNPJ printed on the receipt
func (s *Sale) SetConsumer(document, name string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	document = shared.OnlyDigits(document)
	if document != "" && !shared.ValidDocument(document) {
		return shared.NewDomainError("INVALID_DOCUMENT", "Consumer document must be a valid CPF or CNPJ")
	}
	s.ConsumerDocument = document
	s.ConsumerName = strings.TrimSpace(name)
	s.IncrementVersion()
	return nil
}

// SetNotes sets free text notes
func (s *Sale) SetNotes(notes string) {
	s.Notes = notes
	s.IncrementVersion()
}

// AddItem appends a line built from a product snapshot
func (s *Sale) AddItem(snapshot ProductSnapshot, quantity, unitPrice, discount decimal.Decimal) (*SaleItem, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	if len(s.Items) >= MaxItems {
		return nil, shared.NewDomainError("TOO_MANY_ITEMS", "Sale has reached the maximum number of items")
	}
	item, err := NewSaleItem(s.ID, len(s.Items)+1, snapshot, quantity, unitPrice, discount)
	if err != nil {
		return nil, err
	}
	s.Items = append(s.Items, *item)
	if err := s.recalculate(); err != nil {
		s.Items = s.Items[:len(s.Items)-1]
		return nil, err
	}
	s.IncrementVersion()
	return item, nil
}

// RemoveItem removes a line and renumbers the remaining ones
func (s *Sale) RemoveItem(itemID uuid.UUID) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	idx := -1
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Item not found in sale")
	}
	if s.Subtotal.Sub(s.Items[idx].Total).LessThan(s.Discount) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Removing the item would make the discount exceed the items total")
	}
	s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
	for i := range s.Items {
		s.Items[i].LineNumber = i + 1
	}
	if err := s.recalculate(); err != nil {
		return err
	}
	s.IncrementVersion()
	return nil
}

// ApplyDiscount sets the sale level discount
func (s *Sale) ApplyDiscount(discount decimal.Decimal) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if discount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	old := s.Discount
	s.Discount = shared.RoundMoney(discount)
	if err := s.recalculate(); err != nil {
		s.Discount = old
		_ = s.recalculate()
		return err
	}
	s.IncrementVersion()
	return nil
}

// Complete registers the payments and closes the sale.
// Change is returned only from cash and never exceeds the cash paid.
func (s *Sale) Complete(payments []PaymentInput, cashSessionID uuid.UUID) error {
	if !s.Status.CanTransitionTo(StatusCompleted) {
		return shared.NewDomainError("INVALID_STATE", "Only open sales can be completed")
	}
	if len(s.Items) == 0 {
		return shared.NewDomainError("EMPTY_SALE", "Sale has no items")
	}
	if cashSessionID == uuid.Nil {
		return shared.NewDomainError("CASH_SESSION_REQUIRED", "An open cash session is required to complete a sale")
	}
	if len(payments) == 0 && s.Total.IsPositive() {
		return shared.NewDomainError("PAYMENT_REQUIRED", "At least one payment is required")
	}

	built := make([]SalePayment, 0, len(payments))
	paid := decimal.Zero
	cash := decimal.Zero
	for _, in := range payments {
		if in.Method == MethodStoreCredit && s.CustomerID == nil {
			return shared.NewDomainError("CUSTOMER_REQUIRED", "Store credit payments require a customer")
		}
		p, err := NewSalePayment(s.ID, in)
		if err != nil {
			return err
		}
		built = append(built, *p)
		paid = paid.Add(p.Amount)
		if p.Method == MethodCash {
			cash = cash.Add(p.Amount)
		}
	}
	if paid.LessThan(s.Total) {
		return shared.NewDomainError("INSUFFICIENT_PAYMENT", "Payments do not cover the sale total")
	}
	change := paid.Sub(s.Total)
	if change.GreaterThan(cash) {
		return shared.NewDomainError("INVALID_CHANGE", "Change can only be given from cash payments")
	}

	now := time.Now()
	s.Payments = built
	s.Paid = paid
	s.Change = change
	s.CashSessionID = &cashSessionID
	s.Status = StatusCompleted
	s.CompletedAt = &now
	s.IncrementVersion()
	s.AddDomainEvent(NewSaleCompletedEvent(s))
	return nil
}

// ValidateCancel checks whether the sale can be cancelled with reason
// without changing it.
func (s *Sale) ValidateCancel(reason string) error {
	if !s.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", "Sale is already cancelled")
	}
	n := utf8.RuneCountInString(strings.TrimSpace(reason))
	if n < MinCancelReasonLength {
		return shared.NewDomainError("INVALID_REASON", "Cancellation reason must have at least 15 characters")
	}
	if n > MaxCancelReasonLength {
		return shared.NewDomainError("INVALID_REASON", "Cancellation reason cannot exceed 255 characters")
	}
	return nil
}

// Cancel cancels an open or completed sale
func (s *Sale) Cancel(userID uuid.UUID, reason string) error {
	if err := s.ValidateCancel(reason); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	wasCompleted := s.Status == StatusCompleted
	now := time.Now()
	s.Status = StatusCancelled
	s.CancelledAt = &now
	s.CancelReason = reason
	if userID != uuid.Nil {
		s.CancelledBy = &userID
	}
	s.IncrementVersion()
	s.AddDomainEvent(NewSaleCancelledEvent(s, wasCompleted))
	return nil
}

// IsCompleted reports whether the sale is completed
func (s *Sale) IsCompleted() bool {
	return s.Status == StatusCompleted
}

// ItemCount returns the number of lines
func (s *Sale) ItemCount() int {
	return len(s.Items)
}

// PaidWith returns the amount paid with a method, net of change for cash
func (s *Sale) PaidWith(method PaymentMethod) decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Payments {
		if p.Method == method {
			total = total.Add(p.Amount)
		}
	}
	if method == MethodCash {
		total = total.Sub(s.Change)
	}
	return total
}

// StoreCreditPayments returns the store credit payments, if any
func (s *Sale) StoreCreditPayments() []SalePayment {
	var out []SalePayment
	for _, p := range s.Payments {
		if p.Method == MethodStoreCredit {
			out = append(out, p)
		}
	}
	return out
}

func (s *Sale) requireOpen() error {
	if s.Status != StatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Sale is not open")
	}
	return nil
}

func (s *Sale) recalculate() error {
	subtotal := decimal.Zero
	for _, it := range s.Items {
		subtotal = subtotal.Add(it.Total)
	}
	total := subtotal.Sub(s.Discount)
	if total.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed the items total")
	}
	s.Subtotal = subtotal
	s.Total = total
	return nil
}
