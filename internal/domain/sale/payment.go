package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how a sale was paid
type PaymentMethod string

const (
	MethodCash        PaymentMethod = "cash"
	MethodCreditCard  PaymentMethod = "credit_card"
	MethodDebitCard   PaymentMethod = "debit_card"
	MethodPix         PaymentMethod = "pix"
	MethodVoucher     PaymentMethod = "voucher"
	MethodStoreCredit PaymentMethod = "store_credit"
)

// AllMethods lists every payment method in display order
var AllMethods = []PaymentMethod{MethodCash, MethodCreditCard, MethodDebitCard, MethodPix, MethodVoucher, MethodStoreCredit}

// IsValid checks if the method is known
func (m PaymentMethod) IsValid() bool {
	for _, v := range AllMethods {
		if m == v {
			return true
		}
	}
	return false
}

// FiscalCode returns the tPag code used in NFCe/NFe payment groups
func (m PaymentMethod) FiscalCode() string {
	switch m {
	case MethodCash:
		return "01"
	case MethodCreditCard:
		return "03"
	case MethodDebitCard:
		return "04"
	case MethodStoreCredit:
		return "05"
	case MethodVoucher:
		return "10"
	case MethodPix:
		return "17"
	}
	return "99"
}

// MaxInstallments is the highest installment count accepted for card and store credit payments
const MaxInstallments = 24

// PaymentInput is a payment as requested by the operator
type PaymentInput struct {
	Method       PaymentMethod
	Amount       decimal.Decimal
	Installments int
	// Authorization is the card/PIX authorization code, if any
	Authorization string
}

// SalePayment is a payment registered on a completed sale
type SalePayment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Method        PaymentMethod   `gorm:"type:varchar(20);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Installments  int             `gorm:"not null;default:1"`
	Authorization string          `gorm:"type:varchar(100)"`
	CreatedAt     time.Time
}

// TableName returns the table name for GORM
func (SalePayment) TableName() string {
	return "sale_payments"
}

// NewSalePayment validates and builds a payment
func NewSalePayment(saleID uuid.UUID, in PaymentInput) (*SalePayment, error) {
	if !in.Method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method")
	}
	if !in.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_AMOUNT", "Payment amount must be positive")
	}
	installments := in.Installments
	if installments <= 0 {
		installments = 1
	}
	if installments > 1 && in.Method != MethodCreditCard && in.Method != MethodStoreCredit {
		return nil, shared.NewDomainError("INVALID_INSTALLMENTS", "Only credit card and store credit accept installments")
	}
	if installments > MaxInstallments {
		return nil, shared.NewDomainError("INVALID_INSTALLMENTS", "Too many installments")
	}
	return &SalePayment{
		ID:            uuid.New(),
		SaleID:        saleID,
		Method:        in.Method,
		Amount:        shared.RoundMoney(in.Amount),
		Installments:  installments,
		Authorization: in.Authorization,
		CreatedAt:     time.Now(),
	}, nil
}
