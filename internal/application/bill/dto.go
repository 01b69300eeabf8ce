package bill

import (
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/bill"
	"github.com/shopspring/decimal"
)

// CreateBillRequest represents a request to create a bill, optionally split
// into monthly installments
type CreateBillRequest struct {
	Type           string          `json:"type" binding:"required,oneof=payable receivable"`
	Description    string          `json:"description" binding:"required,min=1,max=255"`
	Category       string          `json:"category" binding:"max=100"`
	Counterparty   string          `json:"counterparty" binding:"max=200"`
	CustomerID     *uuid.UUID      `json:"customer_id"`
	DocumentNumber string          `json:"document_number" binding:"max=60"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	DueDate        time.Time       `json:"due_date" binding:"required"`
	Installments   int             `json:"installments" binding:"omitempty,min=1,max=60"`
	Notes          string          `json:"notes" binding:"max=2000"`
}

// UpdateBillRequest represents a request to update a pending bill
type UpdateBillRequest struct {
	Description    string          `json:"description" binding:"required,min=1,max=255"`
	Category       string          `json:"category" binding:"max=100"`
	Counterparty   string          `json:"counterparty" binding:"max=200"`
	DocumentNumber string          `json:"document_number" binding:"max=60"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	DueDate        time.Time       `json:"due_date" binding:"required"`
	Notes          string          `json:"notes" binding:"max=2000"`
}

// PayBillRequest registers a payment. PaidAt defaults to now.
type PayBillRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	PaidAt *time.Time      `json:"paid_at"`
}

// BillListFilter represents filter options for the bill list
type BillListFilter struct {
	Search     string     `form:"search"`
	Type       string     `form:"type" binding:"omitempty,oneof=payable receivable"`
	Status     string     `form:"status" binding:"omitempty,oneof=pending partial paid cancelled"`
	DueFrom    *time.Time `form:"due_from" time_format:"2006-01-02"`
	DueTo      *time.Time `form:"due_to" time_format:"2006-01-02"`
	Overdue    bool       `form:"overdue"`
	CustomerID *uuid.UUID `form:"customer_id"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by" binding:"omitempty,oneof=due_date amount created_at"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// BillResponse represents a bill in API responses
type BillResponse struct {
	ID                uuid.UUID       `json:"id"`
	Type              string          `json:"type"`
	Description       string          `json:"description"`
	Category          string          `json:"category,omitempty"`
	Counterparty      string          `json:"counterparty,omitempty"`
	CustomerID        *uuid.UUID      `json:"customer_id,omitempty"`
	SaleID            *uuid.UUID      `json:"sale_id,omitempty"`
	DocumentNumber    string          `json:"document_number,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	Balance           decimal.Decimal `json:"balance"`
	DueDate           time.Time       `json:"due_date"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	Status            string          `json:"status"`
	Overdue           bool            `json:"overdue"`
	GroupID           *uuid.UUID      `json:"group_id,omitempty"`
	Installment       int             `json:"installment"`
	TotalInstallments int             `json:"total_installments"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	Version           int             `json:"version"`
}

// TotalsResponse aggregates the bills of a type
type TotalsResponse struct {
	OpenCount     int64           `json:"open_count"`
	OpenAmount    decimal.Decimal `json:"open_amount"`
	OverdueCount  int64           `json:"overdue_count"`
	OverdueAmount decimal.Decimal `json:"overdue_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
}

// SummaryResponse holds the open, overdue and paid totals per bill type
type SummaryResponse struct {
	Payable    TotalsResponse  `json:"payable"`
	Receivable TotalsResponse  `json:"receivable"`
	Balance    decimal.Decimal `json:"balance"`
}

// ToBillResponse converts a domain bill to a response
func ToBillResponse(b *bill.Bill, now time.Time) BillResponse {
	return BillResponse{
		ID:                b.ID,
		Type:              string(b.Type),
		Description:       b.Description,
		Category:          b.Category,
		Counterparty:      b.Counterparty,
		CustomerID:        b.CustomerID,
		SaleID:            b.SaleID,
		DocumentNumber:    b.DocumentNumber,
		Amount:            b.Amount,
		AmountPaid:        b.AmountPaid,
		Balance:           b.Balance(),
		DueDate:           b.DueDate,
		PaidAt:            b.PaidAt,
		Status:            string(b.Status),
		Overdue:           b.IsOverdue(now),
		GroupID:           b.GroupID,
		Installment:       b.Installment,
		TotalInstallments: b.TotalInstallments,
		Notes:             b.Notes,
		CreatedAt:         b.CreatedAt,
		Version:           b.Version,
	}
}

func toTotalsResponse(t bill.Totals) TotalsResponse {
	return TotalsResponse{
		OpenCount:     t.OpenCount,
		OpenAmount:    t.OpenAmount,
		OverdueCount:  t.OverdueCount,
		OverdueAmount: t.OverdueAmount,
		PaidAmount:    t.PaidAmount,
	}
}
