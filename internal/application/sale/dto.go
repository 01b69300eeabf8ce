package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/shopspring/decimal"
)

// ItemRequest adds a product line. UnitPrice defaults to the product sale price.
type ItemRequest struct {
	ProductID uuid.UUID        `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal  `json:"discount"`
}

// CreateSaleRequest opens a sale
type CreateSaleRequest struct {
	CustomerID       *uuid.UUID      `json:"customer_id"`
	SellerID         *uuid.UUID      `json:"seller_id"`
	ConsumerDocument string          `json:"consumer_document" binding:"max=18"`
	ConsumerName     string          `json:"consumer_name" binding:"max=200"`
	Notes            string          `json:"notes" binding:"max=1000"`
	Items            []ItemRequest   `json:"items" binding:"max=500,dive"`
	Discount         decimal.Decimal `json:"discount"`
}

// DiscountRequest sets the sale level discount
type DiscountRequest struct {
	Discount decimal.Decimal `json:"discount"`
}

// PaymentRequest is a payment of a sale
type PaymentRequest struct {
	Method        string          `json:"method" binding:"required,oneof=cash credit_card debit_card pix voucher store_credit"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Installments  int             `json:"installments" binding:"omitempty,min=1,max=24"`
	Authorization string          `json:"authorization" binding:"max=100"`
}

// CompleteSaleRequest pays and closes an open sale
type CompleteSaleRequest struct {
	Payments []PaymentRequest `json:"payments" binding:"required,min=1,max=10,dive"`
}

// CheckoutRequest creates and completes a sale in one step
type CheckoutRequest struct {
	CreateSaleRequest
	Payments []PaymentRequest `json:"payments" binding:"required,min=1,max=10,dive"`
}

// CancelSaleRequest cancels a sale
type CancelSaleRequest struct {
	Reason string `json:"reason" binding:"required,min=15,max=255"`
}

// SaleListFilter represents filter options for the sale list
type SaleListFilter struct {
	Search     string     `form:"search"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Status     string     `form:"status" binding:"omitempty,oneof=open completed cancelled"`
	SellerID   *uuid.UUID `form:"seller_id"`
	CustomerID *uuid.UUID `form:"customer_id"`
	OperatorID *uuid.UUID `form:"operator_id"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by" binding:"omitempty,oneof=number total created_at completed_at"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ItemResponse is a sale line in API responses
type ItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	LineNumber  int             `json:"line_number"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductCode string          `json:"product_code"`
	Barcode     string          `json:"barcode,omitempty"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

// PaymentResponse is a sale payment in API responses
type PaymentResponse struct {
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	Installments  int             `json:"installments"`
	Authorization string          `json:"authorization,omitempty"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID               uuid.UUID         `json:"id"`
	Number           int64             `json:"number"`
	Status           string            `json:"status"`
	CustomerID       *uuid.UUID        `json:"customer_id,omitempty"`
	SellerID         *uuid.UUID        `json:"seller_id,omitempty"`
	OperatorID       uuid.UUID         `json:"operator_id"`
	CashSessionID    *uuid.UUID        `json:"cash_session_id,omitempty"`
	ConsumerDocument string            `json:"consumer_document,omitempty"`
	ConsumerName     string            `json:"consumer_name,omitempty"`
	Items            []ItemResponse    `json:"items"`
	Payments         []PaymentResponse `json:"payments"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
	Discount         decimal.Decimal   `json:"discount"`
	Total            decimal.Decimal   `json:"total"`
	Paid             decimal.Decimal   `json:"paid"`
	Change           decimal.Decimal   `json:"change"`
	Notes            string            `json:"notes,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
	CancelReason     string            `json:"cancel_reason,omitempty"`
	Version          int               `json:"version"`
}

// ToSaleResponse converts a domain sale to a response
func ToSaleResponse(s *sale.Sale) SaleResponse {
	items := make([]ItemResponse, len(s.Items))
	for i, it := range s.Items {
		items[i] = ItemResponse{
			ID:          it.ID,
			LineNumber:  it.LineNumber,
			ProductID:   it.ProductID,
			ProductCode: it.ProductCode,
			Barcode:     it.Barcode,
			ProductName: it.ProductName,
			Unit:        it.Unit,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			Total:       it.Total,
		}
	}
	payments := make([]PaymentResponse, len(s.Payments))
	for i, p := range s.Payments {
		payments[i] = PaymentResponse{
			Method:        string(p.Method),
			Amount:        p.Amount,
			Installments:  p.Installments,
			Authorization: p.Authorization,
		}
	}
	return SaleResponse{
		ID:               s.ID,
		Number:           s.Number,
		Status:           string(s.Status),
		CustomerID:       s.CustomerID,
		SellerID:         s.SellerID,
		OperatorID:       s.OperatorID,
		CashSessionID:    s.CashSessionID,
		ConsumerDocument: s.ConsumerDocument,
		ConsumerName:     s.ConsumerName,
		Items:            items,
		Payments:         payments,
		Subtotal:         s.Subtotal,
		Discount:         s.Discount,
		Total:            s.Total,
		Paid:             s.Paid,
		Change:           s.Change,
		Notes:            s.Notes,
		CreatedAt:        s.CreatedAt,
		CompletedAt:      s.CompletedAt,
		CancelledAt:      s.CancelledAt,
		CancelReason:     s.CancelReason,
		Version:          s.Version,
	}
}

// ToSaleResponses converts domain sales to responses
func ToSaleResponses(sales []sale.Sale) []SaleResponse {
	out := make([]SaleResponse, len(sales))
	for i := range sales {
		out[i] = ToSaleResponse(&sales[i])
	}
	return out
}

func toPaymentInputs(reqs []PaymentRequest) []sale.PaymentInput {
	out := make([]sale.PaymentInput, len(reqs))
	for i, p := range reqs {
		out[i] = sale.PaymentInput{
			Method:        sale.PaymentMethod(p.Method),
			Amount:        p.Amount,
			Installments:  p.Installments,
			Authorization: p.Authorization,
		}
	}
	return out
}
