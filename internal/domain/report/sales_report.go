package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesTotals are the aggregated figures of completed sales in a period
type SalesTotals struct {
	Count     int64           `json:"count"`
	Gross     decimal.Decimal `json:"gross"`
	Discounts decimal.Decimal `json:"discounts"`
	Net       decimal.Decimal `json:"net"`
}

// AverageTicket is net revenue per sale
func (t SalesTotals) AverageTicket() decimal.Decimal {
	if t.Count == 0 {
		return decimal.Zero
	}
	return t.Net.Div(decimal.NewFromInt(t.Count)).Round(2)
}

// MethodTotal is the amount received with a payment method, net of change
type MethodTotal struct {
	Method string          `json:"method"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// SellerTotal ranks sellers by revenue
type SellerTotal struct {
	SellerID       uuid.UUID       `json:"seller_id"`
	SellerName     string          `json:"seller_name"`
	Count          int64           `json:"count"`
	Total          decimal.Decimal `json:"total"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Commission     decimal.Decimal `json:"commission"`
}

// ProductRanking ranks products by revenue
type ProductRanking struct {
	Rank        int             `json:"rank"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

// SalesSummary is the sales report of a period
type SalesSummary struct {
	From          time.Time        `json:"from"`
	To            time.Time        `json:"to"`
	Count         int64            `json:"count"`
	Gross         decimal.Decimal  `json:"gross"`
	Discounts     decimal.Decimal  `json:"discounts"`
	Net           decimal.Decimal  `json:"net"`
	AverageTicket decimal.Decimal  `json:"average_ticket"`
	ByMethod      []MethodTotal    `json:"by_method"`
	BySeller      []SellerTotal    `json:"by_seller"`
	TopProducts   []ProductRanking `json:"top_products"`
}

// Period is a half-open time range [From, To)
type Period struct {
	From time.Time
	To   time.Time
}

// DefaultTopN is the number of products ranked when none is requested
const DefaultTopN = 10

// SalesQueryRepository runs the aggregate queries behind sales reports.
// All queries consider completed sales only.
type SalesQueryRepository interface {
	Totals(ctx context.Context, companyID uuid.UUID, p Period, sellerID *uuid.UUID) (SalesTotals, error)
	ByMethod(ctx context.Context, companyID uuid.UUID, p Period, sellerID *uuid.UUID) ([]MethodTotal, error)
	BySeller(ctx context.Context, companyID uuid.UUID, p Period, sellerID *uuid.UUID) ([]SellerTotal, error)
	TopProducts(ctx context.Context, companyID uuid.UUID, p Period, sellerID *uuid.UUID, limit int) ([]ProductRanking, error)
}
