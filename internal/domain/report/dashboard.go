package report

import (
	"github.com/shopspring/decimal"
)

// BillTotals summarises open and overdue bills of one type
type BillTotals struct {
	OpenCount     int64           `json:"open_count"`
	OpenAmount    decimal.Decimal `json:"open_amount"`
	OverdueCount  int64           `json:"overdue_count"`
	OverdueAmount decimal.Decimal `json:"overdue_amount"`
}

// Dashboard is the landing page summary of a company
type Dashboard struct {
	Today         SalesSummary `json:"today"`
	Receivables   BillTotals   `json:"receivables"`
	Payables      BillTotals   `json:"payables"`
	LowStockCount int64        `json:"low_stock_count"`
	OpenSessions  int64        `json:"open_cash_sessions"`
}
