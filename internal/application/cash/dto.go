package cash

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/cash"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/shopspring/decimal"
)

// OpenSessionRequest opens the operator's cash drawer
type OpenSessionRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// MovementRequest is a supply or withdrawal
type MovementRequest struct {
	Type   string          `json:"type" binding:"required,oneof=withdrawal supply"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason" binding:"required,min=3,max=255"`
}

// CloseSessionRequest closes a session with the counted amount
type CloseSessionRequest struct {
	CountedBalance decimal.Decimal `json:"counted_balance"`
	Notes          string          `json:"notes" binding:"max=1000"`
}

// SessionListFilter represents filter options for the session list
type SessionListFilter struct {
	OperatorID *uuid.UUID `form:"operator_id"`
	Status     string     `form:"status" binding:"omitempty,oneof=open closed"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// MovementResponse is a drawer movement in API responses
type MovementResponse struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	UserID    uuid.UUID       `json:"user_id"`
	CreatedAt time.Time       `json:"created_at"`
}

// MethodTotalResponse is the amount received with a payment method
type MethodTotalResponse struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// SessionResponse represents a cash session. For open sessions the sale
// figures and the expected balance are computed live.
type SessionResponse struct {
	ID              uuid.UUID             `json:"id"`
	OperatorID      uuid.UUID             `json:"operator_id"`
	Status          string                `json:"status"`
	OpenedAt        time.Time             `json:"opened_at"`
	OpeningBalance  decimal.Decimal       `json:"opening_balance"`
	Movements       []MovementResponse    `json:"movements"`
	Supplies        decimal.Decimal       `json:"supplies"`
	Withdrawals     decimal.Decimal       `json:"withdrawals"`
	SalesCount      int                   `json:"sales_count"`
	SalesTotal      decimal.Decimal       `json:"sales_total"`
	CashSales       decimal.Decimal       `json:"cash_sales"`
	ChangeGiven     decimal.Decimal       `json:"change_given"`
	Totals          []MethodTotalResponse `json:"totals"`
	ExpectedBalance decimal.Decimal       `json:"expected_balance"`
	CountedBalance  *decimal.Decimal      `json:"counted_balance,omitempty"`
	Difference      *decimal.Decimal      `json:"difference,omitempty"`
	ClosedAt        *time.Time            `json:"closed_at,omitempty"`
	ClosedBy        *uuid.UUID            `json:"closed_by,omitempty"`
	Notes           string                `json:"notes,omitempty"`
}

// TotalsOf sums the completed sales of a session. Cash is the amount handed
// over before change; ByMethod is net of change.
func TotalsOf(sales []sale.Sale) cash.SaleTotals {
	totals := cash.SaleTotals{
		Total:    decimal.Zero,
		Cash:     decimal.Zero,
		Change:   decimal.Zero,
		ByMethod: make(map[string]decimal.Decimal),
	}
	for i := range sales {
		s := &sales[i]
		if !s.IsCompleted() {
			continue
		}
		totals.Count++
		totals.Total = totals.Total.Add(s.Total)
		totals.Change = totals.Change.Add(s.Change)
		for _, p := range s.Payments {
			if p.Method == sale.MethodCash {
				totals.Cash = totals.Cash.Add(p.Amount)
			}
		}
		seen := make(map[sale.PaymentMethod]bool, len(s.Payments))
		for _, p := range s.Payments {
			if seen[p.Method] {
				continue
			}
			seen[p.Method] = true
			method := string(p.Method)
			totals.ByMethod[method] = totals.ByMethod[method].Add(s.PaidWith(p.Method))
		}
	}
	return totals
}

// ToSessionResponse converts a session; sales are used while it is open
func ToSessionResponse(s *cash.Session, sales cash.SaleTotals) SessionResponse {
	movements := make([]MovementResponse, len(s.Movements))
	for i, m := range s.Movements {
		movements[i] = MovementResponse{
			ID:        m.ID,
			Type:      string(m.Type),
			Amount:    m.Amount,
			Reason:    m.Reason,
			UserID:    m.UserID,
			CreatedAt: m.CreatedAt,
		}
	}
	resp := SessionResponse{
		ID:             s.ID,
		OperatorID:     s.OperatorID,
		Status:         string(s.Status),
		OpenedAt:       s.OpenedAt,
		OpeningBalance: s.OpeningBalance,
		Movements:      movements,
		Supplies:       s.MovementTotal(cash.MovementSupply),
		Withdrawals:    s.MovementTotal(cash.MovementWithdrawal),
		ClosedAt:       s.ClosedAt,
		ClosedBy:       s.ClosedBy,
		Notes:          s.Notes,
	}
	if s.IsOpen() {
		resp.SalesCount = sales.Count
		resp.SalesTotal = sales.Total
		resp.CashSales = sales.Cash
		resp.ChangeGiven = sales.Change
		resp.ExpectedBalance = s.ExpectedCash(sales)
		resp.Totals = methodTotals(sales.ByMethod)
		return resp
	}
	counted, diff := s.CountedBalance, s.Difference
	resp.SalesCount = s.SalesCount
	resp.SalesTotal = s.SalesTotal
	resp.CashSales = s.CashSales
	resp.ChangeGiven = s.ChangeGiven
	resp.ExpectedBalance = s.ExpectedBalance
	resp.CountedBalance = &counted
	resp.Difference = &diff
	byMethod := make(map[string]decimal.Decimal, len(s.Totals))
	for _, t := range s.Totals {
		byMethod[t.Method] = t.Amount
	}
	resp.Totals = methodTotals(byMethod)
	return resp
}

func methodTotals(byMethod map[string]decimal.Decimal) []MethodTotalResponse {
	out := make([]MethodTotalResponse, 0, len(byMethod))
	for method, amount := range byMethod {
		out = append(out, MethodTotalResponse{Method: method, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}
