package seller

import (
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/seller"
	"github.com/shopspring/decimal"
)

// SellerRequest creates or updates a seller
type SellerRequest struct {
	Name           string          `json:"name" binding:"required,min=1,max=200"`
	CPF            string          `json:"cpf" binding:"omitempty,cpf"`
	Email          string          `json:"email" binding:"omitempty,email,max=200"`
	Phone          string          `json:"phone" binding:"max=20"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	UserID         *uuid.UUID      `json:"user_id"`
}

// SellerListFilter represents filter options for the seller list
type SellerListFilter struct {
	Search   string `form:"search"`
	Active   *bool  `form:"active"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=name commission_rate created_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// CommissionQuery selects the period of a commission statement
type CommissionQuery struct {
	From time.Time `form:"from" time_format:"2006-01-02" binding:"required"`
	To   time.Time `form:"to" time_format:"2006-01-02" binding:"required,gtefield=From"`
}

// SellerResponse represents a seller in API responses
type SellerResponse struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	CPF            string          `json:"cpf,omitempty"`
	Email          string          `json:"email,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	UserID         *uuid.UUID      `json:"user_id,omitempty"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// CommissionResponse is the commission statement of a seller
type CommissionResponse struct {
	SellerID       uuid.UUID       `json:"seller_id"`
	SellerName     string          `json:"seller_name"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	SalesCount     int64           `json:"sales_count"`
	SalesTotal     decimal.Decimal `json:"sales_total"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Commission     decimal.Decimal `json:"commission"`
}

// ToSellerResponse converts a domain seller to a response
func ToSellerResponse(s *seller.Seller) SellerResponse {
	return SellerResponse{
		ID:             s.ID,
		Name:           s.Name,
		CPF:            s.CPF,
		Email:          s.Email,
		Phone:          s.Phone,
		CommissionRate: s.CommissionRate,
		UserID:         s.UserID,
		Active:         s.Active,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		Version:        s.Version,
	}
}

// ToSellerResponses converts domain sellers to responses
func ToSellerResponses(sellers []seller.Seller) []SellerResponse {
	out := make([]SellerResponse, len(sellers))
	for i := range sellers {
		out[i] = ToSellerResponse(&sellers[i])
	}
	return out
}
