package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Code        string           `json:"code" binding:"required,min=1,max=50"`
	Barcode     string           `json:"barcode" binding:"omitempty,gtin"`
	Name        string           `json:"name" binding:"required,min=1,max=200"`
	Description string           `json:"description" binding:"max=2000"`
	Unit        string           `json:"unit" binding:"required,oneof=UN KG G L ML M CX PC PCT DZ un kg g l ml m cx pc pct dz"`
	NCM         string           `json:"ncm" binding:"omitempty,ncm"`
	CEST        string           `json:"cest" binding:"omitempty,len=7,numeric"`
	CFOP        string           `json:"cfop" binding:"omitempty,len=4,numeric"`
	Origin      int              `json:"origin" binding:"min=0,max=8"`
	TaxCode     string           `json:"tax_code" binding:"max=4"`
	SalePrice   decimal.Decimal  `json:"sale_price" binding:"required"`
	CostPrice   *decimal.Decimal `json:"cost_price"`
	TrackStock  *bool            `json:"track_stock"`
	MinStock    *decimal.Decimal `json:"min_stock"`
	// InitialStock is recorded as an adjustment movement
	InitialStock *decimal.Decimal `json:"initial_stock"`
}

// UpdateProductRequest represents a request to update a product.
// Nil fields are left unchanged.
type UpdateProductRequest struct {
	Name        string           `json:"name" binding:"required,min=1,max=200"`
	Description string           `json:"description" binding:"max=2000"`
	Unit        string           `json:"unit" binding:"required,oneof=UN KG G L ML M CX PC PCT DZ un kg g l ml m cx pc pct dz"`
	Barcode     *string          `json:"barcode"`
	NCM         *string          `json:"ncm"`
	CEST        *string          `json:"cest"`
	CFOP        *string          `json:"cfop"`
	Origin      *int             `json:"origin" binding:"omitempty,min=0,max=8"`
	TaxCode     *string          `json:"tax_code"`
	TrackStock  *bool            `json:"track_stock"`
	MinStock    *decimal.Decimal `json:"min_stock"`
}

// UpdatePriceRequest changes the prices of a product
type UpdatePriceRequest struct {
	SalePrice decimal.Decimal  `json:"sale_price" binding:"required"`
	CostPrice *decimal.Decimal `json:"cost_price"`
}

// AdjustStockRequest applies a signed stock correction
type AdjustStockRequest struct {
	Delta  decimal.Decimal `json:"delta" binding:"required"`
	Reason string          `json:"reason" binding:"required,min=3,max=255"`
}

// UploadRequest asks for a presigned upload URL
type UploadRequest struct {
	FileName    string `json:"file_name" binding:"required,max=200"`
	ContentType string `json:"content_type" binding:"required,oneof=image/png image/jpeg image/webp"`
}

// UploadURLResponse is a presigned upload target
type UploadURLResponse struct {
	UploadURL string    `json:"upload_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProductListFilter represents filter options for the product list
type ProductListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=active inactive"`
	LowStock bool   `form:"low_stock"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=name code sale_price stock_quantity created_at updated_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID            uuid.UUID       `json:"id"`
	Code          string          `json:"code"`
	Barcode       string          `json:"barcode,omitempty"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Unit          string          `json:"unit"`
	NCM           string          `json:"ncm,omitempty"`
	CEST          string          `json:"cest,omitempty"`
	CFOP          string          `json:"cfop"`
	Origin        int             `json:"origin"`
	TaxCode       string          `json:"tax_code,omitempty"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	Margin        decimal.Decimal `json:"margin"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	MinStock      decimal.Decimal `json:"min_stock"`
	TrackStock    bool            `json:"track_stock"`
	LowStock      bool            `json:"low_stock"`
	ImageURL      string          `json:"image_url,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

// StockMovementResponse represents a stock movement in API responses
type StockMovementResponse struct {
	ID           uuid.UUID       `json:"id"`
	Type         string          `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	ReferenceID  *uuid.UUID      `json:"reference_id,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	UserID       *uuid.UUID      `json:"user_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ToProductResponse converts a domain product to a response
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		Code:          p.Code,
		Barcode:       p.Barcode,
		Name:          p.Name,
		Description:   p.Description,
		Unit:          p.Unit,
		NCM:           p.NCM,
		CEST:          p.CEST,
		CFOP:          p.CFOP,
		Origin:        p.Origin,
		TaxCode:       p.TaxCode,
		SalePrice:     p.SalePrice,
		CostPrice:     p.CostPrice,
		Margin:        p.Margin(),
		StockQuantity: p.StockQuantity,
		MinStock:      p.MinStock,
		TrackStock:    p.TrackStock,
		LowStock:      p.IsLowStock(),
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		Version:       p.Version,
	}
}

// ToStockMovementResponses converts stock movements to responses
func ToStockMovementResponses(movements []catalog.StockMovement) []StockMovementResponse {
	out := make([]StockMovementResponse, len(movements))
	for i, m := range movements {
		out[i] = StockMovementResponse{
			ID:           m.ID,
			Type:         string(m.Type),
			Quantity:     m.Quantity,
			BalanceAfter: m.BalanceAfter,
			ReferenceID:  m.ReferenceID,
			Reason:       m.Reason,
			UserID:       m.UserID,
			CreatedAt:    m.CreatedAt,
		}
	}
	return out
}
