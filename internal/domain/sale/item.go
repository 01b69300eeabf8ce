package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the product data frozen into a sale line
type ProductSnapshot struct {
	ProductID uuid.UUID
	Code      string
	Barcode   string
	Name      string
	Unit      string
	NCM       string
	CFOP      string
	Origin    int
	TaxCode   string
}

// SaleItem is a line of a sale
type SaleItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNumber  int             `gorm:"not null"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductCode string          `gorm:"type:varchar(50);not null"`
	Barcode     string          `gorm:"type:varchar(14)"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Unit        string          `gorm:"type:varchar(6);not null"`
	NCM         string          `gorm:"column:ncm;type:varchar(8)"`
	CFOP        string          `gorm:"column:cfop;type:varchar(4)"`
	Origin      int             `gorm:"not null;default:0"`
	TaxCode     string          `gorm:"type:varchar(4)"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Discount    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Total       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (SaleItem) TableName() string {
	return "sale_items"
}

// NewSaleItem creates a sale line. total = quantity * unitPrice - discount, rounded to cents.
func NewSaleItem(saleID uuid.UUID, line int, snapshot ProductSnapshot, quantity, unitPrice, discount decimal.Decimal) (*SaleItem, error) {
	if snapshot.ProductID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product is required")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if discount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Item discount cannot be negative")
	}
	gross := shared.RoundMoney(quantity.Mul(unitPrice))
	discount = shared.RoundMoney(discount)
	if discount.GreaterThan(gross) {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Item discount cannot exceed the item value")
	}
	return &SaleItem{
		ID:          uuid.New(),
		SaleID:      saleID,
		LineNumber:  line,
		ProductID:   snapshot.ProductID,
		ProductCode: snapshot.Code,
		Barcode:     snapshot.Barcode,
		ProductName: snapshot.Name,
		Unit:        snapshot.Unit,
		NCM:         snapshot.NCM,
		CFOP:        snapshot.CFOP,
		Origin:      snapshot.Origin,
		TaxCode:     snapshot.TaxCode,
		Quantity:    quantity,
		UnitPrice:   shared.RoundMoney(unitPrice),
		Discount:    discount,
		Total:       gross.Sub(discount),
		CreatedAt:   time.Now(),
	}, nil
}
