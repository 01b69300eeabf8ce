package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// DefaultCFOP is the CFOP for an in-state sale of goods acquired from third parties
const DefaultCFOP = "5102"

var validUnits = map[string]struct{}{
	"UN": {}, "KG": {}, "G": {}, "L": {}, "ML": {}, "M": {}, "CX": {}, "PC": {}, "PCT": {}, "DZ": {},
}

// Product is a sellable item with the fiscal classification needed for NFCe/NFe
type Product struct {
	shared.CompanyAggregateRoot
	Code          string          `gorm:"type:varchar(50);not null"`
	Barcode       string          `gorm:"type:varchar(14);index"`
	Name          string          `gorm:"type:varchar(200);not null"`
	Description   string          `gorm:"type:text"`
	Unit          string          `gorm:"type:varchar(6);not null"`
	NCM           string          `gorm:"column:ncm;type:varchar(8)"`
	CEST          string          `gorm:"column:cest;type:varchar(7)"`
	CFOP          string          `gorm:"column:cfop;type:varchar(4);not null"`
	Origin        int             `gorm:"not null;default:0"`
	TaxCode       string          `gorm:"type:varchar(4)"` // CSOSN (Simples Nacional) or CST
	SalePrice     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CostPrice     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	StockQuantity decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
	MinStock      decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
	TrackStock    bool            `gorm:"not null;default:true"`
	ImageKey      string          `gorm:"type:varchar(500)"`
	Status        ProductStatus   `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates an active product priced at salePrice
func NewProduct(companyID uuid.UUID, code, name, unit string, salePrice decimal.Decimal) (*Product, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := validateProductCode(code); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	unit = strings.ToUpper(strings.TrimSpace(unit))
	if err := validateUnit(unit); err != nil {
		return nil, err
	}
	if !salePrice.IsPositive() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Sale price must be greater than zero")
	}

	p := &Product{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Code:                 code,
		Name:                 name,
		Unit:                 unit,
		CFOP:                 DefaultCFOP,
		SalePrice:            shared.RoundMoney(salePrice),
		CostPrice:            decimal.Zero,
		StockQuantity:        decimal.Zero,
		MinStock:             decimal.Zero,
		TrackStock:           true,
		Status:               ProductStatusActive,
	}
	p.AddDomainEvent(NewProductCreatedEvent(p))
	return p, nil
}

// Update changes descriptive data
func (p *Product) Update(name, description, unit string) error {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return err
	}
	unit = strings.ToUpper(strings.TrimSpace(unit))
	if err := validateUnit(unit); err != nil {
		return err
	}
	p.Name = name
	p.Description = description
	p.Unit = unit
	p.IncrementVersion()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
	return nil
}

// SetBarcode sets the GTIN/EAN barcode; an empty value clears it
func (p *Product) SetBarcode(barcode string) error {
	barcode = strings.TrimSpace(barcode)
	if barcode != "" && !shared.ValidGTIN(barcode) {
		return shared.NewDomainError("INVALID_BARCODE", "Barcode is not a valid GTIN")
	}
	p.Barcode = barcode
	p.IncrementVersion()
	return nil
}

// SetFiscalData sets NCM, CEST, CFOP, origin and tax code
func (p *Product) SetFiscalData(ncm, cest, cfop string, origin int, taxCode string) error {
	ncm = shared.OnlyDigits(ncm)
	if ncm != "" && len(ncm) != 8 {
		return shared.NewDomainError("INVALID_NCM", "NCM must have 8 digits")
	}
	cest = shared.OnlyDigits(cest)
	if cest != "" && len(cest) != 7 {
		return shared.NewDomainError("INVALID_CEST", "CEST must have 7 digits")
	}
	if cfop == "" {
		cfop = DefaultCFOP
	}
	if len(cfop) != 4 || shared.OnlyDigits(cfop) != cfop {
		return shared.NewDomainError("INVALID_CFOP", "CFOP must have 4 digits")
	}
	if origin < 0 || origin > 8 {
		return shared.NewDomainError("INVALID_ORIGIN", "Origin must be between 0 and 8")
	}
	p.NCM = ncm
	p.CEST = cest
	p.CFOP = cfop
	p.Origin = origin
	p.TaxCode = strings.TrimSpace(taxCode)
	p.IncrementVersion()
	return nil
}

// UpdatePrices changes the sale and cost prices
func (p *Product) UpdatePrices(salePrice, costPrice decimal.Decimal) error {
	if !salePrice.IsPositive() {
		return shared.NewDomainError("INVALID_PRICE", "Sale price must be greater than zero")
	}
	if costPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Cost price cannot be negative")
	}
	oldPrice := p.SalePrice
	p.SalePrice = shared.RoundMoney(salePrice)
	p.CostPrice = shared.RoundMoney(costPrice)
	p.IncrementVersion()
	if !oldPrice.Equal(p.SalePrice) {
		p.AddDomainEvent(NewProductPriceChangedEvent(p, oldPrice))
	}
	return nil
}

// SetStockControl configures stock tracking and the low stock threshold
func (p *Product) SetStockControl(track bool, minStock decimal.Decimal) error {
	if minStock.IsNegative() {
		return shared.NewDomainError("INVALID_MIN_STOCK", "Minimum stock cannot be negative")
	}
	p.TrackStock = track
	p.MinStock = minStock
	p.IncrementVersion()
	return nil
}

// SetImageKey stores the object key of the product image
func (p *Product) SetImageKey(key string) {
	p.ImageKey = key
	p.IncrementVersion()
}

// RemoveStock takes quantity out of stock for a sale. Untracked products are ignored.
func (p *Product) RemoveStock(quantity decimal.Decimal, allowNegative bool) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be greater than zero")
	}
	if !p.TrackStock {
		return nil
	}
	next := p.StockQuantity.Sub(quantity)
	if next.IsNegative() && !allowNegative {
		return shared.WrapDomainError(shared.ErrInsufficientStock.Code,
			"Insufficient stock for product "+p.Code, nil)
	}
	p.StockQuantity = next
	p.IncrementVersion()
	return nil
}

// ReturnStock puts quantity back into stock (sale cancellation)
func (p *Product) ReturnStock(quantity decimal.Decimal) {
	if !p.TrackStock || !quantity.IsPositive() {
		return
	}
	p.StockQuantity = p.StockQuantity.Add(quantity)
	p.IncrementVersion()
}

// AdjustStock applies a signed manual correction
func (p *Product) AdjustStock(delta decimal.Decimal) error {
	if delta.IsZero() {
		return shared.NewDomainError("INVALID_QUANTITY", "Adjustment cannot be zero")
	}
	if !p.TrackStock {
		return shared.NewDomainError("STOCK_NOT_TRACKED", "Stock is not tracked for this product")
	}
	next := p.StockQuantity.Add(delta)
	if next.IsNegative() {
		return shared.NewDomainError("NEGATIVE_STOCK", "Adjustment would leave stock negative")
	}
	p.StockQuantity = next
	p.IncrementVersion()
	return nil
}

// IsLowStock reports whether tracked stock is at or below the minimum
func (p *Product) IsLowStock() bool {
	return p.TrackStock && p.MinStock.IsPositive() && p.StockQuantity.LessThanOrEqual(p.MinStock)
}

// Activate makes the product sellable
func (p *Product) Activate() error {
	if p.Status == ProductStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Product is already active")
	}
	p.Status = ProductStatusActive
	p.IncrementVersion()
	p.AddDomainEvent(NewProductStatusChangedEvent(p, ProductStatusInactive))
	return nil
}

// Deactivate hides the product from sale
func (p *Product) Deactivate() error {
	if p.Status == ProductStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Product is already inactive")
	}
	p.Status = ProductStatusInactive
	p.IncrementVersion()
	p.AddDomainEvent(NewProductStatusChangedEvent(p, ProductStatusActive))
	return nil
}

// IsActive reports whether the product can be sold
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// Margin returns the markup over cost in percent, zero when cost is unknown
func (p *Product) Margin() decimal.Decimal {
	if !p.CostPrice.IsPositive() {
		return decimal.Zero
	}
	return p.SalePrice.Sub(p.CostPrice).Div(p.CostPrice).Mul(decimal.NewFromInt(100)).Round(2)
}

func validateProductCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.') {
			return shared.NewDomainError("INVALID_CODE", "Product code can only contain letters, numbers, dots, underscores and hyphens")
		}
	}
	return nil
}

func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

func validateUnit(unit string) error {
	if _, ok := validUnits[unit]; !ok {
		return shared.NewDomainError("INVALID_UNIT", "Unit must be one of UN, KG, G, L, ML, M, CX, PC, PCT, DZ")
	}
	return nil
}
