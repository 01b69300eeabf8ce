package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementSale         MovementType = "sale"
	MovementCancellation MovementType = "cancellation"
	MovementAdjustment   MovementType = "adjustment"
)

// StockMovement is an append-only record of a stock change
type StockMovement struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type         MovementType    `gorm:"type:varchar(20);not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,3);not null"` // signed
	BalanceAfter decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	ReferenceID  *uuid.UUID      `gorm:"type:uuid"`
	Reason       string          `gorm:"type:varchar(255)"`
	UserID       *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement records the current balance of product after a change of quantity
func NewStockMovement(p *Product, kind MovementType, quantity decimal.Decimal, referenceID *uuid.UUID, reason string, userID uuid.UUID) *StockMovement {
	m := &StockMovement{
		ID:           uuid.New(),
		CompanyID:    p.CompanyID,
		ProductID:    p.ID,
		Type:         kind,
		Quantity:     quantity,
		BalanceAfter: p.StockQuantity,
		ReferenceID:  referenceID,
		Reason:       reason,
		CreatedAt:    time.Now(),
	}
	if userID != uuid.Nil {
		m.UserID = &userID
	}
	return m
}
