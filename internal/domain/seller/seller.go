package seller

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Seller is a salesperson credited on sales for commission purposes
type Seller struct {
	shared.CompanyAggregateRoot
	Name           string          `gorm:"type:varchar(200);not null"`
	CPF            string          `gorm:"column:cpf;type:varchar(11)"`
	Email          string          `gorm:"type:varchar(200)"`
	Phone          string          `gorm:"type:varchar(20)"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"` // percent
	UserID         *uuid.UUID      `gorm:"type:uuid"`
	Active         bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Seller) TableName() string {
	return "sellers"
}

// NewSeller creates an active seller
func NewSeller(companyID uuid.UUID, name string, commissionRate decimal.Decimal) (*Seller, error) {
	s := &Seller{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Active:               true,
	}
	if err := s.Update(name, "", "", ""); err != nil {
		return nil, err
	}
	if err := s.SetCommissionRate(commissionRate); err != nil {
		return nil, err
	}
	s.Version = 1
	return s, nil
}

// Update changes the seller's contact data
func (s *Seller) Update(name, cpf, email, phone string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Seller name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Seller name cannot exceed 200 characters")
	}
	cpf = shared.OnlyDigits(cpf)
	if cpf != "" && !shared.ValidCPF(cpf) {
		return shared.NewDomainError("INVALID_CPF", "CPF is not valid")
	}
	s.Name = name
	s.CPF = cpf
	s.Email = strings.ToLower(strings.TrimSpace(email))
	s.Phone = shared.OnlyDigits(phone)
	s.IncrementVersion()
	return nil
}

// SetCommissionRate sets the commission percentage (0 to 100)
func (s *Seller) SetCommissionRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_COMMISSION", "Commission rate must be between 0 and 100")
	}
	s.CommissionRate = rate.Round(2)
	s.IncrementVersion()
	return nil
}

// LinkUser ties the seller to a login so sales made by the user are credited automatically
func (s *Seller) LinkUser(userID *uuid.UUID) {
	s.UserID = userID
	s.IncrementVersion()
}

// Activate enables the seller
func (s *Seller) Activate() error {
	if s.Active {
		return shared.NewDomainError("ALREADY_ACTIVE", "Seller is already active")
	}
	s.Active = true
	s.IncrementVersion()
	return nil
}

// Deactivate disables the seller
func (s *Seller) Deactivate() error {
	if !s.Active {
		return shared.NewDomainError("ALREADY_INACTIVE", "Seller is already inactive")
	}
	s.Active = false
	s.IncrementVersion()
	return nil
}

// Commission computes the commission owed on a sales total
func (s *Seller) Commission(salesTotal decimal.Decimal) decimal.Decimal {
	return shared.RoundMoney(salesTotal.Mul(s.CommissionRate).Div(decimal.NewFromInt(100)))
}

// SellerRepository defines persistence for sellers
type SellerRepository interface {
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Seller, error)
	FindByUserID(ctx context.Context, companyID, userID uuid.UUID) (*Seller, error)
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]Seller, int64, error)
	HasSales(ctx context.Context, companyID, id uuid.UUID) (bool, error)
	Save(ctx context.Context, seller *Seller) error
	DeleteForCompany(ctx context.Context, companyID, id uuid.UUID) error
}
