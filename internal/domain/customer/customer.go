package customer

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PersonType distinguishes individuals (CPF) from companies (CNPJ)
type PersonType string

const (
	PersonIndividual PersonType = "individual"
	PersonCompany    PersonType = "company"
)

// Address is the customer's address, required for NFe recipients
type Address struct {
	Street   string `gorm:"column:street;type:varchar(200)"`
	Number   string `gorm:"column:number;type:varchar(20)"`
	District string `gorm:"column:district;type:varchar(100)"`
	City     string `gorm:"column:city;type:varchar(100)"`
	CityCode string `gorm:"column:city_code;type:varchar(7)"`
	State    string `gorm:"column:state;type:varchar(2)"`
	ZipCode  string `gorm:"column:zip_code;type:varchar(8)"`
}

// Complete reports whether the address is enough for an NFe recipient
func (a Address) Complete() bool {
	return a.Street != "" && a.Number != "" && a.City != "" && a.CityCode != "" && a.State != "" && a.ZipCode != ""
}

// Customer is a buyer registered by the company
type Customer struct {
	shared.CompanyAggregateRoot
	Name        string          `gorm:"type:varchar(200);not null"`
	PersonType  PersonType      `gorm:"type:varchar(20);not null;default:'individual'"`
	Document    string          `gorm:"type:varchar(14);index"`
	Email       string          `gorm:"type:varchar(200)"`
	Phone       string          `gorm:"type:varchar(20)"`
	WhatsApp    string          `gorm:"column:whatsapp;type:varchar(20)"`
	Address     Address         `gorm:"embedded"`
	Notes       string          `gorm:"type:text"`
	CreditLimit decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Active      bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// NewCustomer creates an active customer. document may be empty.
func NewCustomer(companyID uuid.UUID, name string, personType PersonType, document string) (*Customer, error) {
	c := &Customer{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		CreditLimit:          decimal.Zero,
		Active:               true,
	}
	if err := c.SetIdentity(name, personType, document); err != nil {
		return nil, err
	}
	c.Version = 1
	return c, nil
}

// SetIdentity sets the name and taxpayer document
func (c *Customer) SetIdentity(name string, personType PersonType, document string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot exceed 200 characters")
	}
	if personType == "" {
		personType = PersonIndividual
	}
	document = shared.OnlyDigits(document)
	switch personType {
	case PersonIndividual:
		if document != "" && !shared.ValidCPF(document) {
			return shared.NewDomainError("INVALID_DOCUMENT", "CPF is not valid")
		}
	case PersonCompany:
		if document != "" && !shared.ValidCNPJ(document) {
			return shared.NewDomainError("INVALID_DOCUMENT", "CNPJ is not valid")
		}
	default:
		return shared.NewDomainError("INVALID_PERSON_TYPE", "Person type must be individual or company")
	}
	c.Name = name
	c.PersonType = personType
	c.Document = document
	c.IncrementVersion()
	return nil
}

// SetContact sets email, phone and WhatsApp number
func (c *Customer) SetContact(email, phone, whatsapp string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" && (!strings.Contains(email, "@") || len(email) > 200) {
		return shared.NewDomainError("INVALID_EMAIL", "Email is not valid")
	}
	whatsapp = shared.OnlyDigits(whatsapp)
	if whatsapp != "" && (len(whatsapp) < 10 || len(whatsapp) > 13) {
		return shared.NewDomainError("INVALID_WHATSAPP", "WhatsApp number must have 10 to 13 digits")
	}
	c.Email = email
	c.Phone = shared.OnlyDigits(phone)
	c.WhatsApp = whatsapp
	c.IncrementVersion()
	return nil
}

// SetAddress replaces the address
func (c *Customer) SetAddress(addr Address) error {
	if addr.State != "" && !shared.ValidUF(addr.State) {
		return shared.NewDomainError("INVALID_STATE", "Unknown state (UF)")
	}
	addr.State = strings.ToUpper(addr.State)
	addr.ZipCode = shared.OnlyDigits(addr.ZipCode)
	c.Address = addr
	c.IncrementVersion()
	return nil
}

// SetCreditLimit sets the store credit limit
func (c *Customer) SetCreditLimit(limit decimal.Decimal) error {
	if limit.IsNegative() {
		return shared.NewDomainError("INVALID_CREDIT_LIMIT", "Credit limit cannot be negative")
	}
	c.CreditLimit = shared.RoundMoney(limit)
	c.IncrementVersion()
	return nil
}

// SetNotes sets free text notes
func (c *Customer) SetNotes(notes string) {
	c.Notes = notes
	c.IncrementVersion()
}

// Activate enables the customer
func (c *Customer) Activate() error {
	if c.Active {
		return shared.NewDomainError("ALREADY_ACTIVE", "Customer is already active")
	}
	c.Active = true
	c.IncrementVersion()
	return nil
}

// Deactivate disables the customer
func (c *Customer) Deactivate() error {
	if !c.Active {
		return shared.NewDomainError("ALREADY_INACTIVE", "Customer is already inactive")
	}
	c.Active = false
	c.IncrementVersion()
	return nil
}

// WhatsAppNumber returns the WhatsApp number, falling back to the phone
func (c *Customer) WhatsAppNumber() string {
	if c.WhatsApp != "" {
		return c.WhatsApp
	}
	return c.Phone
}

// CustomerRepository defines persistence for customers
type CustomerRepository interface {
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Customer, error)
	FindByDocument(ctx context.Context, companyID uuid.UUID, document string) (*Customer, error)
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]Customer, int64, error)
	ExistsByDocument(ctx context.Context, companyID uuid.UUID, document string, excludeID *uuid.UUID) (bool, error)
	HasSales(ctx context.Context, companyID, id uuid.UUID) (bool, error)
	Save(ctx context.Context, customer *Customer) error
	DeleteForCompany(ctx context.Context, companyID, id uuid.UUID) error
}
