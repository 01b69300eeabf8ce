package company

import (
	"strings"
	"time"

	"github.com/pdv/backend/internal/domain/shared"
)

// Status represents the lifecycle status of a company account
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// TaxRegime is the federal tax regime of the company (CRT in fiscal documents)
type TaxRegime string

const (
	TaxRegimeSimplesNacional TaxRegime = "simples_nacional"
	TaxRegimeLucroPresumido  TaxRegime = "lucro_presumido"
	TaxRegimeLucroReal       TaxRegime = "lucro_real"
)

// IsValid checks the regime against the known values
func (r TaxRegime) IsValid() bool {
	switch r {
	case TaxRegimeSimplesNacional, TaxRegimeLucroPresumido, TaxRegimeLucroReal:
		return true
	}
	return false
}

// CRT returns the regime code used in NFe/NFCe payloads
func (r TaxRegime) CRT() int {
	switch r {
	case TaxRegimeSimplesNacional:
		return 1
	case TaxRegimeLucroPresumido, TaxRegimeLucroReal:
		return 3
	}
	return 0
}

// FiscalEnvironment selects the SEFAZ environment documents are sent to
type FiscalEnvironment string

const (
	EnvironmentHomologation FiscalEnvironment = "homologation"
	EnvironmentProduction   FiscalEnvironment = "production"
)

// Address is the company postal address as required by fiscal documents
type Address struct {
	Street   string `gorm:"column:street;type:varchar(200)"`
	Number   string `gorm:"column:number;type:varchar(20)"`
	District string `gorm:"column:district;type:varchar(100)"`
	City     string `gorm:"column:city;type:varchar(100)"`
	CityCode string `gorm:"column:city_code;type:varchar(7)"` // IBGE municipality code
	State    string `gorm:"column:state;type:varchar(2)"`
	ZipCode  string `gorm:"column:zip_code;type:varchar(8)"`
}

// FiscalSettings groups the parameters used when issuing NFCe/NFe/NFSe
type FiscalSettings struct {
	Environment        FiscalEnvironment `gorm:"column:fiscal_environment;type:varchar(20);not null;default:'homologation'"`
	NFCeCSCID          string            `gorm:"column:nfce_csc_id;type:varchar(10)"`
	NFCeCSCToken       string            `gorm:"column:nfce_csc_token;type:varchar(64)"`
	NFCeSeries         int               `gorm:"column:nfce_series;not null;default:1"`
	NFeSeries          int               `gorm:"column:nfe_series;not null;default:1"`
	NFSeSeries         int               `gorm:"column:nfse_series;not null;default:1"`
	AutoIssueNFCe      bool              `gorm:"column:auto_issue_nfce;not null;default:false"`
	AllowNegativeStock bool              `gorm:"column:allow_negative_stock;not null;default:false"`
}

// Company is the tenant of the platform. Every other aggregate is scoped by its ID.
type Company struct {
	shared.BaseAggregateRoot
	Name                  string         `gorm:"type:varchar(200);not null"`
	TradeName             string         `gorm:"type:varchar(200)"`
	CNPJ                  string         `gorm:"column:cnpj;type:varchar(14);not null;uniqueIndex"`
	StateRegistration     string         `gorm:"type:varchar(20)"`
	MunicipalRegistration string         `gorm:"type:varchar(20)"`
	TaxRegime             TaxRegime      `gorm:"type:varchar(30);not null"`
	Address               Address        `gorm:"embedded"`
	Phone                 string         `gorm:"type:varchar(20)"`
	Email                 string         `gorm:"type:varchar(200)"`
	WhatsApp              string         `gorm:"column:whatsapp;type:varchar(20)"`
	LogoKey               string         `gorm:"type:varchar(500)"`
	Status                Status         `gorm:"type:varchar(20);not null;default:'active'"`
	Fiscal                FiscalSettings `gorm:"embedded"`
}

// TableName returns the table name for GORM
func (Company) TableName() string {
	return "companies"
}

// NewCompany creates an active company in the homologation environment
func NewCompany(name, cnpj string, regime TaxRegime) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Company name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Company name cannot exceed 200 characters")
	}
	if !shared.ValidCNPJ(cnpj) {
		return nil, shared.NewDomainError("INVALID_CNPJ", "CNPJ is not valid")
	}
	if !regime.IsValid() {
		return nil, shared.NewDomainError("INVALID_TAX_REGIME", "Unknown tax regime")
	}

	c := &Company{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		TradeName:         name,
		CNPJ:              shared.OnlyDigits(cnpj),
		TaxRegime:         regime,
		Status:            StatusActive,
		Fiscal: FiscalSettings{
			Environment: EnvironmentHomologation,
			NFCeSeries:  1,
			NFeSeries:   1,
			NFSeSeries:  1,
		},
	}
	c.AddDomainEvent(NewCompanyRegisteredEvent(c))
	return c, nil
}

// UpdateProfile updates the registration data printed on receipts and fiscal documents
func (c *Company) UpdateProfile(name, tradeName, stateReg, municipalReg, phone, email, whatsapp string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Company name cannot be empty")
	}
	c.Name = name
	c.TradeName = strings.TrimSpace(tradeName)
	if c.TradeName == "" {
		c.TradeName = name
	}
	c.StateRegistration = strings.TrimSpace(stateReg)
	c.MunicipalRegistration = strings.TrimSpace(municipalReg)
	c.Phone = shared.OnlyDigits(phone)
	c.Email = strings.ToLower(strings.TrimSpace(email))
	c.WhatsApp = shared.OnlyDigits(whatsapp)
	c.IncrementVersion()
	return nil
}

// SetAddress validates and replaces the company address
func (c *Company) SetAddress(addr Address) error {
	if addr.State != "" && !shared.ValidUF(addr.State) {
		return shared.NewDomainError("INVALID_STATE", "Unknown state (UF)")
	}
	if addr.CityCode != "" && len(shared.OnlyDigits(addr.CityCode)) != 7 {
		return shared.NewDomainError("INVALID_CITY_CODE", "City code must have 7 digits")
	}
	addr.State = strings.ToUpper(addr.State)
	addr.ZipCode = shared.OnlyDigits(addr.ZipCode)
	c.Address = addr
	c.IncrementVersion()
	return nil
}

// SetTaxRegime changes the tax regime
func (c *Company) SetTaxRegime(regime TaxRegime) error {
	if !regime.IsValid() {
		return shared.NewDomainError("INVALID_TAX_REGIME", "Unknown tax regime")
	}
	c.TaxRegime = regime
	c.IncrementVersion()
	return nil
}

// UpdateFiscalSettings replaces the fiscal settings
func (c *Company) UpdateFiscalSettings(settings FiscalSettings) error {
	switch settings.Environment {
	case EnvironmentHomologation, EnvironmentProduction:
	default:
		return shared.NewDomainError("INVALID_ENVIRONMENT", "Fiscal environment must be homologation or production")
	}
	if settings.NFCeSeries < 0 || settings.NFCeSeries > 999 ||
		settings.NFeSeries < 0 || settings.NFeSeries > 999 ||
		settings.NFSeSeries < 0 || settings.NFSeSeries > 999 {
		return shared.NewDomainError("INVALID_SERIES", "Series must be between 0 and 999")
	}
	if settings.Environment == EnvironmentProduction && (settings.NFCeCSCID == "" || settings.NFCeCSCToken == "") && settings.AutoIssueNFCe {
		return shared.NewDomainError("CSC_REQUIRED", "NFCe CSC id and token are required in production")
	}
	c.Fiscal = settings
	c.IncrementVersion()
	c.AddDomainEvent(NewCompanyFiscalSettingsChangedEvent(c))
	return nil
}

// SetLogoKey stores the object key of the uploaded logo
func (c *Company) SetLogoKey(key string) {
	c.LogoKey = key
	c.IncrementVersion()
}

// CanIssueFiscal reports whether the registration data required by SEFAZ is complete
func (c *Company) CanIssueFiscal() error {
	if c.Address.State == "" || c.Address.CityCode == "" {
		return shared.NewDomainError("INCOMPLETE_ADDRESS", "Company address (state and city code) is required to issue fiscal documents")
	}
	if c.StateRegistration == "" {
		return shared.NewDomainError("STATE_REGISTRATION_REQUIRED", "State registration is required to issue fiscal documents")
	}
	return nil
}

// Suspend blocks the company (logins are refused)
func (c *Company) Suspend() error {
	if c.Status == StatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Company is already suspended")
	}
	c.Status = StatusSuspended
	c.IncrementVersion()
	c.AddDomainEvent(NewCompanyStatusChangedEvent(c, StatusActive))
	return nil
}

// Activate re-enables a suspended company
func (c *Company) Activate() error {
	if c.Status == StatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Company is already active")
	}
	c.Status = StatusActive
	c.IncrementVersion()
	c.AddDomainEvent(NewCompanyStatusChangedEvent(c, StatusSuspended))
	return nil
}

// IsActive reports whether the company is active
func (c *Company) IsActive() bool {
	return c.Status == StatusActive
}

// DisplayName prefers the trade name
func (c *Company) DisplayName() string {
	if c.TradeName != "" {
		return c.TradeName
	}
	return c.Name
}

// IssuedMonth formats t as YYMM, the form used in fiscal access keys
func IssuedMonth(t time.Time) string {
	return t.Format("0601")
}
