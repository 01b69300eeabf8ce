package company

import (
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/company"
)

// AddressRequest is the company address
type AddressRequest struct {
	Street   string `json:"street" binding:"max=200"`
	Number   string `json:"number" binding:"max=20"`
	District string `json:"district" binding:"max=100"`
	City     string `json:"city" binding:"max=100"`
	CityCode string `json:"city_code" binding:"omitempty,len=7,numeric"`
	State    string `json:"state" binding:"omitempty,uf"`
	ZipCode  string `json:"zip_code" binding:"max=9"`
}

func (a AddressRequest) toDomain() company.Address {
	return company.Address{
		Street:   a.Street,
		Number:   a.Number,
		District: a.District,
		City:     a.City,
		CityCode: a.CityCode,
		State:    a.State,
		ZipCode:  a.ZipCode,
	}
}

// RegisterRequest creates a company and its owner
type RegisterRequest struct {
	Name          string          `json:"name" binding:"required,min=1,max=200"`
	TradeName     string          `json:"trade_name" binding:"max=200"`
	CNPJ          string          `json:"cnpj" binding:"required,cnpj"`
	TaxRegime     string          `json:"tax_regime" binding:"required,oneof=simples_nacional lucro_presumido lucro_real"`
	Phone         string          `json:"phone" binding:"max=20"`
	Email         string          `json:"email" binding:"omitempty,email,max=200"`
	Address       *AddressRequest `json:"address"`
	OwnerName     string          `json:"owner_name" binding:"required,min=1,max=200"`
	OwnerEmail    string          `json:"owner_email" binding:"required,email,max=200"`
	OwnerPassword string          `json:"owner_password" binding:"required,min=8,max=72"`
}

// UpdateCompanyRequest updates the registration data
type UpdateCompanyRequest struct {
	Name                  string          `json:"name" binding:"required,min=1,max=200"`
	TradeName             string          `json:"trade_name" binding:"max=200"`
	StateRegistration     string          `json:"state_registration" binding:"max=20"`
	MunicipalRegistration string          `json:"municipal_registration" binding:"max=20"`
	TaxRegime             string          `json:"tax_regime" binding:"omitempty,oneof=simples_nacional lucro_presumido lucro_real"`
	Phone                 string          `json:"phone" binding:"max=20"`
	Email                 string          `json:"email" binding:"omitempty,email,max=200"`
	WhatsApp              string          `json:"whatsapp" binding:"max=20"`
	Address               *AddressRequest `json:"address"`
}

// FiscalSettingsRequest replaces the fiscal settings
type FiscalSettingsRequest struct {
	Environment        string `json:"environment" binding:"required,oneof=homologation production"`
	NFCeCSCID          string `json:"nfce_csc_id" binding:"max=10"`
	NFCeCSCToken       string `json:"nfce_csc_token" binding:"max=64"`
	NFCeSeries         int    `json:"nfce_series" binding:"min=0,max=999"`
	NFeSeries          int    `json:"nfe_series" binding:"min=0,max=999"`
	NFSeSeries         int    `json:"nfse_series" binding:"min=0,max=999"`
	AutoIssueNFCe      bool   `json:"auto_issue_nfce"`
	AllowNegativeStock bool   `json:"allow_negative_stock"`
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

// AddressResponse is the company address in API responses
type AddressResponse struct {
	Street   string `json:"street"`
	Number   string `json:"number"`
	District string `json:"district"`
	City     string `json:"city"`
	CityCode string `json:"city_code"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
}

// FiscalSettingsResponse hides the CSC token
type FiscalSettingsResponse struct {
	Environment        string `json:"environment"`
	NFCeCSCID          string `json:"nfce_csc_id"`
	HasCSCToken        bool   `json:"has_csc_token"`
	NFCeSeries         int    `json:"nfce_series"`
	NFeSeries          int    `json:"nfe_series"`
	NFSeSeries         int    `json:"nfse_series"`
	AutoIssueNFCe      bool   `json:"auto_issue_nfce"`
	AllowNegativeStock bool   `json:"allow_negative_stock"`
}

// CompanyResponse represents a company in API responses
type CompanyResponse struct {
	ID                    uuid.UUID              `json:"id"`
	Name                  string                 `json:"name"`
	TradeName             string                 `json:"trade_name"`
	CNPJ                  string                 `json:"cnpj"`
	StateRegistration     string                 `json:"state_registration"`
	MunicipalRegistration string                 `json:"municipal_registration"`
	TaxRegime             string                 `json:"tax_regime"`
	Address               AddressResponse        `json:"address"`
	Phone                 string                 `json:"phone"`
	Email                 string                 `json:"email"`
	WhatsApp              string                 `json:"whatsapp"`
	LogoURL               string                 `json:"logo_url,omitempty"`
	Status                string                 `json:"status"`
	Fiscal                FiscalSettingsResponse `json:"fiscal"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
	Version               int                    `json:"version"`
}

// ToCompanyResponse converts a domain company to a response
func ToCompanyResponse(c *company.Company) CompanyResponse {
	return CompanyResponse{
		ID:                    c.ID,
		Name:                  c.Name,
		TradeName:             c.TradeName,
		CNPJ:                  c.CNPJ,
		StateRegistration:     c.StateRegistration,
		MunicipalRegistration: c.MunicipalRegistration,
		TaxRegime:             string(c.TaxRegime),
		Address: AddressResponse{
			Street:   c.Address.Street,
			Number:   c.Address.Number,
			District: c.Address.District,
			City:     c.Address.City,
			CityCode: c.Address.CityCode,
			State:    c.Address.State,
			ZipCode:  c.Address.ZipCode,
		},
		Phone:    c.Phone,
		Email:    c.Email,
		WhatsApp: c.WhatsApp,
		Status:   string(c.Status),
		Fiscal: FiscalSettingsResponse{
			Environment:        string(c.Fiscal.Environment),
			NFCeCSCID:          c.Fiscal.NFCeCSCID,
			HasCSCToken:        c.Fiscal.NFCeCSCToken != "",
			NFCeSeries:         c.Fiscal.NFCeSeries,
			NFeSeries:          c.Fiscal.NFeSeries,
			NFSeSeries:         c.Fiscal.NFSeSeries,
			AutoIssueNFCe:      c.Fiscal.AutoIssueNFCe,
			AllowNegativeStock: c.Fiscal.AllowNegativeStock,
		},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Version:   c.Version,
	}
}
