package customer

import (
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/customer"
	"github.com/shopspring/decimal"
)

// AddressRequest is the customer address
type AddressRequest struct {
	Street   string `json:"street" binding:"max=200"`
	Number   string `json:"number" binding:"max=20"`
	District string `json:"district" binding:"max=100"`
	City     string `json:"city" binding:"max=100"`
	CityCode string `json:"city_code" binding:"omitempty,len=7,numeric"`
	State    string `json:"state" binding:"omitempty,uf"`
	ZipCode  string `json:"zip_code" binding:"max=9"`
}

// CustomerRequest creates or updates a customer
type CustomerRequest struct {
	Name        string           `json:"name" binding:"required,min=1,max=200"`
	PersonType  string           `json:"person_type" binding:"omitempty,oneof=individual company"`
	Document    string           `json:"document" binding:"max=18"`
	Email       string           `json:"email" binding:"omitempty,email,max=200"`
	Phone       string           `json:"phone" binding:"max=20"`
	WhatsApp    string           `json:"whatsapp" binding:"max=20"`
	Address     *AddressRequest  `json:"address"`
	Notes       string           `json:"notes" binding:"max=2000"`
	CreditLimit *decimal.Decimal `json:"credit_limit"`
}

// CustomerListFilter represents filter options for the customer list
type CustomerListFilter struct {
	Search     string `form:"search"`
	PersonType string `form:"person_type" binding:"omitempty,oneof=individual company"`
	City       string `form:"city"`
	Active     *bool  `form:"active"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=name created_at updated_at"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// AddressResponse is the customer address in API responses
type AddressResponse struct {
	Street   string `json:"street"`
	Number   string `json:"number"`
	District string `json:"district"`
	City     string `json:"city"`
	CityCode string `json:"city_code"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	PersonType  string          `json:"person_type"`
	Document    string          `json:"document,omitempty"`
	Email       string          `json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	WhatsApp    string          `json:"whatsapp,omitempty"`
	Address     AddressResponse `json:"address"`
	Notes       string          `json:"notes,omitempty"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

// ToCustomerResponse converts a domain customer to a response
func ToCustomerResponse(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:         c.ID,
		Name:       c.Name,
		PersonType: string(c.PersonType),
		Document:   c.Document,
		Email:      c.Email,
		Phone:      c.Phone,
		WhatsApp:   c.WhatsApp,
		Address: AddressResponse{
			Street:   c.Address.Street,
			Number:   c.Address.Number,
			District: c.Address.District,
			City:     c.Address.City,
			CityCode: c.Address.CityCode,
			State:    c.Address.State,
			ZipCode:  c.Address.ZipCode,
		},
		Notes:       c.Notes,
		CreditLimit: c.CreditLimit,
		Active:      c.Active,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Version:     c.Version,
	}
}

// ToCustomerResponses converts domain customers to responses
func ToCustomerResponses(customers []customer.Customer) []CustomerResponse {
	out := make([]CustomerResponse, len(customers))
	for i := range customers {
		out[i] = ToCustomerResponse(&customers[i])
	}
	return out
}
