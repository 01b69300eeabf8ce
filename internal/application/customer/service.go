package customer

import (
	"context"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/customer"
	"github.com/pdv/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Service manages the customers of a company
type Service struct {
	customers customer.CustomerRepository
	logger    *zap.Logger
}

// NewService creates a new customer Service
func NewService(customers customer.CustomerRepository, logger *zap.Logger) *Service {
	return &Service{customers: customers, logger: logger}
}

// Create registers a customer
func (s *Service) Create(ctx context.Context, companyID, userID uuid.UUID, req CustomerRequest) (*CustomerResponse, error) {
	c, err := customer.NewCustomer(companyID, req.Name, customer.PersonType(req.PersonType), req.Document)
	if err != nil {
		return nil, err
	}
	c.SetCreatedBy(userID)
	if err := apply(c, req); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueDocument(ctx, c, nil); err != nil {
		return nil, err
	}
	if err := s.customers.Save(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("Customer created", zap.String("customer_id", c.ID.String()))
	resp := ToCustomerResponse(c)
	return &resp, nil
}

// Get returns a customer
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*CustomerResponse, error) {
	c, err := s.customers.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(c)
	return &resp, nil
}

// GetByDocument finds a customer by CPF or CNPJ, with or without punctuation
func (s *Service) GetByDocument(ctx context.Context, companyID uuid.UUID, document string) (*CustomerResponse, error) {
	document = shared.OnlyDigits(document)
	if !shared.ValidCPF(document) && !shared.ValidCNPJ(document) {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document must be a valid CPF or CNPJ")
	}
	c, err := s.customers.FindByDocument(ctx, companyID, document)
	if err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(c)
	return &resp, nil
}

// List returns a page of customers
func (s *Service) List(ctx context.Context, companyID uuid.UUID, filter CustomerListFilter) ([]CustomerResponse, int64, error) {
	df := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.PersonType != "" {
		df.Filters["person_type"] = filter.PersonType
	}
	if filter.City != "" {
		df.Filters["city"] = filter.City
	}
	if filter.Active != nil {
		df.Filters["active"] = *filter.Active
	}
	customers, total, err := s.customers.FindAllForCompany(ctx, companyID, df)
	if err != nil {
		return nil, 0, err
	}
	return ToCustomerResponses(customers), total, nil
}

// Update replaces the customer data
func (s *Service) Update(ctx context.Context, companyID, id uuid.UUID, req CustomerRequest) (*CustomerResponse, error) {
	c, err := s.customers.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := c.SetIdentity(req.Name, customer.PersonType(req.PersonType), req.Document); err != nil {
		return nil, err
	}
	if err := apply(c, req); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueDocument(ctx, c, &c.ID); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// Activate enables a customer
func (s *Service) Activate(ctx context.Context, companyID, id uuid.UUID) (*CustomerResponse, error) {
	c, err := s.customers.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := c.Activate(); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// Deactivate disables a customer
func (s *Service) Deactivate(ctx context.Context, companyID, id uuid.UUID) (*CustomerResponse, error) {
	c, err := s.customers.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := c.Deactivate(); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// Delete removes a customer without sales
func (s *Service) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	if _, err := s.customers.FindByIDForCompany(ctx, companyID, id); err != nil {
		return err
	}
	hasSales, err := s.customers.HasSales(ctx, companyID, id)
	if err != nil {
		return err
	}
	if hasSales {
		return shared.NewDomainError("CUSTOMER_HAS_SALES", "Customer has sales and cannot be deleted, deactivate it instead")
	}
	return s.customers.DeleteForCompany(ctx, companyID, id)
}

func apply(c *customer.Customer, req CustomerRequest) error {
	if err := c.SetContact(req.Email, req.Phone, req.WhatsApp); err != nil {
		return err
	}
	if req.Address != nil {
		err := c.SetAddress(customer.Address{
			Street:   req.Address.Street,
			Number:   req.Address.Number,
			District: req.Address.District,
			City:     req.Address.City,
			CityCode: req.Address.CityCode,
			State:    req.Address.State,
			ZipCode:  req.Address.ZipCode,
		})
		if err != nil {
			return err
		}
	}
	if req.CreditLimit != nil {
		if err := c.SetCreditLimit(*req.CreditLimit); err != nil {
			return err
		}
	}
	c.SetNotes(req.Notes)
	return nil
}

func (s *Service) ensureUniqueDocument(ctx context.Context, c *customer.Customer, excludeID *uuid.UUID) error {
	if c.Document == "" {
		return nil
	}
	exists, err := s.customers.ExistsByDocument(ctx, c.CompanyID, c.Document, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", "A customer with this document already exists")
	}
	return nil
}

func (s *Service) save(ctx context.Context, c *customer.Customer) (*CustomerResponse, error) {
	if err := s.customers.Save(ctx, c); err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(c)
	return &resp, nil
}
