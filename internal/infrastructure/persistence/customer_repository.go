package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/customer"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormCustomerRepository implements customer.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByIDForCompany finds a customer by ID within a company
func (r *GormCustomerRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*customer.Customer, error) {
	return findOne[customer.Customer](conn(ctx, r.db), "company_id = ? AND id = ?", companyID, id)
}

// FindByDocument finds a customer by CPF/CNPJ digits
func (r *GormCustomerRepository) FindByDocument(ctx context.Context, companyID uuid.UUID, document string) (*customer.Customer, error) {
	return findOne[customer.Customer](conn(ctx, r.db), "company_id = ? AND document = ?", companyID, shared.OnlyDigits(document))
}

var customerOrder = map[string]string{"name": "name", "created_at": "created_at", "credit_limit": "credit_limit", "city": "city"}

// FindAllForCompany lists customers. Filters: person_type, active, city.
func (r *GormCustomerRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]customer.Customer, int64, error) {
	filter.Normalize()
	q := conn(ctx, r.db).Model(&customer.Customer{}).
		Scopes(forCompany(companyID), search(filter.Search, "name", "document", "email", "phone"))
	if v, ok := filter.Filters["person_type"]; ok {
		q = q.Where("person_type = ?", v)
	}
	if v, ok := filter.Filters["active"]; ok {
		q = q.Where("active = ?", v == "true" || v == true)
	}
	if v, ok := filter.Filters["city"]; ok {
		q = q.Where("city = ?", v)
	}
	customers, total, err := findPage[customer.Customer](q, filter, customerOrder, "name ASC")
	if err != nil {
		return nil, 0, err
	}
	markAll(customers)
	return customers, total, nil
}

// ExistsByDocument checks whether another customer of the company holds the document
func (r *GormCustomerRepository) ExistsByDocument(ctx context.Context, companyID uuid.UUID, document string, excludeID *uuid.UUID) (bool, error) {
	db := conn(ctx, r.db)
	if excludeID != nil {
		db = db.Where("id <> ?", *excludeID)
	}
	return exists(db, &customer.Customer{}, "company_id = ? AND document = ?", companyID, shared.OnlyDigits(document))
}

// HasSales reports whether any sale references the customer
func (r *GormCustomerRepository) HasSales(ctx context.Context, companyID, id uuid.UUID) (bool, error) {
	return exists(conn(ctx, r.db), &sale.Sale{}, "company_id = ? AND customer_id = ?", companyID, id)
}

// Save creates or updates a customer
func (r *GormCustomerRepository) Save(ctx context.Context, c *customer.Customer) error {
	return saveVersioned(conn(ctx, r.db), c)
}

// DeleteForCompany removes a customer without sales
func (r *GormCustomerRepository) DeleteForCompany(ctx context.Context, companyID, id uuid.UUID) error {
	return deleteForCompany(conn(ctx, r.db), &customer.Customer{}, companyID, id)
}
