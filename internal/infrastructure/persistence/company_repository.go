package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormCompanyRepository implements company.CompanyRepository using GORM
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewGormCompanyRepository creates a new GormCompanyRepository
func NewGormCompanyRepository(db *gorm.DB) *GormCompanyRepository {
	return &GormCompanyRepository{db: db}
}

// FindByID finds a company by its ID
func (r *GormCompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*company.Company, error) {
	var c company.Company
	if err := conn(ctx, r.db).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	c.MarkPersisted()
	return &c, nil
}

// FindByCNPJ finds a company by its CNPJ digits
func (r *GormCompanyRepository) FindByCNPJ(ctx context.Context, cnpj string) (*company.Company, error) {
	var c company.Company
	if err := conn(ctx, r.db).First(&c, "cnpj = ?", shared.OnlyDigits(cnpj)).Error; err != nil {
		return nil, notFound(err)
	}
	c.MarkPersisted()
	return &c, nil
}

var companyOrder = map[string]string{"name": "name", "created_at": "created_at", "status": "status"}

// FindAll lists companies (platform administration)
func (r *GormCompanyRepository) FindAll(ctx context.Context, filter shared.Filter) ([]company.Company, int64, error) {
	filter.Normalize()
	q := conn(ctx, r.db).Model(&company.Company{}).Scopes(search(filter.Search, "name", "trade_name", "cnpj"))
	if status, ok := filter.Filters["status"]; ok {
		q = q.Where("status = ?", status)
	}
	items, total, err := findPage[company.Company](q, filter, companyOrder, "name ASC")
	if err != nil {
		return nil, 0, err
	}
	markAll(items)
	return items, total, nil
}

// FindActiveIDs returns the ids of every active company
func (r *GormCompanyRepository) FindActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := conn(ctx, r.db).Model(&company.Company{}).
		Where("status = ?", company.StatusActive).
		Pluck("id", &ids).Error
	return ids, err
}

// ExistsByCNPJ checks whether a CNPJ is already registered
func (r *GormCompanyRepository) ExistsByCNPJ(ctx context.Context, cnpj string) (bool, error) {
	return exists(conn(ctx, r.db), &company.Company{}, "cnpj = ?", shared.OnlyDigits(cnpj))
}

// Save creates or updates a company
func (r *GormCompanyRepository) Save(ctx context.Context, c *company.Company) error {
	return saveVersioned(conn(ctx, r.db), c)
}
