package sale

import (
	"context"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/cash"
	"github.com/pdv/backend/internal/domain/catalog"
	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/customer"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/seller"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockSaleRepository is a mock implementation of sale.SaleRepository
type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*sale.Sale, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sale.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindByNumber(ctx context.Context, companyID uuid.UUID, number int64) (*sale.Sale, error) {
	args := m.Called(ctx, companyID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sale.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter sale.SaleFilter) ([]sale.Sale, int64, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).([]sale.Sale), args.Get(1).(int64), args.Error(2)
}

func (m *MockSaleRepository) FindCompletedBySession(ctx context.Context, companyID, sessionID uuid.UUID) ([]sale.Sale, error) {
	args := m.Called(ctx, companyID, sessionID)
	return args.Get(0).([]sale.Sale), args.Error(1)
}

func (m *MockSaleRepository) NextNumber(ctx context.Context, companyID uuid.UUID) (int64, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSaleRepository) Save(ctx context.Context, s *sale.Sale) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// MockProductRepository mocks the product lookups used by sales
type MockProductRepository struct {
	catalog.ProductRepository
	mock.Mock
}

func (m *MockProductRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, companyID, ids)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

// MockStockMovementRepository records stock movements
type MockStockMovementRepository struct {
	catalog.StockMovementRepository
	mock.Mock
}

func (m *MockStockMovementRepository) Create(ctx context.Context, movements ...*catalog.StockMovement) error {
	args := m.Called(ctx, movements)
	return args.Error(0)
}

// MockCustomerRepository mocks customer lookups
type MockCustomerRepository struct {
	customer.CustomerRepository
	mock.Mock
}

func (m *MockCustomerRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

// MockSellerRepository mocks seller lookups
type MockSellerRepository struct {
	seller.SellerRepository
	mock.Mock
}

func (m *MockSellerRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*seller.Seller, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seller.Seller), args.Error(1)
}

func (m *MockSellerRepository) FindByUserID(ctx context.Context, companyID, userID uuid.UUID) (*seller.Seller, error) {
	args := m.Called(ctx, companyID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seller.Seller), args.Error(1)
}

// MockSessionRepository mocks cash session lookups
type MockSessionRepository struct {
	cash.SessionRepository
	mock.Mock
}

func (m *MockSessionRepository) FindOpenByOperator(ctx context.Context, companyID, operatorID uuid.UUID) (*cash.Session, error) {
	args := m.Called(ctx, companyID, operatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cash.Session), args.Error(1)
}

// MockFiscalCanceller mocks the fiscal cancellation of sales
type MockFiscalCanceller struct {
	mock.Mock
}

func (m *MockFiscalCanceller) CancelForSale(ctx context.Context, companyID, userID, saleID uuid.UUID, reason string) error {
	args := m.Called(ctx, companyID, userID, saleID, reason)
	return args.Error(0)
}

type staticCompanies struct {
	company *company.Company
}

func (s staticCompanies) Lookup(context.Context, uuid.UUID) (*company.Company, error) {
	return s.company, nil
}

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}
