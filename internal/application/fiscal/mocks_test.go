package fiscal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/customer"
	"github.com/pdv/backend/internal/domain/fiscal"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockDocumentRepository is a mock implementation of fiscal.DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*fiscal.Document, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByProviderRef(ctx context.Context, ref string) (*fiscal.Document, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindActiveBySale(ctx context.Context, companyID, saleID uuid.UUID, docType fiscal.DocumentType) (*fiscal.Document, error) {
	args := m.Called(ctx, companyID, saleID, docType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter fiscal.DocumentFilter) ([]fiscal.Document, int64, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).([]fiscal.Document), args.Get(1).(int64), args.Error(2)
}

func (m *MockDocumentRepository) FindProcessing(ctx context.Context, olderThan time.Time, limit int) ([]fiscal.Document, error) {
	args := m.Called(ctx, olderThan, limit)
	return args.Get(0).([]fiscal.Document), args.Error(1)
}

func (m *MockDocumentRepository) Save(ctx context.Context, doc *fiscal.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

// MockSequenceRepository is a mock implementation of fiscal.SequenceRepository
type MockSequenceRepository struct {
	mock.Mock
}

func (m *MockSequenceRepository) Next(ctx context.Context, companyID uuid.UUID, docType fiscal.DocumentType, series int) (int64, error) {
	args := m.Called(ctx, companyID, docType, series)
	return args.Get(0).(int64), args.Error(1)
}

// MockGateway is a mock implementation of fiscal.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Issue(ctx context.Context, docType fiscal.DocumentType, ref string, payload any) (*fiscal.GatewayResult, error) {
	args := m.Called(ctx, docType, ref, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.GatewayResult), args.Error(1)
}

func (m *MockGateway) Query(ctx context.Context, docType fiscal.DocumentType, ref string) (*fiscal.GatewayResult, error) {
	args := m.Called(ctx, docType, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.GatewayResult), args.Error(1)
}

func (m *MockGateway) Cancel(ctx context.Context, docType fiscal.DocumentType, ref, justification string) (*fiscal.GatewayResult, error) {
	args := m.Called(ctx, docType, ref, justification)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.GatewayResult), args.Error(1)
}

func (m *MockGateway) Download(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockSaleRepository mocks the sale lookups used when issuing
type MockSaleRepository struct {
	sale.SaleRepository
	mock.Mock
}

func (m *MockSaleRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*sale.Sale, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sale.Sale), args.Error(1)
}

// MockCustomerRepository mocks the customer lookups used for recipients
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

type staticCompanies struct {
	company *company.Company
}

func (s staticCompanies) Lookup(_ context.Context, id uuid.UUID) (*company.Company, error) {
	if s.company == nil || s.company.ID != id {
		return nil, shared.ErrNotFound
	}
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

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}
