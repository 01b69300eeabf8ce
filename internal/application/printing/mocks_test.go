package printing

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/cash"
	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/customer"
	"github.com/pdv/backend/internal/domain/fiscal"
	"github.com/pdv/backend/internal/domain/identity"
	"github.com/pdv/backend/internal/domain/printing"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/seller"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockPrinterRepository is a mock implementation of printing.PrinterRepository
type MockPrinterRepository struct {
	mock.Mock
}

func (m *MockPrinterRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*printing.Printer, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*printing.Printer), args.Error(1)
}

func (m *MockPrinterRepository) FindDefault(ctx context.Context, companyID uuid.UUID) (*printing.Printer, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*printing.Printer), args.Error(1)
}

func (m *MockPrinterRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID) ([]printing.Printer, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).([]printing.Printer), args.Error(1)
}

func (m *MockPrinterRepository) Save(ctx context.Context, p *printing.Printer) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPrinterRepository) SetDefault(ctx context.Context, companyID, id uuid.UUID) error {
	args := m.Called(ctx, companyID, id)
	return args.Error(0)
}

func (m *MockPrinterRepository) DeleteForCompany(ctx context.Context, companyID, id uuid.UUID) error {
	args := m.Called(ctx, companyID, id)
	return args.Error(0)
}

// recordingJobs keeps a copy of every saved job state
type recordingJobs struct {
	mu    sync.Mutex
	saved []printing.Job
}

func (r *recordingJobs) FindAllForCompany(_ context.Context, companyID uuid.UUID, _ printing.JobFilter) ([]printing.Job, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []printing.Job
	for _, j := range r.saved {
		if j.CompanyID == companyID {
			out = append(out, j)
		}
	}
	return out, int64(len(out)), nil
}

func (r *recordingJobs) Save(_ context.Context, job *printing.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, *job)
	return nil
}

func (r *recordingJobs) last() printing.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved[len(r.saved)-1]
}

// fakeDriver captures the bytes sent to printers
type fakeDriver struct {
	err  error
	sent map[string][]byte
}

func (d *fakeDriver) Send(_ context.Context, p *printing.Printer, data []byte) error {
	if d.err != nil {
		return d.err
	}
	if d.sent == nil {
		d.sent = make(map[string][]byte)
	}
	d.sent[p.Name] = data
	return nil
}

// MockSaleRepository mocks the sale lookups of receipts
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

type stubUsers struct {
	identity.UserRepository
	users map[uuid.UUID]*identity.User
}

func (s stubUsers) FindByIDForCompany(_ context.Context, _, id uuid.UUID) (*identity.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

type stubSellers struct {
	seller.SellerRepository
}

func (stubSellers) FindByIDForCompany(context.Context, uuid.UUID, uuid.UUID) (*seller.Seller, error) {
	return nil, shared.ErrNotFound
}

type stubCustomers struct {
	customer.CustomerRepository
}

func (stubCustomers) FindByIDForCompany(context.Context, uuid.UUID, uuid.UUID) (*customer.Customer, error) {
	return nil, shared.ErrNotFound
}

type stubFiscal struct {
	doc *fiscal.Document
}

func (s stubFiscal) Document(context.Context, uuid.UUID, uuid.UUID) (*fiscal.Document, error) {
	if s.doc == nil {
		return nil, shared.ErrNotFound
	}
	return s.doc, nil
}

type stubSessions struct {
	session *cash.Session
}

func (s stubSessions) Session(_ context.Context, _, id uuid.UUID) (*cash.Session, error) {
	if s.session == nil || s.session.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.session, nil
}

type staticCompanies struct {
	company *company.Company
}

func (s staticCompanies) Lookup(context.Context, uuid.UUID) (*company.Company, error) {
	return s.company, nil
}
