package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/bill"
	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/customer"
	"github.com/pdv/backend/internal/domain/notification"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/shared"
	printer "github.com/pdv/backend/internal/infrastructure/printing"
	"github.com/stretchr/testify/mock"
)

// recordingNotifications keeps saved notifications in memory
type recordingNotifications struct {
	mu    sync.Mutex
	saved []notification.Notification
}

func (r *recordingNotifications) FindAllForCompany(_ context.Context, companyID uuid.UUID, filter notification.Filter) ([]notification.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Notification
	for _, n := range r.saved {
		if n.CompanyID != companyID {
			continue
		}
		if filter.Channel != "" && n.Channel != filter.Channel {
			continue
		}
		if filter.Status != "" && n.Status != filter.Status {
			continue
		}
		out = append(out, n)
	}
	return out, int64(len(out)), nil
}

func (r *recordingNotifications) Save(_ context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, *n)
	return nil
}

func (r *recordingNotifications) last() notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved[len(r.saved)-1]
}

type fakeMailer struct {
	err  error
	sent []notification.Email
}

func (m *fakeMailer) Send(_ context.Context, msg notification.Email) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type sentMessage struct {
	to, body, link, filename string
}

type fakeWhatsApp struct {
	err  error
	sent []sentMessage
}

func (w *fakeWhatsApp) SendText(_ context.Context, to, body string) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	w.sent = append(w.sent, sentMessage{to: to, body: body})
	return "wamid.text", nil
}

func (w *fakeWhatsApp) SendDocument(_ context.Context, to, link, filename, caption string) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	w.sent = append(w.sent, sentMessage{to: to, body: caption, link: link, filename: filename})
	return "wamid.doc", nil
}

// fakeRenderer returns a fixed PDF
type fakeRenderer struct{}

func (fakeRenderer) Render(context.Context, *printer.RenderRequest) (*printer.RenderResult, error) {
	return &printer.RenderResult{PDFData: []byte("%PDF-1.4 cupom")}, nil
}

func (fakeRenderer) Close() error { return nil }

type stubReceipts struct {
	data     printer.ReceiptData
	customer *customer.Customer
}

func (s stubReceipts) Load(_ context.Context, companyID, saleID uuid.UUID) (printer.ReceiptData, error) {
	if s.data.Sale == nil || s.data.Sale.ID != saleID || s.data.Sale.CompanyID != companyID {
		return printer.ReceiptData{}, shared.ErrNotFound
	}
	return s.data, nil
}

func (s stubReceipts) Customer(context.Context, uuid.UUID, *sale.Sale) (*customer.Customer, error) {
	if s.customer == nil {
		return nil, shared.ErrNotFound
	}
	return s.customer, nil
}

// MockBillRepository mocks the bill queries used by reminders
type MockBillRepository struct {
	bill.BillRepository
	mock.Mock
}

func (m *MockBillRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*bill.Bill, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bill.Bill), args.Error(1)
}

func (m *MockBillRepository) FindDueForReminder(ctx context.Context, dueBy time.Time, limit int) ([]bill.Bill, error) {
	args := m.Called(ctx, dueBy, limit)
	return args.Get(0).([]bill.Bill), args.Error(1)
}

func (m *MockBillRepository) Save(ctx context.Context, b *bill.Bill) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

type stubCustomers struct {
	customer.CustomerRepository
	byID map[uuid.UUID]*customer.Customer
}

func (s stubCustomers) FindByIDForCompany(_ context.Context, companyID, id uuid.UUID) (*customer.Customer, error) {
	c, ok := s.byID[id]
	if !ok || c.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return c, nil
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

var errProvider = errors.New("provider returned 503")
