package bill

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/bill"
	"github.com/pdv/backend/internal/domain/customer"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockBillRepository struct {
	mock.Mock
}

func (m *MockBillRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*bill.Bill, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bill.Bill), args.Error(1)
}

func (m *MockBillRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter bill.BillFilter) ([]bill.Bill, int64, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).([]bill.Bill), args.Get(1).(int64), args.Error(2)
}

func (m *MockBillRepository) FindBySale(ctx context.Context, companyID, saleID uuid.UUID) ([]bill.Bill, error) {
	args := m.Called(ctx, companyID, saleID)
	return args.Get(0).([]bill.Bill), args.Error(1)
}

func (m *MockBillRepository) FindDueForReminder(ctx context.Context, dueBy time.Time, limit int) ([]bill.Bill, error) {
	args := m.Called(ctx, dueBy, limit)
	return args.Get(0).([]bill.Bill), args.Error(1)
}

func (m *MockBillRepository) Summary(ctx context.Context, companyID uuid.UUID, today time.Time) ([]bill.Totals, error) {
	args := m.Called(ctx, companyID, today)
	return args.Get(0).([]bill.Totals), args.Error(1)
}

func (m *MockBillRepository) Save(ctx context.Context, b *bill.Bill) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBillRepository) SaveBatch(ctx context.Context, bills []*bill.Bill) error {
	return m.Called(ctx, bills).Error(0)
}

func (m *MockBillRepository) DeleteForCompany(ctx context.Context, companyID, id uuid.UUID) error {
	return m.Called(ctx, companyID, id).Error(0)
}

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

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...shared.DomainEvent) error { return nil }

var fixedNow = time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)

func newService() (*Service, *MockBillRepository, *MockCustomerRepository) {
	bills := new(MockBillRepository)
	customers := new(MockCustomerRepository)
	svc := NewService(bills, customers, nopPublisher{}, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc, bills, customers
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	de, ok := shared.AsDomainError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	return de.Code
}

func newBill(t *testing.T, companyID uuid.UUID, amount int64, due time.Time) *bill.Bill {
	t.Helper()
	bills, err := bill.NewBills(companyID, bill.Draft{
		Type:        bill.TypePayable,
		Description: "Aluguel",
		Amount:      decimal.NewFromInt(amount),
		DueDate:     due,
	})
	require.NoError(t, err)
	bills[0].ClearDomainEvents()
	return bills[0]
}

func TestService_CreateInstallments(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	svc, bills, customers := newService()

	c, err := customer.NewCustomer(companyID, "Maria Souza", customer.PersonIndividual, "52998224725")
	require.NoError(t, err)
	customers.On("FindByIDForCompany", ctx, companyID, c.ID).Return(c, nil)
	bills.On("SaveBatch", ctx, mock.Anything).Return(nil)

	resp, err := svc.Create(ctx, companyID, CreateBillRequest{
		Type:         "receivable",
		Description:  "Venda a prazo",
		CustomerID:   &c.ID,
		Amount:       decimal.NewFromInt(100),
		DueDate:      time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Installments: 3,
	})
	require.NoError(t, err)
	require.Len(t, resp, 3)
	assert.True(t, resp[0].Amount.Equal(decimal.RequireFromString("33.34")))
	assert.True(t, resp[1].Amount.Equal(decimal.RequireFromString("33.33")))
	assert.Equal(t, "Maria Souza", resp[0].Counterparty)
	assert.Equal(t, "Venda a prazo (2/3)", resp[1].Description)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), resp[1].DueDate)
	assert.True(t, resp[0].Overdue)
	require.NotNil(t, resp[0].GroupID)
	assert.Equal(t, *resp[0].GroupID, *resp[2].GroupID)
}

func TestService_CreateUnknownCustomer(t *testing.T) {
	ctx := context.Background()
	companyID, customerID := uuid.New(), uuid.New()
	svc, bills, customers := newService()
	customers.On("FindByIDForCompany", ctx, companyID, customerID).Return(nil, shared.ErrNotFound)

	_, err := svc.Create(ctx, companyID, CreateBillRequest{
		Type: "receivable", Description: "X", CustomerID: &customerID,
		Amount: decimal.NewFromInt(10), DueDate: fixedNow,
	})
	assert.Equal(t, "INVALID_CUSTOMER", codeOf(t, err))
	bills.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
}

func TestService_Pay(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	svc, bills, _ := newService()
	b := newBill(t, companyID, 100, fixedNow.AddDate(0, 0, 5))
	bills.On("FindByIDForCompany", ctx, companyID, b.ID).Return(b, nil)
	bills.On("Save", ctx, b).Return(nil)

	resp, err := svc.Pay(ctx, companyID, b.ID, PayBillRequest{Amount: decimal.NewFromInt(40)})
	require.NoError(t, err)
	assert.Equal(t, "partial", resp.Status)
	assert.True(t, resp.Balance.Equal(decimal.NewFromInt(60)))

	_, err = svc.Pay(ctx, companyID, b.ID, PayBillRequest{Amount: decimal.NewFromInt(61)})
	assert.Equal(t, "PAYMENT_EXCEEDS_BALANCE", codeOf(t, err))

	resp, err = svc.Pay(ctx, companyID, b.ID, PayBillRequest{Amount: decimal.NewFromInt(60)})
	require.NoError(t, err)
	assert.Equal(t, "paid", resp.Status)
	require.NotNil(t, resp.PaidAt)
	assert.Equal(t, fixedNow, *resp.PaidAt)

	_, err = svc.Cancel(ctx, companyID, b.ID)
	assert.Equal(t, "INVALID_STATE", codeOf(t, err))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	svc, bills, _ := newService()

	b := newBill(t, companyID, 100, fixedNow)
	require.NoError(t, b.Pay(decimal.NewFromInt(10), fixedNow))
	bills.On("FindByIDForCompany", ctx, companyID, b.ID).Return(b, nil)
	assert.Equal(t, "BILL_NOT_DELETABLE", codeOf(t, svc.Delete(ctx, companyID, b.ID)))

	pending := newBill(t, companyID, 50, fixedNow)
	bills.On("FindByIDForCompany", ctx, companyID, pending.ID).Return(pending, nil)
	bills.On("DeleteForCompany", ctx, companyID, pending.ID).Return(nil)
	require.NoError(t, svc.Delete(ctx, companyID, pending.ID))
}

func TestService_Summary(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	svc, bills, _ := newService()
	bills.On("Summary", ctx, companyID, fixedNow).Return([]bill.Totals{
		{Type: bill.TypeReceivable, OpenCount: 2, OpenAmount: decimal.NewFromInt(300), OverdueCount: 1, OverdueAmount: decimal.NewFromInt(100)},
		{Type: bill.TypePayable, OpenCount: 1, OpenAmount: decimal.NewFromInt(120), PaidAmount: decimal.NewFromInt(80)},
	}, nil)

	resp, err := svc.Summary(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Receivable.OverdueCount)
	assert.True(t, resp.Payable.PaidAmount.Equal(decimal.NewFromInt(80)))
	assert.True(t, resp.Balance.Equal(decimal.NewFromInt(180)))
}

func completedStoreCreditSale(t *testing.T, companyID uuid.UUID) *sale.Sale {
	t.Helper()
	s, err := sale.NewSale(companyID, uuid.New(), 15)
	require.NoError(t, err)
	require.NoError(t, s.SetCustomer(uuid.New()))
	_, err = s.AddItem(sale.ProductSnapshot{ProductID: uuid.New(), Code: "TV", Name: "Televisor", Unit: "UN"},
		decimal.NewFromInt(1), decimal.NewFromInt(1000), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, s.Complete([]sale.PaymentInput{
		{Method: sale.MethodCash, Amount: decimal.NewFromInt(100)},
		{Method: sale.MethodStoreCredit, Amount: decimal.NewFromInt(900), Installments: 3},
	}, uuid.New()))
	return s
}

func TestStoreCreditHandler(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	t.Run("creates receivables", func(t *testing.T) {
		bills := new(MockBillRepository)
		h := NewStoreCreditHandler(bills, zap.NewNop())
		s := completedStoreCreditSale(t, companyID)
		event := s.GetDomainEvents()[0]
		bills.On("FindBySale", ctx, companyID, s.ID).Return([]bill.Bill{}, nil)
		bills.On("SaveBatch", ctx, mock.Anything).Return(nil)

		require.NoError(t, h.Handle(ctx, event))
		saved := bills.Calls[1].Arguments.Get(1).([]*bill.Bill)
		require.Len(t, saved, 3)
		for _, b := range saved {
			assert.Equal(t, bill.TypeReceivable, b.Type)
			assert.True(t, b.Amount.Equal(decimal.NewFromInt(300)))
			assert.Equal(t, s.ID, *b.SaleID)
			assert.Equal(t, *s.CustomerID, *b.CustomerID)
			assert.Empty(t, b.GetDomainEvents())
		}
	})

	t.Run("caps installments at one cent each", func(t *testing.T) {
		bills := new(MockBillRepository)
		h := NewStoreCreditHandler(bills, zap.NewNop())
		s, err := sale.NewSale(companyID, uuid.New(), 16)
		require.NoError(t, err)
		require.NoError(t, s.SetCustomer(uuid.New()))
		_, err = s.AddItem(sale.ProductSnapshot{ProductID: uuid.New(), Code: "BALA", Name: "Bala", Unit: "UN"},
			decimal.NewFromInt(1), decimal.RequireFromString("0.05"), decimal.Zero)
		require.NoError(t, err)
		require.NoError(t, s.Complete([]sale.PaymentInput{
			{Method: sale.MethodStoreCredit, Amount: decimal.RequireFromString("0.05"), Installments: 10},
		}, uuid.New()))
		bills.On("FindBySale", ctx, companyID, s.ID).Return([]bill.Bill{}, nil)
		bills.On("SaveBatch", ctx, mock.Anything).Return(nil)

		require.NoError(t, h.Handle(ctx, s.GetDomainEvents()[0]))
		saved := bills.Calls[1].Arguments.Get(1).([]*bill.Bill)
		require.Len(t, saved, 5)
		for _, b := range saved {
			assert.True(t, b.Amount.Equal(decimal.RequireFromString("0.01")))
		}
	})

	t.Run("skips when receivables exist", func(t *testing.T) {
		bills := new(MockBillRepository)
		h := NewStoreCreditHandler(bills, zap.NewNop())
		s := completedStoreCreditSale(t, companyID)
		bills.On("FindBySale", ctx, companyID, s.ID).Return([]bill.Bill{{}}, nil)

		require.NoError(t, h.Handle(ctx, s.GetDomainEvents()[0]))
		bills.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
	})

	t.Run("cancels open receivables", func(t *testing.T) {
		bills := new(MockBillRepository)
		h := NewStoreCreditHandler(bills, zap.NewNop())
		s := completedStoreCreditSale(t, companyID)
		s.ClearDomainEvents()
		require.NoError(t, s.Cancel(uuid.New(), "Cliente devolveu o produto"))

		open := *newBill(t, companyID, 300, fixedNow)
		paid := *newBill(t, companyID, 300, fixedNow)
		require.NoError(t, paid.Pay(decimal.NewFromInt(300), fixedNow))
		bills.On("FindBySale", ctx, companyID, s.ID).Return([]bill.Bill{open, paid}, nil)
		bills.On("Save", ctx, mock.AnythingOfType("*bill.Bill")).Return(nil)

		require.NoError(t, h.Handle(ctx, s.GetDomainEvents()[0]))
		bills.AssertNumberOfCalls(t, "Save", 1)
		cancelled := bills.Calls[1].Arguments.Get(1).(*bill.Bill)
		assert.Equal(t, bill.StatusCancelled, cancelled.Status)
	})
}
