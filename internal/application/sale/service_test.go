package sale

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/cash"
	"github.com/pdv/backend/internal/domain/catalog"
	"github.com/pdv/backend/internal/domain/company"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/seller"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/pdv/backend/internal/infrastructure/cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	companyID uuid.UUID
	userID    uuid.UUID
	company   *company.Company
	sales     *MockSaleRepository
	products  *MockProductRepository
	movements *MockStockMovementRepository
	customers *MockCustomerRepository
	sellers   *MockSellerRepository
	sessions  *MockSessionRepository
	fiscal    *MockFiscalCanceller
	events    *recordingPublisher
	service   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	comp, err := company.NewCompany("Mercado Central", "11222333000181", company.TaxRegimeSimplesNacional)
	require.NoError(t, err)
	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		companyID: comp.ID,
		userID:    uuid.New(),
		company:   comp,
		sales:     new(MockSaleRepository),
		products:  new(MockProductRepository),
		movements: new(MockStockMovementRepository),
		customers: new(MockCustomerRepository),
		sellers:   new(MockSellerRepository),
		sessions:  new(MockSessionRepository),
		fiscal:    new(MockFiscalCanceller),
		events:    &recordingPublisher{},
	}
	f.service = NewService(Deps{
		Sales:       f.sales,
		Products:    f.products,
		Movements:   f.movements,
		Customers:   f.customers,
		Sellers:     f.sellers,
		Sessions:    f.sessions,
		Companies:   staticCompanies{company: comp},
		Fiscal:      f.fiscal,
		Tx:          passthroughTx{},
		Idempotency: cache.NewIdempotency(store, time.Hour),
		Publisher:   f.events,
	}, zap.NewNop())
	return f
}

func (f *fixture) product(t *testing.T, stock int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(f.companyID, "ARZ-5", "Arroz 5kg", "UN", decimal.NewFromFloat(24.90))
	require.NoError(t, err)
	p.StockQuantity = decimal.NewFromInt(stock)
	p.ClearDomainEvents()
	return p
}

func (f *fixture) openSession(t *testing.T) *cash.Session {
	t.Helper()
	session, err := cash.OpenSession(f.companyID, f.userID, decimal.NewFromInt(100))
	require.NoError(t, err)
	f.sessions.On("FindOpenByOperator", mock.Anything, f.companyID, f.userID).Return(session, nil)
	return session
}

// expectBuild registers the lookups made while assembling a sale of product
func (f *fixture) expectBuild(p *catalog.Product) {
	f.sales.On("NextNumber", mock.Anything, f.companyID).Return(int64(42), nil)
	f.sellers.On("FindByUserID", mock.Anything, f.companyID, f.userID).Return(nil, shared.ErrNotFound)
	f.products.On("FindByIDForCompany", mock.Anything, f.companyID, p.ID).Return(p, nil)
}

func (f *fixture) expectStock(p *catalog.Product) {
	f.products.On("FindByIDs", mock.Anything, f.companyID, mock.Anything).Return([]catalog.Product{*p}, nil)
	f.products.On("Save", mock.Anything, mock.AnythingOfType("*catalog.Product")).Return(nil)
	f.movements.On("Create", mock.Anything, mock.Anything).Return(nil)
}

func checkoutRequest(p *catalog.Product, payments ...PaymentRequest) CheckoutRequest {
	return CheckoutRequest{
		CreateSaleRequest: CreateSaleRequest{
			Items: []ItemRequest{{ProductID: p.ID, Quantity: decimal.NewFromInt(2)}},
		},
		Payments: payments,
	}
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	de, ok := shared.AsDomainError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	return de.Code
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, 10)
	sel, err := seller.NewSeller(f.companyID, "Carla Vendas", decimal.NewFromInt(3))
	require.NoError(t, err)

	f.sales.On("NextNumber", ctx, f.companyID).Return(int64(7), nil)
	f.sellers.On("FindByUserID", ctx, f.companyID, f.userID).Return(sel, nil)
	f.products.On("FindByIDForCompany", ctx, f.companyID, p.ID).Return(p, nil)
	f.sales.On("Save", ctx, mock.AnythingOfType("*sale.Sale")).Return(nil)

	price := decimal.NewFromInt(20)
	resp, err := f.service.Create(ctx, f.companyID, f.userID, CreateSaleRequest{
		ConsumerDocument: "529.982.247-25",
		Items:            []ItemRequest{{ProductID: p.ID, Quantity: decimal.NewFromInt(3), UnitPrice: &price}},
		Discount:         decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), resp.Number)
	assert.Equal(t, "open", resp.Status)
	assert.Equal(t, "52998224725", resp.ConsumerDocument)
	require.NotNil(t, resp.SellerID)
	assert.Equal(t, sel.ID, *resp.SellerID)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "ARZ-5", resp.Items[0].ProductCode)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(55)))
	f.movements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_CreateRejectsInactiveProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, 10)
	require.NoError(t, p.Deactivate())
	f.expectBuild(p)

	_, err := f.service.Create(ctx, f.companyID, f.userID, CreateSaleRequest{
		Items: []ItemRequest{{ProductID: p.ID, Quantity: decimal.NewFromInt(1)}},
	})
	assert.Equal(t, "INVALID_PRODUCT", codeOf(t, err))
	f.sales.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestService_Checkout(t *testing.T) {
	ctx := context.Background()

	t.Run("completes and takes stock", func(t *testing.T) {
		f := newFixture(t)
		p := f.product(t, 10)
		session := f.openSession(t)
		f.expectBuild(p)
		f.expectStock(p)
		f.sales.On("Save", ctx, mock.AnythingOfType("*sale.Sale")).Return(nil)

		resp, err := f.service.Checkout(ctx, f.companyID, f.userID, "", checkoutRequest(p,
			PaymentRequest{Method: "cash", Amount: decimal.NewFromInt(50)}))
		require.NoError(t, err)
		assert.Equal(t, "completed", resp.Status)
		assert.True(t, resp.Total.Equal(decimal.NewFromFloat(49.80)))
		assert.True(t, resp.Change.Equal(decimal.NewFromFloat(0.20)))
		require.NotNil(t, resp.CashSessionID)
		assert.Equal(t, session.ID, *resp.CashSessionID)

		movements := f.movements.Calls[0].Arguments.Get(1).([]*catalog.StockMovement)
		require.Len(t, movements, 1)
		assert.Equal(t, catalog.MovementSale, movements[0].Type)
		assert.True(t, movements[0].Quantity.Equal(decimal.NewFromInt(-2)))
		assert.True(t, movements[0].BalanceAfter.Equal(decimal.NewFromInt(8)))
		require.NotNil(t, movements[0].ReferenceID)
		assert.Equal(t, resp.ID, *movements[0].ReferenceID)

		require.Len(t, f.events.events, 1)
		assert.Equal(t, sale.EventTypeSaleCompleted, f.events.events[0].EventType())
	})

	t.Run("requires open cash session", func(t *testing.T) {
		f := newFixture(t)
		p := f.product(t, 10)
		f.expectBuild(p)
		f.sessions.On("FindOpenByOperator", ctx, f.companyID, f.userID).Return(nil, shared.ErrNotFound)

		_, err := f.service.Checkout(ctx, f.companyID, f.userID, "", checkoutRequest(p,
			PaymentRequest{Method: "pix", Amount: decimal.NewFromFloat(49.80)}))
		assert.Equal(t, "CASH_SESSION_REQUIRED", codeOf(t, err))
		f.sales.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.Empty(t, f.events.events)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		f := newFixture(t)
		p := f.product(t, 1)
		f.openSession(t)
		f.expectBuild(p)
		f.expectStock(p)

		_, err := f.service.Checkout(ctx, f.companyID, f.userID, "", checkoutRequest(p,
			PaymentRequest{Method: "pix", Amount: decimal.NewFromFloat(49.80)}))
		assert.Equal(t, "INSUFFICIENT_STOCK", codeOf(t, err))
		f.sales.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("negative stock allowed by company", func(t *testing.T) {
		f := newFixture(t)
		f.company.Fiscal.AllowNegativeStock = true
		p := f.product(t, 1)
		f.openSession(t)
		f.expectBuild(p)
		f.expectStock(p)
		f.sales.On("Save", ctx, mock.AnythingOfType("*sale.Sale")).Return(nil)

		_, err := f.service.Checkout(ctx, f.companyID, f.userID, "", checkoutRequest(p,
			PaymentRequest{Method: "debit_card", Amount: decimal.NewFromFloat(49.80)}))
		require.NoError(t, err)
		movements := f.movements.Calls[0].Arguments.Get(1).([]*catalog.StockMovement)
		assert.True(t, movements[0].BalanceAfter.Equal(decimal.NewFromInt(-1)))
	})

	t.Run("store credit requires customer", func(t *testing.T) {
		f := newFixture(t)
		p := f.product(t, 10)
		f.openSession(t)
		f.expectBuild(p)

		_, err := f.service.Checkout(ctx, f.companyID, f.userID, "", checkoutRequest(p,
			PaymentRequest{Method: "store_credit", Amount: decimal.NewFromFloat(49.80), Installments: 3}))
		assert.Equal(t, "CUSTOMER_REQUIRED", codeOf(t, err))
	})

	t.Run("change larger than cash", func(t *testing.T) {
		f := newFixture(t)
		p := f.product(t, 10)
		f.openSession(t)
		f.expectBuild(p)

		_, err := f.service.Checkout(ctx, f.companyID, f.userID, "", checkoutRequest(p,
			PaymentRequest{Method: "cash", Amount: decimal.NewFromInt(1)},
			PaymentRequest{Method: "credit_card", Amount: decimal.NewFromInt(60)}))
		assert.Equal(t, "INVALID_CHANGE", codeOf(t, err))
	})
}

func TestService_CheckoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, 10)
	f.openSession(t)
	f.expectBuild(p)
	f.expectStock(p)
	var saved *sale.Sale
	f.sales.On("Save", ctx, mock.AnythingOfType("*sale.Sale")).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*sale.Sale)
	}).Return(nil)

	req := checkoutRequest(p, PaymentRequest{Method: "pix", Amount: decimal.NewFromFloat(49.80)})
	first, err := f.service.Checkout(ctx, f.companyID, f.userID, "pos-01-000123", req)
	require.NoError(t, err)
	require.NotNil(t, saved)

	f.sales.On("FindByIDForCompany", ctx, f.companyID, first.ID).Return(saved, nil)
	second, err := f.service.Checkout(ctx, f.companyID, f.userID, "pos-01-000123", req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	f.sales.AssertNumberOfCalls(t, "NextNumber", 1)
	f.sales.AssertNumberOfCalls(t, "Save", 1)
}

func TestService_CheckoutFailureReleasesKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, 10)
	f.expectBuild(p)
	f.sessions.On("FindOpenByOperator", ctx, f.companyID, f.userID).Return(nil, shared.ErrNotFound).Once()

	req := checkoutRequest(p, PaymentRequest{Method: "pix", Amount: decimal.NewFromFloat(49.80)})
	_, err := f.service.Checkout(ctx, f.companyID, f.userID, "retry-me", req)
	assert.Equal(t, "CASH_SESSION_REQUIRED", codeOf(t, err))

	f.openSession(t)
	f.expectStock(p)
	f.sales.On("Save", ctx, mock.AnythingOfType("*sale.Sale")).Return(nil)
	resp, err := f.service.Checkout(ctx, f.companyID, f.userID, "retry-me", req)
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
}

func completedSale(t *testing.T, f *fixture, p *catalog.Product) *sale.Sale {
	t.Helper()
	sl, err := sale.NewSale(f.companyID, f.userID, 9)
	require.NoError(t, err)
	_, err = sl.AddItem(sale.ProductSnapshot{ProductID: p.ID, Code: p.Code, Name: p.Name, Unit: p.Unit},
		decimal.NewFromInt(2), p.SalePrice, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, sl.Complete([]sale.PaymentInput{{Method: sale.MethodPix, Amount: sl.Total}}, uuid.New()))
	sl.ClearDomainEvents()
	return sl
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()
	reason := "Cliente desistiu da compra"

	t.Run("completed sale returns stock", func(t *testing.T) {
		f := newFixture(t)
		p := f.product(t, 8)
		sl := completedSale(t, f, p)
		f.sales.On("FindByIDForCompany", ctx, f.companyID, sl.ID).Return(sl, nil)
		f.fiscal.On("CancelForSale", ctx, f.companyID, f.userID, sl.ID, reason).Return(nil)
		f.expectStock(p)
		f.sales.On("Save", ctx, sl).Return(nil)

		resp, err := f.service.Cancel(ctx, f.companyID, f.userID, sl.ID, CancelSaleRequest{Reason: reason})
		require.NoError(t, err)
		assert.Equal(t, "cancelled", resp.Status)
		assert.Equal(t, reason, resp.CancelReason)

		movements := f.movements.Calls[0].Arguments.Get(1).([]*catalog.StockMovement)
		require.Len(t, movements, 1)
		assert.Equal(t, catalog.MovementCancellation, movements[0].Type)
		assert.True(t, movements[0].BalanceAfter.Equal(decimal.NewFromInt(10)))

		require.Len(t, f.events.events, 1)
		assert.Equal(t, sale.EventTypeSaleCancelled, f.events.events[0].EventType())
	})

	t.Run("fiscal refusal keeps the sale", func(t *testing.T) {
		f := newFixture(t)
		p := f.product(t, 8)
		sl := completedSale(t, f, p)
		f.sales.On("FindByIDForCompany", ctx, f.companyID, sl.ID).Return(sl, nil)
		f.fiscal.On("CancelForSale", ctx, f.companyID, f.userID, sl.ID, reason).
			Return(shared.NewDomainError("CANCEL_WINDOW_EXPIRED", "Cancellation window has expired"))

		_, err := f.service.Cancel(ctx, f.companyID, f.userID, sl.ID, CancelSaleRequest{Reason: reason})
		assert.Equal(t, "CANCEL_WINDOW_EXPIRED", codeOf(t, err))
		assert.Equal(t, sale.StatusCompleted, sl.Status)
		f.sales.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("open sale skips fiscal and stock", func(t *testing.T) {
		f := newFixture(t)
		sl, err := sale.NewSale(f.companyID, f.userID, 3)
		require.NoError(t, err)
		f.sales.On("FindByIDForCompany", ctx, f.companyID, sl.ID).Return(sl, nil)
		f.sales.On("Save", ctx, sl).Return(nil)

		_, err = f.service.Cancel(ctx, f.companyID, f.userID, sl.ID, CancelSaleRequest{Reason: reason})
		require.NoError(t, err)
		f.fiscal.AssertNotCalled(t, "CancelForSale", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.movements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("short reason", func(t *testing.T) {
		f := newFixture(t)
		sl, err := sale.NewSale(f.companyID, f.userID, 3)
		require.NoError(t, err)
		f.sales.On("FindByIDForCompany", ctx, f.companyID, sl.ID).Return(sl, nil)

		_, err = f.service.Cancel(ctx, f.companyID, f.userID, sl.ID, CancelSaleRequest{Reason: "erro"})
		assert.Equal(t, "INVALID_REASON", codeOf(t, err))
	})

	t.Run("accented reason cancels fiscal document and sale", func(t *testing.T) {
		f := newFixture(t)
		p := f.product(t, 8)
		sl := completedSale(t, f, p)
		accented := strings.Repeat("ç", 200)
		f.sales.On("FindByIDForCompany", ctx, f.companyID, sl.ID).Return(sl, nil)
		f.fiscal.On("CancelForSale", ctx, f.companyID, f.userID, sl.ID, accented).Return(nil)
		f.expectStock(p)
		f.sales.On("Save", ctx, sl).Return(nil)

		resp, err := f.service.Cancel(ctx, f.companyID, f.userID, sl.ID, CancelSaleRequest{Reason: accented})
		require.NoError(t, err)
		assert.Equal(t, "cancelled", resp.Status)
	})

	t.Run("invalid reason never reaches the fiscal gateway", func(t *testing.T) {
		f := newFixture(t)
		p := f.product(t, 8)
		sl := completedSale(t, f, p)
		f.sales.On("FindByIDForCompany", ctx, f.companyID, sl.ID).Return(sl, nil)

		_, err := f.service.Cancel(ctx, f.companyID, f.userID, sl.ID,
			CancelSaleRequest{Reason: strings.Repeat("ã", sale.MaxCancelReasonLength+1)})
		assert.Equal(t, "INVALID_REASON", codeOf(t, err))
		assert.Equal(t, sale.StatusCompleted, sl.Status)
		f.fiscal.AssertNotCalled(t, "CancelForSale", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_ListPeriod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	from := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)
	f.sales.On("FindAllForCompany", ctx, f.companyID, mock.MatchedBy(func(sf sale.SaleFilter) bool {
		return sf.Status == sale.StatusCompleted &&
			sf.From.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) &&
			sf.To.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	})).Return([]sale.Sale{}, int64(0), nil)

	items, total, err := f.service.List(ctx, f.companyID, SaleListFilter{From: &from, To: &to, Status: "completed"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
}
