package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/bill"
	"github.com/pdv/backend/internal/domain/report"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/pdv/backend/internal/infrastructure/cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockSalesQueryRepository struct {
	mock.Mock
}

func (m *MockSalesQueryRepository) Totals(ctx context.Context, companyID uuid.UUID, p report.Period, sellerID *uuid.UUID) (report.SalesTotals, error) {
	args := m.Called(ctx, companyID, p, sellerID)
	return args.Get(0).(report.SalesTotals), args.Error(1)
}

func (m *MockSalesQueryRepository) ByMethod(ctx context.Context, companyID uuid.UUID, p report.Period, sellerID *uuid.UUID) ([]report.MethodTotal, error) {
	args := m.Called(ctx, companyID, p, sellerID)
	return args.Get(0).([]report.MethodTotal), args.Error(1)
}

func (m *MockSalesQueryRepository) BySeller(ctx context.Context, companyID uuid.UUID, p report.Period, sellerID *uuid.UUID) ([]report.SellerTotal, error) {
	args := m.Called(ctx, companyID, p, sellerID)
	return args.Get(0).([]report.SellerTotal), args.Error(1)
}

func (m *MockSalesQueryRepository) TopProducts(ctx context.Context, companyID uuid.UUID, p report.Period, sellerID *uuid.UUID, limit int) ([]report.ProductRanking, error) {
	args := m.Called(ctx, companyID, p, sellerID, limit)
	return args.Get(0).([]report.ProductRanking), args.Error(1)
}

type stubBills struct {
	totals []bill.Totals
}

func (s stubBills) Summary(context.Context, uuid.UUID, time.Time) ([]bill.Totals, error) {
	return s.totals, nil
}

type stubCount struct {
	n   int64
	err error
}

func (s stubCount) CountLowStock(context.Context, uuid.UUID) (int64, error) { return s.n, s.err }
func (s stubCount) CountOpen(context.Context, uuid.UUID) (int64, error)     { return s.n, s.err }

var fixedNow = time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)

func newService(t *testing.T, sales *MockSalesQueryRepository, bills BillSummary, lowStock LowStockCounter, sessions OpenSessionCounter) *Service {
	t.Helper()
	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	s := NewService(sales, bills, lowStock, sessions, cache.NewLoader(store, zap.NewNop()), time.Minute, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func expectQueries(sales *MockSalesQueryRepository, companyID uuid.UUID) {
	sales.On("Totals", mock.Anything, companyID, mock.Anything, mock.Anything).Return(report.SalesTotals{
		Count: 4, Gross: decimal.NewFromInt(110), Discounts: decimal.NewFromInt(10), Net: decimal.NewFromInt(100),
	}, nil)
	sales.On("ByMethod", mock.Anything, companyID, mock.Anything, mock.Anything).Return([]report.MethodTotal{
		{Method: "pix", Count: 3, Amount: decimal.NewFromInt(70)},
		{Method: "cash", Count: 1, Amount: decimal.NewFromInt(30)},
	}, nil)
	sales.On("BySeller", mock.Anything, companyID, mock.Anything, mock.Anything).Return([]report.SellerTotal(nil), nil)
	sales.On("TopProducts", mock.Anything, companyID, mock.Anything, mock.Anything, mock.Anything).Return([]report.ProductRanking{
		{Rank: 1, ProductCode: "CAF-1", ProductName: "Café 500g", Quantity: decimal.NewFromInt(5), Total: decimal.NewFromInt(94)},
	}, nil)
}

func TestService_SalesSummary(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	t.Run("aggregates and caches", func(t *testing.T) {
		sales := new(MockSalesQueryRepository)
		expectQueries(sales, companyID)
		s := newService(t, sales, stubBills{}, stubCount{}, stubCount{})

		q := SalesReportQuery{From: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)}
		summary, err := s.SalesSummary(ctx, companyID, q)
		require.NoError(t, err)
		assert.Equal(t, int64(4), summary.Count)
		assert.Equal(t, "25.00", summary.AverageTicket.StringFixed(2))
		assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), summary.To)
		assert.Len(t, summary.ByMethod, 2)
		assert.NotNil(t, summary.BySeller)
		assert.Empty(t, summary.BySeller)

		again, err := s.SalesSummary(ctx, companyID, q)
		require.NoError(t, err)
		assert.True(t, again.Net.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, "Café 500g", again.TopProducts[0].ProductName)
		sales.AssertNumberOfCalls(t, "Totals", 1)
		sales.AssertCalled(t, "TopProducts", mock.Anything, companyID, report.Period{From: q.From, To: summary.To}, (*uuid.UUID)(nil), report.DefaultTopN)
	})

	t.Run("seller filter reaches every query", func(t *testing.T) {
		sales := new(MockSalesQueryRepository)
		expectQueries(sales, companyID)
		s := newService(t, sales, stubBills{}, stubCount{}, stubCount{})
		sellerID := uuid.New()

		q := SalesReportQuery{From: fixedNow, To: fixedNow}
		_, err := s.SalesSummary(ctx, companyID, q)
		require.NoError(t, err)
		q.SellerID = &sellerID
		_, err = s.SalesSummary(ctx, companyID, q)
		require.NoError(t, err)

		period := report.Period{From: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), To: time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)}
		sales.AssertCalled(t, "Totals", mock.Anything, companyID, period, &sellerID)
		sales.AssertCalled(t, "ByMethod", mock.Anything, companyID, period, &sellerID)
		sales.AssertCalled(t, "BySeller", mock.Anything, companyID, period, &sellerID)
		sales.AssertCalled(t, "TopProducts", mock.Anything, companyID, period, &sellerID, report.DefaultTopN)
		sales.AssertNumberOfCalls(t, "Totals", 2)
	})

	t.Run("end before start", func(t *testing.T) {
		s := newService(t, new(MockSalesQueryRepository), stubBills{}, stubCount{}, stubCount{})
		_, err := s.SalesSummary(ctx, companyID, SalesReportQuery{From: fixedNow, To: fixedNow.AddDate(0, 0, -1)})
		de, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "INVALID_PERIOD", de.Code)
	})

	t.Run("period too long", func(t *testing.T) {
		s := newService(t, new(MockSalesQueryRepository), stubBills{}, stubCount{}, stubCount{})
		_, err := s.SalesSummary(ctx, companyID, SalesReportQuery{From: fixedNow.AddDate(-2, 0, 0), To: fixedNow})
		de, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "INVALID_PERIOD", de.Code)
	})

	t.Run("query failure is not cached", func(t *testing.T) {
		sales := new(MockSalesQueryRepository)
		boom := errors.New("connection reset")
		sales.On("Totals", mock.Anything, companyID, mock.Anything, mock.Anything).Return(report.SalesTotals{}, boom)
		sales.On("ByMethod", mock.Anything, companyID, mock.Anything, mock.Anything).Return([]report.MethodTotal(nil), nil)
		sales.On("BySeller", mock.Anything, companyID, mock.Anything, mock.Anything).Return([]report.SellerTotal(nil), nil)
		sales.On("TopProducts", mock.Anything, companyID, mock.Anything, mock.Anything, mock.Anything).Return([]report.ProductRanking(nil), nil)
		s := newService(t, sales, stubBills{}, stubCount{}, stubCount{})

		q := SalesReportQuery{From: fixedNow, To: fixedNow}
		_, err := s.SalesSummary(ctx, companyID, q)
		assert.ErrorIs(t, err, boom)
		_, err = s.SalesSummary(ctx, companyID, q)
		assert.ErrorIs(t, err, boom)
		sales.AssertNumberOfCalls(t, "Totals", 2)
	})
}

func TestService_Dashboard(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	t.Run("assembles the summary", func(t *testing.T) {
		sales := new(MockSalesQueryRepository)
		expectQueries(sales, companyID)
		bills := stubBills{totals: []bill.Totals{{
			Type: bill.TypeReceivable, OpenCount: 3, OpenAmount: decimal.NewFromInt(300),
			OverdueCount: 1, OverdueAmount: decimal.NewFromInt(50),
		}}}
		s := newService(t, sales, bills, stubCount{n: 7}, stubCount{n: 1})

		dash, err := s.Dashboard(ctx, companyID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), dash.Today.Count)
		assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), dash.Today.From)
		assert.Equal(t, int64(3), dash.Receivables.OpenCount)
		assert.True(t, dash.Receivables.OverdueAmount.Equal(decimal.NewFromInt(50)))
		assert.Zero(t, dash.Payables.OpenCount)
		assert.True(t, dash.Payables.OpenAmount.IsZero())
		assert.Equal(t, int64(7), dash.LowStockCount)
		assert.Equal(t, int64(1), dash.OpenSessions)
		sales.AssertCalled(t, "TopProducts", mock.Anything, companyID, mock.Anything, mock.Anything, 5)
	})

	t.Run("failure of one query", func(t *testing.T) {
		sales := new(MockSalesQueryRepository)
		expectQueries(sales, companyID)
		boom := errors.New("low stock query failed")
		s := newService(t, sales, stubBills{}, stubCount{err: boom}, stubCount{})

		_, err := s.Dashboard(ctx, companyID)
		assert.ErrorIs(t, err, boom)
	})
}
