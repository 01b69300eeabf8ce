package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/bill"
	"github.com/pdv/backend/internal/domain/report"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/pdv/backend/internal/infrastructure/cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxPeriodDays bounds the length of a report period
const maxPeriodDays = 366

// BillSummary returns open and overdue totals per bill type
type BillSummary interface {
	Summary(ctx context.Context, companyID uuid.UUID, today time.Time) ([]bill.Totals, error)
}

// LowStockCounter counts tracked products at or below their minimum stock
type LowStockCounter interface {
	CountLowStock(ctx context.Context, companyID uuid.UUID) (int64, error)
}

// OpenSessionCounter counts open cash sessions
type OpenSessionCounter interface {
	CountOpen(ctx context.Context, companyID uuid.UUID) (int64, error)
}

// Service builds sales reports and the dashboard
type Service struct {
	sales    report.SalesQueryRepository
	bills    BillSummary
	products LowStockCounter
	sessions OpenSessionCounter
	loader   *cache.Loader
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new report service. Summaries are cached for ttl.
func NewService(sales report.SalesQueryRepository, bills BillSummary, products LowStockCounter, sessions OpenSessionCounter, loader *cache.Loader, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		sales:    sales,
		bills:    bills,
		products: products,
		sessions: sessions,
		loader:   loader,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// SalesSummary returns the sales report of the inclusive day range of q
func (s *Service) SalesSummary(ctx context.Context, companyID uuid.UUID, q SalesReportQuery) (*report.SalesSummary, error) {
	if q.To.Before(q.From) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "End date must not be before start date")
	}
	from, to := shared.DayRange(q.From, q.To)
	if to.Sub(from) > maxPeriodDays*24*time.Hour {
		return nil, shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("Period cannot exceed %d days", maxPeriodDays))
	}
	topN := q.TopN
	if topN <= 0 {
		topN = report.DefaultTopN
	}
	return s.summary(ctx, companyID, report.Period{From: from, To: to}, q.SellerID, topN)
}

// Dashboard returns today's sales, open bills, low stock and open cash sessions
func (s *Service) Dashboard(ctx context.Context, companyID uuid.UUID) (*report.Dashboard, error) {
	now := s.now()
	from, to := shared.DayRange(now, now)

	var (
		dash   report.Dashboard
		totals []bill.Totals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		today, err := s.summary(gctx, companyID, report.Period{From: from, To: to}, nil, 5)
		if err != nil {
			return err
		}
		dash.Today = *today
		return nil
	})
	g.Go(func() error {
		var err error
		totals, err = s.bills.Summary(gctx, companyID, now)
		return err
	})
	g.Go(func() error {
		var err error
		dash.LowStockCount, err = s.products.CountLowStock(gctx, companyID)
		return err
	})
	g.Go(func() error {
		var err error
		dash.OpenSessions, err = s.sessions.CountOpen(gctx, companyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dash.Receivables = emptyBillTotals()
	dash.Payables = emptyBillTotals()
	for _, t := range totals {
		bt := report.BillTotals{
			OpenCount:     t.OpenCount,
			OpenAmount:    t.OpenAmount,
			OverdueCount:  t.OverdueCount,
			OverdueAmount: t.OverdueAmount,
		}
		switch t.Type {
		case bill.TypeReceivable:
			dash.Receivables = bt
		case bill.TypePayable:
			dash.Payables = bt
		}
	}
	return &dash, nil
}

func (s *Service) summary(ctx context.Context, companyID uuid.UUID, p report.Period, sellerID *uuid.UUID, topN int) (*report.SalesSummary, error) {
	key := summaryKey(companyID, p, sellerID, topN)
	summary, err := cache.Fetch(ctx, s.loader, key, s.ttl, func(ctx context.Context) (report.SalesSummary, error) {
		return s.load(ctx, companyID, p, sellerID, topN)
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// load runs the report queries in parallel
func (s *Service) load(ctx context.Context, companyID uuid.UUID, p report.Period, sellerID *uuid.UUID, topN int) (report.SalesSummary, error) {
	var (
		totals   report.SalesTotals
		byMethod []report.MethodTotal
		bySeller []report.SellerTotal
		top      []report.ProductRanking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = s.sales.Totals(gctx, companyID, p, sellerID)
		return err
	})
	g.Go(func() (err error) {
		byMethod, err = s.sales.ByMethod(gctx, companyID, p, sellerID)
		return err
	})
	g.Go(func() (err error) {
		bySeller, err = s.sales.BySeller(gctx, companyID, p, sellerID)
		return err
	})
	g.Go(func() (err error) {
		top, err = s.sales.TopProducts(gctx, companyID, p, sellerID, topN)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Sales report failed", zap.String("company_id", companyID.String()), zap.Error(err))
		return report.SalesSummary{}, err
	}

	return report.SalesSummary{
		From:          p.From,
		To:            p.To,
		Count:         totals.Count,
		Gross:         totals.Gross,
		Discounts:     totals.Discounts,
		Net:           totals.Net,
		AverageTicket: totals.AverageTicket(),
		ByMethod:      nonNil(byMethod),
		BySeller:      nonNil(bySeller),
		TopProducts:   nonNil(top),
	}, nil
}

func summaryKey(companyID uuid.UUID, p report.Period, sellerID *uuid.UUID, topN int) string {
	seller := "all"
	if sellerID != nil {
		seller = sellerID.String()
	}
	return fmt.Sprintf("report:sales:%s:%d:%d:%s:%d", companyID, p.From.Unix(), p.To.Unix(), seller, topN)
}

func emptyBillTotals() report.BillTotals {
	return report.BillTotals{OpenAmount: decimal.Zero, OverdueAmount: decimal.Zero}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
