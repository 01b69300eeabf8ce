package bill

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/bill"
	"github.com/pdv/backend/internal/domain/customer"
	"github.com/pdv/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Service manages accounts payable and receivable
type Service struct {
	bills     bill.BillRepository
	customers customer.CustomerRepository
	publisher shared.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new bill service
func NewService(bills bill.BillRepository, customers customer.CustomerRepository, publisher shared.EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		bills:     bills,
		customers: customers,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Create creates a bill, or one bill per installment
func (s *Service) Create(ctx context.Context, companyID uuid.UUID, req CreateBillRequest) ([]BillResponse, error) {
	counterparty := req.Counterparty
	if req.CustomerID != nil {
		c, err := s.customers.FindByIDForCompany(ctx, companyID, *req.CustomerID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer not found")
			}
			return nil, err
		}
		if counterparty == "" {
			counterparty = c.Name
		}
	}
	bills, err := bill.NewBills(companyID, bill.Draft{
		Type:           bill.Type(req.Type),
		Description:    req.Description,
		Category:       req.Category,
		Counterparty:   counterparty,
		CustomerID:     req.CustomerID,
		DocumentNumber: req.DocumentNumber,
		Amount:         req.Amount,
		DueDate:        req.DueDate,
		Installments:   req.Installments,
		Notes:          req.Notes,
	})
	if err != nil {
		return nil, err
	}
	if err := s.bills.SaveBatch(ctx, bills); err != nil {
		return nil, err
	}
	s.publishAll(ctx, bills)
	s.logger.Info("Bills created",
		zap.String("company_id", companyID.String()),
		zap.String("type", req.Type),
		zap.Int("installments", len(bills)),
		zap.String("amount", req.Amount.StringFixed(2)))

	now := s.now()
	out := make([]BillResponse, len(bills))
	for i, b := range bills {
		out[i] = ToBillResponse(b, now)
	}
	return out, nil
}

// Get returns a bill
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*BillResponse, error) {
	b, err := s.bills.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	resp := ToBillResponse(b, s.now())
	return &resp, nil
}

// List returns the bills of a company
func (s *Service) List(ctx context.Context, companyID uuid.UUID, filter BillListFilter) ([]BillResponse, int64, error) {
	bf := bill.BillFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		},
		Type:       bill.Type(filter.Type),
		Status:     bill.Status(filter.Status),
		DueFrom:    filter.DueFrom,
		DueTo:      filter.DueTo,
		Overdue:    filter.Overdue,
		CustomerID: filter.CustomerID,
	}
	if bf.OrderBy == "" {
		bf.OrderBy, bf.OrderDir = "due_date", "asc"
	}
	bills, total, err := s.bills.FindAllForCompany(ctx, companyID, bf)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	out := make([]BillResponse, len(bills))
	for i := range bills {
		out[i] = ToBillResponse(&bills[i], now)
	}
	return out, total, nil
}

// Update changes a pending bill
func (s *Service) Update(ctx context.Context, companyID, id uuid.UUID, req UpdateBillRequest) (*BillResponse, error) {
	return s.mutate(ctx, companyID, id, func(b *bill.Bill) error {
		return b.Update(req.Description, req.Category, req.Counterparty, req.DocumentNumber, req.Amount, req.DueDate, req.Notes)
	})
}

// Pay registers a full or partial payment
func (s *Service) Pay(ctx context.Context, companyID, id uuid.UUID, req PayBillRequest) (*BillResponse, error) {
	paidAt := s.now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	return s.mutate(ctx, companyID, id, func(b *bill.Bill) error {
		return b.Pay(req.Amount, paidAt)
	})
}

// Cancel cancels a bill that is not paid
func (s *Service) Cancel(ctx context.Context, companyID, id uuid.UUID) (*BillResponse, error) {
	return s.mutate(ctx, companyID, id, func(b *bill.Bill) error {
		return b.Cancel()
	})
}

// Delete removes a pending bill without payments
func (s *Service) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	b, err := s.bills.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return err
	}
	if !b.CanDelete() {
		return shared.NewDomainError("BILL_NOT_DELETABLE", "Only pending bills without payments can be deleted")
	}
	if err := s.bills.DeleteForCompany(ctx, companyID, id); err != nil {
		return err
	}
	s.logger.Info("Bill deleted", zap.String("bill_id", id.String()))
	return nil
}

// Summary returns the open, overdue and paid totals per type
func (s *Service) Summary(ctx context.Context, companyID uuid.UUID) (*SummaryResponse, error) {
	totals, err := s.bills.Summary(ctx, companyID, s.now())
	if err != nil {
		return nil, err
	}
	resp := &SummaryResponse{
		Payable:    toTotalsResponse(bill.Totals{Type: bill.TypePayable}),
		Receivable: toTotalsResponse(bill.Totals{Type: bill.TypeReceivable}),
	}
	for _, t := range totals {
		switch t.Type {
		case bill.TypePayable:
			resp.Payable = toTotalsResponse(t)
		case bill.TypeReceivable:
			resp.Receivable = toTotalsResponse(t)
		}
	}
	resp.Balance = resp.Receivable.OpenAmount.Sub(resp.Payable.OpenAmount)
	return resp, nil
}

func (s *Service) mutate(ctx context.Context, companyID, id uuid.UUID, fn func(b *bill.Bill) error) (*BillResponse, error) {
	b, err := s.bills.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	if err := s.bills.Save(ctx, b); err != nil {
		return nil, err
	}
	s.publishAll(ctx, []*bill.Bill{b})
	resp := ToBillResponse(b, s.now())
	return &resp, nil
}

func (s *Service) publishAll(ctx context.Context, bills []*bill.Bill) {
	for _, b := range bills {
		if err := shared.PublishAndClear(ctx, s.publisher, b); err != nil {
			s.logger.Warn("Failed to publish bill events", zap.String("bill_id", b.ID.String()), zap.Error(err))
		}
	}
}
