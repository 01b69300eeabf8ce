package seller

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/identity"
	"github.com/pdv/backend/internal/domain/report"
	"github.com/pdv/backend/internal/domain/seller"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service manages the sellers of a company
type Service struct {
	sellers seller.SellerRepository
	users   identity.UserRepository
	sales   report.SalesQueryRepository
	logger  *zap.Logger
}

// NewService creates a new seller Service
func NewService(sellers seller.SellerRepository, users identity.UserRepository, sales report.SalesQueryRepository, logger *zap.Logger) *Service {
	return &Service{sellers: sellers, users: users, sales: sales, logger: logger}
}

// Create registers a seller
func (s *Service) Create(ctx context.Context, companyID uuid.UUID, userID uuid.UUID, req SellerRequest) (*SellerResponse, error) {
	sl, err := seller.NewSeller(companyID, req.Name, req.CommissionRate)
	if err != nil {
		return nil, err
	}
	sl.SetCreatedBy(userID)
	if err := sl.Update(req.Name, req.CPF, req.Email, req.Phone); err != nil {
		return nil, err
	}
	if err := s.link(ctx, sl, req.UserID); err != nil {
		return nil, err
	}
	if err := s.sellers.Save(ctx, sl); err != nil {
		return nil, err
	}
	s.logger.Info("Seller created", zap.String("seller_id", sl.ID.String()))
	resp := ToSellerResponse(sl)
	return &resp, nil
}

// Get returns a seller
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*SellerResponse, error) {
	sl, err := s.sellers.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	resp := ToSellerResponse(sl)
	return &resp, nil
}

// List returns a page of sellers
func (s *Service) List(ctx context.Context, companyID uuid.UUID, filter SellerListFilter) ([]SellerResponse, int64, error) {
	df := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.Active != nil {
		df.Filters["active"] = *filter.Active
	}
	sellers, total, err := s.sellers.FindAllForCompany(ctx, companyID, df)
	if err != nil {
		return nil, 0, err
	}
	return ToSellerResponses(sellers), total, nil
}

// Update replaces the seller data
func (s *Service) Update(ctx context.Context, companyID, id uuid.UUID, req SellerRequest) (*SellerResponse, error) {
	sl, err := s.sellers.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := sl.Update(req.Name, req.CPF, req.Email, req.Phone); err != nil {
		return nil, err
	}
	if err := sl.SetCommissionRate(req.CommissionRate); err != nil {
		return nil, err
	}
	if err := s.link(ctx, sl, req.UserID); err != nil {
		return nil, err
	}
	return s.save(ctx, sl)
}

// Activate enables a seller
func (s *Service) Activate(ctx context.Context, companyID, id uuid.UUID) (*SellerResponse, error) {
	sl, err := s.sellers.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := sl.Activate(); err != nil {
		return nil, err
	}
	return s.save(ctx, sl)
}

// Deactivate disables a seller
func (s *Service) Deactivate(ctx context.Context, companyID, id uuid.UUID) (*SellerResponse, error) {
	sl, err := s.sellers.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := sl.Deactivate(); err != nil {
		return nil, err
	}
	return s.save(ctx, sl)
}

// Delete removes a seller without sales
func (s *Service) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	if _, err := s.sellers.FindByIDForCompany(ctx, companyID, id); err != nil {
		return err
	}
	hasSales, err := s.sellers.HasSales(ctx, companyID, id)
	if err != nil {
		return err
	}
	if hasSales {
		return shared.NewDomainError("SELLER_HAS_SALES", "Seller has sales and cannot be deleted, deactivate it instead")
	}
	return s.sellers.DeleteForCompany(ctx, companyID, id)
}

// Commission returns the completed sales and commission of a seller in [from, to]
func (s *Service) Commission(ctx context.Context, companyID, id uuid.UUID, q CommissionQuery) (*CommissionResponse, error) {
	sl, err := s.sellers.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	from, to := shared.DayRange(q.From, q.To)
	period := report.Period{From: from, To: to}
	totals, err := s.sales.BySeller(ctx, companyID, period, &sl.ID)
	if err != nil {
		return nil, err
	}
	resp := &CommissionResponse{
		SellerID:       sl.ID,
		SellerName:     sl.Name,
		From:           period.From,
		To:             period.To,
		SalesTotal:     decimal.Zero,
		CommissionRate: sl.CommissionRate,
		Commission:     decimal.Zero,
	}
	for _, t := range totals {
		if t.SellerID != sl.ID {
			continue
		}
		resp.SalesCount = t.Count
		resp.SalesTotal = t.Total
		resp.Commission = sl.Commission(t.Total)
	}
	return resp, nil
}

func (s *Service) link(ctx context.Context, sl *seller.Seller, userID *uuid.UUID) error {
	if userID == nil {
		if sl.UserID != nil {
			sl.LinkUser(nil)
		}
		return nil
	}
	if sl.UserID != nil && *sl.UserID == *userID {
		return nil
	}
	if _, err := s.users.FindByIDForCompany(ctx, sl.CompanyID, *userID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_USER", "Linked user does not belong to the company")
		}
		return err
	}
	other, err := s.sellers.FindByUserID(ctx, sl.CompanyID, *userID)
	switch {
	case err == nil && other.ID != sl.ID:
		return shared.NewDomainError("ALREADY_EXISTS", "User is already linked to another seller")
	case err != nil && !errors.Is(err, shared.ErrNotFound):
		return err
	}
	sl.LinkUser(userID)
	return nil
}

func (s *Service) save(ctx context.Context, sl *seller.Seller) (*SellerResponse, error) {
	if err := s.sellers.Save(ctx, sl); err != nil {
		return nil, err
	}
	resp := ToSellerResponse(sl)
	return &resp, nil
}
