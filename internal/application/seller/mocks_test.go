package seller

import (
	"context"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/identity"
	"github.com/pdv/backend/internal/domain/report"
	"github.com/pdv/backend/internal/domain/seller"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockSellerRepository is a mock implementation of seller.SellerRepository
type MockSellerRepository struct {
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

func (m *MockSellerRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]seller.Seller, int64, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).([]seller.Seller), args.Get(1).(int64), args.Error(2)
}

func (m *MockSellerRepository) HasSales(ctx context.Context, companyID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, companyID, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockSellerRepository) Save(ctx context.Context, s *seller.Seller) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSellerRepository) DeleteForCompany(ctx context.Context, companyID, id uuid.UUID) error {
	return m.Called(ctx, companyID, id).Error(0)
}

// MockUserRepository implements only the lookups the seller service needs
type MockUserRepository struct {
	mock.Mock
	identity.UserRepository
}

func (m *MockUserRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

// MockSalesQueryRepository is a mock implementation of report.SalesQueryRepository
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
