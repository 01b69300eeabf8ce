package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/application/customer"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/pdv/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) Create(ctx context.Context, companyID, userID uuid.UUID, req customer.CustomerRequest) (*customer.CustomerResponse, error) {
	args := m.Called(ctx, companyID, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.CustomerResponse), args.Error(1)
}

func (m *MockCustomerService) Get(ctx context.Context, companyID, id uuid.UUID) (*customer.CustomerResponse, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.CustomerResponse), args.Error(1)
}

func (m *MockCustomerService) GetByDocument(ctx context.Context, companyID uuid.UUID, document string) (*customer.CustomerResponse, error) {
	args := m.Called(ctx, companyID, document)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.CustomerResponse), args.Error(1)
}

func (m *MockCustomerService) List(ctx context.Context, companyID uuid.UUID, filter customer.CustomerListFilter) ([]customer.CustomerResponse, int64, error) {
	args := m.Called(ctx, companyID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]customer.CustomerResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockCustomerService) Update(ctx context.Context, companyID, id uuid.UUID, req customer.CustomerRequest) (*customer.CustomerResponse, error) {
	args := m.Called(ctx, companyID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.CustomerResponse), args.Error(1)
}

func (m *MockCustomerService) Activate(ctx context.Context, companyID, id uuid.UUID) (*customer.CustomerResponse, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.CustomerResponse), args.Error(1)
}

func (m *MockCustomerService) Deactivate(ctx context.Context, companyID, id uuid.UUID) (*customer.CustomerResponse, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.CustomerResponse), args.Error(1)
}

func (m *MockCustomerService) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return m.Called(ctx, companyID, id).Error(0)
}

func newCustomerEngine(svc *MockCustomerService, role string) http.Handler {
	return newEngine(CustomerRoutes(NewCustomerHandler(svc), asRole(role)))
}

func TestCustomerHandler_Create(t *testing.T) {
	t.Run("creates for the caller's company", func(t *testing.T) {
		svc := new(MockCustomerService)
		created := &customer.CustomerResponse{ID: uuid.New(), Name: "Maria Souza", PersonType: "individual"}
		svc.On("Create", mock.Anything, testCompanyID, testUserID, mock.MatchedBy(func(req customer.CustomerRequest) bool {
			return req.Name == "Maria Souza" && req.Document == "529.982.247-25"
		})).Return(created, nil)

		w := perform(newCustomerEngine(svc, "cashier"), http.MethodPost, "/api/v1/customers", map[string]any{
			"name":     "Maria Souza",
			"document": "529.982.247-25",
			"email":    "maria@example.com",
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decode(t, w)
		assert.True(t, resp.Success)
		assert.Contains(t, string(resp.Data), created.ID.String())
		svc.AssertExpectations(t)
	})

	t.Run("rejects invalid payload before the service", func(t *testing.T) {
		svc := new(MockCustomerService)

		w := perform(newCustomerEngine(svc, "cashier"), http.MethodPost, "/api/v1/customers", map[string]any{
			"email": "not-an-email",
		})

		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		fields := make([]string, 0, len(resp.Error.Details))
		for _, d := range resp.Error.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"name", "email"}, fields)
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate document conflicts", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("Create", mock.Anything, testCompanyID, testUserID, mock.Anything).
			Return(nil, shared.NewDomainError("ALREADY_EXISTS", "A customer with this document already exists"))

		w := perform(newCustomerEngine(svc, "manager"), http.MethodPost, "/api/v1/customers", map[string]any{"name": "Maria"})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeAlreadyExists, errorCode(t, w))
	})
}

func TestCustomerHandler_Get(t *testing.T) {
	svc := new(MockCustomerService)
	engine := newCustomerEngine(svc, "seller")

	t.Run("invalid id", func(t *testing.T) {
		w := perform(engine, http.MethodGet, "/api/v1/customers/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, errorCode(t, w))
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New()
		svc.On("Get", mock.Anything, testCompanyID, id).Return(nil, shared.ErrNotFound).Once()

		w := perform(engine, http.MethodGet, "/api/v1/customers/"+id.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCustomerHandler_List(t *testing.T) {
	svc := new(MockCustomerService)
	list := []customer.CustomerResponse{{ID: uuid.New(), Name: "Ana"}, {ID: uuid.New(), Name: "Bruno"}}
	svc.On("List", mock.Anything, testCompanyID, mock.MatchedBy(func(f customer.CustomerListFilter) bool {
		return f.Search == "an" && f.Page == 2 && f.PageSize == 2
	})).Return(list, int64(5), nil)

	w := perform(newCustomerEngine(svc, "seller"), http.MethodGet, "/api/v1/customers?search=an&page=2&page_size=2", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(5), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestCustomerHandler_ListRejectsBadQuery(t *testing.T) {
	svc := new(MockCustomerService)

	w := perform(newCustomerEngine(svc, "seller"), http.MethodGet, "/api/v1/customers?page_size=500", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestCustomerHandler_Permissions(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		role   string
		status int
	}{
		{"owner", http.StatusNoContent},
		{"manager", http.StatusNoContent},
		{"cashier", http.StatusForbidden},
		{"seller", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			svc := new(MockCustomerService)
			svc.On("Delete", mock.Anything, testCompanyID, id).Return(nil).Maybe()

			w := perform(newCustomerEngine(svc, tt.role), http.MethodDelete, "/api/v1/customers/"+id.String(), nil)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusForbidden {
				svc.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}
