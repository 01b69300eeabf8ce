package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/application/customer"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"
)

// CustomerService is the customer use case set used by CustomerHandler
type CustomerService interface {
	Create(ctx context.Context, companyID, userID uuid.UUID, req customer.CustomerRequest) (*customer.CustomerResponse, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*customer.CustomerResponse, error)
	GetByDocument(ctx context.Context, companyID uuid.UUID, document string) (*customer.CustomerResponse, error)
	List(ctx context.Context, companyID uuid.UUID, filter customer.CustomerListFilter) ([]customer.CustomerResponse, int64, error)
	Update(ctx context.Context, companyID, id uuid.UUID, req customer.CustomerRequest) (*customer.CustomerResponse, error)
	Activate(ctx context.Context, companyID, id uuid.UUID) (*customer.CustomerResponse, error)
	Deactivate(ctx context.Context, companyID, id uuid.UUID) (*customer.CustomerResponse, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}

// CustomerHandler handles customer-related API endpoints
type CustomerHandler struct {
	BaseHandler
	customers CustomerService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customers CustomerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// Create godoc
// @ID           createCustomer
// @Summary      Create a customer
// @Description  The document must be a CPF for individuals and a CNPJ for companies
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        request body customer.CustomerRequest true "Customer data"
// @Success      201 {object} APIResponse[customer.CustomerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var req customer.CustomerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.customers.Create(c.Request.Context(), companyID(c), userID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get godoc
// @ID           getCustomer
// @Summary      Get a customer
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} APIResponse[customer.CustomerResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.customers.Get(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetByDocument godoc
// @ID           getCustomerByDocument
// @Summary      Find a customer by CPF/CNPJ
// @Tags         customers
// @Produce      json
// @Param        document path string true "CPF or CNPJ, punctuation allowed"
// @Success      200 {object} APIResponse[customer.CustomerResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/document/{document} [get]
func (h *CustomerHandler) GetByDocument(c *gin.Context) {
	resp, err := h.customers.GetByDocument(c.Request.Context(), companyID(c), c.Param("document"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @ID           listCustomers
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Param        search query string false "Name, document, email or phone"
// @Param        person_type query string false "Person type" Enums(individual, company)
// @Param        city query string false "City"
// @Param        active query bool false "Active flag"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]customer.CustomerResponse]
// @Security     BearerAuth
// @Router       /customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	var filter customer.CustomerListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	customers, total, err := h.customers.List(c.Request.Context(), companyID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, customers, total, filter.Page, filter.PageSize)
}

// Update godoc
// @ID           updateCustomer
// @Summary      Update a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        request body customer.CustomerRequest true "Customer data"
// @Success      200 {object} APIResponse[customer.CustomerResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req customer.CustomerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.customers.Update(c.Request.Context(), companyID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Activate godoc
// @ID           activateCustomer
// @Summary      Activate a customer
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} APIResponse[customer.CustomerResponse]
// @Security     BearerAuth
// @Router       /customers/{id}/activate [post]
func (h *CustomerHandler) Activate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.customers.Activate(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Deactivate godoc
// @ID           deactivateCustomer
// @Summary      Deactivate a customer
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} APIResponse[customer.CustomerResponse]
// @Security     BearerAuth
// @Router       /customers/{id}/deactivate [post]
func (h *CustomerHandler) Deactivate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.customers.Deactivate(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @ID           deleteCustomer
// @Summary      Delete a customer
// @Tags         customers
// @Param        id path string true "Customer ID" format(uuid)
// @Success      204
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.customers.Delete(c.Request.Context(), companyID(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// CustomerRoutes registers the customer endpoints
func CustomerRoutes(h *CustomerHandler, authMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("customers", "/customers")
	group.Use(authMiddleware)

	read := middleware.RequirePermission("customer:read")
	update := middleware.RequirePermission("customer:update")

	group.GET("", read, h.List)
	group.POST("", middleware.RequirePermission("customer:create"), h.Create)
	group.GET("/document/:document", read, h.GetByDocument)
	group.GET("/:id", read, h.Get)
	group.PUT("/:id", update, h.Update)
	group.DELETE("/:id", middleware.RequirePermission("customer:delete"), h.Delete)
	group.POST("/:id/activate", update, h.Activate)
	group.POST("/:id/deactivate", update, h.Deactivate)

	return group
}
