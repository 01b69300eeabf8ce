package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/application/sale"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"
)

// SaleService is the point of sale use case set used by SaleHandler
type SaleService interface {
	Create(ctx context.Context, companyID, userID uuid.UUID, req sale.CreateSaleRequest) (*sale.SaleResponse, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*sale.SaleResponse, error)
	List(ctx context.Context, companyID uuid.UUID, filter sale.SaleListFilter) ([]sale.SaleResponse, int64, error)
	AddItem(ctx context.Context, companyID, id uuid.UUID, req sale.ItemRequest) (*sale.SaleResponse, error)
	RemoveItem(ctx context.Context, companyID, id, itemID uuid.UUID) (*sale.SaleResponse, error)
	ApplyDiscount(ctx context.Context, companyID, id uuid.UUID, req sale.DiscountRequest) (*sale.SaleResponse, error)
	Complete(ctx context.Context, companyID, userID, id uuid.UUID, req sale.CompleteSaleRequest) (*sale.SaleResponse, error)
	Checkout(ctx context.Context, companyID, userID uuid.UUID, idempotencyKey string, req sale.CheckoutRequest) (*sale.SaleResponse, error)
	Cancel(ctx context.Context, companyID, userID, id uuid.UUID, req sale.CancelSaleRequest) (*sale.SaleResponse, error)
}

// SaleHandler handles sale endpoints
type SaleHandler struct {
	BaseHandler
	sales SaleService
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(sales SaleService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// Create godoc
// @ID           createSale
// @Summary      Open a sale
// @Description  Open a sale with its first items; payments are added on completion
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        request body sale.CreateSaleRequest true "Sale data"
// @Success      201 {object} APIResponse[sale.SaleResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales [post]
func (h *SaleHandler) Create(c *gin.Context) {
	var req sale.CreateSaleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.sales.Create(c.Request.Context(), companyID(c), userID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Checkout godoc
// @ID           checkoutSale
// @Summary      Create and complete a sale
// @Description  Single call checkout. Retrying with the same Idempotency-Key returns the first sale instead of charging twice.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client generated key, unique per checkout"
// @Param        request body sale.CheckoutRequest true "Items and payments"
// @Success      201 {object} APIResponse[sale.SaleResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/checkout [post]
func (h *SaleHandler) Checkout(c *gin.Context) {
	var req sale.CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}
	key := c.GetHeader(middleware.IdempotencyKeyHeader)
	if len(key) > 128 {
		h.BadRequest(c, "Idempotency-Key must have at most 128 characters")
		return
	}
	resp, err := h.sales.Checkout(c.Request.Context(), companyID(c), userID(c), key, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get godoc
// @ID           getSale
// @Summary      Get a sale
// @Tags         sales
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} APIResponse[sale.SaleResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/{id} [get]
func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.sales.Get(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @ID           listSales
// @Summary      List sales
// @Tags         sales
// @Produce      json
// @Param        search query string false "Number or consumer document"
// @Param        from query string false "First day (YYYY-MM-DD)"
// @Param        to query string false "Last day (YYYY-MM-DD)"
// @Param        status query string false "Status" Enums(open, completed, cancelled)
// @Param        seller_id query string false "Seller" format(uuid)
// @Param        customer_id query string false "Customer" format(uuid)
// @Param        operator_id query string false "Operator" format(uuid)
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]sale.SaleResponse]
// @Security     BearerAuth
// @Router       /sales [get]
func (h *SaleHandler) List(c *gin.Context) {
	var filter sale.SaleListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	sales, total, err := h.sales.List(c.Request.Context(), companyID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, sales, total, filter.Page, filter.PageSize)
}

// AddItem godoc
// @ID           addSaleItem
// @Summary      Add an item to an open sale
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        request body sale.ItemRequest true "Item"
// @Success      200 {object} APIResponse[sale.SaleResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/{id}/items [post]
func (h *SaleHandler) AddItem(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req sale.ItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.sales.AddItem(c.Request.Context(), companyID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RemoveItem godoc
// @ID           removeSaleItem
// @Summary      Remove an item from an open sale
// @Tags         sales
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        item_id path string true "Item ID" format(uuid)
// @Success      200 {object} APIResponse[sale.SaleResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/{id}/items/{item_id} [delete]
func (h *SaleHandler) RemoveItem(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "item_id")
	if !ok {
		return
	}
	resp, err := h.sales.RemoveItem(c.Request.Context(), companyID(c), id, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ApplyDiscount godoc
// @ID           applySaleDiscount
// @Summary      Apply a sale discount
// @Description  The discount may not exceed the subtotal
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        request body sale.DiscountRequest true "Discount"
// @Success      200 {object} APIResponse[sale.SaleResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/{id}/discount [put]
func (h *SaleHandler) ApplyDiscount(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req sale.DiscountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.sales.ApplyDiscount(c.Request.Context(), companyID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Complete godoc
// @ID           completeSale
// @Summary      Complete a sale
// @Description  Register payments, decrement stock and close the sale. Requires an open cash session of the operator.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        request body sale.CompleteSaleRequest true "Payments"
// @Success      200 {object} APIResponse[sale.SaleResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/{id}/complete [post]
func (h *SaleHandler) Complete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req sale.CompleteSaleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.sales.Complete(c.Request.Context(), companyID(c), userID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel godoc
// @ID           cancelSale
// @Summary      Cancel a sale
// @Description  Restores stock and cancels the linked fiscal document. The reason needs at least 15 characters.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        request body sale.CancelSaleRequest true "Reason"
// @Success      200 {object} APIResponse[sale.SaleResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/{id}/cancel [post]
func (h *SaleHandler) Cancel(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req sale.CancelSaleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.sales.Cancel(c.Request.Context(), companyID(c), userID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SaleRoutes registers the sale endpoints
func SaleRoutes(h *SaleHandler, authMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("sales", "/sales")
	group.Use(authMiddleware)

	create := middleware.RequirePermission("sale:create")

	group.GET("", middleware.RequirePermission("sale:read"), h.List)
	group.POST("", create, h.Create)
	group.POST("/checkout", create, h.Checkout)
	group.GET("/:id", middleware.RequirePermission("sale:read"), h.Get)
	group.POST("/:id/items", create, h.AddItem)
	group.DELETE("/:id/items/:item_id", create, h.RemoveItem)
	group.PUT("/:id/discount", middleware.RequirePermission("sale:update"), h.ApplyDiscount)
	group.POST("/:id/complete", create, h.Complete)
	group.POST("/:id/cancel", middleware.RequirePermission("sale:cancel"), h.Cancel)

	return group
}
