package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/application/seller"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"
)

// SellerService is the seller use case set used by SellerHandler
type SellerService interface {
	Create(ctx context.Context, companyID, userID uuid.UUID, req seller.SellerRequest) (*seller.SellerResponse, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*seller.SellerResponse, error)
	List(ctx context.Context, companyID uuid.UUID, filter seller.SellerListFilter) ([]seller.SellerResponse, int64, error)
	Update(ctx context.Context, companyID, id uuid.UUID, req seller.SellerRequest) (*seller.SellerResponse, error)
	Activate(ctx context.Context, companyID, id uuid.UUID) (*seller.SellerResponse, error)
	Deactivate(ctx context.Context, companyID, id uuid.UUID) (*seller.SellerResponse, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	Commission(ctx context.Context, companyID, id uuid.UUID, q seller.CommissionQuery) (*seller.CommissionResponse, error)
}

// SellerHandler handles seller endpoints
type SellerHandler struct {
	BaseHandler
	sellers SellerService
}

// NewSellerHandler creates a new SellerHandler
func NewSellerHandler(sellers SellerService) *SellerHandler {
	return &SellerHandler{sellers: sellers}
}

// Create godoc
// @ID           createSeller
// @Summary      Create a seller
// @Tags         sellers
// @Accept       json
// @Produce      json
// @Param        request body seller.SellerRequest true "Seller data"
// @Success      201 {object} APIResponse[seller.SellerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sellers [post]
func (h *SellerHandler) Create(c *gin.Context) {
	var req seller.SellerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.sellers.Create(c.Request.Context(), companyID(c), userID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get godoc
// @ID           getSeller
// @Summary      Get a seller
// @Tags         sellers
// @Produce      json
// @Param        id path string true "Seller ID" format(uuid)
// @Success      200 {object} APIResponse[seller.SellerResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sellers/{id} [get]
func (h *SellerHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.sellers.Get(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @ID           listSellers
// @Summary      List sellers
// @Tags         sellers
// @Produce      json
// @Param        search query string false "Name"
// @Param        active query bool false "Active flag"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]seller.SellerResponse]
// @Security     BearerAuth
// @Router       /sellers [get]
func (h *SellerHandler) List(c *gin.Context) {
	var filter seller.SellerListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	sellers, total, err := h.sellers.List(c.Request.Context(), companyID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, sellers, total, filter.Page, filter.PageSize)
}

// Update godoc
// @ID           updateSeller
// @Summary      Update a seller
// @Tags         sellers
// @Accept       json
// @Produce      json
// @Param        id path string true "Seller ID" format(uuid)
// @Param        request body seller.SellerRequest true "Seller data"
// @Success      200 {object} APIResponse[seller.SellerResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sellers/{id} [put]
func (h *SellerHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req seller.SellerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.sellers.Update(c.Request.Context(), companyID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SetActive godoc
// @ID           setSellerActive
// @Summary      Activate or deactivate a seller
// @Tags         sellers
// @Produce      json
// @Param        id path string true "Seller ID" format(uuid)
// @Param        action path string true "Action" Enums(activate, deactivate)
// @Success      200 {object} APIResponse[seller.SellerResponse]
// @Security     BearerAuth
// @Router       /sellers/{id}/{action} [post]
func (h *SellerHandler) SetActive(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	fn := h.sellers.Activate
	switch c.Param("action") {
	case "activate":
	case "deactivate":
		fn = h.sellers.Deactivate
	default:
		h.NotFound(c, "Unknown action")
		return
	}
	resp, err := fn(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @ID           deleteSeller
// @Summary      Delete a seller
// @Description  Sellers with sales can only be deactivated
// @Tags         sellers
// @Param        id path string true "Seller ID" format(uuid)
// @Success      204
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sellers/{id} [delete]
func (h *SellerHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.sellers.Delete(c.Request.Context(), companyID(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Commission godoc
// @ID           getSellerCommission
// @Summary      Seller commission statement
// @Description  Completed sales total and commission for the period
// @Tags         sellers
// @Produce      json
// @Param        id path string true "Seller ID" format(uuid)
// @Param        from query string true "First day (YYYY-MM-DD)"
// @Param        to query string true "Last day (YYYY-MM-DD)"
// @Success      200 {object} APIResponse[seller.CommissionResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sellers/{id}/commission [get]
func (h *SellerHandler) Commission(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var q seller.CommissionQuery
	if !h.bindQuery(c, &q) {
		return
	}
	resp, err := h.sellers.Commission(c.Request.Context(), companyID(c), id, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SellerRoutes registers the seller endpoints
func SellerRoutes(h *SellerHandler, authMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("sellers", "/sellers")
	group.Use(authMiddleware)

	read := middleware.RequirePermission("seller:read")

	group.GET("", read, h.List)
	group.POST("", middleware.RequirePermission("seller:create"), h.Create)
	group.GET("/:id", read, h.Get)
	group.PUT("/:id", middleware.RequirePermission("seller:update"), h.Update)
	group.DELETE("/:id", middleware.RequirePermission("seller:delete"), h.Delete)
	group.GET("/:id/commission", middleware.RequirePermission("report:read"), h.Commission)
	group.POST("/:id/:action", middleware.RequirePermission("seller:update"), h.SetActive)

	return group
}
