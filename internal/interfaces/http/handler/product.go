package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/application/catalog"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"
)

// ProductService is the catalog use case set used by ProductHandler
type ProductService interface {
	Create(ctx context.Context, companyID, userID uuid.UUID, req catalog.CreateProductRequest) (*catalog.ProductResponse, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*catalog.ProductResponse, error)
	GetByBarcode(ctx context.Context, companyID uuid.UUID, barcode string) (*catalog.ProductResponse, error)
	List(ctx context.Context, companyID uuid.UUID, filter catalog.ProductListFilter) ([]catalog.ProductResponse, int64, error)
	Update(ctx context.Context, companyID, id uuid.UUID, req catalog.UpdateProductRequest) (*catalog.ProductResponse, error)
	UpdatePrice(ctx context.Context, companyID, id uuid.UUID, req catalog.UpdatePriceRequest) (*catalog.ProductResponse, error)
	AdjustStock(ctx context.Context, companyID, userID, id uuid.UUID, req catalog.AdjustStockRequest) (*catalog.ProductResponse, error)
	Movements(ctx context.Context, companyID, id uuid.UUID, page, pageSize int) ([]catalog.StockMovementResponse, int64, error)
	Activate(ctx context.Context, companyID, id uuid.UUID) (*catalog.ProductResponse, error)
	Deactivate(ctx context.Context, companyID, id uuid.UUID) (*catalog.ProductResponse, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	ImageUploadURL(ctx context.Context, companyID, id uuid.UUID, req catalog.UploadRequest) (*catalog.UploadURLResponse, error)
}

// ProductHandler handles product-related API endpoints
type ProductHandler struct {
	BaseHandler
	products ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// Create godoc
// @ID           createProduct
// @Summary      Create a product
// @Description  Code and barcode are unique per company. An initial stock is recorded as an adjustment.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body catalog.CreateProductRequest true "Product data"
// @Success      201 {object} APIResponse[catalog.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalog.CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.products.Create(c.Request.Context(), companyID(c), userID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get godoc
// @ID           getProduct
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalog.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.products.Get(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetByBarcode godoc
// @ID           getProductByBarcode
// @Summary      Find a product by barcode
// @Description  Used by the checkout scanner
// @Tags         products
// @Produce      json
// @Param        barcode path string true "GTIN/EAN"
// @Success      200 {object} APIResponse[catalog.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/barcode/{barcode} [get]
func (h *ProductHandler) GetByBarcode(c *gin.Context) {
	resp, err := h.products.GetByBarcode(c.Request.Context(), companyID(c), c.Param("barcode"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @ID           listProducts
// @Summary      List products
// @Tags         products
// @Produce      json
// @Param        search query string false "Name, code or barcode"
// @Param        status query string false "Status" Enums(active, inactive)
// @Param        low_stock query bool false "Only products at or below minimum stock"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        order_by query string false "Sort field" Enums(name, code, sale_price, stock_quantity, created_at, updated_at)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]catalog.ProductResponse]
// @Security     BearerAuth
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var filter catalog.ProductListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	products, total, err := h.products.List(c.Request.Context(), companyID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, products, total, filter.Page, filter.PageSize)
}

// Update godoc
// @ID           updateProduct
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalog.UpdateProductRequest true "Product data"
// @Success      200 {object} APIResponse[catalog.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req catalog.UpdateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.products.Update(c.Request.Context(), companyID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdatePrice godoc
// @ID           updateProductPrice
// @Summary      Change product prices
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalog.UpdatePriceRequest true "Prices"
// @Success      200 {object} APIResponse[catalog.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/{id}/price [put]
func (h *ProductHandler) UpdatePrice(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req catalog.UpdatePriceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.products.UpdatePrice(c.Request.Context(), companyID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AdjustStock godoc
// @ID           adjustProductStock
// @Summary      Adjust stock
// @Description  Applies a signed delta and records it as a stock movement
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalog.AdjustStockRequest true "Delta and reason"
// @Success      200 {object} APIResponse[catalog.ProductResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/{id}/stock [post]
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req catalog.AdjustStockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.products.AdjustStock(c.Request.Context(), companyID(c), userID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Movements godoc
// @ID           listProductStockMovements
// @Summary      Stock movements of a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]catalog.StockMovementResponse]
// @Security     BearerAuth
// @Router       /products/{id}/movements [get]
func (h *ProductHandler) Movements(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	movements, total, err := h.products.Movements(c.Request.Context(), companyID(c), id, page, pageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, movements, total, page, pageSize)
}

// Activate godoc
// @ID           activateProduct
// @Summary      Activate a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalog.ProductResponse]
// @Security     BearerAuth
// @Router       /products/{id}/activate [post]
func (h *ProductHandler) Activate(c *gin.Context) {
	h.toggle(c, h.products.Activate)
}

// Deactivate godoc
// @ID           deactivateProduct
// @Summary      Deactivate a product
// @Description  Inactive products cannot be sold
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalog.ProductResponse]
// @Security     BearerAuth
// @Router       /products/{id}/deactivate [post]
func (h *ProductHandler) Deactivate(c *gin.Context) {
	h.toggle(c, h.products.Deactivate)
}

func (h *ProductHandler) toggle(c *gin.Context, fn func(context.Context, uuid.UUID, uuid.UUID) (*catalog.ProductResponse, error)) {
	id, ok := h.pathID(c, "id")
	if !ok {
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
// @ID           deleteProduct
// @Summary      Delete a product
// @Description  Only products that were never sold can be deleted
// @Tags         products
// @Param        id path string true "Product ID" format(uuid)
// @Success      204
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), companyID(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ImageUploadURL godoc
// @ID           createProductImageUploadUrl
// @Summary      Presigned product image upload
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalog.UploadRequest true "File name and content type"
// @Success      200 {object} APIResponse[catalog.UploadURLResponse]
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/{id}/image [post]
func (h *ProductHandler) ImageUploadURL(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req catalog.UploadRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.products.ImageUploadURL(c.Request.Context(), companyID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ProductRoutes registers the catalog endpoints
func ProductRoutes(h *ProductHandler, authMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("products", "/products")
	group.Use(authMiddleware)

	read := middleware.RequirePermission("product:read")
	update := middleware.RequirePermission("product:update")

	group.GET("", read, h.List)
	group.POST("", middleware.RequirePermission("product:create"), h.Create)
	group.GET("/barcode/:barcode", read, h.GetByBarcode)
	group.GET("/:id", read, h.Get)
	group.PUT("/:id", update, h.Update)
	group.DELETE("/:id", middleware.RequirePermission("product:delete"), h.Delete)
	group.PUT("/:id/price", update, h.UpdatePrice)
	group.POST("/:id/stock", update, h.AdjustStock)
	group.GET("/:id/movements", read, h.Movements)
	group.POST("/:id/activate", update, h.Activate)
	group.POST("/:id/deactivate", update, h.Deactivate)
	group.POST("/:id/image", update, h.ImageUploadURL)

	return group
}
