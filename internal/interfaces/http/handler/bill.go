package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/application/bill"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"
)

// BillService is the payable/receivable use case set used by BillHandler
type BillService interface {
	Create(ctx context.Context, companyID uuid.UUID, req bill.CreateBillRequest) ([]bill.BillResponse, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*bill.BillResponse, error)
	List(ctx context.Context, companyID uuid.UUID, filter bill.BillListFilter) ([]bill.BillResponse, int64, error)
	Update(ctx context.Context, companyID, id uuid.UUID, req bill.UpdateBillRequest) (*bill.BillResponse, error)
	Pay(ctx context.Context, companyID, id uuid.UUID, req bill.PayBillRequest) (*bill.BillResponse, error)
	Cancel(ctx context.Context, companyID, id uuid.UUID) (*bill.BillResponse, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	Summary(ctx context.Context, companyID uuid.UUID) (*bill.SummaryResponse, error)
}

// BillHandler handles payables and receivables
type BillHandler struct {
	BaseHandler
	bills BillService
}

// NewBillHandler creates a new BillHandler
func NewBillHandler(bills BillService) *BillHandler {
	return &BillHandler{bills: bills}
}

// Create godoc
// @ID           createBill
// @Summary      Create a bill
// @Description  With installments > 1 the amount is split into monthly bills; remainder cents go to the first one
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        request body bill.CreateBillRequest true "Bill data"
// @Success      201 {object} APIResponse[[]bill.BillResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills [post]
func (h *BillHandler) Create(c *gin.Context) {
	var req bill.CreateBillRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.bills.Create(c.Request.Context(), companyID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get godoc
// @ID           getBill
// @Summary      Get a bill
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {object} APIResponse[bill.BillResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills/{id} [get]
func (h *BillHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.bills.Get(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @ID           listBills
// @Summary      List bills
// @Tags         bills
// @Produce      json
// @Param        type query string false "Type" Enums(payable, receivable)
// @Param        status query string false "Status" Enums(pending, partial, paid, cancelled)
// @Param        due_from query string false "Due from (YYYY-MM-DD)"
// @Param        due_to query string false "Due until (YYYY-MM-DD)"
// @Param        overdue query bool false "Only overdue"
// @Param        customer_id query string false "Customer" format(uuid)
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]bill.BillResponse]
// @Security     BearerAuth
// @Router       /bills [get]
func (h *BillHandler) List(c *gin.Context) {
	var filter bill.BillListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	bills, total, err := h.bills.List(c.Request.Context(), companyID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, bills, total, filter.Page, filter.PageSize)
}

// Summary godoc
// @ID           getBillSummary
// @Summary      Open, overdue and paid totals per bill type
// @Tags         bills
// @Produce      json
// @Success      200 {object} APIResponse[bill.SummaryResponse]
// @Security     BearerAuth
// @Router       /bills/summary [get]
func (h *BillHandler) Summary(c *gin.Context) {
	resp, err := h.bills.Summary(c.Request.Context(), companyID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Update godoc
// @ID           updateBill
// @Summary      Update a pending bill
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body bill.UpdateBillRequest true "Bill data"
// @Success      200 {object} APIResponse[bill.BillResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills/{id} [put]
func (h *BillHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req bill.UpdateBillRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.bills.Update(c.Request.Context(), companyID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Pay godoc
// @ID           payBill
// @Summary      Register a payment
// @Description  Partial or full; may not exceed the open balance
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body bill.PayBillRequest true "Payment"
// @Success      200 {object} APIResponse[bill.BillResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills/{id}/pay [post]
func (h *BillHandler) Pay(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req bill.PayBillRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.bills.Pay(c.Request.Context(), companyID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel godoc
// @ID           cancelBill
// @Summary      Cancel a bill
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {object} APIResponse[bill.BillResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills/{id}/cancel [post]
func (h *BillHandler) Cancel(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.bills.Cancel(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @ID           deleteBill
// @Summary      Delete a bill
// @Description  Only pending bills without payments
// @Tags         bills
// @Param        id path string true "Bill ID" format(uuid)
// @Success      204
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills/{id} [delete]
func (h *BillHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.bills.Delete(c.Request.Context(), companyID(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// BillRoutes registers the bill endpoints
func BillRoutes(h *BillHandler, authMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("bills", "/bills")
	group.Use(authMiddleware, middleware.RequireResource("bill"))

	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/summary", h.Summary)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
	group.POST("/:id/pay", h.Pay)
	group.POST("/:id/cancel", h.Cancel)

	return group
}
