package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/application/printing"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"
)

// PrintingService is the printer and print job use case set used by PrinterHandler
type PrintingService interface {
	Create(ctx context.Context, companyID uuid.UUID, req printing.CreatePrinterRequest) (*printing.PrinterResponse, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*printing.PrinterResponse, error)
	List(ctx context.Context, companyID uuid.UUID) ([]printing.PrinterResponse, error)
	Update(ctx context.Context, companyID, id uuid.UUID, req printing.UpdatePrinterRequest) (*printing.PrinterResponse, error)
	SetDefault(ctx context.Context, companyID, id uuid.UUID) (*printing.PrinterResponse, error)
	Activate(ctx context.Context, companyID, id uuid.UUID) (*printing.PrinterResponse, error)
	Deactivate(ctx context.Context, companyID, id uuid.UUID) (*printing.PrinterResponse, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	TestPrint(ctx context.Context, companyID, userID, id uuid.UUID) (*printing.JobResponse, error)
	PrintSaleReceipt(ctx context.Context, companyID, userID, saleID uuid.UUID, req printing.PrintRequest) (*printing.JobResponse, error)
	PrintCashClosure(ctx context.Context, companyID, userID, sessionID uuid.UUID, req printing.PrintRequest) (*printing.JobResponse, error)
	ListJobs(ctx context.Context, companyID uuid.UUID, filter printing.JobListFilter) ([]printing.JobResponse, int64, error)
}

// PrinterHandler handles thermal printers and print jobs
type PrinterHandler struct {
	BaseHandler
	printing PrintingService
}

// NewPrinterHandler creates a new PrinterHandler
func NewPrinterHandler(printing PrintingService) *PrinterHandler {
	return &PrinterHandler{printing: printing}
}

// Create godoc
// @ID           createPrinter
// @Summary      Register a printer
// @Tags         printers
// @Accept       json
// @Produce      json
// @Param        request body printing.CreatePrinterRequest true "Printer data"
// @Success      201 {object} APIResponse[printing.PrinterResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /printers [post]
func (h *PrinterHandler) Create(c *gin.Context) {
	var req printing.CreatePrinterRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.printing.Create(c.Request.Context(), companyID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get godoc
// @ID           getPrinter
// @Summary      Get a printer
// @Tags         printers
// @Produce      json
// @Param        id path string true "Printer ID" format(uuid)
// @Success      200 {object} APIResponse[printing.PrinterResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /printers/{id} [get]
func (h *PrinterHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.printing.Get(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @ID           listPrinters
// @Summary      List printers
// @Tags         printers
// @Produce      json
// @Success      200 {object} APIResponse[[]printing.PrinterResponse]
// @Security     BearerAuth
// @Router       /printers [get]
func (h *PrinterHandler) List(c *gin.Context) {
	resp, err := h.printing.List(c.Request.Context(), companyID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Update godoc
// @ID           updatePrinter
// @Summary      Update a printer
// @Tags         printers
// @Accept       json
// @Produce      json
// @Param        id path string true "Printer ID" format(uuid)
// @Param        request body printing.UpdatePrinterRequest true "Printer data"
// @Success      200 {object} APIResponse[printing.PrinterResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /printers/{id} [put]
func (h *PrinterHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req printing.UpdatePrinterRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.printing.Update(c.Request.Context(), companyID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @ID           deletePrinter
// @Summary      Delete a printer
// @Tags         printers
// @Param        id path string true "Printer ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /printers/{id} [delete]
func (h *PrinterHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.printing.Delete(c.Request.Context(), companyID(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// SetDefault godoc
// @ID           setDefaultPrinter
// @Summary      Make a printer the company default
// @Tags         printers
// @Produce      json
// @Param        id path string true "Printer ID" format(uuid)
// @Success      200 {object} APIResponse[printing.PrinterResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /printers/{id}/default [post]
func (h *PrinterHandler) SetDefault(c *gin.Context) {
	h.mutate(c, h.printing.SetDefault)
}

// Activate godoc
// @ID           activatePrinter
// @Summary      Activate a printer
// @Tags         printers
// @Produce      json
// @Param        id path string true "Printer ID" format(uuid)
// @Success      200 {object} APIResponse[printing.PrinterResponse]
// @Security     BearerAuth
// @Router       /printers/{id}/activate [post]
func (h *PrinterHandler) Activate(c *gin.Context) {
	h.mutate(c, h.printing.Activate)
}

// Deactivate godoc
// @ID           deactivatePrinter
// @Summary      Deactivate a printer
// @Tags         printers
// @Produce      json
// @Param        id path string true "Printer ID" format(uuid)
// @Success      200 {object} APIResponse[printing.PrinterResponse]
// @Security     BearerAuth
// @Router       /printers/{id}/deactivate [post]
func (h *PrinterHandler) Deactivate(c *gin.Context) {
	h.mutate(c, h.printing.Deactivate)
}

func (h *PrinterHandler) mutate(c *gin.Context, fn func(ctx context.Context, companyID, id uuid.UUID) (*printing.PrinterResponse, error)) {
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

// TestPrint godoc
// @ID           testPrinter
// @Summary      Print a test page
// @Tags         printers
// @Produce      json
// @Param        id path string true "Printer ID" format(uuid)
// @Success      200 {object} APIResponse[printing.JobResponse]
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /printers/{id}/test [post]
func (h *PrinterHandler) TestPrint(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.printing.TestPrint(c.Request.Context(), companyID(c), userID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// PrintSale godoc
// @ID           printSaleReceipt
// @Summary      Print a sale receipt
// @Tags         printing
// @Accept       json
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        request body printing.PrintRequest false "Printer; empty uses the default"
// @Success      200 {object} APIResponse[printing.JobResponse]
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /print/sales/{id} [post]
func (h *PrinterHandler) PrintSale(c *gin.Context) {
	h.print(c, h.printing.PrintSaleReceipt)
}

// PrintCashSession godoc
// @ID           printCashSession
// @Summary      Print a cash session reading
// @Description  Open sessions print a partial reading
// @Tags         printing
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        request body printing.PrintRequest false "Printer; empty uses the default"
// @Success      200 {object} APIResponse[printing.JobResponse]
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /print/cash-sessions/{id} [post]
func (h *PrinterHandler) PrintCashSession(c *gin.Context) {
	h.print(c, h.printing.PrintCashClosure)
}

func (h *PrinterHandler) print(c *gin.Context, fn func(ctx context.Context, companyID, userID, id uuid.UUID, req printing.PrintRequest) (*printing.JobResponse, error)) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req printing.PrintRequest
	// the body is optional
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	resp, err := fn(c.Request.Context(), companyID(c), userID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListJobs godoc
// @ID           listPrintJobs
// @Summary      List print jobs
// @Tags         printing
// @Produce      json
// @Param        printer_id query string false "Printer" format(uuid)
// @Param        status query string false "Status" Enums(pending, printing, completed, failed)
// @Param        from query string false "Created from (YYYY-MM-DD)"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]printing.JobResponse]
// @Security     BearerAuth
// @Router       /print/jobs [get]
func (h *PrinterHandler) ListJobs(c *gin.Context) {
	var filter printing.JobListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	jobs, total, err := h.printing.ListJobs(c.Request.Context(), companyID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, jobs, total, filter.Page, filter.PageSize)
}

// PrinterRoutes registers the printer management endpoints
func PrinterRoutes(h *PrinterHandler, authMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("printers", "/printers")
	group.Use(authMiddleware)

	read := middleware.RequirePermission("printer:read")
	update := middleware.RequirePermission("printer:update")

	group.GET("", read, h.List)
	group.POST("", middleware.RequirePermission("printer:create"), h.Create)
	group.GET("/:id", read, h.Get)
	group.PUT("/:id", update, h.Update)
	group.DELETE("/:id", middleware.RequirePermission("printer:delete"), h.Delete)
	group.POST("/:id/default", update, h.SetDefault)
	group.POST("/:id/activate", update, h.Activate)
	group.POST("/:id/deactivate", update, h.Deactivate)
	group.POST("/:id/test", read, h.TestPrint)

	return group
}

// PrintRoutes registers the print job endpoints
func PrintRoutes(h *PrinterHandler, authMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("print", "/print")
	group.Use(authMiddleware)

	group.POST("/sales/:id", middleware.RequirePermission("sale:read"), h.PrintSale)
	group.POST("/cash-sessions/:id", middleware.RequirePermission("cash:read"), h.PrintCashSession)
	group.GET("/jobs", middleware.RequirePermission("printer:read"), h.ListJobs)

	return group
}
