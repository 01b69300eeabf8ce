package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appreport "github.com/pdv/backend/internal/application/report"
	"github.com/pdv/backend/internal/domain/report"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"
)

// ReportService is the reporting use case set used by ReportHandler
type ReportService interface {
	SalesSummary(ctx context.Context, companyID uuid.UUID, q appreport.SalesReportQuery) (*report.SalesSummary, error)
	Dashboard(ctx context.Context, companyID uuid.UUID) (*report.Dashboard, error)
}

// ReportHandler serves sales reports and the dashboard
type ReportHandler struct {
	BaseHandler
	reports ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// SalesSummary godoc
// @ID           getSalesReport
// @Summary      Sales summary for a period
// @Description  Totals, payment methods, sellers with commission and the top products. Both dates are inclusive.
// @Tags         reports
// @Produce      json
// @Param        from query string true "Start date (YYYY-MM-DD)"
// @Param        to query string true "End date (YYYY-MM-DD)"
// @Param        seller_id query string false "Seller" format(uuid)
// @Param        top query int false "Top products" default(10)
// @Success      200 {object} APIResponse[report.SalesSummary]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/sales [get]
func (h *ReportHandler) SalesSummary(c *gin.Context) {
	var q appreport.SalesReportQuery
	if !h.bindQuery(c, &q) {
		return
	}
	resp, err := h.reports.SalesSummary(c.Request.Context(), companyID(c), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Dashboard godoc
// @ID           getDashboard
// @Summary      Today's figures
// @Tags         reports
// @Produce      json
// @Success      200 {object} APIResponse[report.Dashboard]
// @Security     BearerAuth
// @Router       /reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	resp, err := h.reports.Dashboard(c.Request.Context(), companyID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ReportRoutes registers the report endpoints
func ReportRoutes(h *ReportHandler, authMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("reports", "/reports")
	group.Use(authMiddleware, middleware.RequirePermission("report:read"))

	group.GET("/sales", h.SalesSummary)
	group.GET("/dashboard", h.Dashboard)

	return group
}
