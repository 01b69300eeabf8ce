package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/application/company"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"
)

// CompanyService manages the caller's own company
type CompanyService interface {
	Get(ctx context.Context, id uuid.UUID) (*company.CompanyResponse, error)
	Update(ctx context.Context, id uuid.UUID, req company.UpdateCompanyRequest) (*company.CompanyResponse, error)
	UpdateFiscalSettings(ctx context.Context, id uuid.UUID, req company.FiscalSettingsRequest) (*company.CompanyResponse, error)
	LogoUploadURL(ctx context.Context, id uuid.UUID, req company.UploadRequest) (*company.UploadURLResponse, error)
}

// CompanyHandler handles the tenant's registration data
type CompanyHandler struct {
	BaseHandler
	companies CompanyService
}

// NewCompanyHandler creates a new CompanyHandler
func NewCompanyHandler(companies CompanyService) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

// Get godoc
// @ID           getCompany
// @Summary      Get the current company
// @Tags         company
// @Produce      json
// @Success      200 {object} APIResponse[company.CompanyResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /company [get]
func (h *CompanyHandler) Get(c *gin.Context) {
	resp, err := h.companies.Get(c.Request.Context(), companyID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Update godoc
// @ID           updateCompany
// @Summary      Update the current company
// @Tags         company
// @Accept       json
// @Produce      json
// @Param        request body company.UpdateCompanyRequest true "Registration data"
// @Success      200 {object} APIResponse[company.CompanyResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /company [put]
func (h *CompanyHandler) Update(c *gin.Context) {
	var req company.UpdateCompanyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.companies.Update(c.Request.Context(), companyID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateFiscalSettings godoc
// @ID           updateCompanyFiscalSettings
// @Summary      Update fiscal settings
// @Description  Environment, NFC-e CSC, default series and automatic NFC-e issuing
// @Tags         company
// @Accept       json
// @Produce      json
// @Param        request body company.FiscalSettingsRequest true "Fiscal settings"
// @Success      200 {object} APIResponse[company.CompanyResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /company/fiscal-settings [put]
func (h *CompanyHandler) UpdateFiscalSettings(c *gin.Context) {
	var req company.FiscalSettingsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.companies.UpdateFiscalSettings(c.Request.Context(), companyID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// LogoUploadURL godoc
// @ID           createCompanyLogoUploadUrl
// @Summary      Presigned logo upload
// @Description  Return a presigned PUT URL for the company logo; the logo URL is stored right away
// @Tags         company
// @Accept       json
// @Produce      json
// @Param        request body company.UploadRequest true "File name and content type"
// @Success      200 {object} APIResponse[company.UploadURLResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /company/logo [post]
func (h *CompanyHandler) LogoUploadURL(c *gin.Context) {
	var req company.UploadRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.companies.LogoUploadURL(c.Request.Context(), companyID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CompanyRoutes registers the company endpoints
func CompanyRoutes(h *CompanyHandler, authMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("company", "/company")
	group.Use(authMiddleware)

	group.GET("", middleware.RequirePermission("company:read"), h.Get)
	group.PUT("", middleware.RequirePermission("company:update"), h.Update)
	group.PUT("/fiscal-settings", middleware.RequirePermission("company:update"), h.UpdateFiscalSettings)
	group.POST("/logo", middleware.RequirePermission("company:update"), h.LogoUploadURL)

	return group
}
