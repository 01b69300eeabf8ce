package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/application/fiscal"
	"github.com/pdv/backend/internal/interfaces/http/dto"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"
)

// WebhookSecretHeader carries the shared secret of gateway callbacks
const WebhookSecretHeader = "X-Webhook-Secret"

const maxWebhookBody = 1 << 20

// FiscalService is the fiscal document use case set used by FiscalHandler
type FiscalService interface {
	IssueForSale(ctx context.Context, companyID, saleID uuid.UUID, req fiscal.IssueForSaleRequest) (*fiscal.DocumentResponse, error)
	IssueService(ctx context.Context, companyID uuid.UUID, req fiscal.IssueServiceRequest) (*fiscal.DocumentResponse, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*fiscal.DocumentResponse, error)
	List(ctx context.Context, companyID uuid.UUID, filter fiscal.DocumentListFilter) ([]fiscal.DocumentResponse, int64, error)
	Retry(ctx context.Context, companyID, id uuid.UUID) (*fiscal.DocumentResponse, error)
	Cancel(ctx context.Context, companyID, id uuid.UUID, req fiscal.CancelDocumentRequest) (*fiscal.DocumentResponse, error)
	DownloadURL(ctx context.Context, companyID, id uuid.UUID, kind string) (*fiscal.DownloadResponse, error)
	HandleWebhook(ctx context.Context, secret string, body []byte) error
}

// FiscalHandler handles NFCe, NFe and NFSe documents
type FiscalHandler struct {
	BaseHandler
	documents FiscalService
}

// NewFiscalHandler creates a new FiscalHandler
func NewFiscalHandler(documents FiscalService) *FiscalHandler {
	return &FiscalHandler{documents: documents}
}

// IssueForSale godoc
// @ID           issueFiscalDocumentForSale
// @Summary      Issue an NFCe or NFe for a completed sale
// @Tags         fiscal
// @Accept       json
// @Produce      json
// @Param        sale_id path string true "Sale ID" format(uuid)
// @Param        request body fiscal.IssueForSaleRequest true "Document type"
// @Success      201 {object} APIResponse[fiscal.DocumentResponse]
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /fiscal/sales/{sale_id}/issue [post]
func (h *FiscalHandler) IssueForSale(c *gin.Context) {
	saleID, ok := h.pathID(c, "sale_id")
	if !ok {
		return
	}
	var req fiscal.IssueForSaleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.documents.IssueForSale(c.Request.Context(), companyID(c), saleID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// IssueService godoc
// @ID           issueServiceInvoice
// @Summary      Issue an NFSe
// @Tags         fiscal
// @Accept       json
// @Produce      json
// @Param        request body fiscal.IssueServiceRequest true "Service data"
// @Success      201 {object} APIResponse[fiscal.DocumentResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /fiscal/services [post]
func (h *FiscalHandler) IssueService(c *gin.Context) {
	var req fiscal.IssueServiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.documents.IssueService(c.Request.Context(), companyID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get godoc
// @ID           getFiscalDocument
// @Summary      Get a fiscal document
// @Tags         fiscal
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} APIResponse[fiscal.DocumentResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /fiscal/documents/{id} [get]
func (h *FiscalHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.documents.Get(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @ID           listFiscalDocuments
// @Summary      List fiscal documents
// @Tags         fiscal
// @Produce      json
// @Param        search query string false "Access key or recipient"
// @Param        type query string false "Type" Enums(nfce, nfe, nfse)
// @Param        status query string false "Status" Enums(pending, processing, authorized, rejected, cancelled)
// @Param        sale_id query string false "Sale" format(uuid)
// @Param        from query string false "Created from (YYYY-MM-DD)"
// @Param        to query string false "Created until (YYYY-MM-DD)"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]fiscal.DocumentResponse]
// @Security     BearerAuth
// @Router       /fiscal/documents [get]
func (h *FiscalHandler) List(c *gin.Context) {
	var filter fiscal.DocumentListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	docs, total, err := h.documents.List(c.Request.Context(), companyID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, docs, total, filter.Page, filter.PageSize)
}

// Retry godoc
// @ID           retryFiscalDocument
// @Summary      Resubmit a rejected document under its original number
// @Tags         fiscal
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} APIResponse[fiscal.DocumentResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /fiscal/documents/{id}/retry [post]
func (h *FiscalHandler) Retry(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.documents.Retry(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel godoc
// @ID           cancelFiscalDocument
// @Summary      Cancel an authorized document
// @Description  Only inside the legal cancellation window
// @Tags         fiscal
// @Accept       json
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body fiscal.CancelDocumentRequest true "Justification"
// @Success      200 {object} APIResponse[fiscal.DocumentResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /fiscal/documents/{id}/cancel [post]
func (h *FiscalHandler) Cancel(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req fiscal.CancelDocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.documents.Cancel(c.Request.Context(), companyID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Download godoc
// @ID           downloadFiscalDocument
// @Summary      Get a temporary link to the document XML or PDF
// @Tags         fiscal
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        kind query string false "File kind" Enums(xml, pdf) default(pdf)
// @Success      200 {object} APIResponse[fiscal.DownloadResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /fiscal/documents/{id}/download [get]
func (h *FiscalHandler) Download(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	kind := c.DefaultQuery("kind", "pdf")
	if kind != "xml" && kind != "pdf" {
		h.BadRequest(c, "kind must be xml or pdf")
		return
	}
	resp, err := h.documents.DownloadURL(c.Request.Context(), companyID(c), id, kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Webhook godoc
// @ID           fiscalWebhook
// @Summary      Gateway status callback
// @Description  Authenticated by the shared secret header, not by a bearer token
// @Tags         fiscal
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Secret header string true "Shared secret"
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Router       /fiscal/webhook [post]
func (h *FiscalHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Unable to read request body")
		return
	}
	if err := h.documents.HandleWebhook(c.Request.Context(), c.GetHeader(WebhookSecretHeader), body); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// FiscalRoutes registers the fiscal endpoints. The webhook is public.
func FiscalRoutes(h *FiscalHandler, authMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("fiscal", "/fiscal")
	group.POST("/webhook", h.Webhook)

	read := middleware.RequirePermission("fiscal:read")
	issue := middleware.RequirePermission("fiscal:create")

	group.POST("/sales/:sale_id/issue", authMiddleware, issue, h.IssueForSale)
	group.POST("/services", authMiddleware, issue, h.IssueService)
	group.GET("/documents", authMiddleware, read, h.List)
	group.GET("/documents/:id", authMiddleware, read, h.Get)
	group.GET("/documents/:id/download", authMiddleware, read, h.Download)
	group.POST("/documents/:id/retry", authMiddleware, issue, h.Retry)
	group.POST("/documents/:id/cancel", authMiddleware, middleware.RequirePermission("fiscal:cancel"), h.Cancel)

	return group
}
