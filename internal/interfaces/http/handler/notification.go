package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/application/notification"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"
)

// NotificationService is the messaging use case set used by NotificationHandler
type NotificationService interface {
	SendSaleReceipt(ctx context.Context, companyID, userID, saleID uuid.UUID, req notification.SendReceiptRequest) (*notification.NotificationResponse, error)
	SendBillReminder(ctx context.Context, companyID, userID, billID uuid.UUID) (*notification.NotificationResponse, error)
	List(ctx context.Context, companyID uuid.UUID, filter notification.NotificationListFilter) ([]notification.NotificationResponse, int64, error)
}

// NotificationHandler handles WhatsApp and email messages to customers
type NotificationHandler struct {
	BaseHandler
	notifications NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// SendReceipt godoc
// @ID           sendSaleReceipt
// @Summary      Send a sale receipt to the customer
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        request body notification.SendReceiptRequest true "Channel and recipient"
// @Success      201 {object} APIResponse[notification.NotificationResponse]
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/sales/{id}/receipt [post]
func (h *NotificationHandler) SendReceipt(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req notification.SendReceiptRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.notifications.SendSaleReceipt(c.Request.Context(), companyID(c), userID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// SendReminder godoc
// @ID           sendBillReminder
// @Summary      Send a payment reminder for a receivable
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      201 {object} APIResponse[notification.NotificationResponse]
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/bills/{id}/reminder [post]
func (h *NotificationHandler) SendReminder(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	// a failed delivery is recorded and still reported as an error
	resp, err := h.notifications.SendBillReminder(c.Request.Context(), companyID(c), userID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List godoc
// @ID           listNotifications
// @Summary      List sent notifications
// @Tags         notifications
// @Produce      json
// @Param        channel query string false "Channel" Enums(whatsapp, email)
// @Param        status query string false "Status" Enums(pending, sent, failed)
// @Param        reference_id query string false "Sale or bill" format(uuid)
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]notification.NotificationResponse]
// @Security     BearerAuth
// @Router       /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	var filter notification.NotificationListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	items, total, err := h.notifications.List(c.Request.Context(), companyID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// NotificationRoutes registers the notification endpoints
func NotificationRoutes(h *NotificationHandler, authMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("notifications", "/notifications")
	group.Use(authMiddleware)

	send := middleware.RequirePermission("notification:create")

	group.GET("", middleware.RequirePermission("notification:read"), h.List)
	group.POST("/sales/:id/receipt", send, h.SendReceipt)
	group.POST("/bills/:id/reminder", send, h.SendReminder)

	return group
}
