package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/application/cash"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"
)

// CashService is the cash drawer use case set used by CashHandler
type CashService interface {
	Open(ctx context.Context, companyID, operatorID uuid.UUID, req cash.OpenSessionRequest) (*cash.SessionResponse, error)
	Current(ctx context.Context, companyID, operatorID uuid.UUID) (*cash.SessionResponse, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*cash.SessionResponse, error)
	List(ctx context.Context, companyID uuid.UUID, filter cash.SessionListFilter) ([]cash.SessionResponse, int64, error)
	AddMovement(ctx context.Context, companyID, userID, id uuid.UUID, req cash.MovementRequest) (*cash.SessionResponse, error)
	Close(ctx context.Context, companyID, userID, id uuid.UUID, req cash.CloseSessionRequest) (*cash.SessionResponse, error)
}

// CashHandler handles cash sessions
type CashHandler struct {
	BaseHandler
	sessions CashService
}

// NewCashHandler creates a new CashHandler
func NewCashHandler(sessions CashService) *CashHandler {
	return &CashHandler{sessions: sessions}
}

// Open godoc
// @ID           openCashSession
// @Summary      Open the operator's cash session
// @Description  An operator may hold only one open session
// @Tags         cash
// @Accept       json
// @Produce      json
// @Param        request body cash.OpenSessionRequest true "Opening balance"
// @Success      201 {object} APIResponse[cash.SessionResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cash-sessions [post]
func (h *CashHandler) Open(c *gin.Context) {
	var req cash.OpenSessionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.sessions.Open(c.Request.Context(), companyID(c), userID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Current godoc
// @ID           getCurrentCashSession
// @Summary      Get the caller's open session
// @Tags         cash
// @Produce      json
// @Success      200 {object} APIResponse[cash.SessionResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cash-sessions/current [get]
func (h *CashHandler) Current(c *gin.Context) {
	resp, err := h.sessions.Current(c.Request.Context(), companyID(c), userID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get godoc
// @ID           getCashSession
// @Summary      Get a cash session with its totals
// @Tags         cash
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} APIResponse[cash.SessionResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cash-sessions/{id} [get]
func (h *CashHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.sessions.Get(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @ID           listCashSessions
// @Summary      List cash sessions
// @Tags         cash
// @Produce      json
// @Param        operator_id query string false "Operator" format(uuid)
// @Param        status query string false "Status" Enums(open, closed)
// @Param        from query string false "Opened from (YYYY-MM-DD)"
// @Param        to query string false "Opened until (YYYY-MM-DD)"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]cash.SessionResponse]
// @Security     BearerAuth
// @Router       /cash-sessions [get]
func (h *CashHandler) List(c *gin.Context) {
	var filter cash.SessionListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	sessions, total, err := h.sessions.List(c.Request.Context(), companyID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, sessions, total, filter.Page, filter.PageSize)
}

// AddMovement godoc
// @ID           addCashMovement
// @Summary      Register a supply or withdrawal
// @Description  Withdrawals may not exceed the expected drawer balance
// @Tags         cash
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        request body cash.MovementRequest true "Movement"
// @Success      200 {object} APIResponse[cash.SessionResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cash-sessions/{id}/movements [post]
func (h *CashHandler) AddMovement(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req cash.MovementRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.sessions.AddMovement(c.Request.Context(), companyID(c), userID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Close godoc
// @ID           closeCashSession
// @Summary      Close a cash session
// @Description  Records the counted amount and the difference against the expected balance
// @Tags         cash
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        request body cash.CloseSessionRequest true "Counted balance"
// @Success      200 {object} APIResponse[cash.SessionResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cash-sessions/{id}/close [post]
func (h *CashHandler) Close(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req cash.CloseSessionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.sessions.Close(c.Request.Context(), companyID(c), userID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CashRoutes registers the cash session endpoints
func CashRoutes(h *CashHandler, authMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("cash", "/cash-sessions")
	group.Use(authMiddleware)

	read := middleware.RequirePermission("cash:read")

	group.GET("", read, h.List)
	group.POST("", middleware.RequirePermission("cash:create"), h.Open)
	group.GET("/current", read, h.Current)
	group.GET("/:id", read, h.Get)
	group.POST("/:id/movements", middleware.RequirePermission("cash:update"), h.AddMovement)
	group.POST("/:id/close", middleware.RequirePermission("cash:close"), h.Close)

	return group
}
