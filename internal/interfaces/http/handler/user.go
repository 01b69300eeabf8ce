package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/application/identity"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"
)

// UserService manages the users of a company
type UserService interface {
	Create(ctx context.Context, actor identity.Actor, req identity.CreateUserRequest) (*identity.UserResponse, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*identity.UserResponse, error)
	List(ctx context.Context, companyID uuid.UUID, filter identity.UserListFilter) ([]identity.UserResponse, int64, error)
	Update(ctx context.Context, actor identity.Actor, id uuid.UUID, req identity.UpdateUserRequest) (*identity.UserResponse, error)
	ChangeRole(ctx context.Context, actor identity.Actor, id uuid.UUID, req identity.ChangeRoleRequest) (*identity.UserResponse, error)
	Activate(ctx context.Context, actor identity.Actor, id uuid.UUID) (*identity.UserResponse, error)
	Deactivate(ctx context.Context, actor identity.Actor, id uuid.UUID) (*identity.UserResponse, error)
	ResetPassword(ctx context.Context, actor identity.Actor, id uuid.UUID, req identity.ResetPasswordRequest) error
}

// UserHandler handles user administration
type UserHandler struct {
	BaseHandler
	users UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Create godoc
// @ID           createUser
// @Summary      Create a user
// @Description  Only roles ranked below the caller can be granted
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body identity.CreateUserRequest true "User data"
// @Success      201 {object} APIResponse[identity.UserResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req identity.CreateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.users.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get godoc
// @ID           getUser
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identity.UserResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.users.Get(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @ID           listUsers
// @Summary      List users
// @Tags         users
// @Produce      json
// @Param        search query string false "Name or email"
// @Param        role query string false "Role" Enums(owner, admin, manager, cashier, seller)
// @Param        status query string false "Status" Enums(active, inactive)
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]identity.UserResponse]
// @Security     BearerAuth
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var filter identity.UserListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	users, total, err := h.users.List(c.Request.Context(), companyID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, users, total, filter.Page, filter.PageSize)
}

// Update godoc
// @ID           updateUser
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Param        request body identity.UpdateUserRequest true "Name and email"
// @Success      200 {object} APIResponse[identity.UserResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req identity.UpdateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.users.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ChangeRole godoc
// @ID           changeUserRole
// @Summary      Change a user's role
// @Description  The owner cannot be demoted
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Param        request body identity.ChangeRoleRequest true "New role"
// @Success      200 {object} APIResponse[identity.UserResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/role [put]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req identity.ChangeRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.users.ChangeRole(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Activate godoc
// @ID           activateUser
// @Summary      Activate a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identity.UserResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/activate [post]
func (h *UserHandler) Activate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.users.Activate(c.Request.Context(), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Deactivate godoc
// @ID           deactivateUser
// @Summary      Deactivate a user
// @Description  Revokes the user's sessions. The owner cannot be deactivated.
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identity.UserResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.users.Deactivate(c.Request.Context(), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ResetPassword godoc
// @ID           resetUserPassword
// @Summary      Reset a user's password
// @Description  Sets a temporary password the user must change on next login
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Param        request body identity.ResetPasswordRequest true "Temporary password"
// @Success      200 {object} APIResponse[MessageData]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/reset-password [post]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req identity.ResetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), actor(c), id, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Password reset"})
}

// UserRoutes registers the user administration endpoints
func UserRoutes(h *UserHandler, authMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("users", "/users")
	group.Use(authMiddleware)

	read := middleware.RequirePermission("user:read")
	update := middleware.RequirePermission("user:update")

	group.GET("", read, h.List)
	group.POST("", middleware.RequirePermission("user:create"), h.Create)
	group.GET("/:id", read, h.Get)
	group.PUT("/:id", update, h.Update)
	group.PUT("/:id/role", update, h.ChangeRole)
	group.POST("/:id/activate", update, h.Activate)
	group.POST("/:id/deactivate", update, h.Deactivate)
	group.POST("/:id/reset-password", update, h.ResetPassword)

	return group
}
