package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/application/company"
	"github.com/pdv/backend/internal/application/identity"
	"github.com/pdv/backend/internal/infrastructure/auth"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"
)

// AuthService is the authentication use case set used by AuthHandler
type AuthService interface {
	Login(ctx context.Context, req identity.LoginRequest) (*identity.LoginResponse, error)
	Refresh(ctx context.Context, req identity.RefreshRequest) (*identity.LoginResponse, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	Me(ctx context.Context, companyID, userID uuid.UUID) (*identity.UserResponse, error)
	ChangePassword(ctx context.Context, companyID, userID uuid.UUID, req identity.ChangePasswordRequest) error
}

// Registrar signs up a new company with its owner
type Registrar interface {
	Register(ctx context.Context, req company.RegisterRequest) (*identity.LoginResponse, error)
}

// AuthHandler handles sign up, login and session endpoints
type AuthHandler struct {
	BaseHandler
	auth      AuthService
	registrar Registrar
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService AuthService, registrar Registrar) *AuthHandler {
	return &AuthHandler{auth: authService, registrar: registrar}
}

// Register godoc
// @ID           registerCompany
// @Summary      Register a company
// @Description  Create a company with its owner account and return a session for the owner
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body company.RegisterRequest true "Company and owner data"
// @Success      201 {object} APIResponse[identity.LoginResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req company.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.registrar.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Login godoc
// @ID           login
// @Summary      Log in
// @Description  Authenticate with email and password. Repeated failures lock the account for a while.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identity.LoginRequest true "Credentials"
// @Success      200 {object} APIResponse[identity.LoginResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      423 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req identity.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.IP = c.ClientIP()
	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Refresh godoc
// @ID           refreshToken
// @Summary      Refresh the session
// @Description  Exchange a refresh token for a new token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identity.RefreshRequest true "Refresh token"
// @Success      200 {object} APIResponse[identity.LoginResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req identity.RefreshRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.auth.Refresh(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Logout godoc
// @ID           logout
// @Summary      Log out
// @Description  Revoke the current access token
// @Tags         auth
// @Produce      json
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Me godoc
// @ID           getCurrentUser
// @Summary      Current user
// @Description  Return the authenticated user with its permissions
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[identity.UserResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	resp, err := h.auth.Me(c.Request.Context(), companyID(c), userID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ChangePassword godoc
// @ID           changePassword
// @Summary      Change password
// @Description  Change the caller's password. Other sessions of the user are revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identity.ChangePasswordRequest true "Current and new password"
// @Success      200 {object} APIResponse[MessageData]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req identity.ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), companyID(c), userID(c), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Password changed"})
}

// AuthRoutes registers the public and authenticated session endpoints.
// loginLimit guards the credential endpoints per client IP.
func AuthRoutes(h *AuthHandler, authMiddleware, loginLimit gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("auth", "/auth")

	group.POST("/register", loginLimit, h.Register)
	group.POST("/login", loginLimit, h.Login)
	group.POST("/refresh", loginLimit, h.Refresh)

	group.POST("/logout", authMiddleware, h.Logout)
	group.GET("/me", authMiddleware, h.Me)
	group.PUT("/password", authMiddleware, h.ChangePassword)

	return group
}
