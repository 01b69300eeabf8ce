package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pdv/backend/internal/domain/identity"
	"github.com/pdv/backend/internal/infrastructure/auth"
	"github.com/pdv/backend/internal/interfaces/http/dto"
)

// RequirePermission lets the request through when the caller's role grants
// permission ("resource:action").
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermission(permission)
}

// RequireAnyPermission requires at least one of the listed permissions
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}
		for _, p := range permissions {
			if granted(claims, p) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeForbidden, "You do not have permission to perform this action", GetRequestID(c)))
	}
}

// RequireResource derives the action from the HTTP method
// (GET read, POST create, PUT/PATCH update, DELETE delete).
func RequireResource(resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		RequirePermission(resource + ":" + methodToAction(c.Request.Method))(c)
	}
}

// granted trusts the role first so role changes apply on the next refresh,
// then the explicit permission list carried by the token.
func granted(claims *auth.Claims, permission string) bool {
	if identity.Role(claims.Role).Can(permission) {
		return true
	}
	return claims.HasPermission(identity.PermissionAll) || claims.HasPermission(permission)
}

func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	return "read"
}
