package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/inventory-platform/ledger-service/internal/domain"
	"github.com/inventory-platform/ledger-service/pkg/errors"
)

// Operator context keys
const (
	ContextKeyOperatorID   = "operatorId"
	ContextKeyOperatorRole = "operatorRole"
)

// Operator HTTP header names
const (
	HeaderOperatorID   = "X-Operator-ID"
	HeaderOperatorRole = "X-Operator-Role"
)

// OperatorAuth extracts operator identity from request headers. The role
// header carries a two-digit code ("00" through "09") parsed into the
// closed domain.RoleLevel set at the boundary.
func OperatorAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		operatorID := c.GetHeader(HeaderOperatorID)
		if operatorID == "" {
			AbortWithAppError(c, errors.ErrUnauthorized("missing operator identity"))
			return
		}

		level, err := domain.ParseRoleLevel(c.GetHeader(HeaderOperatorRole))
		if err != nil {
			AbortWithAppError(c, errors.ErrUnauthorized("invalid operator role"))
			return
		}

		c.Set(ContextKeyOperatorID, operatorID)
		c.Set(ContextKeyOperatorRole, level)

		c.Next()
	}
}

// RequireRole rejects requests whose operator role is below the minimum level
func RequireRole(minLevel domain.RoleLevel) gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := c.Get(ContextKeyOperatorRole)
		if !ok {
			AbortWithAppError(c, errors.ErrUnauthorized("missing operator identity"))
			return
		}

		role, _ := val.(domain.RoleLevel)
		if !role.AtLeast(minLevel) {
			AbortWithAppError(c, errors.ErrForbidden("insufficient role for this operation"))
			return
		}

		c.Next()
	}
}

// GetOperatorID extracts the operator ID from context
func GetOperatorID(c *gin.Context) string {
	if val, exists := c.Get(ContextKeyOperatorID); exists {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// GetOperatorRole extracts the operator role level from context
func GetOperatorRole(c *gin.Context) domain.RoleLevel {
	if val, exists := c.Get(ContextKeyOperatorRole); exists {
		if level, ok := val.(domain.RoleLevel); ok {
			return level
		}
	}
	return domain.RoleGuest
}
