package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/internal/service"
	appErrors "github.com/noah-isme/unigrading-api/pkg/errors"
	"github.com/noah-isme/unigrading-api/pkg/response"
)

// RequirePermission gates a route on the caller's role permissions. Ownership checks stay in the
// services.
func RequirePermission(authz *service.AuthorizationService, perm models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := authz.Authorize(c.Request.Context(), CurrentUser(c), perm)
		if decision.Allowed {
			c.Next()
			return
		}
		response.Error(c, DenialError(decision))
		c.Abort()
	}
}

// RequireRegistered rejects connected wallets that have no user record.
func RequireRegistered() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			response.Error(c, appErrors.ErrNotRegistered)
			c.Abort()
			return
		}
		c.Next()
	}
}

// DenialError maps a refusing decision to its HTTP error.
func DenialError(decision models.Decision) *appErrors.Error {
	if decision.Reason == models.ReasonNotAuthenticated {
		return appErrors.Clone(appErrors.ErrNotRegistered, decision.Reason)
	}
	return appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
}
