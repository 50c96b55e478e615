package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/internal/service"
)

// Audit records an event after each successful request on read-only privileged routes.
func Audit(sink service.AuditSink, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if sink == nil || c.Writer.Status() >= 400 {
			return
		}

		event := models.AuditEvent{Action: action, Resource: c.Request.Method + " " + c.FullPath(), Wallet: CurrentWallet(c)}
		if user := CurrentUser(c); user != nil {
			event.Username, event.Role = user.Username, user.Role
		}
		sink.Record(c.Request.Context(), event)
	}
}
