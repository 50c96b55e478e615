package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/models"
)

// AuthorizationService decides whether the current user holds a permission. Every call returns a
// decision; denials go to the audit sink.
type AuthorizationService struct {
	audit   AuditSink
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuthorizationService constructs the gate. audit and metrics may be nil.
func NewAuthorizationService(audit AuditSink, metrics *MetricsService, logger *zap.Logger) *AuthorizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthorizationService{audit: audit, metrics: metrics, logger: logger}
}

// Authorize checks user against perm. A nil user is not authenticated.
func (s *AuthorizationService) Authorize(ctx context.Context, user *models.User, perm models.Permission) models.Decision {
	decision := Decide(user, perm)
	s.metrics.RecordAuthorization(perm, decision.Allowed)
	if decision.Allowed {
		return decision
	}

	event := models.AuditEvent{
		Action:     models.AuditActionAccessDenied,
		Permission: string(perm),
		Reason:     decision.Reason,
	}
	if user != nil {
		event.Wallet = user.WalletAddress
		event.Username = user.Username
		event.Role = user.Role
		s.logger.Warn("permission denied",
			zap.String("username", user.Username),
			zap.String("role", string(user.Role)),
			zap.String("permission", string(perm)))
	} else {
		s.logger.Warn("permission denied", zap.String("permission", string(perm)), zap.String("reason", decision.Reason))
	}
	if s.audit != nil {
		s.audit.Record(ctx, event)
	}
	return decision
}

// Decide is the side-effect-free form of Authorize.
func Decide(user *models.User, perm models.Permission) models.Decision {
	if user == nil {
		return models.Deny(models.ReasonNotAuthenticated)
	}
	if !HasPermission(user.Role, perm) {
		return models.Deny(models.ReasonInsufficientPermission)
	}
	return models.Allow()
}
