package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/internal/service"
	appErrors "github.com/noah-isme/unigrading-api/pkg/errors"
	"github.com/noah-isme/unigrading-api/pkg/logger"
	"github.com/noah-isme/unigrading-api/pkg/response"
)

// ContextUserKey is the gin context key storing the resolved *models.User. It is absent for
// connected wallets that have not registered.
const ContextUserKey = "currentUser"

// Session requires a valid session token, then re-reads the caller's user record from the store.
// The role is never taken from the token.
func Session(sessions *service.SessionService, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, err := sessions.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(logger.WalletContextKey, claims.WalletAddress)

		user, err := sessions.ResolveCurrentUser(c.Request.Context(), claims.WalletAddress)
		if err != nil && !errors.Is(err, appErrors.ErrDataIntegrity) {
			response.Error(c, err)
			c.Abort()
			return
		}
		if err != nil {
			log.Warn("session resolved without user", zap.String("wallet", claims.WalletAddress), zap.Error(err))
		}
		if user != nil {
			c.Set(ContextUserKey, user)
		}
		c.Next()
	}
}

// CurrentUser returns the registered caller, or nil.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// CurrentWallet returns the connected wallet, registered or not.
func CurrentWallet(c *gin.Context) string {
	return c.GetString(logger.WalletContextKey)
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", appErrors.ErrNotConnected
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrNotConnected, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
