package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/models"
	appErrors "github.com/noah-isme/unigrading-api/pkg/errors"
)

type sessionUserStore interface {
	GetUser(ctx context.Context, wallet string) (*models.User, error)
	DeleteUser(ctx context.Context, wallet string) error
}

// SessionConfig defines token issuance settings.
type SessionConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// SessionService turns a connected wallet into a session token and resolves the current user.
type SessionService struct {
	store     sessionUserStore
	audit     AuditSink
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    SessionConfig
	now       func() time.Time
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(store sessionUserStore, audit AuditSink, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Expiration <= 0 {
		config.Expiration = 24 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "unigrading-api"
	}
	return &SessionService{store: store, audit: audit, metrics: metrics, validator: validate, logger: logger, config: config, now: time.Now}
}

// Connect issues a token for the wallet and reports whether it is registered. A corrupted user
// entry is cleaned up and the wallet is reported as unregistered.
func (s *SessionService) Connect(ctx context.Context, req models.ConnectRequest) (*models.SessionResponse, error) {
	req.WalletAddress = strings.TrimSpace(req.WalletAddress)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "walletAddress is required")
	}

	user, err := s.ResolveCurrentUser(ctx, req.WalletAddress)
	if err != nil && !errors.Is(err, appErrors.ErrDataIntegrity) {
		return nil, err
	}

	token, issuedAt, expiresAt, err := s.issueToken(req.WalletAddress)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session")
	}

	if s.audit != nil {
		event := models.AuditEvent{Action: models.AuditActionSessionStart, Wallet: req.WalletAddress}
		if user != nil {
			event.Username, event.Role = user.Username, user.Role
		}
		s.audit.Record(ctx, event)
	}

	return &models.SessionResponse{
		AccessToken:   token,
		ExpiresIn:     int64(expiresAt.Sub(issuedAt).Seconds()),
		WalletAddress: req.WalletAddress,
		Registered:    user != nil,
		User:          user,
		IssuedAt:      issuedAt,
	}, nil
}

// ValidateToken parses a session token and returns its claims.
func (s *SessionService) ValidateToken(tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotConnected.Code, appErrors.ErrNotConnected.Status, "invalid session token")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || claims.WalletAddress == "" || claims.Subject != claims.WalletAddress {
		return nil, appErrors.Clone(appErrors.ErrNotConnected, "invalid session claims")
	}
	return claims, nil
}

// ResolveCurrentUser looks up the user for a wallet. It returns (nil, nil) for unregistered
// wallets. A malformed entry is deleted and reported as an ErrDataIntegrity error with a nil user.
// Repeated calls without intervening writes return equal results.
func (s *SessionService) ResolveCurrentUser(ctx context.Context, wallet string) (*models.User, error) {
	if wallet == "" {
		return nil, nil
	}
	user, err := s.store.GetUser(ctx, wallet)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, appErrors.ErrDataIntegrity) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	s.logger.Warn("removing corrupted user entry", zap.String("wallet", wallet), zap.Error(err))
	s.metrics.RecordIntegrityError("user")
	if delErr := s.store.DeleteUser(ctx, wallet); delErr != nil {
		s.logger.Error("failed to remove corrupted user entry", zap.String("wallet", wallet), zap.Error(delErr))
	}
	if s.audit != nil {
		s.audit.Record(ctx, models.AuditEvent{
			Action:   models.AuditActionIntegrityRecovery,
			Wallet:   wallet,
			Resource: models.UserKey(wallet),
			Reason:   err.Error(),
		})
	}
	return nil, err
}

func (s *SessionService) issueToken(wallet string) (string, time.Time, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.Expiration)
	claims := &models.SessionClaims{
		WalletAddress: wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   wallet,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	return signed, issuedAt, expiresAt, nil
}
