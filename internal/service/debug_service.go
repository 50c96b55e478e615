package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/dto"
	"github.com/noah-isme/unigrading-api/internal/models"
	appErrors "github.com/noah-isme/unigrading-api/pkg/errors"
)

type debugStore interface {
	collectionReader
	Snapshot(ctx context.Context) ([]models.StoreEntry, error)
	Clear(ctx context.Context) ([]string, error)
	GetUser(ctx context.Context, wallet string) (*models.User, error)
	DeleteUser(ctx context.Context, wallet string) error
}

// DebugService exposes the raw record store to administrators.
type DebugService struct {
	store   debugStore
	cache   *CacheService
	audit   AuditSink
	metrics *MetricsService
	logger  *zap.Logger
}

// NewDebugService constructs the debug console service.
func NewDebugService(store debugStore, cache *CacheService, audit AuditSink, metrics *MetricsService, logger *zap.Logger) *DebugService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DebugService{store: store, cache: cache, audit: audit, metrics: metrics, logger: logger}
}

// Snapshot lists every stored key with its raw value and byte size. Collections that fail to
// parse are reported in Errors and counted as empty.
func (s *DebugService) Snapshot(ctx context.Context) (*dto.StoreSnapshot, error) {
	entries, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read store")
	}
	result := &dto.StoreSnapshot{Entries: entries}
	for _, e := range entries {
		result.TotalSize += e.Size
	}

	users, err := s.store.Users(ctx)
	result.UserCount = len(users)
	result.Errors = appendIntegrity(result.Errors, err)
	classrooms, err := s.store.Classrooms(ctx)
	result.ClassroomCount = len(classrooms)
	result.Errors = appendIntegrity(result.Errors, err)
	grades, err := s.store.Grades(ctx)
	result.GradeCount = len(grades)
	result.Errors = appendIntegrity(result.Errors, err)
	return result, nil
}

// Clear removes every key from the store.
func (s *DebugService) Clear(ctx context.Context, actor *models.User) (*dto.ClearResult, error) {
	removed, err := s.store.Clear(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear store")
	}
	s.cache.Invalidate(ctx, statsCachePattern)
	s.record(ctx, actor, models.AuditActionStoreClear, strings.Join(removed, ","))
	s.logger.Warn("record store cleared", zap.Int("keys", len(removed)))
	return &dto.ClearResult{RemovedKeys: removed}, nil
}

// DeleteUserKey removes the user_<wallet> entry, leaving the users collection untouched. A
// corrupted entry is removable.
func (s *DebugService) DeleteUserKey(ctx context.Context, actor *models.User, wallet string) (*dto.ClearResult, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "wallet is required")
	}
	user, err := s.store.GetUser(ctx, wallet)
	if err != nil && !errors.Is(err, appErrors.ErrDataIntegrity) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read user")
	}
	if user == nil && err == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user key not found")
	}
	if err := s.store.DeleteUser(ctx, wallet); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user key")
	}
	key := models.UserKey(wallet)
	s.cache.Invalidate(ctx, statsCachePattern)
	s.record(ctx, actor, models.AuditActionUserKeyDelete, key)
	return &dto.ClearResult{RemovedKeys: []string{key}}, nil
}

func (s *DebugService) record(ctx context.Context, actor *models.User, action, resource string) {
	if s.audit == nil {
		return
	}
	event := models.AuditEvent{Action: action, Resource: resource}
	if actor != nil {
		event.Wallet, event.Username, event.Role = actor.WalletAddress, actor.Username, actor.Role
	}
	s.audit.Record(ctx, event)
}

func appendIntegrity(errs []string, err error) []string {
	if err == nil {
		return errs
	}
	return append(errs, err.Error())
}
