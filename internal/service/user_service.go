package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/dto"
	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/internal/stats"
	appErrors "github.com/noah-isme/unigrading-api/pkg/errors"
)

type userStore interface {
	collectionReader
	UpdateUsers(ctx context.Context, fn func([]models.User) ([]models.User, error)) error
	GetUser(ctx context.Context, wallet string) (*models.User, error)
	SetUser(ctx context.Context, user models.User) error
}

// RegisterRequest is the registration payload. Only Teacher and Student can self-register.
type RegisterRequest struct {
	Username string      `json:"username" validate:"required,max=64"`
	Role     models.Role `json:"role" validate:"required,oneof=Teacher Student"`
}

// DefaultAdminUsername names bootstrapped admin accounts.
const DefaultAdminUsername = "Administrator"

// UserService implements registration and user lookups.
type UserService struct {
	store     userStore
	latency   Latency
	cache     *CacheService
	audit     AuditSink
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// UserServiceParams groups constructor dependencies.
type UserServiceParams struct {
	Store     userStore
	Latency   Latency
	Cache     *CacheService
	Audit     AuditSink
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewUserService creates a new user service.
func NewUserService(params UserServiceParams) *UserService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{
		store:     params.Store,
		latency:   params.Latency,
		cache:     params.Cache,
		audit:     params.Audit,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates the user record for a connected wallet. A wallet registers at most once; a
// rejected attempt leaves the existing record unchanged.
func (s *UserService) Register(ctx context.Context, wallet string, req RegisterRequest) (*models.User, error) {
	if wallet == "" {
		return nil, appErrors.ErrNotConnected
	}
	req.Username = strings.TrimSpace(req.Username)
	if role, ok := models.ParseRole(string(req.Role)); ok {
		req.Role = role
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "username is required and role must be Teacher or Student")
	}

	existing, err := s.store.GetUser(ctx, wallet)
	if err != nil && !errors.Is(err, appErrors.ErrDataIntegrity) {
		return nil, writeError(err, "failed to check registration")
	}
	if existing != nil {
		return nil, appErrors.ErrDuplicateRegistration
	}

	if err := waitOrCancel(ctx, s.latency, OpRegister); err != nil {
		return nil, err
	}

	user := models.User{
		WalletAddress: wallet,
		Username:      req.Username,
		Role:          req.Role,
		CreatedAt:     s.now().Unix(),
		IsActive:      true,
	}
	if err := s.insert(ctx, user); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, statsCachePattern)
	if s.audit != nil {
		s.audit.Record(ctx, models.AuditEvent{Action: models.AuditActionUserRegister, Wallet: wallet, Username: user.Username, Role: user.Role})
	}
	s.logger.Info("user registered", zap.String("wallet", wallet), zap.String("role", string(user.Role)))
	return &user, nil
}

// EnsureAdmins registers Admin users for the wallets that have no record yet.
func (s *UserService) EnsureAdmins(ctx context.Context, wallets []string) error {
	for _, wallet := range wallets {
		existing, err := s.store.GetUser(ctx, wallet)
		if err != nil && !errors.Is(err, appErrors.ErrDataIntegrity) {
			return err
		}
		if existing != nil {
			continue
		}
		user := models.User{
			WalletAddress: wallet,
			Username:      DefaultAdminUsername,
			Role:          models.RoleAdmin,
			CreatedAt:     s.now().Unix(),
			IsActive:      true,
		}
		if err := s.insert(ctx, user); err != nil {
			return err
		}
		s.logger.Info("admin user bootstrapped", zap.String("wallet", wallet))
	}
	return nil
}

// insert writes user to the collection and its per-wallet key. The per-wallet key decides whether
// a wallet is registered, so a collection entry left behind after that key was removed is replaced.
func (s *UserService) insert(ctx context.Context, user models.User) error {
	err := s.store.UpdateUsers(ctx, func(users []models.User) ([]models.User, error) {
		for i, u := range users {
			if u.WalletAddress == user.WalletAddress {
				s.logger.Info("replacing orphaned user entry", zap.String("wallet", user.WalletAddress))
				users[i] = user
				return users, nil
			}
		}
		return append(users, user), nil
	})
	if err != nil {
		return writeError(err, "failed to save user")
	}
	if err := s.store.SetUser(ctx, user); err != nil {
		return writeError(err, "failed to save user")
	}
	return nil
}

// List returns users filtered by role and a case-insensitive username or wallet substring.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, err := s.store.Users(ctx)
	if users, err = recoverCollection(users, err, models.CollectionUsers, s.metrics, s.logger); err != nil {
		return nil, nil, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]models.User, 0, len(users))
	for _, u := range users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Username), search) &&
			!strings.Contains(strings.ToLower(u.WalletAddress), search) {
			continue
		}
		matched = append(matched, u)
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	start, end := pageBounds(page, size, len(matched))
	return matched[start:end], &models.Pagination{Page: page, PageSize: size, TotalCount: len(matched)}, nil
}

// Detail returns one user with role statistics and activity timeline.
func (s *UserService) Detail(ctx context.Context, wallet string) (*dto.UserDetail, error) {
	snap, err := loadSnapshot(ctx, s.store, s.metrics, s.logger)
	if err != nil {
		return nil, err
	}

	var user *models.User
	for i := range snap.users {
		if snap.users[i].WalletAddress == wallet {
			user = &snap.users[i]
			break
		}
	}
	if user == nil {
		if user, err = s.store.GetUser(ctx, wallet); err != nil && !errors.Is(err, appErrors.ErrDataIntegrity) {
			return nil, writeError(err, "failed to load user")
		}
	}
	if user == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}

	return &dto.UserDetail{
		User:     *user,
		Stats:    stats.UserStats(*user, snap.classrooms, snap.grades),
		Activity: stats.UserActivity(*user, snap.classrooms, snap.grades),
	}, nil
}

func normalisePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

// pageBounds returns the slice bounds of page within total records without overflowing on
// large page numbers.
func pageBounds(page, size, total int) (int, int) {
	if page-1 >= (total+size-1)/size {
		return total, total
	}
	start := (page - 1) * size
	return start, min(start+size, total)
}
