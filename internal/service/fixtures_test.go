package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/internal/repository"
	appErrors "github.com/noah-isme/unigrading-api/pkg/errors"
)

type recordingAudit struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (r *recordingAudit) Record(_ context.Context, event models.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

type stubCacheRepo struct {
	mu      sync.Mutex
	store   map[string][]byte
	deleted []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range s.store {
		if strings.HasPrefix(k, prefix) {
			delete(s.store, k)
		}
	}
	return nil
}

type testEnv struct {
	kv         *repository.MemoryStore
	store      *repository.RecordStore
	audit      *recordingAudit
	cache      *CacheService
	cacheRepo  *stubCacheRepo
	users      *UserService
	classrooms *ClassroomService
	grades     *GradeService
	stats      *StatsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	kv := repository.NewMemoryStore()
	store := repository.NewRecordStore(kv, repository.RecordStoreOptions{})
	audit := &recordingAudit{}
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	return &testEnv{
		kv:         kv,
		store:      store,
		audit:      audit,
		cache:      cache,
		cacheRepo:  cacheRepo,
		users:      NewUserService(UserServiceParams{Store: store, Cache: cache, Audit: audit}),
		classrooms: NewClassroomService(ClassroomServiceParams{Store: store, Cache: cache, Audit: audit}),
		grades:     NewGradeService(GradeServiceParams{Store: store, Cache: cache, Audit: audit}),
		stats:      NewStatsService(store, cache, nil, zap.NewNop(), StatsServiceConfig{}),
	}
}

func (e *testEnv) register(t *testing.T, wallet, username string, role models.Role) *models.User {
	t.Helper()
	user, err := e.users.Register(context.Background(), wallet, RegisterRequest{Username: username, Role: role})
	require.NoError(t, err)
	return user
}

func (e *testEnv) admin(t *testing.T, wallet string) *models.User {
	t.Helper()
	require.NoError(t, e.users.EnsureAdmins(context.Background(), []string{wallet}))
	user, err := e.store.GetUser(context.Background(), wallet)
	require.NoError(t, err)
	require.NotNil(t, user)
	return user
}
