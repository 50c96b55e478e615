package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/dto"
	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/internal/stats"
	appErrors "github.com/noah-isme/unigrading-api/pkg/errors"
)

// statsCachePattern matches every cached statistics payload; writes invalidate it.
const statsCachePattern = "stats:*"

const (
	adminStatsKey         = "stats:admin"
	teacherStatsKeyFormat = "stats:teacher:%s"
	studentStatsKeyFormat = "stats:student:%s"
)

// StatsServiceConfig tunes statistics computation.
type StatsServiceConfig struct {
	CacheTTL     time.Duration
	RecentWindow time.Duration
}

// StatsService computes dashboard statistics with optional caching.
type StatsService struct {
	store   collectionReader
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     StatsServiceConfig
	now     func() time.Time
}

// NewStatsService constructs the statistics service.
func NewStatsService(store collectionReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg StatsServiceConfig) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = time.Duration(stats.DefaultRecentWindowMs) * time.Millisecond
	}
	return &StatsService{store: store, cache: cache, metrics: metrics, logger: logger, cfg: cfg, now: time.Now}
}

// Admin returns system-wide metrics. The bool reports a cache hit.
func (s *StatsService) Admin(ctx context.Context) (*dto.AdminMetrics, bool, error) {
	var cached dto.AdminMetrics
	if s.cache.Get(ctx, adminStatsKey, &cached) {
		return &cached, true, nil
	}
	snap, err := loadSnapshot(ctx, s.store, s.metrics, s.logger)
	if err != nil {
		return nil, false, err
	}
	metrics := s.composeAdmin(snap)
	s.cache.Set(ctx, adminStatsKey, metrics, s.cfg.CacheTTL)
	return metrics, false, nil
}

// Teacher returns the classroom and grading summary for one teacher wallet.
func (s *StatsService) Teacher(ctx context.Context, wallet string) (*dto.TeacherDashboard, bool, error) {
	if wallet == "" {
		return nil, false, appErrors.ErrNotConnected
	}
	key := fmt.Sprintf(teacherStatsKeyFormat, wallet)
	var cached dto.TeacherDashboard
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}
	snap, err := loadSnapshot(ctx, s.store, s.metrics, s.logger)
	if err != nil {
		return nil, false, err
	}
	dashboard := s.composeTeacher(snap, wallet)
	s.cache.Set(ctx, key, dashboard, s.cfg.CacheTTL)
	return dashboard, false, nil
}

// Student returns the grades, average and excellent count for one student wallet.
func (s *StatsService) Student(ctx context.Context, wallet string) (*dto.StudentDashboard, bool, error) {
	if wallet == "" {
		return nil, false, appErrors.ErrNotConnected
	}
	key := fmt.Sprintf(studentStatsKeyFormat, wallet)
	var cached dto.StudentDashboard
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}
	grades, err := s.store.Grades(ctx)
	if grades, err = recoverCollection(grades, err, models.CollectionGrades, s.metrics, s.logger); err != nil {
		return nil, false, err
	}
	dashboard := s.composeStudent(grades, wallet)
	s.cache.Set(ctx, key, dashboard, s.cfg.CacheTTL)
	return dashboard, false, nil
}

// Refresh recomputes the admin metrics, repopulates the cache and updates the collection gauges.
func (s *StatsService) Refresh(ctx context.Context) error {
	snap, err := loadSnapshot(ctx, s.store, s.metrics, s.logger)
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, statsCachePattern)
	s.cache.Set(ctx, adminStatsKey, s.composeAdmin(snap), s.cfg.CacheTTL)
	s.metrics.SetCollectionGauges(snap.users, len(snap.classrooms), len(snap.grades))
	return nil
}

func (s *StatsService) composeAdmin(snap snapshot) *dto.AdminMetrics {
	now := s.now()
	metrics := stats.AdminMetrics(snap.users, snap.classrooms, snap.grades, s.cfg.RecentWindow.Milliseconds(), now.UnixMilli())
	metrics.GeneratedAt = now.UTC()
	return &metrics
}

func (s *StatsService) composeTeacher(snap snapshot, wallet string) *dto.TeacherDashboard {
	owned := stats.ClassroomsOwnedBy(snap.classrooms, wallet)
	summaries := make([]dto.ClassroomSummary, 0, len(owned))
	for _, c := range owned {
		summaries = append(summaries, stats.ClassroomStats(c))
	}
	return &dto.TeacherDashboard{
		WalletAddress: wallet,
		Stats:         stats.TeacherStats(wallet, snap.classrooms, snap.grades),
		Classrooms:    summaries,
		GeneratedAt:   s.now().UTC(),
	}
}

func (s *StatsService) composeStudent(grades []models.Grade, wallet string) *dto.StudentDashboard {
	mine := stats.GradesForStudent(grades, wallet)
	decorated := make([]dto.StudentGrade, 0, len(mine))
	for _, g := range mine {
		decorated = append(decorated, dto.StudentGrade{Grade: g, Band: models.BandFor(g.Percentage)})
	}
	return &dto.StudentDashboard{
		WalletAddress:  wallet,
		Grades:         decorated,
		GradeCount:     len(mine),
		Average:        stats.StudentAverage(mine),
		ExcellentCount: stats.CountAtLeast(mine, stats.ExcellentThreshold),
		GeneratedAt:    s.now().UTC(),
	}
}
