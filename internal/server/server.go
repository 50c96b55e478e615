package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/handler"
	"github.com/noah-isme/unigrading-api/internal/repository"
	"github.com/noah-isme/unigrading-api/internal/service"
	"github.com/noah-isme/unigrading-api/pkg/config"
)

// SessionIssuer is the JWT issuer claim.
const SessionIssuer = "unigrading-api"

// Server owns the services, the gin engine and their background workers.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	engine *gin.Engine
	http   *http.Server

	kv        repository.KVStore
	audit     *service.AuditService
	users     *service.UserService
	refresher *service.Refresher
	cancel    context.CancelFunc
}

// New wires every service on top of backend.
func New(cfg *config.Config, logger *zap.Logger, backend *Backend) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	store := repository.NewRecordStore(backend.KV, repository.RecordStoreOptions{
		WritePolicy: cfg.Store.WritePolicy,
		Observer:    metrics,
		Logger:      logger.Named("store"),
	})

	var cacheRepo service.CacheRepository
	if backend.Redis != nil {
		cacheRepo = repository.NewCacheRepository(backend.Redis, repository.DefaultCachePrefix, logger)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logger.Named("cache"), cfg.Stats.CacheEnabled && cacheRepo != nil)

	auditSvc := service.NewAuditService(service.AuditServiceConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
	}, logger)
	latency := service.NewLatency(cfg.Latency)

	sessions := service.NewSessionService(store, auditSvc, metrics, validate, logger.Named("session"), service.SessionConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     SessionIssuer,
	})
	authz := service.NewAuthorizationService(auditSvc, metrics, logger.Named("authz"))
	users := service.NewUserService(service.UserServiceParams{
		Store: store, Latency: latency, Cache: cacheSvc, Audit: auditSvc,
		Metrics: metrics, Validator: validate, Logger: logger.Named("users"),
	})
	classrooms := service.NewClassroomService(service.ClassroomServiceParams{
		Store: store, Latency: latency, Cache: cacheSvc, Audit: auditSvc,
		Metrics: metrics, Validator: validate, Logger: logger.Named("classrooms"),
	})
	grades := service.NewGradeService(service.GradeServiceParams{
		Store: store, Latency: latency, Cache: cacheSvc, Audit: auditSvc,
		Metrics: metrics, Validator: validate, Logger: logger.Named("grades"),
	})
	stats := service.NewStatsService(store, cacheSvc, metrics, logger.Named("stats"), service.StatsServiceConfig{
		CacheTTL:     cfg.Stats.CacheTTL,
		RecentWindow: cfg.Stats.RecentWindow,
	})
	exports := service.NewExportService(store, auditSvc, metrics, logger.Named("export"), nil, nil)
	debug := service.NewDebugService(store, cacheSvc, auditSvc, metrics, logger.Named("debug"))

	kv := backend.KV
	ready := func(ctx context.Context) error {
		_, err := kv.Keys(ctx)
		return err
	}

	engine := newRouter(cfg, logger, routes{
		metrics:    metrics,
		sessions:   sessions,
		authz:      authz,
		audit:      auditSvc,
		session:    handler.NewSessionHandler(sessions),
		user:       handler.NewUserHandler(users),
		classroom:  handler.NewClassroomHandler(classrooms),
		grade:      handler.NewGradeHandler(grades),
		stats:      handler.NewStatsHandler(stats),
		export:     handler.NewExportHandler(exports),
		debug:      handler.NewDebugHandler(debug),
		metricsAPI: handler.NewMetricsHandler(metrics, ready),
	})

	return &Server{
		cfg:       cfg,
		logger:    logger,
		engine:    engine,
		kv:        kv,
		audit:     auditSvc,
		users:     users,
		refresher: service.NewRefresher(stats, metrics, logger.Named("refresher"), cfg.Stats.RefreshInterval),
	}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start bootstraps configured admin wallets and launches the audit queue and stats refresher.
func (s *Server) Start(ctx context.Context) error {
	if err := s.users.EnsureAdmins(ctx, s.cfg.AdminWallets); err != nil {
		return fmt.Errorf("bootstrap admin wallets: %w", err)
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.audit.Start(runCtx)
	s.refresher.Start(runCtx)
	return nil
}

// ListenAndServe blocks serving HTTP on the configured port.
func (s *Server) ListenAndServe() error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("server starting", zap.String("addr", s.http.Addr), zap.String("env", s.cfg.Env))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.audit.Stop()
	return err
}
