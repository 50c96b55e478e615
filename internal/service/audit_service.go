package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/pkg/jobs"
)

// AuditSink receives audit events.
type AuditSink interface {
	Record(ctx context.Context, event models.AuditEvent)
}

// AuditServiceConfig sizes the delivery queue.
type AuditServiceConfig struct {
	Workers    int
	BufferSize int
}

// AuditService writes audit events to the structured log through a worker queue. Events are
// written inline when the queue is not running or is full, so none are dropped.
type AuditService struct {
	queue  *jobs.Queue[models.AuditEvent]
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditService constructs the audit service.
func NewAuditService(cfg AuditServiceConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AuditService{logger: logger.Named("audit"), now: time.Now}
	svc.queue = jobs.NewQueue("audit", svc.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return svc
}

// Start begins asynchronous delivery.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop flushes pending events and stops the workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record stamps and delivers an event.
func (s *AuditService) Record(ctx context.Context, event models.AuditEvent) {
	if s == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	job := jobs.Job[models.AuditEvent]{ID: event.ID, Payload: event}
	if err := s.queue.TryEnqueue(job); err != nil {
		_ = s.deliver(ctx, job)
	}
}

func (s *AuditService) deliver(_ context.Context, job jobs.Job[models.AuditEvent]) error {
	e := job.Payload
	s.logger.Info("audit event",
		zap.String("audit_id", e.ID),
		zap.String("action", e.Action),
		zap.String("wallet", e.Wallet),
		zap.String("username", e.Username),
		zap.String("role", string(e.Role)),
		zap.String("permission", e.Permission),
		zap.String("resource", e.Resource),
		zap.String("reason", e.Reason),
		zap.Time("created_at", e.CreatedAt),
	)
	return nil
}
