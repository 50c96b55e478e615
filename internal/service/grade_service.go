package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/models"
	appErrors "github.com/noah-isme/unigrading-api/pkg/errors"
)

type gradeStore interface {
	Grades(ctx context.Context) ([]models.Grade, error)
	UpdateGrades(ctx context.Context, fn func([]models.Grade) ([]models.Grade, error)) error
}

// AssignGradeRequest is the grade assignment payload.
type AssignGradeRequest struct {
	StudentWallet  string `json:"studentWallet" validate:"required,max=128"`
	AssignmentName string `json:"assignmentName" validate:"required,max=128"`
	Grade          int    `json:"grade" validate:"gte=0"`
	MaxGrade       int    `json:"maxGrade" validate:"gt=0"`
}

// GradeFilter narrows a grade listing.
type GradeFilter struct {
	StudentWallet string
	Assignment    string
}

// GradeService records grades and lists them by role scope.
type GradeService struct {
	store     gradeStore
	latency   Latency
	cache     *CacheService
	audit     AuditSink
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// GradeServiceParams groups constructor dependencies.
type GradeServiceParams struct {
	Store     gradeStore
	Latency   Latency
	Cache     *CacheService
	Audit     AuditSink
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewGradeService constructs the grade service.
func NewGradeService(params GradeServiceParams) *GradeService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &GradeService{
		store:     params.Store,
		latency:   params.Latency,
		cache:     params.Cache,
		audit:     params.Audit,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Assign appends a grade authored by teacher. The student does not need to be enrolled in any of
// the teacher's classrooms.
func (s *GradeService) Assign(ctx context.Context, teacher *models.User, req AssignGradeRequest) (*models.Grade, error) {
	if teacher == nil {
		return nil, appErrors.ErrNotRegistered
	}
	req.StudentWallet = strings.TrimSpace(req.StudentWallet)
	req.AssignmentName = strings.TrimSpace(req.AssignmentName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "studentWallet and assignmentName are required, maxGrade must be positive")
	}
	if req.Grade > req.MaxGrade {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade cannot exceed maxGrade")
	}

	if err := waitOrCancel(ctx, s.latency, OpAssignGrade); err != nil {
		return nil, err
	}

	grade := models.Grade{
		ID:             s.newID(),
		StudentWallet:  req.StudentWallet,
		TeacherWallet:  teacher.WalletAddress,
		TeacherName:    teacher.Username,
		AssignmentName: req.AssignmentName,
		Grade:          req.Grade,
		MaxGrade:       req.MaxGrade,
		Percentage:     Percentage(req.Grade, req.MaxGrade),
		Timestamp:      s.now().UnixMilli(),
	}
	err := s.store.UpdateGrades(ctx, func(grades []models.Grade) ([]models.Grade, error) {
		return append(grades, grade), nil
	})
	if err != nil {
		return nil, writeError(err, "failed to save grade")
	}

	s.cache.Invalidate(ctx, statsCachePattern)
	if s.audit != nil {
		s.audit.Record(ctx, models.AuditEvent{
			Action:   models.AuditActionGradeAssign,
			Wallet:   teacher.WalletAddress,
			Username: teacher.Username,
			Role:     teacher.Role,
			Resource: grade.ID,
		})
	}
	s.logger.Info("grade assigned",
		zap.String("grade_id", grade.ID),
		zap.String("teacher", teacher.WalletAddress),
		zap.String("student", grade.StudentWallet),
	)
	return &grade, nil
}

// List returns the grades a student received. Other roles need view_all_grades; admins then see
// every grade and teachers the grades they authored.
func (s *GradeService) List(ctx context.Context, user *models.User, filter GradeFilter) ([]models.Grade, error) {
	if user == nil {
		return nil, appErrors.ErrNotRegistered
	}
	if user.Role != models.RoleStudent && !HasPermission(user.Role, models.PermViewAllGrades) {
		return nil, appErrors.ErrForbidden
	}
	grades, err := s.store.Grades(ctx)
	if grades, err = recoverCollection(grades, err, models.CollectionGrades, s.metrics, s.logger); err != nil {
		return nil, err
	}

	assignment := strings.ToLower(strings.TrimSpace(filter.Assignment))
	result := make([]models.Grade, 0, len(grades))
	for _, g := range grades {
		switch user.Role {
		case models.RoleAdmin:
		case models.RoleTeacher:
			if g.TeacherWallet != user.WalletAddress {
				continue
			}
		default:
			if g.StudentWallet != user.WalletAddress {
				continue
			}
		}
		if filter.StudentWallet != "" && g.StudentWallet != filter.StudentWallet {
			continue
		}
		if assignment != "" && !strings.Contains(strings.ToLower(g.AssignmentName), assignment) {
			continue
		}
		result = append(result, g)
	}
	return result, nil
}

// Percentage returns grade/max as a whole percentage, rounded half up.
func Percentage(grade, maxGrade int) int {
	if maxGrade <= 0 {
		return 0
	}
	return int(math.Round(float64(grade) / float64(maxGrade) * 100))
}
