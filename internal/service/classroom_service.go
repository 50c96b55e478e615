package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/models"
	appErrors "github.com/noah-isme/unigrading-api/pkg/errors"
)

type classroomStore interface {
	Classrooms(ctx context.Context) ([]models.Classroom, error)
	UpdateClassrooms(ctx context.Context, fn func([]models.Classroom) ([]models.Classroom, error)) error
}

// CreateClassroomRequest is the classroom creation payload.
type CreateClassroomRequest struct {
	Name   string `json:"name" validate:"required,max=128"`
	Course string `json:"course" validate:"required,max=128"`
}

// AddStudentRequest enrolls a student by wallet key.
type AddStudentRequest struct {
	Name   string `json:"name" validate:"required,max=128"`
	Pubkey string `json:"pubkey" validate:"required,max=128"`
}

// ClassroomService manages classrooms and enrollment.
type ClassroomService struct {
	store     classroomStore
	latency   Latency
	cache     *CacheService
	audit     AuditSink
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// ClassroomServiceParams groups constructor dependencies.
type ClassroomServiceParams struct {
	Store     classroomStore
	Latency   Latency
	Cache     *CacheService
	Audit     AuditSink
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewClassroomService constructs the classroom service.
func NewClassroomService(params ClassroomServiceParams) *ClassroomService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &ClassroomService{
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

// Create adds a classroom owned by teacher. Names are unique per teacher, ignoring case.
func (s *ClassroomService) Create(ctx context.Context, teacher *models.User, req CreateClassroomRequest) (*models.Classroom, error) {
	if teacher == nil {
		return nil, appErrors.ErrNotRegistered
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can create classrooms")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Course = strings.TrimSpace(req.Course)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name and course are required")
	}

	existing, err := s.store.Classrooms(ctx)
	if existing, err = recoverCollection(existing, err, models.CollectionClassrooms, s.metrics, s.logger); err != nil {
		return nil, err
	}
	if nameTaken(existing, teacher.WalletAddress, req.Name) {
		return nil, appErrors.ErrDuplicateClassroom
	}

	if err := waitOrCancel(ctx, s.latency, OpCreateClassroom); err != nil {
		return nil, err
	}

	classroom := models.Classroom{
		ID:          s.newID(),
		Name:        req.Name,
		Course:      req.Course,
		Teacher:     teacher.WalletAddress,
		TeacherName: teacher.Username,
		Students:    []models.StudentRef{},
		CreatedAt:   s.now().Unix(),
	}
	err = s.store.UpdateClassrooms(ctx, func(classrooms []models.Classroom) ([]models.Classroom, error) {
		if nameTaken(classrooms, teacher.WalletAddress, req.Name) {
			return nil, appErrors.ErrDuplicateClassroom
		}
		return append(classrooms, classroom), nil
	})
	if err != nil {
		return nil, writeError(err, "failed to save classroom")
	}

	s.cache.Invalidate(ctx, statsCachePattern)
	s.record(ctx, teacher, models.AuditActionClassroomCreate, classroom.ID)
	s.logger.Info("classroom created", zap.String("classroom_id", classroom.ID), zap.String("teacher", teacher.WalletAddress))
	return &classroom, nil
}

// AddStudent appends a student to a classroom. Teachers may only enroll into classrooms they own;
// admins may enroll into any.
func (s *ClassroomService) AddStudent(ctx context.Context, actor *models.User, classroomID string, req AddStudentRequest) (*models.Classroom, error) {
	if actor == nil {
		return nil, appErrors.ErrNotRegistered
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Pubkey = strings.TrimSpace(req.Pubkey)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student name and pubkey are required")
	}

	classrooms, err := s.store.Classrooms(ctx)
	if classrooms, err = recoverCollection(classrooms, err, models.CollectionClassrooms, s.metrics, s.logger); err != nil {
		return nil, err
	}
	if _, err := checkEnrollment(classrooms, actor, classroomID, req.Pubkey); err != nil {
		return nil, err
	}

	if err := waitOrCancel(ctx, s.latency, OpAddStudent); err != nil {
		return nil, err
	}

	var updated models.Classroom
	err = s.store.UpdateClassrooms(ctx, func(classrooms []models.Classroom) ([]models.Classroom, error) {
		idx, err := checkEnrollment(classrooms, actor, classroomID, req.Pubkey)
		if err != nil {
			return nil, err
		}
		classrooms[idx].Students = append(classrooms[idx].Students, models.StudentRef{Name: req.Name, Pubkey: req.Pubkey})
		updated = classrooms[idx]
		return classrooms, nil
	})
	if err != nil {
		return nil, writeError(err, "failed to save classroom")
	}

	s.cache.Invalidate(ctx, statsCachePattern)
	s.record(ctx, actor, models.AuditActionStudentAdd, classroomID)
	return &updated, nil
}

// List returns all classrooms for admins and only owned classrooms for everyone else.
func (s *ClassroomService) List(ctx context.Context, user *models.User) ([]models.Classroom, error) {
	if user == nil {
		return nil, appErrors.ErrNotRegistered
	}
	classrooms, err := s.store.Classrooms(ctx)
	if classrooms, err = recoverCollection(classrooms, err, models.CollectionClassrooms, s.metrics, s.logger); err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin {
		return classrooms, nil
	}
	owned := make([]models.Classroom, 0)
	for _, c := range classrooms {
		if c.Teacher == user.WalletAddress {
			owned = append(owned, c)
		}
	}
	return owned, nil
}

func (s *ClassroomService) record(ctx context.Context, actor *models.User, action, resource string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, models.AuditEvent{Action: action, Wallet: actor.WalletAddress, Username: actor.Username, Role: actor.Role, Resource: resource})
}

func nameTaken(classrooms []models.Classroom, teacher, name string) bool {
	for _, c := range classrooms {
		if c.Teacher == teacher && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// checkEnrollment locates the classroom and verifies ownership and uniqueness of the student.
func checkEnrollment(classrooms []models.Classroom, actor *models.User, classroomID, pubkey string) (int, error) {
	for i, c := range classrooms {
		if c.ID != classroomID {
			continue
		}
		if actor.Role != models.RoleAdmin && c.Teacher != actor.WalletAddress {
			return -1, appErrors.Clone(appErrors.ErrForbidden, "classroom belongs to another teacher")
		}
		if c.HasStudent(pubkey) {
			return -1, appErrors.Clone(appErrors.ErrConflict, "student already enrolled")
		}
		return i, nil
	}
	return -1, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
}
