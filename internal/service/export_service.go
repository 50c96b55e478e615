package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/models"
	appErrors "github.com/noah-isme/unigrading-api/pkg/errors"
	"github.com/noah-isme/unigrading-api/pkg/export"
)

// Exportable datasets.
const (
	DatasetUsers      = "users"
	DatasetClassrooms = "classrooms"
	DatasetGrades     = "grades"
)

// ExportResult is a rendered export ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// ExportService renders collections as CSV or PDF downloads.
type ExportService struct {
	store     collectionReader
	renderers map[export.Format]export.Renderer
	audit     AuditSink
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(store collectionReader, audit AuditSink, metrics *MetricsService, logger *zap.Logger, csv, pdf export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		store:     store,
		renderers: map[export.Format]export.Renderer{export.FormatCSV: csv, export.FormatPDF: pdf},
		audit:     audit,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Export renders one dataset in the requested format.
func (s *ExportService) Export(ctx context.Context, actor *models.User, dataset, format string) (*ExportResult, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	dataset = strings.ToLower(strings.TrimSpace(dataset))

	snap, err := loadSnapshot(ctx, s.store, s.metrics, s.logger)
	if err != nil {
		return nil, err
	}

	var data export.Dataset
	switch dataset {
	case DatasetUsers:
		data = usersDataset(snap.users)
	case DatasetClassrooms:
		data = classroomsDataset(snap.classrooms)
	case DatasetGrades:
		data = gradesDataset(snap.grades)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "dataset must be users, classrooms or grades")
	}

	body, err := s.renderers[f].Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	now := s.now().UTC()
	result := &ExportResult{
		Filename:    fmt.Sprintf("unigrading-%s-%s.%s", dataset, now.Format("20060102-150405"), f),
		ContentType: f.ContentType(),
		Body:        body,
		Rows:        len(data.Rows),
	}

	if s.audit != nil && actor != nil {
		s.audit.Record(ctx, models.AuditEvent{
			Action:   models.AuditActionDataExport,
			Wallet:   actor.WalletAddress,
			Username: actor.Username,
			Role:     actor.Role,
			Resource: dataset + "." + string(f),
		})
	}
	s.logger.Info("data exported", zap.String("dataset", dataset), zap.String("format", string(f)), zap.Int("rows", result.Rows))
	return result, nil
}

func usersDataset(users []models.User) export.Dataset {
	rows := make([]map[string]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, map[string]string{
			"walletAddress": u.WalletAddress,
			"username":      u.Username,
			"role":          string(u.Role),
			"createdAt":     formatSeconds(u.CreatedAt),
			"isActive":      strconv.FormatBool(u.IsActive),
		})
	}
	return export.Dataset{
		Title:   "Users",
		Headers: []string{"walletAddress", "username", "role", "createdAt", "isActive"},
		Rows:    rows,
	}
}

func classroomsDataset(classrooms []models.Classroom) export.Dataset {
	rows := make([]map[string]string, 0, len(classrooms))
	for _, c := range classrooms {
		rows = append(rows, map[string]string{
			"id":          c.ID,
			"name":        c.Name,
			"course":      c.Course,
			"teacher":     c.Teacher,
			"teacherName": c.TeacherName,
			"students":    strconv.Itoa(len(c.Students)),
			"createdAt":   formatSeconds(c.CreatedAt),
		})
	}
	return export.Dataset{
		Title:   "Classrooms",
		Headers: []string{"id", "name", "course", "teacher", "teacherName", "students", "createdAt"},
		Rows:    rows,
	}
}

func gradesDataset(grades []models.Grade) export.Dataset {
	rows := make([]map[string]string, 0, len(grades))
	for _, g := range grades {
		rows = append(rows, map[string]string{
			"id":             g.ID,
			"studentWallet":  g.StudentWallet,
			"teacherName":    g.TeacherName,
			"assignmentName": g.AssignmentName,
			"grade":          strconv.Itoa(g.Grade),
			"maxGrade":       strconv.Itoa(g.MaxGrade),
			"percentage":     strconv.Itoa(g.Percentage),
			"timestamp":      time.UnixMilli(g.Timestamp).UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{
		Title:   "Grades",
		Headers: []string{"id", "studentWallet", "teacherName", "assignmentName", "grade", "maxGrade", "percentage", "timestamp"},
		Rows:    rows,
	}
}

func formatSeconds(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
