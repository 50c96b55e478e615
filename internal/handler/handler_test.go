package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unigrading-api/internal/dto"
	"github.com/noah-isme/unigrading-api/internal/middleware"
	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/internal/service"
	appErrors "github.com/noah-isme/unigrading-api/pkg/errors"
	"github.com/noah-isme/unigrading-api/pkg/logger"
)

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Meta       map[string]interface{} `json:"meta"`
	Pagination *models.Pagination     `json:"pagination"`
	Error      *appErrors.Error       `json:"error"`
}

func newContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	return c, rec
}

func withUser(c *gin.Context, user *models.User) {
	c.Set(logger.WalletContextKey, user.WalletAddress)
	c.Set(middleware.ContextUserKey, user)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

type fakeSessionSrv struct {
	resp *models.SessionResponse
	err  error
	last models.ConnectRequest
}

func (f *fakeSessionSrv) Connect(_ context.Context, req models.ConnectRequest) (*models.SessionResponse, error) {
	f.last = req
	return f.resp, f.err
}

func TestSessionHandlerConnect(t *testing.T) {
	srv := &fakeSessionSrv{resp: &models.SessionResponse{AccessToken: "tok", WalletAddress: "W1"}}
	h := NewSessionHandler(srv)

	c, rec := newContext(http.MethodPost, "/session", `{"walletAddress":"W1"}`)
	h.Connect(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "W1", srv.last.WalletAddress)
	var resp models.SessionResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &resp))
	assert.Equal(t, "tok", resp.AccessToken)

	c, rec = newContext(http.MethodPost, "/session", `{`)
	h.Connect(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandlerCurrentAndPermissions(t *testing.T) {
	h := NewSessionHandler(&fakeSessionSrv{})

	c, rec := newContext(http.MethodGet, "/session", "")
	c.Set(logger.WalletContextKey, "W9")
	h.Current(c)
	var current models.CurrentSession
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &current))
	assert.Equal(t, "W9", current.WalletAddress)
	assert.False(t, current.Registered)

	c, rec = newContext(http.MethodGet, "/session/permissions", "")
	withUser(c, &models.User{WalletAddress: "T1", Username: "Ada", Role: models.RoleTeacher})
	h.Permissions(c)
	var summary models.PermissionSummary
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &summary))
	assert.Equal(t, "Classroom management access", summary.PermissionLevel)
	assert.Len(t, summary.Permissions, 4)

	c, rec = newContext(http.MethodGet, "/session/permissions", "")
	c.Set(logger.WalletContextKey, "W9")
	h.Permissions(c)
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &summary))
	assert.Empty(t, summary.Permissions)
}

type fakeUserSrv struct {
	registerWallet string
	registerReq    service.RegisterRequest
	registerErr    error
	filter         models.UserFilter
	detailErr      error
}

func (f *fakeUserSrv) Register(_ context.Context, wallet string, req service.RegisterRequest) (*models.User, error) {
	f.registerWallet, f.registerReq = wallet, req
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.User{WalletAddress: wallet, Username: req.Username, Role: req.Role}, nil
}

func (f *fakeUserSrv) List(_ context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	f.filter = filter
	return []models.User{{WalletAddress: "W1"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (f *fakeUserSrv) Detail(_ context.Context, wallet string) (*dto.UserDetail, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return &dto.UserDetail{User: models.User{WalletAddress: wallet}}, nil
}

func TestUserHandlerRegisterUsesConnectedWallet(t *testing.T) {
	srv := &fakeUserSrv{}
	h := NewUserHandler(srv)

	c, rec := newContext(http.MethodPost, "/users/register", `{"username":"Ada","role":"Teacher"}`)
	c.Set(logger.WalletContextKey, "W1")
	h.Register(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "W1", srv.registerWallet)
	assert.Equal(t, models.RoleTeacher, srv.registerReq.Role)
}

func TestUserHandlerRegisterDuplicate(t *testing.T) {
	h := NewUserHandler(&fakeUserSrv{registerErr: appErrors.ErrDuplicateRegistration})

	c, rec := newContext(http.MethodPost, "/users/register", `{"username":"Ada","role":"Teacher"}`)
	c.Set(logger.WalletContextKey, "W1")
	h.Register(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_REGISTRATION", decode(t, rec).Error.Code)
}

func TestUserHandlerListParsesFilter(t *testing.T) {
	srv := &fakeUserSrv{}
	h := NewUserHandler(srv)

	c, rec := newContext(http.MethodGet, "/users?page=2&page_size=5&role=teacher&search=ad", "")
	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.filter.Role)
	assert.Equal(t, models.RoleTeacher, *srv.filter.Role)
	assert.Equal(t, 2, srv.filter.Page)
	assert.Equal(t, 5, srv.filter.PageSize)
	assert.Equal(t, "ad", srv.filter.Search)
	assert.Equal(t, 1, decode(t, rec).Pagination.TotalCount)

	c, rec = newContext(http.MethodGet, "/users?role=dean", "")
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserHandlerDetailNotFound(t *testing.T) {
	h := NewUserHandler(&fakeUserSrv{detailErr: appErrors.Clone(appErrors.ErrNotFound, "user not found")})
	c, rec := newContext(http.MethodGet, "/users/missing", "")
	c.Params = gin.Params{{Key: "wallet", Value: "missing"}}
	h.Detail(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeClassroomSrv struct {
	actor       *models.User
	classroomID string
	createErr   error
}

func (f *fakeClassroomSrv) Create(_ context.Context, teacher *models.User, req service.CreateClassroomRequest) (*models.Classroom, error) {
	f.actor = teacher
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.Classroom{ID: "c1", Name: req.Name, Course: req.Course, Teacher: teacher.WalletAddress, Students: []models.StudentRef{}}, nil
}

func (f *fakeClassroomSrv) AddStudent(_ context.Context, actor *models.User, classroomID string, req service.AddStudentRequest) (*models.Classroom, error) {
	f.actor, f.classroomID = actor, classroomID
	return &models.Classroom{ID: classroomID, Students: []models.StudentRef{{Name: req.Name, Pubkey: req.Pubkey}}}, nil
}

func (f *fakeClassroomSrv) List(_ context.Context, user *models.User) ([]models.Classroom, error) {
	f.actor = user
	return []models.Classroom{}, nil
}

func TestClassroomHandlerCreate(t *testing.T) {
	srv := &fakeClassroomSrv{}
	h := NewClassroomHandler(srv)
	teacher := &models.User{WalletAddress: "W1", Username: "Ada", Role: models.RoleTeacher}

	c, rec := newContext(http.MethodPost, "/classrooms", `{"name":"Math 101","course":"Mathematics"}`)
	withUser(c, teacher)
	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, teacher, srv.actor)
	var classroom models.Classroom
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &classroom))
	assert.Equal(t, "W1", classroom.Teacher)
	assert.NotNil(t, classroom.Students)
}

func TestClassroomHandlerCreateDuplicate(t *testing.T) {
	h := NewClassroomHandler(&fakeClassroomSrv{createErr: appErrors.ErrDuplicateClassroom})
	c, rec := newContext(http.MethodPost, "/classrooms", `{"name":"Math 101","course":"Mathematics"}`)
	withUser(c, &models.User{WalletAddress: "W1", Role: models.RoleTeacher})
	h.Create(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestClassroomHandlerAddStudent(t *testing.T) {
	srv := &fakeClassroomSrv{}
	h := NewClassroomHandler(srv)
	c, rec := newContext(http.MethodPost, "/classrooms/c1/students", `{"name":"Sam","pubkey":"S1"}`)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	withUser(c, &models.User{WalletAddress: "W1", Role: models.RoleTeacher})
	h.AddStudent(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", srv.classroomID)
}

type fakeGradeSrv struct {
	req    service.AssignGradeRequest
	filter service.GradeFilter
	err    error
}

func (f *fakeGradeSrv) Assign(_ context.Context, teacher *models.User, req service.AssignGradeRequest) (*models.Grade, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Grade{ID: "g1", TeacherWallet: teacher.WalletAddress, Percentage: service.Percentage(req.Grade, req.MaxGrade)}, nil
}

func (f *fakeGradeSrv) List(_ context.Context, _ *models.User, filter service.GradeFilter) ([]models.Grade, error) {
	f.filter = filter
	return []models.Grade{}, nil
}

func TestGradeHandlerAssign(t *testing.T) {
	srv := &fakeGradeSrv{}
	h := NewGradeHandler(srv)
	c, rec := newContext(http.MethodPost, "/grades", `{"studentWallet":"W2","assignmentName":"Midterm","grade":85,"maxGrade":100}`)
	withUser(c, &models.User{WalletAddress: "W1", Role: models.RoleTeacher})
	h.Assign(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 85, srv.req.Grade)
	var grade models.Grade
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &grade))
	assert.Equal(t, 85, grade.Percentage)
}

func TestGradeHandlerAssignValidationError(t *testing.T) {
	h := NewGradeHandler(&fakeGradeSrv{err: appErrors.Clone(appErrors.ErrValidation, "grade cannot exceed maxGrade")})
	c, rec := newContext(http.MethodPost, "/grades", `{"studentWallet":"W2","assignmentName":"Quiz","grade":11,"maxGrade":10}`)
	withUser(c, &models.User{WalletAddress: "W1", Role: models.RoleTeacher})
	h.Assign(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "grade cannot exceed maxGrade", decode(t, rec).Error.Message)
}

func TestGradeHandlerListFilter(t *testing.T) {
	srv := &fakeGradeSrv{}
	h := NewGradeHandler(srv)
	c, rec := newContext(http.MethodGet, "/grades?student=W2&assignment=mid", "")
	withUser(c, &models.User{WalletAddress: "W1", Role: models.RoleTeacher})
	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.GradeFilter{StudentWallet: "W2", Assignment: "mid"}, srv.filter)
}

type fakeStatsSrv struct {
	wallet string
	hit    bool
}

func (f *fakeStatsSrv) Admin(context.Context) (*dto.AdminMetrics, bool, error) {
	return &dto.AdminMetrics{TotalUsers: 3}, f.hit, nil
}

func (f *fakeStatsSrv) Teacher(_ context.Context, wallet string) (*dto.TeacherDashboard, bool, error) {
	f.wallet = wallet
	return &dto.TeacherDashboard{WalletAddress: wallet}, f.hit, nil
}

func (f *fakeStatsSrv) Student(_ context.Context, wallet string) (*dto.StudentDashboard, bool, error) {
	f.wallet = wallet
	return &dto.StudentDashboard{WalletAddress: wallet, Average: 80}, f.hit, nil
}

func TestStatsHandlerAdminCacheMeta(t *testing.T) {
	h := NewStatsHandler(&fakeStatsSrv{hit: true})
	c, rec := newContext(http.MethodGet, "/stats/admin", "")
	h.Admin(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	var metrics dto.AdminMetrics
	require.NoError(t, json.Unmarshal(env.Data, &metrics))
	assert.Equal(t, 3, metrics.TotalUsers)
}

func TestStatsHandlerStudentUsesWallet(t *testing.T) {
	srv := &fakeStatsSrv{}
	h := NewStatsHandler(srv)
	c, rec := newContext(http.MethodGet, "/stats/student", "")
	c.Set(logger.WalletContextKey, "S1")
	h.Student(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "S1", srv.wallet)
	assert.Equal(t, false, decode(t, rec).Meta["cache_hit"])
}

type fakeExportSrv struct {
	dataset, format string
}

func (f *fakeExportSrv) Export(_ context.Context, _ *models.User, dataset, format string) (*service.ExportResult, error) {
	f.dataset, f.format = dataset, format
	return &service.ExportResult{Filename: "unigrading-users.csv", ContentType: "text/csv", Body: []byte("a,b\n")}, nil
}

func TestExportHandlerStreamsAttachment(t *testing.T) {
	srv := &fakeExportSrv{}
	h := NewExportHandler(srv)
	c, rec := newContext(http.MethodGet, "/export?dataset=users&format=csv", "")
	h.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "users", srv.dataset)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "unigrading-users.csv")
	assert.Equal(t, "a,b\n", rec.Body.String())
}

type fakeDebugSrv struct {
	wallet string
}

func (f *fakeDebugSrv) Snapshot(context.Context) (*dto.StoreSnapshot, error) {
	return &dto.StoreSnapshot{Entries: []models.StoreEntry{{Key: "all_users", Value: "[]", Size: 2}}, TotalSize: 2}, nil
}

func (f *fakeDebugSrv) Clear(context.Context, *models.User) (*dto.ClearResult, error) {
	return &dto.ClearResult{RemovedKeys: []string{"all_users"}}, nil
}

func (f *fakeDebugSrv) DeleteUserKey(_ context.Context, _ *models.User, wallet string) (*dto.ClearResult, error) {
	f.wallet = wallet
	return &dto.ClearResult{RemovedKeys: []string{models.UserKey(wallet)}}, nil
}

func TestDebugHandlerRoutes(t *testing.T) {
	srv := &fakeDebugSrv{}
	h := NewDebugHandler(srv)

	c, rec := newContext(http.MethodGet, "/debug/store", "")
	h.Snapshot(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	var snap dto.StoreSnapshot
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &snap))
	assert.Equal(t, 2, snap.TotalSize)

	c, rec = newContext(http.MethodDelete, "/debug/store", "")
	h.Clear(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodDelete, "/debug/users/W1", "")
	c.Params = gin.Params{{Key: "wallet", Value: "W1"}}
	h.DeleteUser(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "W1", srv.wallet)
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), func(context.Context) error { return assert.AnError })
	c, rec := newContext(http.MethodGet, "/ready", "")
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h = NewMetricsHandler(service.NewMetricsService(), nil)
	c, rec = newContext(http.MethodGet, "/ready", "")
	h.Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodGet, "/metrics", "")
	h.Prometheus(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutines_total")
}
