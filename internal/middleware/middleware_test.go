package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/internal/repository"
	"github.com/noah-isme/unigrading-api/internal/service"
)

type capturingSink struct {
	events []models.AuditEvent
}

func (s *capturingSink) Record(_ context.Context, e models.AuditEvent) {
	s.events = append(s.events, e)
}

type envelope struct {
	Data  map[string]interface{} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type fixture struct {
	store    *repository.RecordStore
	sessions *service.SessionService
	authz    *service.AuthorizationService
	sink     *capturingSink
	router   *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := repository.NewRecordStore(repository.NewMemoryStore(), repository.RecordStoreOptions{})
	sink := &capturingSink{}
	f := &fixture{
		store:    store,
		sessions: service.NewSessionService(store, nil, nil, nil, nil, service.SessionConfig{Secret: "secret", Expiration: time.Hour}),
		authz:    service.NewAuthorizationService(sink, nil, nil),
		sink:     sink,
	}

	r := gin.New()
	protected := r.Group("/", Session(f.sessions, nil))
	protected.GET("/whoami", func(c *gin.Context) {
		user := CurrentUser(c)
		body := gin.H{"wallet": CurrentWallet(c), "registered": user != nil}
		c.JSON(http.StatusOK, gin.H{"data": body})
	})
	protected.GET("/registered", RequireRegistered(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	protected.POST("/classrooms", RequirePermission(f.authz, models.PermManageClassrooms), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	protected.GET("/debug", RequirePermission(f.authz, models.PermAccessDebugConsole), Audit(sink, models.AuditActionDebugView), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	f.router = r
	return f
}

func (f *fixture) token(t *testing.T, wallet string) string {
	t.Helper()
	resp, err := f.sessions.Connect(context.Background(), models.ConnectRequest{WalletAddress: wallet})
	require.NoError(t, err)
	return resp.AccessToken
}

func (f *fixture) seed(t *testing.T, user models.User) {
	t.Helper()
	require.NoError(t, f.store.SetUsers(context.Background(), []models.User{user}))
	require.NoError(t, f.store.SetUser(context.Background(), user))
}

func (f *fixture) do(t *testing.T, method, path, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestSessionRequiresBearerToken(t *testing.T) {
	f := newFixture(t)

	w, env := f.do(t, http.MethodGet, "/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_CONNECTED", env.Error.Code)

	w, _ = f.do(t, http.MethodGet, "/whoami", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionUnregisteredWalletPassesThrough(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "W9")

	w, env := f.do(t, http.MethodGet, "/whoami", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "W9", env.Data["wallet"])
	assert.Equal(t, false, env.Data["registered"])

	w, env = f.do(t, http.MethodGet, "/registered", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "NOT_REGISTERED", env.Error.Code)
}

func TestRequirePermissionNotAuthenticated(t *testing.T) {
	f := newFixture(t)
	w, env := f.do(t, http.MethodPost, "/classrooms", f.token(t, "W9"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, models.ReasonNotAuthenticated, env.Error.Message)
}

func TestRequirePermissionInsufficient(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.User{WalletAddress: "S1", Username: "Sam", Role: models.RoleStudent, IsActive: true})

	w, env := f.do(t, http.MethodPost, "/classrooms", f.token(t, "S1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, models.ReasonInsufficientPermission, env.Error.Message)
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, models.AuditActionAccessDenied, f.sink.events[0].Action)
}

func TestRequirePermissionReadsRoleFromStore(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.User{WalletAddress: "T1", Username: "Ada", Role: models.RoleTeacher, IsActive: true})
	token := f.token(t, "T1")

	w, _ := f.do(t, http.MethodPost, "/classrooms", token)
	assert.Equal(t, http.StatusCreated, w.Code)

	f.seed(t, models.User{WalletAddress: "T1", Username: "Ada", Role: models.RoleStudent, IsActive: true})
	w, _ = f.do(t, http.MethodPost, "/classrooms", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuditRecordsSuccessfulPrivilegedReads(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.User{WalletAddress: "A1", Username: "Administrator", Role: models.RoleAdmin, IsActive: true})

	w, _ := f.do(t, http.MethodGet, "/debug", f.token(t, "A1"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, models.AuditActionDebugView, f.sink.events[0].Action)
	assert.Equal(t, "GET /debug", f.sink.events[0].Resource)
	assert.Equal(t, "A1", f.sink.events[0].Wallet)
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ResponseMeta(c))
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestMetricsLabelsUnmatchedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/users/:wallet", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/W1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/123", nil))

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	paths := map[string]bool{}
	for _, mf := range families {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "path" {
					paths[l.GetValue()] = true
				}
			}
		}
	}
	assert.True(t, paths["/users/:wallet"])
	assert.True(t, paths[unmatchedRoute])
	assert.False(t, paths["/nope/123"])
}
