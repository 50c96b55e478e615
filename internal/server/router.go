package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/handler"
	"github.com/noah-isme/unigrading-api/internal/middleware"
	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/internal/service"
	"github.com/noah-isme/unigrading-api/pkg/config"
	"github.com/noah-isme/unigrading-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/unigrading-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/unigrading-api/pkg/middleware/requestid"
)

type routes struct {
	metrics  *service.MetricsService
	sessions *service.SessionService
	authz    *service.AuthorizationService
	audit    service.AuditSink

	session    *handler.SessionHandler
	user       *handler.UserHandler
	classroom  *handler.ClassroomHandler
	grade      *handler.GradeHandler
	stats      *handler.StatsHandler
	export     *handler.ExportHandler
	debug      *handler.DebugHandler
	metricsAPI *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routes) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(corsmiddleware.Options{AllowedOrigins: cfg.CORS.AllowedOrigins}))
	r.Use(middleware.Metrics(h.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.metricsAPI.Health)
	r.GET("/ready", h.metricsAPI.Ready)
	r.GET("/metrics", h.metricsAPI.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/session", h.session.Connect)

	connected := api.Group("", middleware.Session(h.sessions, logr))
	allow := func(perm models.Permission) gin.HandlerFunc {
		return middleware.RequirePermission(h.authz, perm)
	}

	connected.GET("/session", h.session.Current)
	connected.GET("/session/permissions", h.session.Permissions)

	users := connected.Group("/users")
	users.POST("/register", h.user.Register)
	users.GET("", allow(models.PermViewAllUsers), h.user.List)
	users.GET("/:wallet", allow(models.PermViewUserDetails), h.user.Detail)

	classrooms := connected.Group("/classrooms")
	classrooms.POST("", allow(models.PermManageClassrooms), h.classroom.Create)
	classrooms.GET("", allow(models.PermViewAllClassrooms), h.classroom.List)
	classrooms.POST("/:id/students", allow(models.PermManageClassrooms), h.classroom.AddStudent)

	grades := connected.Group("/grades")
	grades.POST("", allow(models.PermManageGrades), h.grade.Assign)
	grades.GET("", middleware.RequireRegistered(), h.grade.List)

	stats := connected.Group("/stats")
	stats.GET("/admin", allow(models.PermSystemAdministration), h.stats.Admin)
	stats.GET("/teacher", allow(models.PermManageClassrooms), h.stats.Teacher)
	stats.GET("/student", middleware.RequireRegistered(), h.stats.Student)

	connected.GET("/export", allow(models.PermExportData), h.export.Export)

	debug := connected.Group("/debug", allow(models.PermAccessDebugConsole))
	debug.GET("/store", middleware.Audit(h.audit, models.AuditActionDebugView), h.debug.Snapshot)
	debug.DELETE("/store", h.debug.Clear)
	debug.DELETE("/users/:wallet", h.debug.DeleteUser)

	return r
}
