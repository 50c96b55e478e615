package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unigrading-api/internal/dto"
	"github.com/noah-isme/unigrading-api/pkg/response"
)

type statsService interface {
	Admin(ctx context.Context) (*dto.AdminMetrics, bool, error)
	Teacher(ctx context.Context, wallet string) (*dto.TeacherDashboard, bool, error)
	Student(ctx context.Context, wallet string) (*dto.StudentDashboard, bool, error)
}

// StatsHandler wires statistics to HTTP endpoints.
type StatsHandler struct {
	service statsService
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(svc statsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Admin godoc
// @Summary System metrics
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /stats/admin [get]
func (h *StatsHandler) Admin(c *gin.Context) {
	metrics, cacheHit, err := h.service.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, metrics, cacheHit)
}

// Teacher godoc
// @Summary Teacher dashboard
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /stats/teacher [get]
func (h *StatsHandler) Teacher(c *gin.Context) {
	dashboard, cacheHit, err := h.service.Teacher(c.Request.Context(), currentWallet(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, dashboard, cacheHit)
}

// Student godoc
// @Summary Student dashboard
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /stats/student [get]
func (h *StatsHandler) Student(c *gin.Context) {
	dashboard, cacheHit, err := h.service.Student(c.Request.Context(), currentWallet(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, dashboard, cacheHit)
}
