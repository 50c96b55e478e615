package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/internal/service"
	"github.com/noah-isme/unigrading-api/pkg/response"
)

type gradeService interface {
	Assign(ctx context.Context, teacher *models.User, req service.AssignGradeRequest) (*models.Grade, error)
	List(ctx context.Context, user *models.User, filter service.GradeFilter) ([]models.Grade, error)
}

// GradeHandler exposes grade endpoints.
type GradeHandler struct {
	service gradeService
}

// NewGradeHandler constructs a grade handler.
func NewGradeHandler(svc gradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// Assign godoc
// @Summary Assign grade
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.AssignGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Assign(c *gin.Context) {
	var req service.AssignGradeRequest
	if !bindJSON(c, &req, "invalid grade payload") {
		return
	}
	grade, err := h.service.Assign(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

// List godoc
// @Summary List grades
// @Description Admins see all grades, teachers those they assigned, students those they received
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param student query string false "Student wallet"
// @Param assignment query string false "Assignment name search"
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	filter := service.GradeFilter{StudentWallet: c.Query("student"), Assignment: c.Query("assignment")}
	grades, err := h.service.List(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}
