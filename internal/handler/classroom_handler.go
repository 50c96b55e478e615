package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/internal/service"
	"github.com/noah-isme/unigrading-api/pkg/response"
)

type classroomService interface {
	Create(ctx context.Context, teacher *models.User, req service.CreateClassroomRequest) (*models.Classroom, error)
	AddStudent(ctx context.Context, actor *models.User, classroomID string, req service.AddStudentRequest) (*models.Classroom, error)
	List(ctx context.Context, user *models.User) ([]models.Classroom, error)
}

// ClassroomHandler manages classroom endpoints.
type ClassroomHandler struct {
	service classroomService
}

// NewClassroomHandler constructs a classroom handler.
func NewClassroomHandler(svc classroomService) *ClassroomHandler {
	return &ClassroomHandler{service: svc}
}

// Create godoc
// @Summary Create classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateClassroomRequest true "Classroom payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classrooms [post]
func (h *ClassroomHandler) Create(c *gin.Context) {
	var req service.CreateClassroomRequest
	if !bindJSON(c, &req, "invalid classroom payload") {
		return
	}
	classroom, err := h.service.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, classroom)
}

// List godoc
// @Summary List classrooms
// @Description Admins see every classroom, teachers only their own
// @Tags Classrooms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /classrooms [get]
func (h *ClassroomHandler) List(c *gin.Context) {
	classrooms, err := h.service.List(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classrooms, nil)
}

// AddStudent godoc
// @Summary Enroll student
// @Tags Classrooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Param payload body service.AddStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classrooms/{id}/students [post]
func (h *ClassroomHandler) AddStudent(c *gin.Context) {
	var req service.AddStudentRequest
	if !bindJSON(c, &req, "invalid student payload") {
		return
	}
	classroom, err := h.service.AddStudent(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classroom, nil)
}
