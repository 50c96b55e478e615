package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/internal/service"
	"github.com/noah-isme/unigrading-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, actor *models.User, dataset, format string) (*service.ExportResult, error)
}

// ExportHandler streams dataset downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Export dataset
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param dataset query string true "users, classrooms or grades"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	result, err := h.service.Export(c.Request.Context(), currentUser(c), c.Query("dataset"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}
