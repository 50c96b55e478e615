package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unigrading-api/internal/dto"
	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/pkg/response"
)

type debugService interface {
	Snapshot(ctx context.Context) (*dto.StoreSnapshot, error)
	Clear(ctx context.Context, actor *models.User) (*dto.ClearResult, error)
	DeleteUserKey(ctx context.Context, actor *models.User, wallet string) (*dto.ClearResult, error)
}

// DebugHandler serves the administrator's store console.
type DebugHandler struct {
	service debugService
}

// NewDebugHandler constructs the handler.
func NewDebugHandler(svc debugService) *DebugHandler {
	return &DebugHandler{service: svc}
}

// Snapshot godoc
// @Summary Raw store contents
// @Tags Debug
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /debug/store [get]
func (h *DebugHandler) Snapshot(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

// Clear godoc
// @Summary Clear all data
// @Tags Debug
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /debug/store [delete]
func (h *DebugHandler) Clear(c *gin.Context) {
	result, err := h.service.Clear(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DeleteUser godoc
// @Summary Delete one user key
// @Description Remove user_<wallet> while keeping the users collection
// @Tags Debug
// @Produce json
// @Security BearerAuth
// @Param wallet path string true "Wallet address"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /debug/users/{wallet} [delete]
func (h *DebugHandler) DeleteUser(c *gin.Context) {
	result, err := h.service.DeleteUserKey(c.Request.Context(), currentUser(c), c.Param("wallet"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
