package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/internal/service"
	"github.com/noah-isme/unigrading-api/pkg/response"
)

type sessionService interface {
	Connect(ctx context.Context, req models.ConnectRequest) (*models.SessionResponse, error)
}

// SessionHandler exposes wallet connection and introspection endpoints.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(svc sessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// Connect godoc
// @Summary Connect wallet
// @Description Issue a session token for a wallet address and report whether it is registered
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body models.ConnectRequest true "Wallet payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /session [post]
func (h *SessionHandler) Connect(c *gin.Context) {
	var req models.ConnectRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	res, err := h.service.Connect(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Current godoc
// @Summary Current session
// @Tags Session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) Current(c *gin.Context) {
	user := currentUser(c)
	response.JSON(c, http.StatusOK, models.CurrentSession{
		WalletAddress: currentWallet(c),
		Registered:    user != nil,
		User:          user,
	}, nil)
}

// Permissions godoc
// @Summary Caller permissions
// @Description List the permissions held by the caller's role
// @Tags Session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /session/permissions [get]
func (h *SessionHandler) Permissions(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		user = &models.User{WalletAddress: currentWallet(c)}
	}
	response.JSON(c, http.StatusOK, service.SummarisePermissions(*user), nil)
}
