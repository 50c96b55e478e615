package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unigrading-api/internal/middleware"
	"github.com/noah-isme/unigrading-api/internal/models"
	appErrors "github.com/noah-isme/unigrading-api/pkg/errors"
	"github.com/noah-isme/unigrading-api/pkg/response"
)

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func currentWallet(c *gin.Context) string {
	return middleware.CurrentWallet(c)
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func respondCached(c *gin.Context, data interface{}, cacheHit bool) {
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, data, nil, middleware.ResponseMeta(c))
}
