package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/health-tracker/internal/service"
)

// respondError maps service errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrExportDisabled):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	case service.IsBackend(err):
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Storage is unavailable, nothing was saved")
	default:
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}
