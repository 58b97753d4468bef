package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/health-tracker/internal/service"
)

// ProfileHandler serves the opaque profile and rules blobs and snapshot exports.
type ProfileHandler struct {
	profiles service.ProfileService
	export   service.ExportService
}

func NewProfileHandler(profiles service.ProfileService, export service.ExportService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, export: export}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	h.getBlob(c, h.profiles.GetProfile)
}

func (h *ProfileHandler) PutProfile(c *gin.Context) {
	h.putBlob(c, h.profiles.SetProfile)
}

func (h *ProfileHandler) GetRules(c *gin.Context) {
	h.getBlob(c, h.profiles.GetRules)
}

func (h *ProfileHandler) PutRules(c *gin.Context) {
	h.putBlob(c, h.profiles.SetRules)
}

// Export godoc
// @Summary Export the tenant's dataset to object storage
// @Tags Export
// @Success 201 {object} service.SnapshotResult
// @Failure 503 {object} gin.H "Export storage not configured"
// @Router /export [post]
func (h *ProfileHandler) Export(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	res, err := h.export.ExportSnapshot(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *ProfileHandler) getBlob(c *gin.Context, get func(ctx context.Context, tenantID string) (json.RawMessage, error)) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	blob, err := get(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", blob)
}

func (h *ProfileHandler) putBlob(c *gin.Context, set func(ctx context.Context, tenantID string, blob json.RawMessage) error) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Unable to read request body")
		return
	}
	if err := set(c.Request.Context(), tenantID, json.RawMessage(body)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
