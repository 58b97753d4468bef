package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/service"
)

type ChecklistHandler struct {
	checklist service.ChecklistService
}

func NewChecklistHandler(checklist service.ChecklistService) *ChecklistHandler {
	return &ChecklistHandler{checklist: checklist}
}

// --- DTOs ---

type ToggleItemRequest struct {
	Category string  `json:"category" binding:"required"`
	Index    *int    `json:"index" binding:"required"`
	Checked  bool    `json:"checked"`
	Details  *string `json:"details"`
}

type SummaryRequest struct {
	Summary string `json:"summary"`
}

// CurrentWeek godoc
// @Summary Current workout week, rolled over when the calendar week changed
// @Tags Checklist
// @Router /checklist/current [get]
func (h *ChecklistHandler) CurrentWeek(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	week, err := h.checklist.EnsureCurrentWeek(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, week)
}

// ToggleItem godoc
// @Summary Check or uncheck an item of the current week
// @Tags Checklist
// @Param request body ToggleItemRequest true "Item"
// @Router /checklist/current/items [patch]
func (h *ChecklistHandler) ToggleItem(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	var req ToggleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	week, err := h.checklist.UpdateChecklistItem(c.Request.Context(), tenantID, req.Category, *req.Index, req.Checked, req.Details)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, week)
}

// UpdateSummary godoc
// @Summary Replace the current week's summary
// @Tags Checklist
// @Router /checklist/current/summary [put]
func (h *ChecklistHandler) UpdateSummary(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	var req SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	week, err := h.checklist.UpdateChecklistSummary(c.Request.Context(), tenantID, req.Summary)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, week)
}

// Archive godoc
// @Summary Archived weeks, newest first
// @Tags Checklist
// @Param limit query int false "max weeks"
// @Router /checklist/archive [get]
func (h *ChecklistHandler) Archive(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	weeks, err := h.checklist.ListArchivedWeeks(c.Request.Context(), tenantID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, weeks)
}

// GetTemplate godoc
// @Summary Effective checklist template
// @Tags Checklist
// @Router /checklist/template [get]
func (h *ChecklistHandler) GetTemplate(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	res, err := h.checklist.GetChecklistTemplate(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SetTemplate godoc
// @Summary Save the checklist template used by future weeks
// @Tags Checklist
// @Param apply query bool false "also reshape the current week"
// @Router /checklist/template [put]
func (h *ChecklistHandler) SetTemplate(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	apply, err := strconv.ParseBool(c.DefaultQuery("apply", "false"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "apply must be a boolean")
		return
	}
	var tpl domain.ChecklistTemplate
	if err := c.ShouldBindJSON(&tpl); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	saved, err := h.checklist.SetChecklistTemplate(c.Request.Context(), tenantID, tpl, apply)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// ApplyTemplate godoc
// @Summary Reshape the current week to the saved template
// @Tags Checklist
// @Router /checklist/template/apply [post]
func (h *ChecklistHandler) ApplyTemplate(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	week, err := h.checklist.ApplyTemplateToCurrentWeek(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, week)
}
