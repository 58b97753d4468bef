package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/service"
)

type FoodHandler struct {
	tracking service.TrackingService
}

func NewFoodHandler(tracking service.TrackingService) *FoodHandler {
	return &FoodHandler{tracking: tracking}
}

// --- DTOs ---

type SyncRequest struct {
	Date         string `json:"date"`
	OnlyUnsynced *bool  `json:"only_unsynced"`
}

// AddEvent godoc
// @Summary Log a meal
// @Description Records a food event. Repeats with the same idempotency key, or identical payloads inside the dedupe window, return the existing event.
// @Tags Food
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body service.FoodEventInput true "Meal"
// @Success 201 {object} service.EventResult "Created"
// @Success 200 {object} service.EventResult "Existing event"
// @Failure 400 {object} gin.H "Validation error"
// @Failure 500 {object} gin.H "Storage error"
// @Router /food/events [post]
func (h *FoodHandler) AddEvent(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	var req service.FoodEventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	res, err := h.tracking.AddFoodEvent(c.Request.Context(), tenantID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if res.LogAction != domain.LogActionCreated {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

// UpdateEvent godoc
// @Summary Correct a logged meal
// @Tags Food
// @Router /food/events/{eventId} [put]
func (h *FoodHandler) UpdateEvent(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	var req service.FoodEventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	res, err := h.tracking.UpdateFoodEvent(c.Request.Context(), tenantID, c.Param("eventId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListEvents godoc
// @Summary List the meals of one date
// @Tags Food
// @Param date query string true "YYYY-MM-DD"
// @Router /food/events [get]
func (h *FoodHandler) ListEvents(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	events, err := h.tracking.GetFoodEventsForDate(c.Request.Context(), tenantID, c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Totals godoc
// @Summary Daily nutrient totals
// @Tags Food
// @Param date query string true "YYYY-MM-DD"
// @Router /food/totals [get]
func (h *FoodHandler) Totals(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	date := c.Query("date")
	totals, err := h.tracking.GetDailyTotals(c.Request.Context(), tenantID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "totals": totals})
}

// ListLog godoc
// @Summary List food log rows, newest first
// @Tags Food
// @Param from query string false "inclusive lower bound"
// @Param to query string false "inclusive upper bound"
// @Param limit query int false "max rows"
// @Router /food/log [get]
func (h *FoodHandler) ListLog(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	rows, err := h.tracking.ListFoodLog(c.Request.Context(), tenantID, service.FoodLogQuery{
		From:  c.Query("from"),
		To:    c.Query("to"),
		Limit: limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetLogRow godoc
// @Summary Food log row of one date
// @Tags Food
// @Router /food/log/{date} [get]
func (h *FoodHandler) GetLogRow(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	row, err := h.tracking.GetFoodLogRow(c.Request.Context(), tenantID, c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// UpsertLogRow godoc
// @Summary Edit weight or notes of a food log row
// @Tags Food
// @Param patch body service.FoodLogPatch true "Fields to change"
// @Router /food/log/{date} [patch]
func (h *FoodHandler) UpsertLogRow(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	var req service.FoodLogPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	row, err := h.tracking.UpsertFoodLogRow(c.Request.Context(), tenantID, c.Param("date"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// Rollup godoc
// @Summary Rebuild a food log row from its events
// @Tags Food
// @Param overwrite query bool false "replace an existing row"
// @Router /food/log/{date}/rollup [post]
func (h *FoodHandler) Rollup(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	overwrite, err := strconv.ParseBool(c.DefaultQuery("overwrite", "false"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "overwrite must be a boolean")
		return
	}
	res, err := h.tracking.RollupFromEvents(c.Request.Context(), tenantID, c.Param("date"), overwrite)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Sync godoc
// @Summary Re-synthesize rows fed by unsynced events
// @Tags Food
// @Param request body SyncRequest false "date and only_unsynced (default true)"
// @Router /food/sync [post]
func (h *FoodHandler) Sync(c *gin.Context) {
	tenantID, ok := tenantOrAbort(c)
	if !ok {
		return
	}
	var req SyncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}
	onlyUnsynced := true
	if req.OnlyUnsynced != nil {
		onlyUnsynced = *req.OnlyUnsynced
	}
	res, err := h.tracking.SyncEventsToFoodLog(c.Request.Context(), tenantID, req.Date, onlyUnsynced)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func tenantOrAbort(c *gin.Context) (string, bool) {
	tenantID, err := getTenantFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify tenant from token.")
		return "", false
	}
	return tenantID, true
}

func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return n, true
}
