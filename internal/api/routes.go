package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"alcyxob/health-tracker/internal/metrics"
	"alcyxob/health-tracker/internal/service"
)

// Deps is everything SetupRoutes needs.
type Deps struct {
	JWTSecret          string
	RateLimitPerSecond float64
	RateLimitBurst     int
	Log                logrus.FieldLogger

	Tracking  service.TrackingService
	Checklist service.ChecklistService
	Profiles  service.ProfileService
	Export    service.ExportService

	// Locks is optional; SetupRoutes creates one when nil.
	Locks *TenantLocks
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	foodHandler := NewFoodHandler(deps.Tracking)
	checklistHandler := NewChecklistHandler(deps.Checklist)
	profileHandler := NewProfileHandler(deps.Profiles, deps.Export)

	locks := deps.Locks
	if locks == nil {
		locks = NewTenantLocks()
	}
	limiter := NewRateLimiter(deps.RateLimitPerSecond, deps.RateLimitBurst)

	router.Use(RequestLogger(deps.Log))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(deps.JWTSecret), limiter.Middleware(), locks.Middleware())
	{
		protected.GET("/me", func(c *gin.Context) {
			tenantID, err := getTenantFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get tenant ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"tenantId": tenantID})
		})

		// --- Food Routes ---
		foodGroup := protected.Group("/food")
		{
			foodGroup.POST("/events", foodHandler.AddEvent)
			foodGroup.GET("/events", foodHandler.ListEvents)
			foodGroup.PUT("/events/:eventId", foodHandler.UpdateEvent)
			foodGroup.GET("/totals", foodHandler.Totals)
			foodGroup.GET("/log", foodHandler.ListLog)
			foodGroup.GET("/log/:date", foodHandler.GetLogRow)
			foodGroup.PATCH("/log/:date", foodHandler.UpsertLogRow)
			foodGroup.POST("/log/:date/rollup", foodHandler.Rollup)
			foodGroup.POST("/sync", foodHandler.Sync)
		}

		// --- Checklist Routes ---
		checklistGroup := protected.Group("/checklist")
		{
			checklistGroup.GET("/current", checklistHandler.CurrentWeek)
			checklistGroup.PATCH("/current/items", checklistHandler.ToggleItem)
			checklistGroup.PUT("/current/summary", checklistHandler.UpdateSummary)
			checklistGroup.GET("/archive", checklistHandler.Archive)
			checklistGroup.GET("/template", checklistHandler.GetTemplate)
			checklistGroup.PUT("/template", checklistHandler.SetTemplate)
			checklistGroup.POST("/template/apply", checklistHandler.ApplyTemplate)
		}

		// --- Profile, Rules and Export ---
		protected.GET("/profile", profileHandler.GetProfile)
		protected.PUT("/profile", profileHandler.PutProfile)
		protected.GET("/rules", profileHandler.GetRules)
		protected.PUT("/rules", profileHandler.PutRules)
		protected.POST("/export", profileHandler.Export)
	}
}
