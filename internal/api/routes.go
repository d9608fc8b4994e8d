package api

import (
	"net/http"

	"alcyxob/strength-tracker/internal/metrics"
	"alcyxob/strength-tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles what the HTTP layer talks to.
type Services struct {
	Auth         service.AuthService
	Workouts     service.WorkoutService
	Editors      *service.EditorRegistry
	Measurements service.MeasurementService
	Transfer     service.TransferService
	Metrics      *metrics.Manager
	Gatherer     prometheus.Gatherer
}

// NewRouter builds a gin engine with logging, recovery and metrics middleware.
func NewRouter(svc Services) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())
	if svc.Metrics != nil {
		router.Use(RequestMetrics(svc.Metrics))
	}
	SetupRoutes(router, svc)
	return router
}

func SetupRoutes(router *gin.Engine, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	planHandler := NewPlanHandler(svc.Workouts)
	workoutHandler := NewWorkoutHandler(svc.Workouts)
	editorHandler := NewEditorHandler(svc.Editors)
	measurementHandler := NewMeasurementHandler(svc.Measurements)
	statsHandler := NewStatsHandler(svc.Workouts, svc.Measurements)
	transferHandler := NewTransferHandler(svc.Transfer)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if svc.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{})))
	}

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(svc.Auth))
	{
		protected.GET("/me", authHandler.Me)

		planGroup := protected.Group("/plan")
		{
			planGroup.GET("/days", planHandler.GetDays)
			planGroup.GET("/days/:dayId", planHandler.GetDay)
			planGroup.GET("/exercises/:exerciseId", planHandler.GetExercise)
			planGroup.GET("/schedule", planHandler.GetSchedule)
		}

		workoutGroup := protected.Group("/workouts")
		{
			workoutGroup.GET("", workoutHandler.ListWorkouts)
			workoutGroup.POST("", workoutHandler.CreateSession)
			workoutGroup.GET("/stream", workoutHandler.StreamWorkouts)
			workoutGroup.POST("/cleanup-duplicates", workoutHandler.CleanupDuplicates)
			workoutGroup.GET("/day/:dayId", workoutHandler.GetWorkoutForDate)
			workoutGroup.GET("/day/:dayId/latest", workoutHandler.GetLatestWorkout)

			workoutGroup.GET("/:id", workoutHandler.GetSession)
			workoutGroup.PUT("/:id/exercises/:exerciseId", workoutHandler.UpdateExerciseProgress)
			workoutGroup.POST("/:id/complete", workoutHandler.CompleteWorkout)

			// buffered editing with auto-save or explicit save
			workoutGroup.POST("/:id/editor", editorHandler.OpenEditor)
			workoutGroup.GET("/:id/editor", editorHandler.GetEditor)
			workoutGroup.PATCH("/:id/editor/exercises/:exerciseId", editorHandler.SetExercise)
			workoutGroup.POST("/:id/editor/save", editorHandler.SaveChanges)
			workoutGroup.POST("/:id/editor/finish", editorHandler.Finish)
			workoutGroup.DELETE("/:id/editor", editorHandler.CloseEditor)
		}

		measurementGroup := protected.Group("/measurements")
		{
			measurementGroup.GET("", measurementHandler.ListMeasurements)
			measurementGroup.POST("", measurementHandler.AddMeasurement)
			measurementGroup.GET("/latest", measurementHandler.GetLatest)
		}

		statsGroup := protected.Group("/stats")
		{
			statsGroup.GET("/summary", statsHandler.GetSummary)
			statsGroup.GET("/records", statsHandler.GetRecords)
		}

		protected.GET("/export", transferHandler.Export)
		protected.POST("/export/archive", transferHandler.ArchiveExport)
		protected.DELETE("/export/archive", transferHandler.DeleteArchive)
		protected.POST("/import", transferHandler.Import)
		protected.POST("/import/archive", transferHandler.ImportArchive)
	}
}
