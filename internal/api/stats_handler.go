package api

import (
	"errors"
	"net/http"
	"time"

	"alcyxob/strength-tracker/internal/plan"
	"alcyxob/strength-tracker/internal/service"
	"alcyxob/strength-tracker/internal/stats"

	"github.com/gin-gonic/gin"
)

// StatsHandler computes the dashboard numbers on every request.
type StatsHandler struct {
	workoutService     service.WorkoutService
	measurementService service.MeasurementService
}

func NewStatsHandler(workoutService service.WorkoutService, measurementService service.MeasurementService) *StatsHandler {
	return &StatsHandler{workoutService: workoutService, measurementService: measurementService}
}

func (h *StatsHandler) GetSummary(c *gin.Context) {
	ctx := c.Request.Context()
	workouts, err := h.workoutService.Workouts(ctx)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	latest, err := h.measurementService.LatestMeasurement(ctx)
	if err != nil && !errors.Is(err, service.ErrNoMeasurements) {
		abortWithServiceError(c, err)
		return
	}

	today, err := plan.ParseDate(h.workoutService.Today(), time.UTC)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, stats.Summarize(workouts, latest, today))
}

// GetRecords returns personal records keyed by exercise id.
func (h *StatsHandler) GetRecords(c *gin.Context) {
	workouts, err := h.workoutService.Workouts(c.Request.Context())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	records := stats.PersonalRecords(workouts)
	if records == nil {
		records = map[string]stats.PersonalRecord{}
	}
	c.JSON(http.StatusOK, records)
}
