package api

import (
	"net/http"
	"time"

	"alcyxob/strength-tracker/internal/plan"
	"alcyxob/strength-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// PlanHandler serves the static program: days, exercises and the calendar.
type PlanHandler struct {
	workoutService service.WorkoutService // for the local date
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(workoutService service.WorkoutService) *PlanHandler {
	return &PlanHandler{workoutService: workoutService}
}

// --- DTOs for API (Data Transfer Objects) ---

// ExerciseResponse is one exercise of the program with its prescribed set count.
type ExerciseResponse struct {
	ID            string             `json:"id"`
	DayID         string             `json:"dayId"`
	Name          string             `json:"name"`
	TargetSets    string             `json:"sets"`
	SetCount      int                `json:"setCount"`
	Instructions  []plan.Instruction `json:"instructions"`
	IsSuperset    bool               `json:"isSuperset,omitempty"`
	SupersetGroup string             `json:"supersetGroup,omitempty"`
}

type DayResponse struct {
	ID        string             `json:"id"`
	DayName   string             `json:"dayName"`
	Focus     string             `json:"focus"`
	Exercises []ExerciseResponse `json:"exercises"`
}

// MapExerciseToResponse converts a plan.Exercise to ExerciseResponse DTO.
func MapExerciseToResponse(ex plan.Exercise, dayID string) ExerciseResponse {
	return ExerciseResponse{
		ID:            ex.ID,
		DayID:         dayID,
		Name:          ex.Name,
		TargetSets:    ex.TargetSets,
		SetCount:      ex.SetCount(),
		Instructions:  ex.Instructions,
		IsSuperset:    ex.IsSuperset,
		SupersetGroup: ex.SupersetGroup,
	}
}

func MapDayToResponse(day plan.Day) DayResponse {
	exercises := make([]ExerciseResponse, len(day.Exercises))
	for i, ex := range day.Exercises {
		exercises[i] = MapExerciseToResponse(ex, day.ID)
	}
	return DayResponse{ID: day.ID, DayName: day.DayName, Focus: day.Focus, Exercises: exercises}
}

// --- Handler Methods ---

// GetDays godoc
// @Summary List the training days
// @Tags Plan
// @Produce json
// @Security BearerAuth
// @Success 200 {array} DayResponse
// @Router /plan/days [get]
func (h *PlanHandler) GetDays(c *gin.Context) {
	days := plan.Days()
	out := make([]DayResponse, len(days))
	for i, day := range days {
		out[i] = MapDayToResponse(day)
	}
	c.JSON(http.StatusOK, out)
}

func (h *PlanHandler) GetDay(c *gin.Context) {
	day, ok := plan.LookupDay(c.Param("dayId"))
	if !ok {
		abortWithError(c, http.StatusNotFound, service.ErrInvalidDay.Error())
		return
	}
	c.JSON(http.StatusOK, MapDayToResponse(day))
}

func (h *PlanHandler) GetExercise(c *gin.Context) {
	ex, dayID, ok := plan.LookupExercise(c.Param("exerciseId"))
	if !ok {
		abortWithError(c, http.StatusNotFound, service.ErrUnknownExercise.Error())
		return
	}
	c.JSON(http.StatusOK, MapExerciseToResponse(ex, dayID))
}

// GetSchedule returns the 12-week calendar starting at the week of ?anchor=
// (today when absent).
func (h *PlanHandler) GetSchedule(c *gin.Context) {
	anchorStr := c.DefaultQuery("anchor", h.workoutService.Today())
	anchor, err := plan.ParseDate(anchorStr, time.UTC)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, service.ErrInvalidDate.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"anchor":   anchorStr,
		"schedule": plan.Schedule(anchor),
	})
}
