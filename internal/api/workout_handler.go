package api

import (
	"io"
	"net/http"

	"alcyxob/strength-tracker/internal/domain"
	"alcyxob/strength-tracker/internal/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type WorkoutHandler struct {
	workoutService service.WorkoutService
}

func NewWorkoutHandler(workoutService service.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService}
}

// --- DTOs ---

type CreateSessionRequest struct {
	DayID string `json:"dayId" binding:"required"`
	Date  string `json:"date"` // YYYY-MM-DD, today when empty
}

// ExerciseProgressRequest carries one exercise's sets. Notes are stored only
// when the key is present.
type ExerciseProgressRequest struct {
	Sets  []domain.SetInput `json:"sets"`
	Notes *string           `json:"notes"`
}

// --- Handler Methods ---

func (h *WorkoutHandler) ListWorkouts(c *gin.Context) {
	workouts, err := h.workoutService.Workouts(c.Request.Context())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if workouts == nil {
		workouts = []domain.WorkoutSession{}
	}
	c.JSON(http.StatusOK, workouts)
}

// StreamWorkouts pushes the whole collection as a server-sent event on every change.
func (h *WorkoutHandler) StreamWorkouts(c *gin.Context) {
	updates := make(chan []domain.WorkoutSession, 1)
	unsubscribe := h.workoutService.Subscribe(func(sessions []domain.WorkoutSession) {
		// keep only the newest snapshot
		select {
		case <-updates:
		default:
		}
		updates <- sessions
	})
	defer unsubscribe()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case sessions := <-updates:
			if sessions == nil {
				sessions = []domain.WorkoutSession{}
			}
			c.SSEvent("workouts", sessions)
			return true
		}
	})
	log.Debug("workout stream closed")
}

// CreateSession godoc
// @Summary Start a workout session
// @Description Returns the existing session when one is already recorded for the day and date.
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session body CreateSessionRequest true "Training day and date"
// @Success 201 {object} gin.H "Session created"
// @Success 200 {object} gin.H "Existing session returned"
// @Failure 400 {object} gin.H "Invalid day or date"
// @Failure 403 {object} gin.H "Date is in the past"
// @Router /workouts [post]
func (h *WorkoutHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	session, created, err := h.workoutService.CreateSession(c.Request.Context(), req.DayID, req.Date)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"success": true, "created": created, "session": session})
}

func (h *WorkoutHandler) GetSession(c *gin.Context) {
	session, err := h.workoutService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetWorkoutForDate returns the preferred session for a day on ?date= (today when absent).
func (h *WorkoutHandler) GetWorkoutForDate(c *gin.Context) {
	session, err := h.workoutService.GetWorkoutForDate(c.Request.Context(), c.Param("dayId"), c.Query("date"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *WorkoutHandler) GetLatestWorkout(c *gin.Context) {
	session, err := h.workoutService.GetLatestWorkout(c.Request.Context(), c.Param("dayId"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// UpdateExerciseProgress writes one exercise straight to the store.
func (h *WorkoutHandler) UpdateExerciseProgress(c *gin.Context) {
	var req ExerciseProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	session, err := h.workoutService.UpdateExerciseProgress(c.Request.Context(), c.Param("id"), c.Param("exerciseId"), service.SetsFromInput(req.Sets), req.Notes)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": session})
}

func (h *WorkoutHandler) CompleteWorkout(c *gin.Context) {
	if err := h.workoutService.CompleteWorkout(c.Request.Context(), c.Param("id")); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CleanupDuplicates godoc
// @Summary Remove duplicate same-day sessions
// @Description Keeps the preferred session of every day and date and deletes the others.
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} gin.H "Number of deleted sessions"
// @Failure 500 {object} gin.H "Some deletions failed"
// @Router /workouts/cleanup-duplicates [post]
func (h *WorkoutHandler) CleanupDuplicates(c *gin.Context) {
	deleted, err := h.workoutService.CleanupDuplicateSessions(c.Request.Context())
	if err != nil {
		log.WithError(err).Errorf("duplicate cleanup finished with errors after %d deletions", deleted)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "deleted": deleted, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}
