package api

import (
	"net/http"

	"alcyxob/strength-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// EditorHandler exposes session editors: local state with debounced
// auto-save or an explicit save in edit mode.
type EditorHandler struct {
	editors *service.EditorRegistry
}

func NewEditorHandler(editors *service.EditorRegistry) *EditorHandler {
	return &EditorHandler{editors: editors}
}

// OpenEditor opens (or returns) the editor of a session. ?mode=autosave|edit;
// without it completed sessions open in edit mode.
func (h *EditorHandler) OpenEditor(c *gin.Context) {
	mode, err := service.ParseEditorMode(c.Query("mode"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	editor, err := h.editors.Open(c.Request.Context(), c.Param("id"), mode)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, editor.State())
}

func (h *EditorHandler) GetEditor(c *gin.Context) {
	editor, ok := h.editors.Get(c.Param("id"))
	if !ok {
		abortWithServiceError(c, service.ErrNoEditorFound)
		return
	}
	c.JSON(http.StatusOK, editor.State())
}

// SetExercise replaces the local sets of one exercise. The response is the
// editor state right after the edit; saving happens in the background.
func (h *EditorHandler) SetExercise(c *gin.Context) {
	editor, ok := h.editors.Get(c.Param("id"))
	if !ok {
		abortWithServiceError(c, service.ErrNoEditorFound)
		return
	}
	var req ExerciseProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if err := editor.SetExercise(c.Param("exerciseId"), service.SetsFromInput(req.Sets), req.Notes); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, editor.State())
}

// SaveChanges writes every changed exercise. Failures are listed per
// exercise; the ones that succeeded stay saved.
func (h *EditorHandler) SaveChanges(c *gin.Context) {
	editor, ok := h.editors.Get(c.Param("id"))
	if !ok {
		abortWithServiceError(c, service.ErrNoEditorFound)
		return
	}
	report, err := editor.SaveChanges(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

// Finish completes the workout (auto-save) or saves all changes (edit mode)
// and closes the editor when that worked.
func (h *EditorHandler) Finish(c *gin.Context) {
	sessionID := c.Param("id")
	editor, ok := h.editors.Get(sessionID)
	if !ok {
		abortWithServiceError(c, service.ErrNoEditorFound)
		return
	}
	report, err := editor.Finish(c.Request.Context())
	if err != nil {
		body := gin.H{"success": false, "error": err.Error()}
		if report != nil {
			body["report"] = report
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}
	h.editors.Close(sessionID)

	body := gin.H{"success": true}
	if report != nil {
		body["report"] = report
	}
	c.JSON(http.StatusOK, body)
}

// CloseEditor drops the editor. Edits still waiting for auto-save are lost.
func (h *EditorHandler) CloseEditor(c *gin.Context) {
	if !h.editors.Close(c.Param("id")) {
		abortWithServiceError(c, service.ErrNoEditorFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
