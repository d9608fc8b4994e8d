package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"alcyxob/strength-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

type TransferHandler struct {
	transferService service.TransferService
}

func NewTransferHandler(transferService service.TransferService) *TransferHandler {
	return &TransferHandler{transferService: transferService}
}

type ImportArchiveRequest struct {
	Key string `json:"key" binding:"required"`
}

// Export godoc
// @Summary Download every workout and measurement
// @Tags Transfer
// @Produce json
// @Security BearerAuth
// @Success 200 {file} file "JSON export"
// @Router /export [get]
func (h *TransferHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.transferService.WriteExport(c.Request.Context(), &buf); err != nil {
		abortWithServiceError(c, err)
		return
	}
	filename := fmt.Sprintf("strength-tracker-export-%s.json", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

func (h *TransferHandler) ArchiveExport(c *gin.Context) {
	result, err := h.transferService.ArchiveExport(c.Request.Context())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "archive": result})
}

// Import godoc
// @Summary Restore workouts and measurements from an export
// @Description The whole body is validated before anything is written; records are upserted by id.
// @Tags Transfer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} gin.H "Import report"
// @Failure 400 {object} gin.H "Malformed import file"
// @Failure 500 {object} gin.H "Some records failed to write"
// @Router /import [post]
func (h *TransferHandler) Import(c *gin.Context) {
	report, err := h.transferService.Import(c.Request.Context(), c.Request.Body)
	respondImport(c, report, err)
}

func (h *TransferHandler) ImportArchive(c *gin.Context) {
	var req ImportArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	report, err := h.transferService.ImportArchive(c.Request.Context(), req.Key)
	respondImport(c, report, err)
}

// DeleteArchive removes the stored export named by ?key=.
func (h *TransferHandler) DeleteArchive(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		abortWithError(c, http.StatusBadRequest, "Validation error: key is required")
		return
	}
	if err := h.transferService.DeleteArchive(c.Request.Context(), key); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "key": key})
}

func respondImport(c *gin.Context, report *service.ImportReport, err error) {
	if err != nil {
		if report == nil || errors.Is(err, service.ErrMalformedImport) {
			abortWithServiceError(c, err)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}
