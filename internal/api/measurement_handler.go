package api

import (
	"net/http"

	"alcyxob/strength-tracker/internal/domain"
	"alcyxob/strength-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

type MeasurementHandler struct {
	measurementService service.MeasurementService
}

func NewMeasurementHandler(measurementService service.MeasurementService) *MeasurementHandler {
	return &MeasurementHandler{measurementService: measurementService}
}

// AddMeasurementRequest lists the optional fields of a measurement; the id is assigned.
type AddMeasurementRequest struct {
	Date       string   `json:"date"`
	Weight     *float64 `json:"weight"`
	ArmLeft    *float64 `json:"armLeft"`
	ArmRight   *float64 `json:"armRight"`
	Chest      *float64 `json:"chest"`
	Waist      *float64 `json:"waist"`
	Hips       *float64 `json:"hips"`
	ThighLeft  *float64 `json:"thighLeft"`
	ThighRight *float64 `json:"thighRight"`
	CalfLeft   *float64 `json:"calfLeft"`
	CalfRight  *float64 `json:"calfRight"`
}

func (h *MeasurementHandler) ListMeasurements(c *gin.Context) {
	all, err := h.measurementService.Measurements(c.Request.Context())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if all == nil {
		all = []domain.BodyMeasurement{}
	}
	c.JSON(http.StatusOK, all)
}

func (h *MeasurementHandler) AddMeasurement(c *gin.Context) {
	var req AddMeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	m, err := h.measurementService.AddMeasurement(c.Request.Context(), domain.BodyMeasurement{
		Date:       req.Date,
		Weight:     req.Weight,
		ArmLeft:    req.ArmLeft,
		ArmRight:   req.ArmRight,
		Chest:      req.Chest,
		Waist:      req.Waist,
		Hips:       req.Hips,
		ThighLeft:  req.ThighLeft,
		ThighRight: req.ThighRight,
		CalfLeft:   req.CalfLeft,
		CalfRight:  req.CalfRight,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "measurement": m})
}

func (h *MeasurementHandler) GetLatest(c *gin.Context) {
	m, err := h.measurementService.LatestMeasurement(c.Request.Context())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
