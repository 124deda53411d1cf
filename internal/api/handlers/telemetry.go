package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/td/internal/telemetry"
	"github.com/your-org/td/pkg/dto"
)

type TelemetryHandler struct {
	calc      *telemetry.DegradationCalculator
	predictor *telemetry.Predictor
}

func NewTelemetryHandler(calc *telemetry.DegradationCalculator, predictor *telemetry.Predictor) *TelemetryHandler {
	return &TelemetryHandler{calc: calc, predictor: predictor}
}

// Degradation analyzes one stint of lap telemetry: fuel-corrected per-lap
// degradation plus an optimal pit lap estimate.
func (h *TelemetryHandler) Degradation(c *gin.Context) {
	var req dto.StintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.calc.Analyze(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Predict returns per-lap degradation predictions for a stint, from the
// regression model when one is loaded and a moving average otherwise.
func (h *TelemetryHandler) Predict(c *gin.Context) {
	var req dto.StintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.predictor.Predict(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
