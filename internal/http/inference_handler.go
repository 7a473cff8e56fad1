package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"glow-llm/internal/domain"
	"glow-llm/internal/service"
)

// InferenceHandler mantiene dependencias para los endpoints de inferencia.
type InferenceHandler struct {
	logger       *zap.Logger
	synthesisSvc *service.SynthesisService
}

func NewInferenceHandler(logger *zap.Logger, synthesisSvc *service.SynthesisService) *InferenceHandler {
	return &InferenceHandler{
		logger:       logger,
		synthesisSvc: synthesisSvc,
	}
}

// RunInference maneja POST /inference.
func (h *InferenceHandler) RunInference(c *gin.Context) {
	var profile domain.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		h.logger.Warn("invalid inference request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.synthesisSvc.RunInference(c.Request.Context(), profile)
	if err != nil {
		h.logger.Error("inference failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ModelAvailable maneja GET /model/available.
func (h *InferenceHandler) ModelAvailable(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"available": h.synthesisSvc.IsModelAvailable()})
}

// Health maneja GET /health.
func (h *InferenceHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
