package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shieldmail/internal/classifier"
)

const apiVersion = "1.0.0"

type SystemHandler interface {
	Root(c *gin.Context)
	Health(c *gin.Context)
	ModelInfo(c *gin.Context)
}

type systemHandler struct {
	loader *classifier.Loader
	logger *zap.Logger
}

func NewSystemHandler(loader *classifier.Loader, logger *zap.Logger) SystemHandler {
	return &systemHandler{
		loader: loader,
		logger: logger,
	}
}

// Root handles GET /
func (h *systemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to ShieldMail API",
		"version": apiVersion,
		"status":  "active",
		"endpoints": gin.H{
			"predict":           "POST /api/predict",
			"batch_predict":     "POST /api/batch-predict",
			"predictions":       "GET /api/predictions",
			"prediction_by_id":  "GET /api/predictions/{prediction_id}",
			"update_prediction": "PUT /api/predictions/{prediction_id}",
			"delete_prediction": "DELETE /api/predictions/{prediction_id}",
			"stats":             "GET /api/stats",
			"health":            "GET /api/health",
			"model_info":        "GET /api/model/info",
		},
	})
}

// Health handles GET /api/health
// A missing model is reported, not treated as a failure: the service runs
// degraded until an artifact is packaged and the process restarted.
func (h *systemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"model_loaded": h.loader.IsLoaded(),
		"timestamp":    time.Now().Format(time.RFC3339),
		"model_info":   h.loader.ModelInfo(),
	})
}

// ModelInfo handles GET /api/model/info
func (h *systemHandler) ModelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "active",
		"model_info": h.loader.ModelInfo(),
		"timestamp":  time.Now().Format(time.RFC3339),
	})
}
