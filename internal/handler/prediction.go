package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"shieldmail/internal/classifier"
	"shieldmail/internal/models"
	"shieldmail/internal/store"
)

const (
	maxTextLength = 50000
	maxBatchSize  = 100
	defaultLimit  = 50
	maxLimit      = 500

	responseTruncateAt = 100
)

type PredictionHandler interface {
	Predict(c *gin.Context)
	BatchPredict(c *gin.Context)
	GetAll(c *gin.Context)
	GetByID(c *gin.Context)
	UpdateFeedback(c *gin.Context)
	Delete(c *gin.Context)
}

type predictionHandler struct {
	loader *classifier.Loader
	engine *classifier.Engine
	store  *store.Store
	logger *zap.Logger
}

func NewPredictionHandler(loader *classifier.Loader, engine *classifier.Engine, st *store.Store, logger *zap.Logger) PredictionHandler {
	return &predictionHandler{
		loader: loader,
		engine: engine,
		store:  st,
		logger: logger,
	}
}

type PredictRequest struct {
	Text string `json:"text" binding:"required"`
}

type BatchPredictRequest struct {
	Texts []string `json:"texts" binding:"required"`
}

type BatchPredictResponse struct {
	Predictions    []models.Prediction `json:"predictions"`
	TotalProcessed int                 `json:"total_processed"`
	TotalSpam      int                 `json:"total_spam"`
	TotalSafe      int                 `json:"total_safe"`
}

type UpdateFeedbackRequest struct {
	Feedback string `json:"feedback" binding:"required"`
}

// Predict handles POST /api/predict
func (h *predictionHandler) Predict(c *gin.Context) {
	if !h.loader.IsLoaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Model not loaded. Please train and save the model first."})
		return
	}

	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text cannot be empty"})
		return
	}
	if len([]rune(text)) > maxTextLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text must be at most 50000 characters"})
		return
	}

	prediction, err := h.runPrediction(text, "")
	if err != nil {
		h.respondPredictionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, prediction)
}

// BatchPredict handles POST /api/batch-predict
// Entries are trimmed and empty ones dropped before processing.
func (h *predictionHandler) BatchPredict(c *gin.Context) {
	if !h.loader.IsLoaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Model not loaded. Please train and save the model first."})
		return
	}

	var req BatchPredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Texts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Texts list cannot be empty"})
		return
	}
	if len(req.Texts) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Texts list must contain at most 100 entries"})
		return
	}

	texts := make([]string, 0, len(req.Texts))
	for _, t := range req.Texts {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			texts = append(texts, trimmed)
		}
	}

	predictions := make([]models.Prediction, 0, len(texts))
	totalSpam := 0
	totalSafe := 0
	for _, text := range texts {
		prediction, err := h.runPrediction(text, "")
		if err != nil {
			h.respondPredictionError(c, err)
			return
		}
		predictions = append(predictions, prediction)
		if prediction.IsSpam {
			totalSpam++
		} else {
			totalSafe++
		}
	}

	c.JSON(http.StatusOK, BatchPredictResponse{
		Predictions:    predictions,
		TotalProcessed: len(predictions),
		TotalSpam:      totalSpam,
		TotalSafe:      totalSafe,
	})
}

// runPrediction classifies a text, records the event, and returns the
// shaped response. The event is only stored when the engine succeeds.
func (h *predictionHandler) runPrediction(text, timestamp string) (models.Prediction, error) {
	result, err := h.engine.Predict(text)
	if err != nil {
		return models.Prediction{}, err
	}

	if timestamp == "" {
		timestamp = time.Now().Format(time.RFC3339)
	}

	prediction := models.Prediction{
		ID:              uuid.NewString(),
		Text:            text,
		IsSpam:          result.IsSpam,
		SpamProbability: result.SpamProbability,
		SafeProbability: result.SafeProbability,
		Timestamp:       timestamp,
		ModelMetadata:   h.engine.Metadata(),
	}
	h.store.Insert(prediction)

	prediction.Text = truncate(text)
	return prediction, nil
}

func (h *predictionHandler) respondPredictionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, classifier.ErrModelNotLoaded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Model not loaded. Please train and save the model first."})
	case errors.Is(err, classifier.ErrEmptyText), errors.Is(err, classifier.ErrPredictionFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Prediction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed"})
	}
}

// GetAll handles GET /api/predictions
// Query parameters:
// - limit: maximum number of predictions to return (default 50, max 500)
// - offset: number of predictions to skip (default 0)
func (h *predictionHandler) GetAll(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset parameter"})
		return
	}

	if limit < 0 {
		limit = 0
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	c.JSON(http.StatusOK, h.store.List(limit, offset))
}

// GetByID handles GET /api/predictions/:id
func (h *predictionHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	prediction, ok := h.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prediction with ID " + id + " not found"})
		return
	}

	c.JSON(http.StatusOK, prediction)
}

// UpdateFeedback handles PUT /api/predictions/:id
func (h *predictionHandler) UpdateFeedback(c *gin.Context) {
	id := c.Param("id")

	var req UpdateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.UpdateFeedback(id, req.Feedback); err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidFeedback):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Prediction with ID " + id + " not found"})
		default:
			h.logger.Error("Failed to update feedback", zap.String("prediction_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update prediction"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Prediction feedback updated successfully",
		"prediction_id": id,
		"feedback":      req.Feedback,
	})
}

// Delete handles DELETE /api/predictions/:id
func (h *predictionHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if !h.store.Delete(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prediction with ID " + id + " not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Prediction deleted successfully",
		"prediction_id": id,
	})
}

func truncate(text string) string {
	if runes := []rune(text); len(runes) > responseTruncateAt {
		return string(runes[:responseTruncateAt]) + "..."
	}
	return text
}
