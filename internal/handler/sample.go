package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"shieldmail/internal/classifier"
	"shieldmail/internal/models"
	"shieldmail/internal/store"
)

type SampleDataHandler interface {
	Generate(c *gin.Context)
}

type sampleDataHandler struct {
	loader *classifier.Loader
	engine *classifier.Engine
	store  *store.Store
	logger *zap.Logger
}

func NewSampleDataHandler(loader *classifier.Loader, engine *classifier.Engine, st *store.Store, logger *zap.Logger) SampleDataHandler {
	return &sampleDataHandler{
		loader: loader,
		engine: engine,
		store:  st,
		logger: logger,
	}
}

// sampleEntry is a fixed demo fixture: hand-chosen label, probability and
// timestamp, independent of what the model would actually predict.
type sampleEntry struct {
	text     string
	date     string // current-year date, filled in by samples()
	isSpam   bool
	spamProb float64
}

func samples(year int) []sampleEntry {
	return []sampleEntry{
		{
			text:     "Hello, I hope this email finds you well. I wanted to follow up on our previous discussion about the project timeline. Please let me know if you have any questions.",
			date:     fmt.Sprintf("%d-10-31T10:00:00", year),
			isSpam:   false,
			spamProb: 0.15,
		},
		{
			text:     "WINNER! You have been selected to receive a FREE prize! Click now to claim your $1000 cash reward! Limited time offer!",
			date:     fmt.Sprintf("%d-11-02T14:30:00", year),
			isSpam:   true,
			spamProb: 0.65,
		},
		{
			text:     "URGENT! Act now! Get rich quick! Make money fast! No investment required! Click here for instant cash!",
			date:     fmt.Sprintf("%d-11-03T09:15:00", year),
			isSpam:   true,
			spamProb: 0.70,
		},
		{
			text:     "Thank you for your email. I appreciate your time and consideration. I will review the documents and get back to you by the end of the week.",
			date:     fmt.Sprintf("%d-11-05T16:45:00", year),
			isSpam:   false,
			spamProb: 0.20,
		},
		{
			text:     "Congratulations! You won $5000! Claim your prize now! Free money! No strings attached! Click here immediately!",
			date:     fmt.Sprintf("%d-11-06T11:20:00", year),
			isSpam:   true,
			spamProb: 0.75,
		},
	}
}

// Generate handles POST /api/generate-sample-data
// Seeds exactly 5 predictions with fixed labels, probabilities and
// timestamps for UI testing. The model is still invoked on each text so
// seeding only works with a loaded artifact.
func (h *sampleDataHandler) Generate(c *gin.Context) {
	if !h.loader.IsLoaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Model not loaded. Please train and save the model first."})
		return
	}

	year := time.Now().Year()
	created := make([]models.Prediction, 0, 5)

	for _, sample := range samples(year) {
		if _, err := h.engine.Predict(sample.text); err != nil {
			h.logger.Error("Failed to generate sample data", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate sample data"})
			return
		}

		prediction := models.Prediction{
			ID:              uuid.NewString(),
			Text:            sample.text,
			IsSpam:          sample.isSpam,
			SpamProbability: sample.spamProb,
			SafeProbability: 1.0 - sample.spamProb,
			Timestamp:       sample.date,
			ModelMetadata:   h.engine.Metadata(),
		}
		h.store.Insert(prediction)

		prediction.Text = truncate(prediction.Text)
		created = append(created, prediction)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":             "Sample data generated successfully",
		"predictions_created": len(created),
		"predictions":         created,
	})
}
