package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shieldmail/internal/classifier"
	"shieldmail/internal/config"
	"shieldmail/internal/models"
	"shieldmail/internal/store"
)

// Serialized form of a tiny artifact: class 0 (safe) favours
// "meeting"/"project", class 1 (spam) favours "winner"/"free".
const testModelJSON = `{
	"model_type": "MultinomialNB",
	"vocabulary": {"winner": 0, "free": 1, "meeting": 2, "project": 3, "free money": 4},
	"idf": [1.2, 1.1, 1.3, 1.4, 1.5],
	"ngram_min": 1,
	"ngram_max": 2,
	"class_log_prior": [-0.693147180559945, -0.693147180559945],
	"feature_log_prob": [
		[-3.2, -3.0, -0.7, -0.9, -3.4],
		[-0.7, -0.8, -3.1, -3.3, -0.6]
	]
}`

const testMetadataJSON = `{
	"model_type": "MultinomialNB",
	"accuracy": 0.98,
	"precision": 0.97,
	"recall": 0.95,
	"f1_score": 0.96,
	"n_features": 5,
	"n_train_samples": 4000,
	"n_test_samples": 1000
}`

func newTestServer(t *testing.T, withModel bool) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	modelPath := filepath.Join(dir, "spam_detection_model.json")
	metaPath := filepath.Join(dir, "model_metadata.json")
	if withModel {
		require.NoError(t, os.WriteFile(modelPath, []byte(testModelJSON), 0o644))
		require.NoError(t, os.WriteFile(metaPath, []byte(testMetadataJSON), 0o644))
	}

	logger := zap.NewNop()
	loader := classifier.NewLoader(modelPath, metaPath, logger)
	loader.Load()
	require.Equal(t, withModel, loader.IsLoaded())

	cfg := &config.Config{}
	cfg.Server.Port = ":0"
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}

	return NewServer(loader, classifier.NewEngine(loader), store.New(), cfg, logger)
}

func doRequest(t *testing.T, s *Server, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out))
}

func TestRootEndpoint(t *testing.T) {
	s := newTestServer(t, true)

	rr := doRequest(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	decodeBody(t, rr, &body)
	assert.Equal(t, "Welcome to ShieldMail API", body["message"])
	assert.Equal(t, "active", body["status"])

	endpoints, ok := body["endpoints"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "POST /api/predict", endpoints["predict"])
	assert.Equal(t, "GET /api/stats", endpoints["stats"])
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		withModel bool
	}{
		{name: "model loaded", withModel: true},
		{name: "degraded", withModel: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.withModel)

			rr := doRequest(t, s, http.MethodGet, "/api/health", nil)
			assert.Equal(t, http.StatusOK, rr.Code)

			var body struct {
				Status      string               `json:"status"`
				ModelLoaded bool                 `json:"model_loaded"`
				Timestamp   string               `json:"timestamp"`
				ModelInfo   classifier.ModelInfo `json:"model_info"`
			}
			decodeBody(t, rr, &body)
			assert.Equal(t, "healthy", body.Status)
			assert.Equal(t, tt.withModel, body.ModelLoaded)
			assert.NotEmpty(t, body.Timestamp)
			assert.Equal(t, tt.withModel, body.ModelInfo.IsLoaded)
		})
	}
}

func TestModelInfoEndpoint(t *testing.T) {
	s := newTestServer(t, true)

	rr := doRequest(t, s, http.MethodGet, "/api/model/info", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Status    string               `json:"status"`
		ModelInfo classifier.ModelInfo `json:"model_info"`
	}
	decodeBody(t, rr, &body)
	assert.Equal(t, "active", body.Status)
	assert.True(t, body.ModelInfo.IsLoaded)
	assert.Equal(t, "MultinomialNB", body.ModelInfo.Metadata.ModelType)
	assert.Equal(t, "prepackaged", body.ModelInfo.Metadata.Source)
}

func TestPredictWithoutModel(t *testing.T) {
	s := newTestServer(t, false)

	rr := doRequest(t, s, http.MethodPost, "/api/predict", gin.H{"text": "hello there"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPredictValidation(t *testing.T) {
	s := newTestServer(t, true)

	tests := []struct {
		name    string
		payload any
	}{
		{name: "missing text", payload: gin.H{}},
		{name: "empty text", payload: gin.H{"text": ""}},
		{name: "whitespace only", payload: gin.H{"text": "   \n\t  "}},
		{name: "oversized text", payload: gin.H{"text": strings.Repeat("a", 50001)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, s, http.MethodPost, "/api/predict", tt.payload)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}

	// nothing was stored along the way
	stats := doRequest(t, s, http.MethodGet, "/api/stats", nil)
	var body models.Stats
	decodeBody(t, stats, &body)
	assert.Zero(t, body.TotalPredictions)
}

func TestPredictSpam(t *testing.T) {
	s := newTestServer(t, true)

	rr := doRequest(t, s, http.MethodPost, "/api/predict", gin.H{"text": "WINNER! Claim your free money now!"})
	require.Equal(t, http.StatusCreated, rr.Code)

	var p models.Prediction
	decodeBody(t, rr, &p)
	assert.NotEmpty(t, p.ID)
	assert.True(t, p.IsSpam)
	assert.InDelta(t, 1.0, p.SpamProbability+p.SafeProbability, 1e-9)
	assert.NotEmpty(t, p.Timestamp)
	assert.Equal(t, "MultinomialNB", p.ModelMetadata.ModelType)
	assert.Equal(t, "prepackaged", p.ModelMetadata.Source)

	// the created event is retrievable
	got := doRequest(t, s, http.MethodGet, "/api/predictions/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, got.Code)
}

func TestPredictTruncatesResponseText(t *testing.T) {
	s := newTestServer(t, true)

	longText := "meeting " + strings.Repeat("x", 150)
	rr := doRequest(t, s, http.MethodPost, "/api/predict", gin.H{"text": longText})
	require.Equal(t, http.StatusCreated, rr.Code)

	var p models.Prediction
	decodeBody(t, rr, &p)
	assert.Len(t, p.Text, 103)
	assert.True(t, strings.HasSuffix(p.Text, "..."))
}

func TestBatchPredict(t *testing.T) {
	s := newTestServer(t, true)

	payload := gin.H{"texts": []string{
		"WINNER! free money for you",
		"   ",
		"project meeting notes",
		"free winner prize",
	}}
	rr := doRequest(t, s, http.MethodPost, "/api/batch-predict", payload)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Predictions    []models.Prediction `json:"predictions"`
		TotalProcessed int                 `json:"total_processed"`
		TotalSpam      int                 `json:"total_spam"`
		TotalSafe      int                 `json:"total_safe"`
	}
	decodeBody(t, rr, &body)

	// the whitespace-only entry is dropped, not an error
	assert.Equal(t, 3, body.TotalProcessed)
	assert.Equal(t, 2, body.TotalSpam)
	assert.Equal(t, 1, body.TotalSafe)
	assert.Len(t, body.Predictions, 3)
}

func TestBatchPredictValidation(t *testing.T) {
	s := newTestServer(t, true)

	rr := doRequest(t, s, http.MethodPost, "/api/batch-predict", gin.H{"texts": []string{}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	tooMany := make([]string, 101)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("text %d", i)
	}
	rr = doRequest(t, s, http.MethodPost, "/api/batch-predict", gin.H{"texts": tooMany})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBatchPredictWithoutModel(t *testing.T) {
	s := newTestServer(t, false)

	rr := doRequest(t, s, http.MethodPost, "/api/batch-predict", gin.H{"texts": []string{"hello"}})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestListPredictions(t *testing.T) {
	s := newTestServer(t, true)

	for i := 0; i < 7; i++ {
		rr := doRequest(t, s, http.MethodPost, "/api/predict", gin.H{"text": fmt.Sprintf("meeting number %d", i)})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := doRequest(t, s, http.MethodGet, "/api/predictions?limit=3&offset=0", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var page []models.Prediction
	decodeBody(t, rr, &page)
	assert.Len(t, page, 3)

	rr = doRequest(t, s, http.MethodGet, "/api/predictions?limit=3&offset=6", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &page)
	assert.Len(t, page, 1)

	// defaults return everything up to 50
	rr = doRequest(t, s, http.MethodGet, "/api/predictions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &page)
	assert.Len(t, page, 7)

	rr = doRequest(t, s, http.MethodGet, "/api/predictions?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetPredictionNotFound(t *testing.T) {
	s := newTestServer(t, true)

	rr := doRequest(t, s, http.MethodGet, "/api/predictions/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateFeedback(t *testing.T) {
	s := newTestServer(t, true)

	created := doRequest(t, s, http.MethodPost, "/api/predict", gin.H{"text": "free money winner"})
	require.Equal(t, http.StatusCreated, created.Code)
	var p models.Prediction
	decodeBody(t, created, &p)

	rr := doRequest(t, s, http.MethodPut, "/api/predictions/"+p.ID, gin.H{"feedback": "correct"})
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	decodeBody(t, rr, &body)
	assert.Equal(t, p.ID, body["prediction_id"])
	assert.Equal(t, "correct", body["feedback"])

	got := doRequest(t, s, http.MethodGet, "/api/predictions/"+p.ID, nil)
	var updated models.Prediction
	decodeBody(t, got, &updated)
	assert.Equal(t, "correct", updated.Feedback)
}

func TestUpdateFeedbackValidation(t *testing.T) {
	s := newTestServer(t, true)

	created := doRequest(t, s, http.MethodPost, "/api/predict", gin.H{"text": "free money winner"})
	require.Equal(t, http.StatusCreated, created.Code)
	var p models.Prediction
	decodeBody(t, created, &p)

	rr := doRequest(t, s, http.MethodPut, "/api/predictions/"+p.ID, gin.H{"feedback": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, s, http.MethodPut, "/api/predictions/unknown-id", gin.H{"feedback": "correct"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeletePrediction(t *testing.T) {
	s := newTestServer(t, true)

	created := doRequest(t, s, http.MethodPost, "/api/predict", gin.H{"text": "project meeting"})
	require.Equal(t, http.StatusCreated, created.Code)
	var p models.Prediction
	decodeBody(t, created, &p)

	rr := doRequest(t, s, http.MethodDelete, "/api/predictions/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, s, http.MethodGet, "/api/predictions/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, s, http.MethodDelete, "/api/predictions/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t, true)

	ids := make([]string, 0, 3)
	for _, text := range []string{"winner free money", "project meeting", "free winner prize"} {
		rr := doRequest(t, s, http.MethodPost, "/api/predict", gin.H{"text": text})
		require.Equal(t, http.StatusCreated, rr.Code)
		var p models.Prediction
		decodeBody(t, rr, &p)
		ids = append(ids, p.ID)
	}

	rr := doRequest(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var stats models.Stats
	decodeBody(t, rr, &stats)
	assert.Equal(t, 3, stats.TotalPredictions)
	assert.Equal(t, 2, stats.SpamCount)
	assert.Equal(t, 1, stats.SafeCount)
	assert.Equal(t, 0.0, stats.AccuracyFeedback)
	assert.Len(t, stats.RecentPredictions, 3)

	doRequest(t, s, http.MethodPut, "/api/predictions/"+ids[0], gin.H{"feedback": "correct"})
	decodeBody(t, doRequest(t, s, http.MethodGet, "/api/stats", nil), &stats)
	assert.Equal(t, 100.0, stats.AccuracyFeedback)

	doRequest(t, s, http.MethodPut, "/api/predictions/"+ids[1], gin.H{"feedback": "incorrect"})
	decodeBody(t, doRequest(t, s, http.MethodGet, "/api/stats", nil), &stats)
	assert.Equal(t, 50.0, stats.AccuracyFeedback)
}

func TestGenerateSampleData(t *testing.T) {
	s := newTestServer(t, true)

	rr := doRequest(t, s, http.MethodPost, "/api/generate-sample-data", nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	var body struct {
		Message            string              `json:"message"`
		PredictionsCreated int                 `json:"predictions_created"`
		Predictions        []models.Prediction `json:"predictions"`
	}
	decodeBody(t, rr, &body)
	assert.Equal(t, 5, body.PredictionsCreated)
	require.Len(t, body.Predictions, 5)

	wantSpamProbs := []float64{0.15, 0.65, 0.70, 0.20, 0.75}
	wantIsSpam := []bool{false, true, true, false, true}
	year := fmt.Sprintf("%d-", time.Now().Year())
	for i, p := range body.Predictions {
		assert.InDelta(t, wantSpamProbs[i], p.SpamProbability, 1e-9)
		assert.InDelta(t, 1.0-wantSpamProbs[i], p.SafeProbability, 1e-9)
		assert.Equal(t, wantIsSpam[i], p.IsSpam)
		assert.True(t, strings.HasPrefix(p.Timestamp, year))
	}

	var stats models.Stats
	decodeBody(t, doRequest(t, s, http.MethodGet, "/api/stats", nil), &stats)
	assert.Equal(t, 5, stats.TotalPredictions)
	assert.Equal(t, 3, stats.SpamCount)
	assert.Equal(t, 2, stats.SafeCount)
}

func TestGenerateSampleDataWithoutModel(t *testing.T) {
	s := newTestServer(t, false)

	rr := doRequest(t, s, http.MethodPost, "/api/generate-sample-data", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
