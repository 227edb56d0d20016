package classifier

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"shieldmail/internal/models"
)

// Loader owns the classifier artifact for the lifetime of the process.
// Load runs once at startup; a missing or unreadable artifact leaves the
// service degraded instead of failing it.
type Loader struct {
	modelPath    string
	metadataPath string
	logger       *zap.Logger

	model    *tfidfNaiveBayes
	metadata *models.ModelMetadata
}

// ModelInfo describes the loaded artifact for the model info endpoint.
type ModelInfo struct {
	IsLoaded  bool                 `json:"is_loaded"`
	ModelPath string               `json:"model_path,omitempty"`
	Metadata  models.ModelMetadata `json:"metadata"`
}

// NewLoader creates a loader for the artifact at modelPath with its
// metadata sidecar at metadataPath.
func NewLoader(modelPath, metadataPath string, logger *zap.Logger) *Loader {
	return &Loader{
		modelPath:    modelPath,
		metadataPath: metadataPath,
		logger:       logger,
	}
}

// Load reads the serialized model and its metadata sidecar. Every failure
// is soft: the loader stays unloaded, a warning is logged, and the caller
// keeps going. The artifact is immutable afterwards and never reloaded.
func (l *Loader) Load() {
	model, err := readModel(l.modelPath)
	if err != nil {
		l.logger.Warn("Model not loaded, service starting degraded",
			zap.String("path", l.modelPath),
			zap.Error(err))
		return
	}
	l.model = model

	meta, err := readMetadata(l.metadataPath)
	if err != nil {
		l.logger.Warn("Model metadata not available, using defaults",
			zap.String("path", l.metadataPath),
			zap.Error(err))
	} else {
		l.metadata = meta
	}

	l.logger.Info("Model loaded successfully",
		zap.String("path", l.modelPath),
		zap.String("model_type", model.ModelType))
}

func readModel(path string) (*tfidfNaiveBayes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	model := &tfidfNaiveBayes{}
	if err := json.Unmarshal(data, model); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if err := model.validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	return model, nil
}

func readMetadata(path string) (*models.ModelMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	meta := &models.ModelMetadata{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return meta, nil
}

// IsLoaded reports whether a usable model is present.
func (l *Loader) IsLoaded() bool {
	return l.model != nil
}

// Metadata returns the artifact's performance record, or an all-zero record
// tagged "Unknown" when no sidecar was found.
func (l *Loader) Metadata() models.ModelMetadata {
	if l.metadata == nil {
		return models.ModelMetadata{ModelType: "Unknown"}
	}
	return *l.metadata
}

// ModelInfo reports load status, artifact location and tagged metadata.
func (l *Loader) ModelInfo() ModelInfo {
	meta := l.Metadata()
	meta.Source = metadataSource

	info := ModelInfo{
		IsLoaded: l.IsLoaded(),
		Metadata: meta,
	}
	if l.IsLoaded() {
		info.ModelPath = l.modelPath
	}
	return info
}
