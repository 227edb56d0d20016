package classifier

import (
	"errors"
	"fmt"
	"strings"

	"shieldmail/internal/models"
)

// metadataSource marks metadata as coming from the pre-packaged artifact
// rather than a freshly trained model.
const metadataSource = "prepackaged"

var (
	// ErrModelNotLoaded is returned when inference is requested while the
	// service is running degraded.
	ErrModelNotLoaded = errors.New("model is not loaded")

	// ErrEmptyText is returned for input that is empty after trimming.
	ErrEmptyText = errors.New("input text cannot be empty")

	// ErrPredictionFailed wraps unexpected failures inside the
	// transform-and-classify step.
	ErrPredictionFailed = errors.New("prediction failed")
)

// Result is the outcome of classifying a single text. The probabilities
// are whatever the artifact emits; the engine does not re-normalize them.
type Result struct {
	IsSpam          bool    `json:"is_spam"`
	SpamProbability float64 `json:"spam_probability"`
	SafeProbability float64 `json:"safe_probability"`
}

// Engine runs inference against the loaded artifact. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	loader *Loader
}

// NewEngine wraps the given artifact loader.
func NewEngine(loader *Loader) *Engine {
	return &Engine{loader: loader}
}

// Predict classifies a single text as spam or safe.
func (e *Engine) Predict(text string) (Result, error) {
	if !e.loader.IsLoaded() {
		return Result{}, ErrModelNotLoaded
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}

	probs, err := e.loader.model.predictProba(text)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrPredictionFailed, err)
	}

	return Result{
		IsSpam:          probs[1] > probs[0],
		SpamProbability: probs[1],
		SafeProbability: probs[0],
	}, nil
}

// Metadata returns the artifact metadata tagged with its provenance.
func (e *Engine) Metadata() models.ModelMetadata {
	meta := e.loader.Metadata()
	meta.Source = metadataSource
	return meta
}
