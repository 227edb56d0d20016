package models

// ModelMetadata is the performance record exported alongside the trained
// classifier artifact. Source identifies where the metadata came from
// (a pre-packaged artifact vs. freshly trained).
type ModelMetadata struct {
	ModelType     string  `json:"model_type"`
	Accuracy      float64 `json:"accuracy"`
	Precision     float64 `json:"precision"`
	Recall        float64 `json:"recall"`
	F1Score       float64 `json:"f1_score"`
	NFeatures     int     `json:"n_features"`
	NTrainSamples int     `json:"n_train_samples"`
	NTestSamples  int     `json:"n_test_samples"`
	Source        string  `json:"source,omitempty"`
}

// Prediction represents a single recorded inference event.
// Feedback is the only field that may change after creation.
type Prediction struct {
	ID              string        `json:"prediction_id"`
	Text            string        `json:"text"`
	IsSpam          bool          `json:"is_spam"`
	SpamProbability float64       `json:"spam_probability"`
	SafeProbability float64       `json:"safe_probability"`
	Timestamp       string        `json:"timestamp"`
	ModelMetadata   ModelMetadata `json:"model_metadata"`
	Feedback        string        `json:"feedback,omitempty"`
}

// Stats summarizes the stored predictions. AccuracyFeedback is the
// percentage of feedback-annotated predictions marked "correct".
type Stats struct {
	TotalPredictions  int          `json:"total_predictions"`
	SpamCount         int          `json:"spam_count"`
	SafeCount         int          `json:"safe_count"`
	AccuracyFeedback  float64      `json:"accuracy_feedback"`
	RecentPredictions []Prediction `json:"recent_predictions"`
}
