package store

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"shieldmail/internal/models"
)

// truncateAt is the maximum text length returned from read operations.
const truncateAt = 100

var (
	// ErrNotFound is returned for operations on unknown prediction IDs.
	ErrNotFound = errors.New("prediction not found")

	// ErrInvalidFeedback is returned when feedback is neither "correct"
	// nor "incorrect".
	ErrInvalidFeedback = errors.New("feedback must be 'correct' or 'incorrect'")
)

// record pairs a stored prediction with its insertion sequence number,
// used to break ordering ties between equal timestamps.
type record struct {
	models.Prediction
	seq uint64
}

// Store is an in-memory collection of predictions keyed by ID. It lives
// for the process lifetime only; nothing survives a restart. All
// operations serialize on a single mutex.
type Store struct {
	mu          sync.Mutex
	predictions map[string]*record
	seq         uint64
}

// New creates an empty prediction store.
func New() *Store {
	return &Store{
		predictions: make(map[string]*record),
	}
}

// Insert stores a new prediction. The caller guarantees the ID is fresh;
// an empty timestamp defaults to the current time.
func (s *Store) Insert(p models.Prediction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Timestamp == "" {
		p.Timestamp = time.Now().Format(time.RFC3339)
	}
	s.seq++
	s.predictions[p.ID] = &record{Prediction: p, seq: s.seq}
}

// Get returns the prediction with the given ID, with its text truncated
// for response shaping.
func (s *Store) Get(id string) (models.Prediction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.predictions[id]
	if !ok {
		return models.Prediction{}, false
	}
	return shaped(rec), true
}

// List returns predictions sorted newest first, skipping offset entries
// and returning at most limit. Clamping of limit and offset is the
// caller's responsibility.
func (s *Store) List(limit, offset int) []models.Prediction {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.page(limit, offset)
}

// page assumes the lock is held.
func (s *Store) page(limit, offset int) []models.Prediction {
	sorted := make([]*record, 0, len(s.predictions))
	for _, rec := range s.predictions {
		sorted = append(sorted, rec)
	}
	// RFC 3339 timestamps order lexically; equal timestamps fall back to
	// last-inserted-first. The tie order is not part of the API contract.
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Timestamp != sorted[j].Timestamp {
			return sorted[i].Timestamp > sorted[j].Timestamp
		}
		return sorted[i].seq > sorted[j].seq
	})

	if offset >= len(sorted) {
		return []models.Prediction{}
	}
	sorted = sorted[offset:]
	if limit < len(sorted) {
		sorted = sorted[:limit]
	}

	results := make([]models.Prediction, 0, len(sorted))
	for _, rec := range sorted {
		results = append(results, shaped(rec))
	}
	return results
}

// UpdateFeedback overwrites the feedback field of an existing prediction.
// Repeated calls overwrite; no history is kept.
func (s *Store) UpdateFeedback(id, feedback string) error {
	if feedback != "correct" && feedback != "incorrect" {
		return ErrInvalidFeedback
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.predictions[id]
	if !ok {
		return ErrNotFound
	}
	rec.Feedback = feedback
	return nil
}

// Delete removes a prediction, reporting whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.predictions[id]; !ok {
		return false
	}
	delete(s.predictions, id)
	return true
}

// Stats computes aggregate statistics over all stored predictions.
func (s *Store) Stats() models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.predictions)
	spamCount := 0
	correctCount := 0
	feedbackCount := 0
	for _, rec := range s.predictions {
		if rec.IsSpam {
			spamCount++
		}
		if rec.Feedback != "" {
			feedbackCount++
			if rec.Feedback == "correct" {
				correctCount++
			}
		}
	}

	accuracy := 0.0
	if feedbackCount > 0 {
		accuracy = float64(correctCount) / float64(feedbackCount) * 100
		accuracy = math.Round(accuracy*100) / 100
	}

	return models.Stats{
		TotalPredictions:  total,
		SpamCount:         spamCount,
		SafeCount:         total - spamCount,
		AccuracyFeedback:  accuracy,
		RecentPredictions: s.page(10, 0),
	}
}

// shaped copies a record for returning to callers, truncating long text.
func shaped(rec *record) models.Prediction {
	p := rec.Prediction
	if runes := []rune(p.Text); len(runes) > truncateAt {
		p.Text = string(runes[:truncateAt]) + "..."
	}
	return p
}
