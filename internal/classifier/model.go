package classifier

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Matches the word tokenizer used when the vectorizer was fitted: runs of
// two or more word characters, case-folded.
var tokenPattern = regexp.MustCompile(`\w\w+`)

// tfidfNaiveBayes is the deserialized classifier artifact: a fitted TF-IDF
// vectorizer plus a two-class multinomial naive Bayes model, exported as
// plain parameters by the training pipeline. Class 0 is safe, class 1 is
// spam.
type tfidfNaiveBayes struct {
	ModelType      string         `json:"model_type"`
	Vocabulary     map[string]int `json:"vocabulary"`
	IDF            []float64      `json:"idf"`
	NgramMin       int            `json:"ngram_min"`
	NgramMax       int            `json:"ngram_max"`
	ClassLogPrior  []float64      `json:"class_log_prior"`
	FeatureLogProb [][]float64    `json:"feature_log_prob"`
}

// validate checks internal consistency after decoding. Dimension mismatches
// here mean a corrupt or truncated artifact file.
func (m *tfidfNaiveBayes) validate() error {
	if len(m.Vocabulary) == 0 {
		return fmt.Errorf("empty vocabulary")
	}
	if len(m.IDF) != len(m.Vocabulary) {
		return fmt.Errorf("idf length %d does not match vocabulary size %d", len(m.IDF), len(m.Vocabulary))
	}
	if len(m.ClassLogPrior) != 2 {
		return fmt.Errorf("expected 2 class priors, got %d", len(m.ClassLogPrior))
	}
	if len(m.FeatureLogProb) != 2 {
		return fmt.Errorf("expected 2 feature probability rows, got %d", len(m.FeatureLogProb))
	}
	for c, row := range m.FeatureLogProb {
		if len(row) != len(m.Vocabulary) {
			return fmt.Errorf("feature probability row %d has length %d, want %d", c, len(row), len(m.Vocabulary))
		}
	}
	for term, idx := range m.Vocabulary {
		if idx < 0 || idx >= len(m.IDF) {
			return fmt.Errorf("vocabulary term %q has out-of-range index %d", term, idx)
		}
	}
	if m.NgramMin == 0 {
		m.NgramMin = 1
	}
	if m.NgramMax == 0 {
		m.NgramMax = m.NgramMin
	}
	if m.NgramMax < m.NgramMin {
		return fmt.Errorf("invalid ngram range (%d, %d)", m.NgramMin, m.NgramMax)
	}
	return nil
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// transform maps text to an L2-normalized tf-idf vector over the artifact's
// vocabulary, stored sparsely as feature index -> weight.
func (m *tfidfNaiveBayes) transform(text string) map[int]float64 {
	tokens := tokenize(text)

	counts := make(map[int]int)
	for n := m.NgramMin; n <= m.NgramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			term := strings.Join(tokens[i:i+n], " ")
			if idx, ok := m.Vocabulary[term]; ok {
				counts[idx]++
			}
		}
	}

	vec := make(map[int]float64, len(counts))
	var sumSquares float64
	for idx, count := range counts {
		weight := float64(count) * m.IDF[idx]
		vec[idx] = weight
		sumSquares += weight * weight
	}
	if sumSquares > 0 {
		norm := math.Sqrt(sumSquares)
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}

// predictProba returns the class probability distribution [safe, spam] for
// a single text: naive Bayes log joint likelihood over the tf-idf features,
// normalized with a softmax.
func (m *tfidfNaiveBayes) predictProba(text string) ([2]float64, error) {
	vec := m.transform(text)

	var logJoint [2]float64
	for c := 0; c < 2; c++ {
		score := m.ClassLogPrior[c]
		for idx, weight := range vec {
			score += weight * m.FeatureLogProb[c][idx]
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return [2]float64{}, fmt.Errorf("degenerate class score for class %d", c)
		}
		logJoint[c] = score
	}

	maxScore := logJoint[0]
	if logJoint[1] > maxScore {
		maxScore = logJoint[1]
	}
	safe := math.Exp(logJoint[0] - maxScore)
	spam := math.Exp(logJoint[1] - maxScore)
	total := safe + spam

	return [2]float64{safe / total, spam / total}, nil
}
