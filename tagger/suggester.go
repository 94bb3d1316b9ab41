package tagger

import (
	"log"
	"sort"
	"sync"
)

// Suggester recommends tags for a segment based on lexical similarity to
// previously tagged segments. It is rebuilt from scratch on every Train call;
// there is no incremental update.
type Suggester struct {
	mu         sync.RWMutex
	vectorizer *Vectorizer
	index      *InMemoryIndex
	trained    int

	topK          int
	simThreshold  float64
	autoThreshold float64
	maxFeatures   int

	logger *log.Logger
}

// NewSuggester constructs an untrained suggester.
func NewSuggester(cfg Config, logger *log.Logger) *Suggester {
	cfg.ApplyDefaults()
	return &Suggester{
		index:         NewInMemoryIndex(),
		topK:          cfg.TopK,
		simThreshold:  cfg.SimilarityThreshold,
		autoThreshold: cfg.AutoSelectThreshold,
		maxFeatures:   cfg.MaxFeatures,
		logger:        logger,
	}
}

// Train rebuilds the vocabulary and similarity index from examples. An empty
// example list leaves the suggester untrained.
func (s *Suggester) Train(examples []TaggedSegment) {
	if len(examples) == 0 {
		return
	}
	vectorizer := newVectorizer(s.maxFeatures)
	texts := make([]string, len(examples))
	for i, ex := range examples {
		texts[i] = ex.Text
	}
	vectorizer.Fit(texts)

	items := make([]VectorItem, len(examples))
	for i, ex := range examples {
		items[i] = VectorItem{
			Tags:   append([]string(nil), ex.Tags...),
			Vector: vectorizer.Transform(ex.Text),
		}
	}

	s.mu.Lock()
	s.vectorizer = vectorizer
	s.index.Replace(items)
	s.trained = len(examples)
	s.mu.Unlock()
	s.logf("trained tag suggester on %d segments", len(examples))
}

// TrainedCount returns how many examples the current model was built from.
func (s *Suggester) TrainedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trained
}

// Suggest returns up to topK ranked tag candidates for text. Each of the
// top-k most similar trained examples above the similarity threshold adds its
// similarity to the running score of its tags; scores are then normalized by
// the maximum so confidences fall in (0,1]. Untrained suggesters return nil.
func (s *Suggester) Suggest(text string, topK int) []TagSuggestion {
	s.mu.RLock()
	vectorizer := s.vectorizer
	trained := s.trained
	s.mu.RUnlock()

	if vectorizer == nil || trained == 0 {
		return nil
	}
	if topK <= 0 {
		topK = s.topK
	}

	vec := vectorizer.Transform(text)
	hits := s.index.Search(vec, topK)

	scores := make(map[string]float64)
	for _, hit := range hits {
		if hit.Score <= s.simThreshold {
			continue
		}
		for _, tag := range hit.Tags {
			scores[tag] += hit.Score
		}
	}
	if len(scores) == 0 {
		return nil
	}

	var max float64
	for _, score := range scores {
		if score > max {
			max = score
		}
	}

	suggestions := make([]TagSuggestion, 0, len(scores))
	for tag, score := range scores {
		confidence := score / max
		suggestions = append(suggestions, TagSuggestion{
			Tag:        tag,
			Confidence: confidence,
			AutoSelect: confidence > s.autoThreshold,
		})
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Confidence == suggestions[j].Confidence {
			return suggestions[i].Tag < suggestions[j].Tag
		}
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	if len(suggestions) > topK {
		suggestions = suggestions[:topK]
	}
	return suggestions
}

func (s *Suggester) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
