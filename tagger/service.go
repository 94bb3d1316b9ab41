package tagger

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyComment is returned when a caller supplies no comment text.
var ErrEmptyComment = errors.New("comment text is required")

// Service wires segmentation and tag suggestion together and owns the
// persisted collections: tag definitions, the training log, the
// tagged-comment registry and the segmentation correction log. Collections
// are read once at construction and fully rewritten on mutation.
type Service struct {
	segmenter *Segmenter
	suggester *Suggester
	store     *Store

	cfgMu sync.RWMutex
	cfg   Config

	mu                   sync.Mutex
	tagDefinitions       map[string]TagDefinition
	trainingData         []TrainingExample
	taggedComments       map[string]TaggedComment
	segmentationTraining []SegmentationExample

	logger *log.Logger
	now    func() time.Time
}

// NewService constructs a service. The sentence splitter and recognizer may
// be nil, in which case segmentation degrades per the fallback rules. A nil
// store keeps everything in memory only.
func NewService(splitter SentenceSplitter, recognizer DateTimeRecognizer, store *Store, cfg Config, logger *log.Logger) (*Service, error) {
	cfg.ApplyDefaults()
	extractor := NewDateExtractor(recognizer, cfg)
	s := &Service{
		segmenter:      NewSegmenter(splitter, extractor, cfg, logger),
		suggester:      NewSuggester(cfg, logger),
		store:          store,
		cfg:            cfg,
		tagDefinitions: make(map[string]TagDefinition),
		taggedComments: make(map[string]TaggedComment),
		logger:         logger,
		now:            time.Now,
	}
	if store != nil {
		s.tagDefinitions = store.LoadTagDefinitions()
		s.trainingData = store.LoadTrainingData()
		s.taggedComments = store.LoadTaggedComments()
		s.segmentationTraining = store.LoadSegmentationTraining()
	}
	s.retrain()
	return s, nil
}

// Config returns a copy of the current configuration.
func (s *Service) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Clone()
}

// UpdateConfig replaces the configuration.
func (s *Service) UpdateConfig(cfg Config) {
	cfg.ApplyDefaults()
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
}

// SegmentComment splits a comment into dated segments. ref is the comment's
// own timestamp; pass the zero time when it is unknown.
func (s *Service) SegmentComment(text string, ref time.Time) ([]Segment, error) {
	if NormalizeText(text) == "" {
		return nil, ErrEmptyComment
	}
	return s.segmenter.Segment(text, ref), nil
}

// SegmentAndSuggest segments a comment and attaches ranked tag suggestions
// to every segment.
func (s *Service) SegmentAndSuggest(text string, ref time.Time) ([]Segment, error) {
	segments, err := s.SegmentComment(text, ref)
	if err != nil {
		return nil, err
	}
	for i := range segments {
		segments[i].SuggestedTags = s.SuggestTagsForSegment(segments[i].Text)
	}
	return segments, nil
}

// SuggestTagsForSegment returns ranked tag candidates for a segment,
// annotated with the human-readable tag name when one is defined.
func (s *Service) SuggestTagsForSegment(text string) []TagSuggestion {
	suggestions := s.suggester.Suggest(text, s.Config().TopK)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range suggestions {
		if def, ok := s.tagDefinitions[suggestions[i].Tag]; ok && def.Name != "" {
			suggestions[i].TagName = def.Name
		} else {
			suggestions[i].TagName = suggestions[i].Tag
		}
	}
	return suggestions
}

// LearnFromTagging appends a confirmed text/tags pair to the training log,
// persists it and retrains the suggester from the full accumulated log.
func (s *Service) LearnFromTagging(text string, tags []string) error {
	if NormalizeText(text) == "" {
		return ErrEmptyComment
	}
	if len(tags) == 0 {
		return errors.New("at least one tag is required")
	}
	s.mu.Lock()
	s.trainingData = append(s.trainingData, TrainingExample{
		Comment:   text,
		Tags:      append([]string(nil), tags...),
		Timestamp: s.now(),
	})
	s.persistTrainingDataLocked()
	s.mu.Unlock()
	s.retrain()
	return nil
}

// ApplyTagging records a user's final tagging decision for one comment:
// every tagged segment becomes a training example, the segmentation outcome
// is logged as a correction record, and the comment is registered so it is
// not presented again.
func (s *Service) ApplyTagging(commentID, commentText string, segments []Segment, wasCorrected bool) error {
	if commentID == "" {
		return errors.New("comment id is required")
	}
	if NormalizeText(commentText) == "" {
		return ErrEmptyComment
	}
	if len(segments) > 0 {
		if err := s.SaveSegmentationCorrection(commentText, segments, wasCorrected); err != nil {
			return err
		}
	}

	var allTags []string
	seen := make(map[string]struct{})
	for _, seg := range segments {
		if len(seg.Tags) == 0 {
			continue
		}
		if err := s.LearnFromTagging(seg.Text, seg.Tags); err != nil {
			return fmt.Errorf("learn from segment: %w", err)
		}
		for _, tag := range seg.Tags {
			if _, ok := seen[tag]; !ok {
				seen[tag] = struct{}{}
				allTags = append(allTags, tag)
			}
		}
	}
	if len(allTags) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.taggedComments[commentID] = TaggedComment{
		Tags:        allTags,
		Segments:    segments,
		TaggedAt:    s.now(),
		CommentText: preview(commentText, 100),
	}
	if s.store != nil {
		if err := s.store.SaveTaggedComments(s.taggedComments); err != nil {
			s.logf("error saving tagged comments: %v", err)
		}
	}
	return nil
}

// SaveSegmentationCorrection records a supervised segmentation correction,
// kept separate from tag training and used only for offline evaluation.
func (s *Service) SaveSegmentationCorrection(commentText string, userSegments []Segment, wasCorrected bool) error {
	if NormalizeText(commentText) == "" {
		return ErrEmptyComment
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segmentationTraining = append(s.segmentationTraining, SegmentationExample{
		ID:           uuid.NewString(),
		CommentText:  commentText,
		UserSegments: userSegments,
		WasCorrected: wasCorrected,
		Timestamp:    s.now(),
	})
	if s.store != nil {
		if err := s.store.SaveSegmentationTraining(s.segmentationTraining); err != nil {
			s.logf("error saving segmentation training: %v", err)
		}
	}
	return nil
}

// IsCommentTagged reports whether an external comment id is registered.
func (s *Service) IsCommentTagged(commentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.taggedComments[commentID]
	return ok
}

// CommentTags returns the tags recorded for an external comment id.
func (s *Service) CommentTags(commentID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.taggedComments[commentID].Tags...)
}

// ClearTaggedComments empties the registry so comments can be re-presented.
func (s *Service) ClearTaggedComments() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taggedComments = make(map[string]TaggedComment)
	if s.store != nil {
		return s.store.SaveTaggedComments(s.taggedComments)
	}
	return nil
}

// AddTag creates or updates a tag definition.
func (s *Service) AddTag(id, name, description string) error {
	if id == "" || name == "" {
		return errors.New("tag id and name are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tagDefinitions[id] = TagDefinition{
		Name:        name,
		Description: description,
		CreatedAt:   s.now(),
	}
	if s.store != nil {
		return s.store.SaveTagDefinitions(s.tagDefinitions)
	}
	return nil
}

// Tags returns a copy of the tag definition table.
func (s *Service) Tags() map[string]TagDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]TagDefinition, len(s.tagDefinitions))
	for id, def := range s.tagDefinitions {
		out[id] = def
	}
	return out
}

// ReplaceTags swaps the whole tag definition table, used by bulk editors.
func (s *Service) ReplaceTags(defs map[string]TagDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tagDefinitions = make(map[string]TagDefinition, len(defs))
	for id, def := range defs {
		s.tagDefinitions[id] = def
	}
	if s.store != nil {
		return s.store.SaveTagDefinitions(s.tagDefinitions)
	}
	return nil
}

// TrainingStats summarizes the state of the tag training corpus.
type TrainingStats struct {
	TotalTags                int            `json:"total_tags"`
	TotalTrainingSamples     int            `json:"total_training_samples"`
	TotalSegmentationSamples int            `json:"total_segmentation_samples"`
	TagUsage                 map[string]int `json:"tag_usage"`
	// ModelAccuracy is the percentage of recent samples whose top suggestion
	// appears among the actually assigned tags. Zero until enough data exists.
	ModelAccuracy float64 `json:"model_accuracy"`
}

// TrainingStats computes corpus statistics and a rough model accuracy over
// the most recent training samples.
func (s *Service) TrainingStats() TrainingStats {
	s.mu.Lock()
	samples := append([]TrainingExample(nil), s.trainingData...)
	stats := TrainingStats{
		TotalTags:                len(s.tagDefinitions),
		TotalTrainingSamples:     len(s.trainingData),
		TotalSegmentationSamples: len(s.segmentationTraining),
		TagUsage:                 make(map[string]int),
	}
	s.mu.Unlock()

	for _, sample := range samples {
		for _, tag := range sample.Tags {
			stats.TagUsage[tag]++
		}
	}

	if len(samples) > 10 {
		total := len(samples)
		if total > 20 {
			total = 20
		}
		correct := 0
		for _, sample := range samples[len(samples)-total:] {
			suggestions := s.suggester.Suggest(sample.Comment, s.Config().TopK)
			if len(suggestions) > 0 && contains(sample.Tags, suggestions[0].Tag) {
				correct++
			}
		}
		stats.ModelAccuracy = float64(correct) / float64(total) * 100
	}
	return stats
}

// SegmentationStats summarizes the segmentation correction log. Accuracy is
// the fraction of reviewed comments whose segmentation needed no correction.
type SegmentationStats struct {
	TotalSamples int     `json:"total_samples"`
	Confirmed    int     `json:"confirmed"`
	Corrected    int     `json:"corrected"`
	Accuracy     float64 `json:"accuracy"`
}

// SegmentationStats computes segmentation quality statistics.
func (s *Service) SegmentationStats() SegmentationStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := SegmentationStats{TotalSamples: len(s.segmentationTraining)}
	for _, sample := range s.segmentationTraining {
		if sample.WasCorrected {
			stats.Corrected++
		} else {
			stats.Confirmed++
		}
	}
	if stats.TotalSamples > 0 {
		stats.Accuracy = float64(stats.Confirmed) / float64(stats.TotalSamples) * 100
	}
	return stats
}

// retrain rebuilds the suggester from the full training log plus every
// tagged segment recorded in the registry.
func (s *Service) retrain() {
	s.mu.Lock()
	examples := make([]TaggedSegment, 0, len(s.trainingData))
	for _, sample := range s.trainingData {
		if sample.Comment != "" && len(sample.Tags) > 0 {
			examples = append(examples, TaggedSegment{Text: sample.Comment, Tags: sample.Tags})
		}
	}
	ids := make([]string, 0, len(s.taggedComments))
	for id := range s.taggedComments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, seg := range s.taggedComments[id].Segments {
			if seg.Text != "" && len(seg.Tags) > 0 {
				examples = append(examples, TaggedSegment{Text: seg.Text, Tags: seg.Tags})
			}
		}
	}
	s.mu.Unlock()

	if len(examples) == 0 {
		s.logf("no tagged segments available for training")
		return
	}
	s.suggester.Train(examples)
}

func (s *Service) persistTrainingDataLocked() {
	if s.store == nil {
		return
	}
	if err := s.store.SaveTrainingData(s.trainingData); err != nil {
		s.logf("error saving training data: %v", err)
	}
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// preview truncates text to at most n runes for registry storage.
func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
