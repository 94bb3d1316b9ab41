package tagger

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Store file names, stable because external collaborators read them directly.
const (
	tagDefinitionsFile       = "tag_definitions.json"
	trainingDataFile         = "training_data.json"
	taggedCommentsFile       = "tagged_comments.json"
	segmentationTrainingFile = "segmentation_training.json"
)

// Store persists the tagger's durable records as JSON documents under a base
// directory. Reads fall back to empty collections on failure so a corrupt or
// missing file never takes the service down; writes go through a temp file
// and rename so a failed write never corrupts previously-good data.
type Store struct {
	baseDir string
	logger  *log.Logger
}

// NewStore creates the base directory if needed and returns a store.
func NewStore(baseDir string, logger *log.Logger) (*Store, error) {
	if baseDir == "" {
		return nil, errors.New("store base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{baseDir: baseDir, logger: logger}, nil
}

// LoadTagDefinitions reads the tag definition table.
func (st *Store) LoadTagDefinitions() map[string]TagDefinition {
	out := make(map[string]TagDefinition)
	st.loadJSON(tagDefinitionsFile, &out)
	return out
}

// SaveTagDefinitions persists the tag definition table.
func (st *Store) SaveTagDefinitions(defs map[string]TagDefinition) error {
	return st.saveJSON(tagDefinitionsFile, defs)
}

// LoadTrainingData reads the append-only tag training log.
func (st *Store) LoadTrainingData() []TrainingExample {
	var out []TrainingExample
	st.loadJSON(trainingDataFile, &out)
	return out
}

// SaveTrainingData persists the tag training log.
func (st *Store) SaveTrainingData(examples []TrainingExample) error {
	return st.saveJSON(trainingDataFile, examples)
}

// LoadTaggedComments reads the tagged-comment registry.
func (st *Store) LoadTaggedComments() map[string]TaggedComment {
	out := make(map[string]TaggedComment)
	st.loadJSON(taggedCommentsFile, &out)
	return out
}

// SaveTaggedComments persists the tagged-comment registry.
func (st *Store) SaveTaggedComments(comments map[string]TaggedComment) error {
	return st.saveJSON(taggedCommentsFile, comments)
}

// LoadSegmentationTraining reads the segmentation correction log.
func (st *Store) LoadSegmentationTraining() []SegmentationExample {
	var out []SegmentationExample
	st.loadJSON(segmentationTrainingFile, &out)
	return out
}

// SaveSegmentationTraining persists the segmentation correction log.
func (st *Store) SaveSegmentationTraining(examples []SegmentationExample) error {
	return st.saveJSON(segmentationTrainingFile, examples)
}

func (st *Store) loadJSON(filename string, out any) {
	path := filepath.Join(st.baseDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			st.logf("error loading %s: %v", filename, err)
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		st.logf("error decoding %s: %v", filename, err)
	}
}

func (st *Store) saveJSON(filename string, data any) error {
	path := filepath.Join(st.baseDir, filename)
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", filename, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filename, err)
	}
	return nil
}

func (st *Store) logf(format string, args ...any) {
	if st.logger != nil {
		st.logger.Printf(format, args...)
	}
}
