package tagger

import (
	"encoding/json"
	"time"
)

// DateSource reports where a segment's calendar date came from.
type DateSource string

const (
	// DateSourceExtracted means the date was found inside the segment text itself.
	DateSourceExtracted DateSource = "extracted"
	// DateSourceTimestamp means the segment inherited the comment's own timestamp.
	DateSourceTimestamp DateSource = "asana_timestamp"
	// DateSourceDefault means no reference date was available and the
	// processing-time date was used.
	DateSourceDefault DateSource = "default"
)

// Segment is a contiguous span of a comment anchored to a single calendar date.
// StartIndex and EndIndex are half-open byte offsets into the original comment.
type Segment struct {
	Text       string     `json:"text"`
	Date       string     `json:"date"`
	DateSource DateSource `json:"dateSource"`
	StartIndex int        `json:"startIndex"`
	EndIndex   int        `json:"endIndex"`
	Tags       []string   `json:"tags,omitempty"`
	// SuggestedTags is filled by the orchestration layer when suggestions
	// are requested alongside segmentation.
	SuggestedTags []TagSuggestion `json:"suggested_tags,omitempty"`
}

// TagSuggestion is a single ranked tag candidate for a segment.
type TagSuggestion struct {
	Tag        string  `json:"tag"`
	TagName    string  `json:"tag_name,omitempty"`
	Confidence float64 `json:"confidence"`
	AutoSelect bool    `json:"auto_select"`
}

// TaggedSegment is one training example: a segment text and the tags a user
// confirmed for it.
type TaggedSegment struct {
	Text string   `json:"text"`
	Tags []string `json:"tags"`
}

// TagDefinition describes a tag a user created.
type TagDefinition struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TrainingExample is one entry of the append-only training log.
type TrainingExample struct {
	Comment   string    `json:"comment"`
	Tags      []string  `json:"tags"`
	Timestamp time.Time `json:"timestamp"`
}

// TaggedComment records that an external comment has been tagged, so it is
// not presented again.
type TaggedComment struct {
	Tags     []string  `json:"tags"`
	Segments []Segment `json:"segments"`
	TaggedAt time.Time `json:"tagged_at"`
	// CommentText holds a short preview of the original comment for reference.
	CommentText string `json:"comment_text"`
}

// SegmentationExample records a supervised segmentation correction. It is
// only used for offline evaluation of segmentation quality.
type SegmentationExample struct {
	ID           string    `json:"id"`
	CommentText  string    `json:"comment_text"`
	UserSegments []Segment `json:"user_segments"`
	WasCorrected bool      `json:"was_corrected"`
	Timestamp    time.Time `json:"timestamp"`
}

// Config aggregates runtime settings for segmentation and suggestion.
type Config struct {
	// TopK is the default number of suggestions returned per segment.
	TopK int `json:"topK"`
	// SimilarityThreshold is the minimum cosine similarity a neighbor must
	// reach before its tags contribute to the suggestion scores.
	SimilarityThreshold float64 `json:"similarityThreshold"`
	// AutoSelectThreshold is the normalized confidence above which a
	// suggestion is pre-selected for the user.
	AutoSelectThreshold float64 `json:"autoSelectThreshold"`
	// MaxFeatures bounds the TF-IDF vocabulary size.
	MaxFeatures int `json:"maxFeatures"`
	// MaxIterations caps the segment merge loop.
	MaxIterations int `json:"maxIterations"`
	// PastWindowYears is how far before the reference date an extracted
	// date may lie before it is treated as parsing noise.
	PastWindowYears int `json:"pastWindowYears"`
	// DataDir is where the JSON document store lives.
	DataDir string `json:"dataDir"`
}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	buf, _ := json.Marshal(c)
	var out Config
	_ = json.Unmarshal(buf, &out)
	return out
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = 0.05
	}
	if c.AutoSelectThreshold == 0 {
		c.AutoSelectThreshold = 0.7
	}
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = 100
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 100
	}
	if c.PastWindowYears <= 0 {
		c.PastWindowYears = 10
	}
	if c.DataDir == "" {
		c.DataDir = "server_files/comment_tagger"
	}
}
