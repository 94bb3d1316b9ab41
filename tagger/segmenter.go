package tagger

import (
	"log"
	"regexp"
	"sort"
	"time"
)

// colonBoundary marks a cut immediately after a colon followed by whitespace.
var colonBoundary = regexp.MustCompile(`:\s`)

// Segmenter splits comment text into date-grounded segments. It cuts at
// colon, sentence and newline boundaries, then iteratively merges spans that
// lack a date or time reference into their predecessor until every surviving
// segment is date-grounded or only one remains.
type Segmenter struct {
	splitter  SentenceSplitter
	extractor *DateExtractor
	maxIter   int
	logger    *log.Logger
}

// NewSegmenter constructs a segmenter. A nil splitter switches the segmenter
// into single-segment fallback mode.
func NewSegmenter(splitter SentenceSplitter, extractor *DateExtractor, cfg Config, logger *log.Logger) *Segmenter {
	cfg.ApplyDefaults()
	return &Segmenter{
		splitter:  splitter,
		extractor: extractor,
		maxIter:   cfg.MaxIterations,
		logger:    logger,
	}
}

// span is a working segment during boundary splitting and merging.
type span struct {
	text    string
	start   int
	end     int
	hasDate bool
}

// Segment splits text into dated segments. ref is the comment's own
// timestamp; a zero ref makes the processing date the anchor and marks
// inherited dates as DateSourceDefault.
func (s *Segmenter) Segment(text string, ref time.Time) []Segment {
	if s.splitter == nil {
		return s.fallback(text, ref)
	}
	ends, err := s.splitter.SentenceEnds(text)
	if err != nil {
		s.logf("sentence splitter unavailable, using fallback: %v", err)
		return s.fallback(text, ref)
	}

	spans := s.initialSpans(text, ends)
	spans = s.mergeUndated(spans, ref)
	return s.finalize(spans, ref)
}

// initialSpans cuts text at the union of colon, sentence and newline
// boundaries, dropping spans that are empty after trimming.
func (s *Segmenter) initialSpans(text string, sentenceEnds []int) []span {
	boundarySet := make(map[int]struct{})
	for _, loc := range colonBoundary.FindAllStringIndex(text, -1) {
		boundarySet[loc[1]] = struct{}{}
	}
	for _, end := range sentenceEnds {
		if end < len(text) {
			boundarySet[end] = struct{}{}
		}
	}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			boundarySet[i+1] = struct{}{}
		}
	}
	boundaries := make([]int, 0, len(boundarySet))
	for b := range boundarySet {
		boundaries = append(boundaries, b)
	}
	sort.Ints(boundaries)

	var spans []span
	last := 0
	for _, b := range boundaries {
		if b <= last {
			continue
		}
		if trimmed := NormalizeText(text[last:b]); trimmed != "" {
			spans = append(spans, span{text: trimmed, start: last, end: b})
		}
		last = b
	}
	if last < len(text) {
		if trimmed := NormalizeText(text[last:]); trimmed != "" {
			spans = append(spans, span{text: trimmed, start: last, end: len(text)})
		}
	}
	if len(spans) == 0 {
		spans = append(spans, span{text: text, start: 0, end: len(text)})
	}
	return spans
}

// mergeUndated repeatedly folds spans without a date or time reference into
// the preceding span. A span at position 0 never merges forward; it stays
// standalone and later inherits the reference date. The loop is bounded and
// breaks when a full pass makes no progress.
func (s *Segmenter) mergeUndated(spans []span, ref time.Time) []span {
	for i := range spans {
		spans[i].hasDate = s.extractor.HasDateOrTimeReference(spans[i].text, ref)
	}

	for iter := 0; iter < s.maxIter; iter++ {
		undated := 0
		for _, sp := range spans {
			if !sp.hasDate {
				undated++
			}
		}
		if undated == 0 || len(spans) == 1 {
			return spans
		}

		merged := false
		out := spans[:0:0]
		for i, sp := range spans {
			if i > 0 && !sp.hasDate {
				prev := &out[len(out)-1]
				prev.text = collapseSpaces(prev.text + " " + sp.text)
				prev.end = sp.end
				prev.hasDate = s.extractor.HasDateOrTimeReference(prev.text, ref)
				merged = true
				continue
			}
			out = append(out, sp)
		}
		spans = out

		if !merged {
			s.logf("merge pass made no progress with %d undated spans remaining", undated)
			return spans
		}
	}
	s.logf("segment merge hit iteration cap (%d), emitting current state", s.maxIter)
	return spans
}

// finalize resolves each surviving span to a concrete date.
func (s *Segmenter) finalize(spans []span, ref time.Time) []Segment {
	segments := make([]Segment, 0, len(spans))
	for _, sp := range spans {
		seg := Segment{
			Text:       sp.text,
			StartIndex: sp.start,
			EndIndex:   sp.end,
		}
		seg.Date = s.extractor.ExtractDate(sp.text, ref).Format("2006-01-02")
		if sp.hasDate {
			seg.DateSource = DateSourceExtracted
		} else {
			seg.DateSource = inheritedSource(ref)
		}
		segments = append(segments, seg)
	}
	return segments
}

// fallback returns the whole comment as one segment dated at the reference
// date (or the processing date when none is given).
func (s *Segmenter) fallback(text string, ref time.Time) []Segment {
	date := ref
	if date.IsZero() {
		date = time.Now()
	}
	return []Segment{{
		Text:       text,
		Date:       dateOnly(date).Format("2006-01-02"),
		DateSource: inheritedSource(ref),
		StartIndex: 0,
		EndIndex:   len(text),
	}}
}

func inheritedSource(ref time.Time) DateSource {
	if ref.IsZero() {
		return DateSourceDefault
	}
	return DateSourceTimestamp
}

func (s *Segmenter) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
