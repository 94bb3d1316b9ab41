package tagger

import (
	"fmt"
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// SentenceSplitter reports sentence-end byte offsets within text. It stands
// in for the natural-language model so the segmenter can be exercised with a
// stub and degrade gracefully when no model is available.
type SentenceSplitter interface {
	SentenceEnds(text string) ([]int, error)
}

// ProseSplitter backs SentenceSplitter with the prose document segmenter.
// Construct it once at process start and share it; the underlying model data
// is loaded per document but the splitter itself is stateless.
type ProseSplitter struct{}

// NewProseSplitter returns a ready-to-use splitter.
func NewProseSplitter() *ProseSplitter {
	return &ProseSplitter{}
}

// SentenceEnds segments text into sentences and maps each sentence back to
// the byte offset just past its final character.
func (p *ProseSplitter) SentenceEnds(text string) ([]int, error) {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("segment sentences: %w", err)
	}
	var ends []int
	pos := 0
	for _, sent := range doc.Sentences() {
		idx := strings.Index(text[pos:], sent.Text)
		if idx < 0 {
			continue
		}
		end := pos + idx + len(sent.Text)
		ends = append(ends, end)
		pos = end
	}
	return ends, nil
}
