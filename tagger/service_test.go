package tagger

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestService(t *testing.T, store *Store) *Service {
	t.Helper()
	svc, err := NewService(stubSplitter{}, nil, store, Config{}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestServiceRejectsEmptyComment(t *testing.T) {
	svc := newTestService(t, nil)
	ref := day(2023, time.May, 12)

	if _, err := svc.SegmentComment("", ref); !errors.Is(err, ErrEmptyComment) {
		t.Errorf("SegmentComment(\"\") err = %v, want ErrEmptyComment", err)
	}
	if _, err := svc.SegmentComment("   \n\t ", ref); !errors.Is(err, ErrEmptyComment) {
		t.Errorf("SegmentComment(whitespace) err = %v, want ErrEmptyComment", err)
	}
	if _, err := svc.SegmentAndSuggest("", ref); !errors.Is(err, ErrEmptyComment) {
		t.Errorf("SegmentAndSuggest(\"\") err = %v, want ErrEmptyComment", err)
	}
	if err := svc.LearnFromTagging("", []string{"admin"}); !errors.Is(err, ErrEmptyComment) {
		t.Errorf("LearnFromTagging(\"\") err = %v, want ErrEmptyComment", err)
	}
	if err := svc.LearnFromTagging("submitted paperwork", nil); err == nil {
		t.Error("LearnFromTagging without tags should fail")
	}
	if err := svc.ApplyTagging("c1", "", nil, false); !errors.Is(err, ErrEmptyComment) {
		t.Errorf("ApplyTagging with empty text err = %v, want ErrEmptyComment", err)
	}
}

func TestServiceTagDefinitionValidation(t *testing.T) {
	svc := newTestService(t, nil)
	if err := svc.AddTag("", "Name", ""); err == nil {
		t.Error("AddTag without id should fail")
	}
	if err := svc.AddTag("admin", "", ""); err == nil {
		t.Error("AddTag without name should fail")
	}
	if err := svc.AddTag("admin", "Administrative", "Paperwork"); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	tags := svc.Tags()
	if def, ok := tags["admin"]; !ok || def.Name != "Administrative" {
		t.Errorf("Tags() = %+v, want admin defined", tags)
	}
	// Mutating the returned map must not touch the service's table.
	delete(tags, "admin")
	if _, ok := svc.Tags()["admin"]; !ok {
		t.Error("Tags() should return a copy")
	}
}

func TestSuggestTagsForSegmentAnnotatesNames(t *testing.T) {
	svc := newTestService(t, nil)
	if err := svc.AddTag("admin", "Administrative", ""); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if err := svc.LearnFromTagging("submitted paperwork", []string{"admin", "misc"}); err != nil {
		t.Fatalf("LearnFromTagging: %v", err)
	}

	got := svc.SuggestTagsForSegment("submitted paperwork")
	if len(got) != 2 {
		t.Fatalf("got %d suggestions, want 2: %v", len(got), got)
	}
	if got[0].Tag != "admin" || got[0].TagName != "Administrative" {
		t.Errorf("defined tag should carry its display name: %+v", got[0])
	}
	if got[1].Tag != "misc" || got[1].TagName != "misc" {
		t.Errorf("undefined tag should fall back to its id: %+v", got[1])
	}
}

func TestSegmentAndSuggestAttachesSuggestions(t *testing.T) {
	svc := newTestService(t, nil)
	if err := svc.LearnFromTagging("submitted paperwork", []string{"admin"}); err != nil {
		t.Fatalf("LearnFromTagging: %v", err)
	}
	segments, err := svc.SegmentAndSuggest("submitted the paperwork", day(2023, time.May, 12))
	if err != nil {
		t.Fatalf("SegmentAndSuggest: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	if len(segments[0].SuggestedTags) == 0 || segments[0].SuggestedTags[0].Tag != "admin" {
		t.Errorf("segment suggestions = %v, want admin first", segments[0].SuggestedTags)
	}
}

func TestApplyTaggingRegistersComment(t *testing.T) {
	svc := newTestService(t, nil)
	segments := []Segment{
		{Text: "submitted paperwork", Tags: []string{"admin"}},
		{Text: "waiting on response"},
	}
	if err := svc.ApplyTagging("c1", "submitted paperwork. waiting on response", segments, false); err != nil {
		t.Fatalf("ApplyTagging: %v", err)
	}

	if !svc.IsCommentTagged("c1") {
		t.Error("comment should be registered after tagging")
	}
	if got := svc.CommentTags("c1"); len(got) != 1 || got[0] != "admin" {
		t.Errorf("CommentTags = %v, want [admin]", got)
	}
	if svc.IsCommentTagged("c2") {
		t.Error("unknown comment reported as tagged")
	}

	// The tagged segment should feed straight back into suggestions.
	got := svc.SuggestTagsForSegment("submitted paperwork")
	if len(got) == 0 || got[0].Tag != "admin" {
		t.Errorf("suggestions after ApplyTagging = %v, want admin", got)
	}

	stats := svc.SegmentationStats()
	if stats.TotalSamples != 1 || stats.Confirmed != 1 || stats.Accuracy != 100 {
		t.Errorf("SegmentationStats = %+v, want 1 confirmed at 100%%", stats)
	}

	if err := svc.ClearTaggedComments(); err != nil {
		t.Fatalf("ClearTaggedComments: %v", err)
	}
	if svc.IsCommentTagged("c1") {
		t.Error("registry should be empty after clear")
	}
}

func TestApplyTaggingWithoutTagsSkipsRegistry(t *testing.T) {
	svc := newTestService(t, nil)
	segments := []Segment{{Text: "nothing tagged here"}}
	if err := svc.ApplyTagging("c1", "nothing tagged here", segments, true); err != nil {
		t.Fatalf("ApplyTagging: %v", err)
	}
	if svc.IsCommentTagged("c1") {
		t.Error("comment without tagged segments should not be registered")
	}
	// The correction is still recorded for segmentation evaluation.
	stats := svc.SegmentationStats()
	if stats.TotalSamples != 1 || stats.Corrected != 1 || stats.Accuracy != 0 {
		t.Errorf("SegmentationStats = %+v, want 1 corrected at 0%%", stats)
	}
}

func TestSegmentationStatsMixed(t *testing.T) {
	svc := newTestService(t, nil)
	seg := []Segment{{Text: "note"}}
	if err := svc.SaveSegmentationCorrection("first note", seg, false); err != nil {
		t.Fatalf("SaveSegmentationCorrection: %v", err)
	}
	if err := svc.SaveSegmentationCorrection("second note", seg, true); err != nil {
		t.Fatalf("SaveSegmentationCorrection: %v", err)
	}
	stats := svc.SegmentationStats()
	if stats.TotalSamples != 2 || stats.Confirmed != 1 || stats.Corrected != 1 {
		t.Errorf("SegmentationStats = %+v, want one of each", stats)
	}
	if stats.Accuracy != 50 {
		t.Errorf("Accuracy = %v, want 50", stats.Accuracy)
	}
}

func TestTrainingStats(t *testing.T) {
	svc := newTestService(t, nil)
	if err := svc.AddTag("admin", "Administrative", ""); err != nil {
		t.Fatalf("AddTag: %v", err)
	}

	stats := svc.TrainingStats()
	if stats.TotalTrainingSamples != 0 || stats.ModelAccuracy != 0 {
		t.Errorf("fresh stats = %+v, want zeroes", stats)
	}

	for i := 0; i < 12; i++ {
		text := "submitted paperwork batch " + string(rune('a'+i))
		if err := svc.LearnFromTagging(text, []string{"admin"}); err != nil {
			t.Fatalf("LearnFromTagging: %v", err)
		}
	}

	stats = svc.TrainingStats()
	if stats.TotalTags != 1 {
		t.Errorf("TotalTags = %d, want 1", stats.TotalTags)
	}
	if stats.TotalTrainingSamples != 12 {
		t.Errorf("TotalTrainingSamples = %d, want 12", stats.TotalTrainingSamples)
	}
	if stats.TagUsage["admin"] != 12 {
		t.Errorf("TagUsage[admin] = %d, want 12", stats.TagUsage["admin"])
	}
	// Every recent sample suggests its own tag back, so accuracy is perfect.
	if stats.ModelAccuracy != 100 {
		t.Errorf("ModelAccuracy = %v, want 100", stats.ModelAccuracy)
	}
}

func TestServicePersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	svc := newTestService(t, store)
	if err := svc.AddTag("admin", "Administrative", ""); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if err := svc.LearnFromTagging("submitted paperwork", []string{"admin"}); err != nil {
		t.Fatalf("LearnFromTagging: %v", err)
	}
	if err := svc.ApplyTagging("c1", "submitted paperwork", []Segment{{Text: "submitted paperwork", Tags: []string{"admin"}}}, false); err != nil {
		t.Fatalf("ApplyTagging: %v", err)
	}

	store2, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	restarted := newTestService(t, store2)

	if def, ok := restarted.Tags()["admin"]; !ok || def.Name != "Administrative" {
		t.Errorf("tag definitions lost across restart: %+v", restarted.Tags())
	}
	if !restarted.IsCommentTagged("c1") {
		t.Error("tagged-comment registry lost across restart")
	}
	got := restarted.SuggestTagsForSegment("submitted paperwork")
	if len(got) == 0 || got[0].Tag != "admin" {
		t.Errorf("suggester not retrained from persisted data: %v", got)
	}
	stats := restarted.SegmentationStats()
	if stats.TotalSamples != 1 {
		t.Errorf("segmentation log lost across restart: %+v", stats)
	}
}

func TestServiceConfigRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)
	cfg := svc.Config()
	if cfg.TopK != 5 || cfg.SimilarityThreshold != 0.05 || cfg.AutoSelectThreshold != 0.7 {
		t.Errorf("default config = %+v", cfg)
	}
	cfg.TopK = 3
	svc.UpdateConfig(cfg)
	if got := svc.Config().TopK; got != 3 {
		t.Errorf("TopK after update = %d, want 3", got)
	}
}

func TestPreview(t *testing.T) {
	if got := preview("short", 100); got != "short" {
		t.Errorf("preview(short) = %q", got)
	}
	long := strings.Repeat("x", 150)
	if got := preview(long, 100); len(got) != 100 {
		t.Errorf("preview length = %d, want 100", len(got))
	}
}
