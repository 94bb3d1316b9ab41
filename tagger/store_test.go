package tagger

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return st
}

func TestStoreRequiresBaseDir(t *testing.T) {
	if _, err := NewStore("", nil); err == nil {
		t.Error("expected an error for an empty base directory")
	}
}

func TestStoreCreatesBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	if _, err := NewStore(dir, nil); err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("base directory was not created: %v", err)
	}
}

func TestStoreTagDefinitionsRoundTrip(t *testing.T) {
	st := newTestStore(t)
	created := time.Date(2023, time.May, 12, 10, 0, 0, 0, time.UTC)
	defs := map[string]TagDefinition{
		"admin":   {Name: "Administrative", Description: "Paperwork and filings", CreatedAt: created},
		"contact": {Name: "Family Contact", CreatedAt: created},
	}
	if err := st.SaveTagDefinitions(defs); err != nil {
		t.Fatalf("SaveTagDefinitions: %v", err)
	}
	got := st.LoadTagDefinitions()
	if len(got) != len(defs) {
		t.Fatalf("got %d definitions, want %d", len(got), len(defs))
	}
	for id, def := range defs {
		g, ok := got[id]
		if !ok {
			t.Errorf("definition %q missing after round trip", id)
			continue
		}
		if g.Name != def.Name || g.Description != def.Description || !g.CreatedAt.Equal(def.CreatedAt) {
			t.Errorf("definition %q = %+v, want %+v", id, g, def)
		}
	}
}

func TestStoreTrainingDataRoundTrip(t *testing.T) {
	st := newTestStore(t)
	examples := []TrainingExample{
		{Comment: "submitted paperwork", Tags: []string{"admin"}, Timestamp: time.Date(2023, time.May, 12, 10, 0, 0, 0, time.UTC)},
		{Comment: "met with family", Tags: []string{"contact"}, Timestamp: time.Date(2023, time.May, 13, 10, 0, 0, 0, time.UTC)},
	}
	if err := st.SaveTrainingData(examples); err != nil {
		t.Fatalf("SaveTrainingData: %v", err)
	}
	got := st.LoadTrainingData()
	if len(got) != len(examples) {
		t.Fatalf("got %d examples, want %d", len(got), len(examples))
	}
	for i, want := range examples {
		g := got[i]
		if g.Comment != want.Comment || !reflect.DeepEqual(g.Tags, want.Tags) || !g.Timestamp.Equal(want.Timestamp) {
			t.Errorf("example %d = %+v, want %+v", i, g, want)
		}
	}
}

func TestStoreMissingFilesLoadEmpty(t *testing.T) {
	st := newTestStore(t)
	if got := st.LoadTagDefinitions(); len(got) != 0 {
		t.Errorf("LoadTagDefinitions on empty dir = %v", got)
	}
	if got := st.LoadTrainingData(); got != nil {
		t.Errorf("LoadTrainingData on empty dir = %v", got)
	}
	if got := st.LoadTaggedComments(); len(got) != 0 {
		t.Errorf("LoadTaggedComments on empty dir = %v", got)
	}
	if got := st.LoadSegmentationTraining(); got != nil {
		t.Errorf("LoadSegmentationTraining on empty dir = %v", got)
	}
}

func TestStoreCorruptFileLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	st, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "training_data.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if got := st.LoadTrainingData(); got != nil {
		t.Errorf("corrupt file should load as empty, got %v", got)
	}
}

func TestStoreWriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	st, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := st.SaveSegmentationTraining([]SegmentationExample{{ID: "s1", CommentText: "note"}}); err != nil {
		t.Fatalf("SaveSegmentationTraining: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "segmentation_training.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
	if _, err := os.Stat(filepath.Join(dir, "segmentation_training.json")); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}
