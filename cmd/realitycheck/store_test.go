package main

import (
	"errors"
	"reflect"
	"testing"
)

func sampleRun(id string) *AnalysisRun {
	return &AnalysisRun{
		AnalysisID:       id,
		Article:          "article body",
		VerificationDate: "2025-06-15T12:00:00Z",
		Status:           RunCompleted,
		Sentiment:        &SentimentResult{Score: 0.8, Reasoning: "REAL"},
		Claims:           []string{"a claim"},
		FactChecks: []FactCheckEntry{
			{Statement: "a claim", SearchTopic: "a claim", Articles: []Citation{}},
		},
		Summary:       "a summary",
		ProcessedDate: "2025-06-15T12:00:05Z",
		Topic:         "a summary...",
	}
}

func TestStoreSaveGetRoundtrip(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewResultStore: %v", err)
	}

	run := sampleRun("20250615120000_abcdef1234")
	if err := store.Save(run); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Get(run.AnalysisID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(loaded, run) {
		t.Errorf("loaded run differs:\ngot:  %+v\nwant: %+v", loaded, run)
	}
}

func TestStoreSaveRequiresAnalysisID(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewResultStore: %v", err)
	}
	if err := store.Save(&AnalysisRun{}); err == nil {
		t.Error("expected error saving a run without an ID")
	}
}

func TestStoreGetMissingRun(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewResultStore: %v", err)
	}
	_, err = store.Get("20250615120000_0000000000")
	if err == nil {
		t.Fatal("expected not-found error")
	}
	var ae *AppError
	if !errors.As(err, &ae) || ae.Code != ErrStorageNotFound {
		t.Errorf("error = %v, want storage not-found", err)
	}
}

func TestStoreGetRejectsTraversalIDs(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewResultStore: %v", err)
	}
	for _, id := range []string{"../etc/passwd", "a/b", `a\b`, "..", ""} {
		if _, err := store.Get(id); err == nil {
			t.Errorf("Get(%q) succeeded, want rejection", id)
		}
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewResultStore: %v", err)
	}
	ids := []string{
		"20250101000000_aaaaaaaaaa",
		"20250301000000_cccccccccc",
		"20250201000000_bbbbbbbbbb",
	}
	for _, id := range ids {
		if err := store.Save(sampleRun(id)); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}

	listed, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		"20250301000000_cccccccccc",
		"20250201000000_bbbbbbbbbb",
		"20250101000000_aaaaaaaaaa",
	}
	if !reflect.DeepEqual(listed, want) {
		t.Errorf("List = %v, want %v", listed, want)
	}
}

func TestStoreLoadAllSkipsNothingWhenHealthy(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewResultStore: %v", err)
	}
	for _, id := range []string{"20250101000000_aaaaaaaaaa", "20250102000000_bbbbbbbbbb"} {
		if err := store.Save(sampleRun(id)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	runs, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("LoadAll returned %d runs, want 2", len(runs))
	}
}
