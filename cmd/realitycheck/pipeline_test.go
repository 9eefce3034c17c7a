package main

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

// pipelineFixture bundles the fakes behind a wired orchestrator
type pipelineFixture struct {
	gen        *fakeGenerator
	classifier *fakeClassifier
	embedder   *fakeEmbedder
	raw        *fakeRawSearcher
	fetcher    *fakeFetcher
}

func newPipeline(t *testing.T, fx pipelineFixture, store *ResultStore) *PipelineOrchestrator {
	t.Helper()
	if fx.gen == nil {
		fx.gen = &fakeGenerator{}
	}
	if fx.classifier == nil {
		fx.classifier = &fakeClassifier{label: "REAL", confidence: 0.9}
	}
	if fx.embedder == nil {
		fx.embedder = &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	}
	if fx.raw == nil {
		fx.raw = &fakeRawSearcher{}
	}
	if fx.fetcher == nil {
		fx.fetcher = newFakeFetcher()
	}

	scorer := NewArticleScorer(fx.classifier, fx.gen, NewClassificationCache(KeepAllPolicy{}), true)
	extractor := NewClaimExtractor(fx.gen)
	searcher := NewSearchProvider(fx.gen, fx.raw)
	verifier := NewClaimVerifier(searcher, newTestScraper(fx.fetcher), 3, 3)
	orchestrator := NewPipelineOrchestrator(scorer, extractor, verifier, fx.embedder, store)
	orchestrator.now = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	return orchestrator
}

func drainEvents(t *testing.T, events <-chan ProgressEvent) []ProgressEvent {
	t.Helper()
	var collected []ProgressEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return collected
			}
			collected = append(collected, ev)
		case <-timeout:
			t.Fatal("timed out draining event stream")
		}
	}
}

func TestPipelineFactChecksMatchClaimsInOrder(t *testing.T) {
	claims := []string{
		"The company reported record profits.",
		"Its CEO resigned in March.",
		"The merger was approved.",
	}
	fetcher := newFakeFetcher()
	fetcher.script("https://example.com/0", fetchResponse{content: longContent("a")})

	fx := pipelineFixture{
		fetcher: fetcher,
		gen: &fakeGenerator{responses: []string{
			// Claim extraction, then one search response per claim,
			// then the summary.
			strings.Join(claims, "\n"),
			searchResponseWithArticles(1),
			`{"topic": "t2", "articles": []}`,
			searchResponseWithArticles(1),
			"A short summary of the article.",
		}},
	}
	orchestrator := newPipeline(t, fx, nil)

	run, err := orchestrator.RunSync(context.Background(), "article text")
	if err != nil {
		t.Fatalf("RunSync returned error: %v", err)
	}

	if len(run.FactChecks) != len(run.Claims) {
		t.Fatalf("fact checks (%d) and claims (%d) differ in length", len(run.FactChecks), len(run.Claims))
	}
	for i, claim := range claims {
		if run.Claims[i] != claim {
			t.Errorf("claim %d = %q, want %q", i, run.Claims[i], claim)
		}
		if run.FactChecks[i].Statement != claim {
			t.Errorf("fact check %d statement = %q, want %q", i, run.FactChecks[i].Statement, claim)
		}
	}

	// The second claim found no articles; its siblings are unaffected
	if run.FactChecks[1].Error != noArticlesMarker {
		t.Errorf("fact check 1 error = %q, want marker", run.FactChecks[1].Error)
	}
	if run.FactChecks[0].Error != "" || run.FactChecks[2].Error != "" {
		t.Error("healthy claims carried an error marker")
	}
	if run.Status != RunCompleted {
		t.Errorf("run status = %q, want completed", run.Status)
	}
	if run.Summary != "A short summary of the article." {
		t.Errorf("run summary = %q", run.Summary)
	}
	if len(run.SummaryEmbedding) != 3 {
		t.Errorf("summary embedding length = %d, want 3", len(run.SummaryEmbedding))
	}
}

func TestPipelineStreamDeliversTerminalCompletedEvent(t *testing.T) {
	fx := pipelineFixture{
		gen: &fakeGenerator{responses: []string{
			"Only claim.",
			`{"topic": "t", "articles": []}`,
			"Summary.",
		}},
	}
	orchestrator := newPipeline(t, fx, nil)

	events := drainEvents(t, orchestrator.Run(context.Background(), "article"))
	if len(events) == 0 {
		t.Fatal("no events delivered")
	}

	last := events[len(events)-1]
	if last.Status != EventCompleted {
		t.Fatalf("last event status = %q, want completed", last.Status)
	}
	run, ok := last.Data["result_data"].(*AnalysisRun)
	if !ok || run == nil {
		t.Fatal("terminal event carries no run payload")
	}
	if events[0].Status != EventStarting {
		t.Errorf("first event status = %q, want starting", events[0].Status)
	}
	for _, ev := range events {
		if ev.AnalysisID != run.AnalysisID {
			t.Errorf("event %q has ID %q, want %q", ev.Message, ev.AnalysisID, run.AnalysisID)
		}
	}
}

func TestPipelineExtractionFailureIsFatal(t *testing.T) {
	fx := pipelineFixture{
		gen: &fakeGenerator{err: fmt.Errorf("connection refused")},
	}
	orchestrator := newPipeline(t, fx, nil)

	events := drainEvents(t, orchestrator.Run(context.Background(), "article"))
	if len(events) == 0 {
		t.Fatal("no events delivered")
	}
	last := events[len(events)-1]
	if last.Status != EventError {
		t.Fatalf("last event status = %q, want error", last.Status)
	}
	for _, ev := range events {
		if ev.Status == EventCompleted {
			t.Error("failed run must not emit a completed event")
		}
	}

	if _, err := orchestrator.RunSync(context.Background(), "article"); err == nil {
		t.Error("RunSync should return an error for a failed run")
	}
}

func TestPipelineEmptyArticleCompletes(t *testing.T) {
	classifier := &fakeClassifier{label: "UNKNOWN", confidence: 0}
	gen := &fakeGenerator{}
	scorer := NewArticleScorer(classifier, gen, NewClassificationCache(KeepAllPolicy{}), false)
	extractor := NewClaimExtractor(gen)
	verifier := NewClaimVerifier(NewSearchProvider(gen, &fakeRawSearcher{}), newTestScraper(newFakeFetcher()), 3, 3)
	orchestrator := NewPipelineOrchestrator(scorer, extractor, verifier, nil, nil)

	run, err := orchestrator.RunSync(context.Background(), "")
	if err != nil {
		t.Fatalf("RunSync returned error: %v", err)
	}
	if run.Status != RunCompleted {
		t.Errorf("run status = %q, want completed", run.Status)
	}
	if len(run.Claims) != 0 || len(run.FactChecks) != 0 {
		t.Errorf("empty article produced claims %v, fact checks %v", run.Claims, run.FactChecks)
	}
	if run.Summary != summarySkippedPlaceholder {
		t.Errorf("run summary = %q, want placeholder", run.Summary)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times for empty article, want 0", gen.calls)
	}
}

func TestPipelineDegradedScoringWarnsAndContinues(t *testing.T) {
	fx := pipelineFixture{
		classifier: &fakeClassifier{err: fmt.Errorf("overloaded")},
		gen: &fakeGenerator{responses: []string{
			"A claim.",
			`{"topic": "t", "articles": []}`,
			"Summary.",
		}},
	}
	orchestrator := newPipeline(t, fx, nil)

	events := drainEvents(t, orchestrator.Run(context.Background(), "article"))
	sawWarning := false
	for _, ev := range events {
		if ev.Status == EventWarning && strings.Contains(ev.Message, "sentiment") {
			sawWarning = true
		}
	}
	if !sawWarning {
		t.Error("degraded scoring should emit a warning event")
	}

	last := events[len(events)-1]
	if last.Status != EventCompleted {
		t.Fatalf("last event status = %q, want completed despite degraded scoring", last.Status)
	}
	run := last.Data["result_data"].(*AnalysisRun)
	if run.Sentiment == nil || run.Sentiment.Score != 0.5 {
		t.Errorf("degraded sentiment = %+v, want neutral 0.5", run.Sentiment)
	}
}

func TestPipelinePersistsCompletedRun(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewResultStore: %v", err)
	}
	fx := pipelineFixture{
		gen: &fakeGenerator{responses: []string{
			"A claim.",
			`{"topic": "t", "articles": []}`,
			"Summary.",
		}},
	}
	orchestrator := newPipeline(t, fx, store)

	run, err := orchestrator.RunSync(context.Background(), "article")
	if err != nil {
		t.Fatalf("RunSync returned error: %v", err)
	}

	loaded, err := store.Get(run.AnalysisID)
	if err != nil {
		t.Fatalf("stored run not readable: %v", err)
	}
	if loaded.AnalysisID != run.AnalysisID || loaded.Status != RunCompleted {
		t.Errorf("loaded run = %+v", loaded)
	}
	if loaded.ProcessedDate == "" || loaded.Topic == "" {
		t.Errorf("run metadata missing: processed_date=%q topic=%q", loaded.ProcessedDate, loaded.Topic)
	}
}

func TestRunSyncAsStoresRunUnderCallerID(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewResultStore: %v", err)
	}
	fx := pipelineFixture{
		gen: &fakeGenerator{responses: []string{
			"A claim.",
			`{"topic": "t", "articles": []}`,
			"Summary.",
		}},
	}
	orchestrator := newPipeline(t, fx, store)

	// The ID handed to the caller before the run starts must be the ID
	// the stored result is retrievable under.
	taskID := NewAnalysisID("article", time.Date(2025, 6, 15, 11, 59, 59, 0, time.UTC))
	run, err := orchestrator.RunSyncAs(context.Background(), taskID, "article")
	if err != nil {
		t.Fatalf("RunSyncAs returned error: %v", err)
	}
	if run.AnalysisID != taskID {
		t.Errorf("run ID = %q, want the caller's %q", run.AnalysisID, taskID)
	}
	loaded, err := store.Get(taskID)
	if err != nil {
		t.Fatalf("stored run not retrievable by task ID: %v", err)
	}
	if loaded.Status != RunCompleted {
		t.Errorf("loaded run status = %q", loaded.Status)
	}
}

func TestRunSyncAsEmptyIDMintsOne(t *testing.T) {
	fx := pipelineFixture{
		gen: &fakeGenerator{responses: []string{
			"A claim.",
			`{"topic": "t", "articles": []}`,
			"Summary.",
		}},
	}
	orchestrator := newPipeline(t, fx, nil)

	run, err := orchestrator.RunSyncAs(context.Background(), "", "article")
	if err != nil {
		t.Fatalf("RunSyncAs returned error: %v", err)
	}
	if run.AnalysisID == "" {
		t.Error("empty caller ID should still produce a run ID")
	}
}

func TestRunStatusOnlyMovesForward(t *testing.T) {
	run := &AnalysisRun{Status: RunPending}
	run.AdvanceTo(RunProcessing)
	run.AdvanceTo(RunCompleted)
	run.AdvanceTo(RunProcessing)
	if run.Status != RunCompleted {
		t.Errorf("status = %q, terminal state must not regress", run.Status)
	}

	failed := &AnalysisRun{Status: RunFailed}
	failed.AdvanceTo(RunPending)
	if failed.Status != RunFailed {
		t.Errorf("status = %q, failed state must not regress", failed.Status)
	}
}

func TestNewAnalysisID(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 30, 45, 0, time.UTC)
	id := NewAnalysisID("some article text", now)
	if !strings.HasPrefix(id, "20250615123045_") {
		t.Errorf("id = %q, want timestamp prefix", id)
	}
	parts := strings.SplitN(id, "_", 2)
	if len(parts) != 2 || len(parts[1]) != 10 {
		t.Errorf("id hash part = %q, want 10 hex chars", id)
	}
	if id != NewAnalysisID("some article text", now) {
		t.Error("identical input produced different IDs")
	}
}

func TestDeriveTopic(t *testing.T) {
	if got := DeriveTopic(""); got != "No summary" {
		t.Errorf("DeriveTopic(empty) = %q", got)
	}
	long := strings.Repeat("x", 80)
	if got := DeriveTopic(long); got != long[:50]+"..." {
		t.Errorf("DeriveTopic(long) = %q", got)
	}
	if got := DeriveTopic("Short summary"); got != "Short summary..." {
		t.Errorf("DeriveTopic(short) = %q", got)
	}
}
