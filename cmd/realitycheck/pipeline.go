package main

import (
	"context"
	"fmt"
	"time"
)

// PipelineOrchestrator drives the end-to-end fact-check sequence: score,
// extract claims, verify each claim, summarize, embed. Claims are verified
// one at a time while each claim's citation scraping fans out internally,
// which bounds concurrent connections to maxCitations x scrapeWorkers no
// matter how long the article is.
type PipelineOrchestrator struct {
	scorer    *ArticleScorer
	extractor *ClaimExtractor
	verifier  *ClaimVerifier
	embedder  Embedder
	store     *ResultStore
	now       func() time.Time
}

// NewPipelineOrchestrator wires the pipeline stages together. The store may
// be nil for callers that persist results themselves.
func NewPipelineOrchestrator(scorer *ArticleScorer, extractor *ClaimExtractor, verifier *ClaimVerifier, embedder Embedder, store *ResultStore) *PipelineOrchestrator {
	return &PipelineOrchestrator{
		scorer:    scorer,
		extractor: extractor,
		verifier:  verifier,
		embedder:  embedder,
		store:     store,
		now:       time.Now,
	}
}

// Run executes the pipeline and streams progress events. The channel always
// delivers a terminal event (completed with the full run, or error) before
// closing, even when upstream capabilities degrade.
func (o *PipelineOrchestrator) Run(ctx context.Context, articleText string) <-chan ProgressEvent {
	events := make(chan ProgressEvent, 16)
	go func() {
		defer close(events)
		emit := func(ev ProgressEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}
		o.execute(ctx, articleText, "", emit)
	}()
	return events
}

// RunSync drains the event stream and returns the completed run. Used by
// non-streaming callers like the ingestor.
func (o *PipelineOrchestrator) RunSync(ctx context.Context, articleText string) (*AnalysisRun, error) {
	return o.RunSyncAs(ctx, "", articleText)
}

// RunSyncAs runs the pipeline under a caller-assigned analysis ID so an ID
// handed out before the run started still identifies the stored result. An
// empty ID mints a fresh one.
func (o *PipelineOrchestrator) RunSyncAs(ctx context.Context, id, articleText string) (*AnalysisRun, error) {
	var run *AnalysisRun
	var failure error
	o.execute(ctx, articleText, id, func(ev ProgressEvent) {
		switch ev.Status {
		case EventCompleted:
			if r, ok := ev.Data["result_data"].(*AnalysisRun); ok {
				run = r
			}
		case EventError:
			failure = NewPipelineError(ErrPipelineFatal, ev.Message, nil)
		}
	})
	if failure != nil {
		return nil, failure
	}
	if run == nil {
		return nil, NewPipelineError(ErrPipelineFatal, "pipeline produced no terminal result", nil)
	}
	return run, nil
}

// execute is the single pipeline implementation behind Run and RunSync.
// Recoverable failures become data (sentinel strings, neutral scores, error
// markers) at the failure site; only claim extraction being unreachable
// aborts the run.
func (o *PipelineOrchestrator) execute(ctx context.Context, articleText, id string, emit func(ProgressEvent)) {
	if id == "" {
		id = NewAnalysisID(articleText, o.now())
	}
	run := &AnalysisRun{
		AnalysisID:       id,
		Article:          articleText,
		VerificationDate: isoTimestamp(o.now()),
		Status:           RunPending,
		Claims:           []string{},
		FactChecks:       []FactCheckEntry{},
	}

	emit(ProgressEvent{Status: EventStarting, Message: "Starting fact check process", AnalysisID: id})
	run.AdvanceTo(RunProcessing)

	// Article-level authenticity score; degrades to neutral, never fatal
	emit(ProgressEvent{Status: EventProcessing, Message: "Analyzing article sentiment...", AnalysisID: id})
	sentiment, err := o.scorer.Score(ctx, articleText)
	run.Sentiment = &sentiment
	if err != nil {
		emit(ProgressEvent{
			Status:     EventWarning,
			Message:    fmt.Sprintf("Error analyzing sentiment: %v", err),
			AnalysisID: id,
		})
	} else {
		emit(ProgressEvent{
			Status:     EventProcessing,
			Message:    fmt.Sprintf("Sentiment analysis complete: %s (%.2f)", sentiment.Reasoning, sentiment.Score),
			Data:       map[string]interface{}{"sentiment": sentiment},
			AnalysisID: id,
		})
	}

	// Claim extraction is the one fatal stage
	emit(ProgressEvent{Status: EventProcessing, Message: "Extracting statements to verify...", AnalysisID: id})
	claims, err := o.extractor.Extract(ctx, articleText)
	if err != nil {
		run.AdvanceTo(RunFailed)
		Logger().Error("Run %s failed: %v", id, err)
		emit(ProgressEvent{
			Status:     EventError,
			Message:    fmt.Sprintf("Error during processing: %v", err),
			AnalysisID: id,
		})
		return
	}
	run.Claims = append(run.Claims, claims...)
	emit(ProgressEvent{
		Status:     EventProcessing,
		Message:    fmt.Sprintf("Found %d statements to verify", len(claims)),
		Data:       map[string]interface{}{"chunks_count": len(claims)},
		AnalysisID: id,
	})

	// Verify claims sequentially; scraping inside each claim is parallel
	for i, claim := range claims {
		emit(ProgressEvent{
			Status:  EventProcessing,
			Message: fmt.Sprintf("Verifying statement %d/%d: %s...", i+1, len(claims), truncate(claim, 50)),
			Data: map[string]interface{}{
				"current_chunk": i + 1,
				"total_chunks":  len(claims),
				"chunk_text":    truncate(claim, 50),
			},
			AnalysisID: id,
		})

		entry := o.verifier.Verify(ctx, claim)
		run.FactChecks = append(run.FactChecks, entry)

		message := fmt.Sprintf("Completed verification of statement %d/%d", i+1, len(claims))
		if entry.Error != "" {
			message = fmt.Sprintf("No articles found for statement %d/%d", i+1, len(claims))
		}
		emit(ProgressEvent{
			Status:     EventProcessing,
			Message:    message,
			Data:       map[string]interface{}{"fact_check": entry},
			AnalysisID: id,
		})
	}

	// Summary; placeholder on failure, never fatal
	emit(ProgressEvent{Status: EventProcessing, Message: "Generating article summary...", AnalysisID: id})
	summary, err := o.scorer.Summarize(ctx, articleText)
	run.Summary = summary
	if err != nil {
		emit(ProgressEvent{
			Status:     EventWarning,
			Message:    fmt.Sprintf("Summarization degraded: %v", err),
			AnalysisID: id,
		})
	} else {
		emit(ProgressEvent{
			Status:     EventProcessing,
			Message:    "Summary generation complete",
			Data:       map[string]interface{}{"summary": summary},
			AnalysisID: id,
		})
	}

	// Summary embedding; missing embeddings are a warning, not a failure
	emit(ProgressEvent{Status: EventProcessing, Message: "Generating embeddings for the summary...", AnalysisID: id})
	if o.embedder != nil {
		embedding, err := o.embedder.Embed(ctx, summary)
		if err != nil || len(embedding) == 0 {
			emit(ProgressEvent{Status: EventWarning, Message: "Could not generate embeddings", AnalysisID: id})
		} else {
			run.SummaryEmbedding = embedding
			emit(ProgressEvent{
				Status:     EventProcessing,
				Message:    fmt.Sprintf("Generated embeddings (dimension: %d)", len(embedding)),
				Data:       map[string]interface{}{"embedding_dimension": len(embedding)},
				AnalysisID: id,
			})
		}
	} else {
		emit(ProgressEvent{Status: EventWarning, Message: "Could not generate embeddings", AnalysisID: id})
	}

	run.AdvanceTo(RunCompleted)
	run.ProcessedDate = o.now().Format(time.RFC3339)
	run.Topic = DeriveTopic(run.Summary)

	if o.store != nil {
		if err := o.store.Save(run); err != nil {
			emit(ProgressEvent{
				Status:     EventWarning,
				Message:    fmt.Sprintf("Error saving results: %v", err),
				AnalysisID: id,
			})
		} else {
			emit(ProgressEvent{
				Status:     EventProcessing,
				Message:    fmt.Sprintf("Results saved with ID: %s", id),
				Data:       map[string]interface{}{"result_id": id},
				AnalysisID: id,
			})
		}
	}

	emit(ProgressEvent{
		Status:     EventCompleted,
		Message:    "Fact checking process complete",
		Data:       map[string]interface{}{"result_data": run},
		AnalysisID: id,
	})
}
