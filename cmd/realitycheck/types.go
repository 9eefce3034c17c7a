package main

import (
	"crypto/md5"
	"fmt"
	"time"
)

// RunStatus tracks the lifecycle of an analysis run. Transitions only move
// forward; a completed or failed run never returns to processing.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

var runStatusRank = map[RunStatus]int{
	RunPending:    0,
	RunProcessing: 1,
	RunCompleted:  2,
	RunFailed:     2,
}

// EventStatus classifies a progress event on the stream.
type EventStatus string

const (
	EventStarting   EventStatus = "starting"
	EventProcessing EventStatus = "processing"
	EventWarning    EventStatus = "warning"
	EventError      EventStatus = "error"
	EventCompleted  EventStatus = "completed"
	EventInfo       EventStatus = "info"
	EventDone       EventStatus = "done"
)

// Citation is one candidate source returned by news search. Content is
// filled in by the scraper; the search metadata is never overwritten.
type Citation struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	Date    string `json:"date"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Content string `json:"content,omitempty"`
}

// FactCheckEntry is the verification record for a single claim. Error is
// set when search produced nothing usable; the claim still gets an entry.
type FactCheckEntry struct {
	Statement   string     `json:"statement"`
	SearchTopic string     `json:"search_topic"`
	Articles    []Citation `json:"articles"`
	Error       string     `json:"error,omitempty"`
}

// SentimentResult holds the article-level authenticity classification.
type SentimentResult struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// AnalysisRun is the complete record of one article's fact-check processing.
// It is what gets persisted and what the terminal progress event carries.
type AnalysisRun struct {
	AnalysisID       string           `json:"analysis_id"`
	Article          string           `json:"article"`
	VerificationDate string           `json:"verification_date"`
	Status           RunStatus        `json:"status"`
	Sentiment        *SentimentResult `json:"sentiment_analysis,omitempty"`
	Claims           []string         `json:"claims"`
	FactChecks       []FactCheckEntry `json:"fact_checks"`
	Summary          string           `json:"summary,omitempty"`
	SummaryEmbedding []float32        `json:"summary_embeddings,omitempty"`
	ProcessedDate    string           `json:"processed_date,omitempty"`
	Topic            string           `json:"topic,omitempty"`
}

// AdvanceTo moves the run status forward. Backward transitions are ignored
// so a terminal state can never be overwritten.
func (r *AnalysisRun) AdvanceTo(status RunStatus) {
	if runStatusRank[status] >= runStatusRank[r.Status] {
		r.Status = status
	}
}

// ProgressEvent is one incremental update emitted during a run. Events are
// transient; only the terminal payload is persisted.
type ProgressEvent struct {
	Status     EventStatus            `json:"status"`
	Message    string                 `json:"message,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	AnalysisID string                 `json:"analysis_id,omitempty"`
}

// NewAnalysisID derives a deterministic, human-traceable run ID from the
// submission time and a hash of the article's first 100 bytes.
func NewAnalysisID(article string, now time.Time) string {
	prefix := article
	if len(prefix) > 100 {
		prefix = prefix[:100]
	}
	hash := fmt.Sprintf("%x", md5.Sum([]byte(prefix)))
	return fmt.Sprintf("%s_%s", now.Format("20060102150405"), hash[:10])
}

// DeriveTopic builds the short topic string stored alongside a run.
func DeriveTopic(summary string) string {
	if summary == "" {
		return "No summary"
	}
	if len(summary) > 50 {
		return summary[:50] + "..."
	}
	return summary + "..."
}

func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
