package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/robfig/cron/v3"
)

// Ingestor watches RSS feeds and runs new items through the fact-check
// pipeline on a cron schedule. Items are processed one at a time; the
// pipeline's own concurrency bounds already cap network fan-out.
type Ingestor struct {
	parser *gofeed.Parser
	orch   *PipelineOrchestrator
	feeds  []FeedSource
	seen   map[string]bool
	mutex  sync.Mutex
	cron   *cron.Cron
}

// NewIngestor creates an ingestor over the configured feeds
func NewIngestor(orch *PipelineOrchestrator, feeds []FeedSource) *Ingestor {
	return &Ingestor{
		parser: gofeed.NewParser(),
		orch:   orch,
		feeds:  feeds,
		seen:   make(map[string]bool),
	}
}

// Start schedules periodic feed checks with the given cron spec
func (ing *Ingestor) Start(spec string) error {
	ing.cron = cron.New()
	if _, err := ing.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		ing.RunOnce(ctx)
	}); err != nil {
		return NewConfigError(ErrConfigValidation, "invalid ingest cron spec", err)
	}
	ing.cron.Start()
	Logger().Info("Feed ingestion scheduled (%s, %d feeds)", spec, len(ing.feeds))
	return nil
}

// Stop halts the schedule
func (ing *Ingestor) Stop() {
	if ing.cron != nil {
		ing.cron.Stop()
	}
}

// RunOnce fetches every enabled feed and fact-checks unseen items
func (ing *Ingestor) RunOnce(ctx context.Context) {
	for _, feed := range ing.feeds {
		if !feed.Enabled {
			continue
		}
		if err := ing.ingestFeed(ctx, feed); err != nil {
			Logger().Warning("Failed to ingest feed %s: %v", feed.Name, err)
		}
	}
}

func (ing *Ingestor) ingestFeed(ctx context.Context, source FeedSource) error {
	feed, err := ing.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return err
	}

	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}
		if !ing.markSeen(item.Link) {
			continue
		}

		text := feedItemText(item)
		Logger().Info("Ingesting %q from %s", truncate(item.Title, 60), source.Name)
		GetState().RecordIngested()

		run, err := ing.orch.RunSync(ctx, text)
		if err != nil {
			Logger().Warning("Fact check of ingested item %q failed: %v", truncate(item.Title, 60), err)
			continue
		}
		Logger().Info("Ingested item %q completed as run %s", truncate(item.Title, 60), run.AnalysisID)
	}
	return nil
}

// markSeen records a URL; returns false when it was already processed
func (ing *Ingestor) markSeen(url string) bool {
	ing.mutex.Lock()
	defer ing.mutex.Unlock()
	if ing.seen[url] {
		return false
	}
	ing.seen[url] = true
	return true
}

// feedItemText assembles the article text for the pipeline from whatever
// fields the feed provides.
func feedItemText(item *gofeed.Item) string {
	body := item.Content
	if body == "" {
		body = item.Description
	}
	body = stripHTMLTags(body)
	if body == "" {
		return item.Title
	}
	return item.Title + "\n\n" + body
}

// stripHTMLTags flattens feed HTML into plain text
func stripHTMLTags(s string) string {
	if s == "" || !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return normalizeText(doc.Text())
}
