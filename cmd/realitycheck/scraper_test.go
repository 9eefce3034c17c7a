package main

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestScrapeReturnsContentOnFirstSuccess(t *testing.T) {
	fetcher := newFakeFetcher()
	body := longContent("first try")
	fetcher.script("https://example.com/a", fetchResponse{content: body})
	scraper := newTestScraper(fetcher)

	got := scraper.Scrape(context.Background(), "https://example.com/a")
	if got != body {
		t.Errorf("Scrape = %q, want fetched body", got)
	}
	if n := fetcher.callCount("https://example.com/a"); n != 1 {
		t.Errorf("fetch called %d times, want 1", n)
	}
}

func TestScrapeMissingURLSentinels(t *testing.T) {
	fetcher := newFakeFetcher()
	scraper := newTestScraper(fetcher)

	for _, url := range []string{"", "None"} {
		got := scraper.Scrape(context.Background(), url)
		if got != scrapeNoURLSentinel {
			t.Errorf("Scrape(%q) = %q, want sentinel", url, got)
		}
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("fetcher should not be called for missing URLs, calls = %v", fetcher.calls)
	}
}

func TestScrapeRetriesShortContent(t *testing.T) {
	fetcher := newFakeFetcher()
	body := longContent("eventually")
	fetcher.script("https://example.com/short",
		fetchResponse{content: "too short"},
		fetchResponse{content: body},
	)
	scraper := newTestScraper(fetcher)

	got := scraper.Scrape(context.Background(), "https://example.com/short")
	if got != body {
		t.Errorf("Scrape = %q, want second attempt body", got)
	}
	if n := fetcher.callCount("https://example.com/short"); n != 2 {
		t.Errorf("fetch called %d times, want 2", n)
	}
}

func TestScrapeMakesAtMostThreeAttempts(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.script("https://example.com/down",
		fetchResponse{err: errors.New("timeout")},
		fetchResponse{err: errors.New("timeout")},
		fetchResponse{err: errors.New("timeout")},
		fetchResponse{content: longContent("never reached")},
	)
	scraper := newTestScraper(fetcher)

	got := scraper.Scrape(context.Background(), "https://example.com/down")
	if !strings.HasPrefix(got, "Failed to scrape content:") {
		t.Errorf("Scrape = %q, want failure string", got)
	}
	if n := fetcher.callCount("https://example.com/down"); n != scrapeAttempts {
		t.Errorf("fetch called %d times, want %d", n, scrapeAttempts)
	}
}

func TestScrapeExhaustedRetriesReportsLastError(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.script("https://example.com/flaky",
		fetchResponse{err: errors.New("connection reset")},
		fetchResponse{content: "tiny"},
		fetchResponse{content: "tiny"},
	)
	scraper := newTestScraper(fetcher)

	got := scraper.Scrape(context.Background(), "https://example.com/flaky")
	if !strings.Contains(got, "too short") {
		t.Errorf("failure string should describe the last attempt, got %q", got)
	}
}

func TestScrapeManyPreservesInputOrder(t *testing.T) {
	fetcher := newFakeFetcher()
	citations := make([]Citation, 5)
	bodies := make([]string, 5)
	for i := range citations {
		url := "https://example.com/" + string(rune('a'+i))
		bodies[i] = longContent(url)
		fetcher.script(url, fetchResponse{content: bodies[i]})
		citations[i] = Citation{Title: url, URL: url}
	}
	scraper := newTestScraper(fetcher)

	enriched := scraper.ScrapeMany(context.Background(), citations, 3)
	if len(enriched) != len(citations) {
		t.Fatalf("got %d citations, want %d", len(enriched), len(citations))
	}
	for i, c := range enriched {
		if c.URL != citations[i].URL {
			t.Errorf("citation %d out of order: got %s, want %s", i, c.URL, citations[i].URL)
		}
		if c.Content != bodies[i] {
			t.Errorf("citation %d content mismatch", i)
		}
	}
}

func TestScrapeManyConvertsPanicsToFailureContent(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.script("https://example.com/ok", fetchResponse{content: longContent("fine")})
	fetcher.script("https://example.com/boom", fetchResponse{panicMsg: "parser exploded"})
	scraper := newTestScraper(fetcher)

	citations := []Citation{
		{Title: "ok", URL: "https://example.com/ok"},
		{Title: "boom", URL: "https://example.com/boom"},
	}
	enriched := scraper.ScrapeMany(context.Background(), citations, 2)

	if enriched[0].Content == "" || strings.HasPrefix(enriched[0].Content, "Failed") {
		t.Errorf("healthy citation affected by sibling panic: %q", enriched[0].Content)
	}
	if enriched[1].Content != "Failed to scrape content." {
		t.Errorf("panicking citation content = %q, want failure marker", enriched[1].Content)
	}
}

func TestScrapeManyEmptyInput(t *testing.T) {
	scraper := newTestScraper(newFakeFetcher())
	enriched := scraper.ScrapeMany(context.Background(), nil, 3)
	if enriched == nil || len(enriched) != 0 {
		t.Errorf("ScrapeMany(nil) = %v, want empty slice", enriched)
	}
}

func TestNormalizeTextCollapsesWhitespace(t *testing.T) {
	got := normalizeText("  a\n\nb\t c  ")
	if got != "a b c" {
		t.Errorf("normalizeText = %q, want %q", got, "a b c")
	}
}
