package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

const (
	// scrapeNoURLSentinel is returned without a network call for missing URLs
	scrapeNoURLSentinel = "No valid URL provided for scraping."
	// minScrapedLength is the threshold below which a result is treated as a
	// likely failed scrape and retried
	minScrapedLength = 100
	// scrapeAttempts bounds the fetch attempts per URL
	scrapeAttempts = 3
)

// ContentScraper fetches page text with bounded retries. Scrape always
// returns a string; failures degrade to descriptive sentinel values so the
// caller never has to branch on partial failure.
type ContentScraper struct {
	fetcher    PageFetcher
	attempts   int
	retryDelay time.Duration
}

// NewContentScraper creates a scraper over the given page fetcher
func NewContentScraper(fetcher PageFetcher) *ContentScraper {
	return &ContentScraper{
		fetcher:  fetcher,
		attempts: scrapeAttempts,
		// Fixed delay between retries; the embedding path backs off
		// exponentially instead, tuned per operation type.
		retryDelay: 2 * time.Second,
	}
}

// Scrape retrieves the readable content of a URL. A result shorter than
// minScrapedLength counts as a failed attempt, not just network errors.
func (s *ContentScraper) Scrape(ctx context.Context, url string) string {
	if url == "" || url == "None" {
		return scrapeNoURLSentinel
	}

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		content, err := s.fetcher.FetchPage(ctx, url)
		if err == nil && len(content) >= minScrapedLength {
			return content
		}
		if err == nil {
			lastErr = fmt.Errorf("scraped content too short (%d chars)", len(content))
			Logger().Debug("Short result from %s, retrying (%d/%d)", url, attempt, s.attempts)
		} else {
			lastErr = err
			Logger().Debug("Error scraping %s, retrying (%d/%d): %v", url, attempt, s.attempts, err)
		}

		if attempt < s.attempts && s.retryDelay > 0 {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return fmt.Sprintf("Failed to scrape content: %v", ctx.Err())
			}
		}
	}

	Logger().Info("Failed to scrape %s after %d attempts: %v", url, s.attempts, lastErr)
	return fmt.Sprintf("Failed to scrape content: %v", lastErr)
}

// ScrapeMany enriches citations in parallel over a bounded worker pool.
// Results come back in the input citation order regardless of completion
// order, and a panicking task is converted into a failure-content citation
// without disturbing its siblings.
func (s *ContentScraper) ScrapeMany(ctx context.Context, citations []Citation, maxWorkers int) []Citation {
	if len(citations) == 0 {
		return []Citation{}
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxWorkers > len(citations) {
		maxWorkers = len(citations)
	}

	Logger().Info("Scraping %d articles with %d workers", len(citations), maxWorkers)

	enriched := make([]Citation, len(citations))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				enriched[idx] = s.scrapeOne(ctx, citations[idx])
			}
		}()
	}

	for idx := range citations {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return enriched
}

// scrapeOne copies a citation and fills in its content, absorbing panics at
// the pool boundary.
func (s *ContentScraper) scrapeOne(ctx context.Context, citation Citation) (result Citation) {
	result = citation
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("Panic scraping %s: %v", citation.URL, r)
			result = citation
			result.Content = "Failed to scrape content."
		}
	}()
	result.Content = s.Scrape(ctx, citation.URL)
	return result
}

// HTTPPageFetcher fetches pages over HTTP and extracts their readable text.
type HTTPPageFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewHTTPPageFetcher creates a rate-limited page fetcher
func NewHTTPPageFetcher(timeout time.Duration, perSecond float64, userAgent string) *HTTPPageFetcher {
	if perSecond <= 0 {
		perSecond = 2
	}
	return &HTTPPageFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		limiter:   rate.NewLimiter(rate.Limit(perSecond), 2),
		userAgent: userAgent,
	}
}

// FetchPage retrieves a URL and returns its cleaned article text
func (f *HTTPPageFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, header, footer, noscript, iframe").Remove()

	var parts []string
	doc.Find("article p, main p, p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})

	text := strings.Join(parts, "\n")
	if text == "" {
		// Pages without paragraph markup still get their raw text nodes
		text = collectTextNodes(doc.Selection.Nodes)
	}

	return normalizeText(text), nil
}

// collectTextNodes walks the parsed HTML tree and gathers bare text nodes
func collectTextNodes(nodes []*html.Node) string {
	var builder strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				builder.WriteString(text)
				builder.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				switch c.Data {
				case "script", "style", "noscript":
					continue
				}
			}
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return builder.String()
}

// normalizeText canonicalizes unicode and collapses whitespace runs
func normalizeText(text string) string {
	text = norm.NFC.String(text)
	return strings.Join(strings.Fields(text), " ")
}
