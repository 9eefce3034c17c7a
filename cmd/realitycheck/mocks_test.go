package main

import (
	"context"
	"fmt"
	"sync"
)

// Fake capability implementations shared across the tests.

type fakeGenerator struct {
	mutex     sync.Mutex
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls++
	f.prompts = append(f.prompts, user)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

type fakeClassifier struct {
	label      string
	confidence float64
	err        error
	calls      int
	lastText   string
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (string, float64, error) {
	f.calls++
	f.lastText = text
	if f.err != nil {
		return "", 0, f.err
	}
	return f.label, f.confidence, nil
}

type fakeEmbedder struct {
	vectors map[string][]float32
	vector  []float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		if v, ok := f.vectors[text]; ok {
			return v, nil
		}
	}
	return f.vector, nil
}

type fakeRawSearcher struct {
	citations []Citation
	err       error
	calls     int
}

func (f *fakeRawSearcher) SearchNews(ctx context.Context, topic string) ([]Citation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.citations, nil
}

// fakeFetcher replays scripted responses per URL; a response with a non-nil
// error simulates a network failure, panicMsg simulates a crashing fetch.
type fetchResponse struct {
	content  string
	err      error
	panicMsg string
}

type fakeFetcher struct {
	mutex     sync.Mutex
	responses map[string][]fetchResponse
	calls     map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string][]fetchResponse),
		calls:     make(map[string]int),
	}
}

func (f *fakeFetcher) script(url string, responses ...fetchResponse) {
	f.responses[url] = responses
}

func (f *fakeFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	f.mutex.Lock()
	f.calls[url]++
	queue := f.responses[url]
	var resp fetchResponse
	if len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			f.responses[url] = queue[1:]
		}
	} else {
		resp = fetchResponse{err: fmt.Errorf("no scripted response for %s", url)}
	}
	f.mutex.Unlock()

	if resp.panicMsg != "" {
		panic(resp.panicMsg)
	}
	return resp.content, resp.err
}

func (f *fakeFetcher) callCount(url string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.calls[url]
}

// newTestScraper builds a scraper with no retry delay
func newTestScraper(fetcher PageFetcher) *ContentScraper {
	return &ContentScraper{
		fetcher:    fetcher,
		attempts:   scrapeAttempts,
		retryDelay: 0,
	}
}

func longContent(marker string) string {
	content := marker
	for len(content) < minScrapedLength+20 {
		content += " article body text"
	}
	return content
}
