package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/time/rate"
)

const serperNewsEndpoint = "https://google.serper.dev/news"

// SerperClient is the direct news-search API client, used as the fallback
// path when the structured search agent produces nothing usable.
type SerperClient struct {
	apiKey     string
	client     *http.Client
	limiter    *rate.Limiter
	numResults int
}

// NewSerperClient creates a rate-limited Serper news search client
func NewSerperClient(apiKey string, perSecond float64) *SerperClient {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &SerperClient{
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		numResults: 10,
	}
}

type serperItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
	Date    string `json:"date"`
}

type serperResponse struct {
	News    []serperItem `json:"news"`
	Organic []serperItem `json:"organic"`
}

// SearchNews queries the Serper news API and synthesizes citations from the
// provider-native result shape, filling in defaults for missing fields.
func (s *SerperClient) SearchNews(ctx context.Context, topic string) ([]Citation, error) {
	if s.apiKey == "" {
		return nil, NewSearchError(ErrSearchAPIFailure, "serper API key not configured", nil)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, NewSearchError(ErrSearchAPIFailure, "search rate limiter interrupted", err)
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"q":   topic,
		"num": s.numResults,
	})
	if err != nil {
		return nil, NewSearchError(ErrSearchAPIFailure, "failed to encode search request", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", serperNewsEndpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, NewSearchError(ErrSearchAPIFailure, "failed to build search request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewSearchError(ErrSearchAPIFailure, "search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewSearchError(ErrSearchAPIFailure, fmt.Sprintf("search API returned status: %s", resp.Status), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewSearchError(ErrSearchAPIFailure, "failed to read search response", err)
	}

	var result serperResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, NewSearchError(ErrSearchAPIFailure, "failed to parse search response", err)
	}

	items := result.News
	if len(items) == 0 {
		items = result.Organic
	}

	now := isoTimestamp(time.Now())
	var citations []Citation
	for _, item := range items {
		c := Citation{
			Title:   item.Title,
			Source:  item.Source,
			Date:    item.Date,
			URL:     item.Link,
			Snippet: item.Snippet,
		}
		if c.Title == "" {
			c.Title = "No title"
		}
		if c.Source == "" {
			c.Source = extractDomain(item.Link)
		}
		if c.Date == "" {
			c.Date = now
		}
		if c.Snippet == "" {
			c.Snippet = "No snippet available"
		}
		citations = append(citations, c)
	}
	return citations, nil
}

var domainPattern = regexp.MustCompile(`^https?://(?:www\.)?([^/]+)`)

// extractDomain pulls the host out of a URL for use as a citation source
func extractDomain(url string) string {
	if m := domainPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return "Unknown Source"
}
