package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// searchAgentPrompt instructs the generator to answer with nothing but the
// citation JSON schema. Models still wrap or annotate the output often
// enough that the response goes through extractArticlesJSON before use.
const searchAgentPrompt = `You are a machine that only outputs valid JSON. You never explain or add commentary. You only return data in the exact JSON format specified.
Search your knowledge of current news coverage and return articles relevant to the user's topic as valid JSON matching this EXACT structure:
{
  "topic": "REPLACE_WITH_SEARCH_TOPIC",
  "timestamp": "YYYY-MM-DDTHH:MM:SSZ",
  "articles": [
    {
      "title": "Article Title",
      "source": "Publication Name",
      "date": "Publication Date",
      "url": "https://full.url.com",
      "snippet": "Brief description"
    }
  ]
}
CRITICAL INSTRUCTIONS:
- Return ONLY JSON, no other text
- Do NOT include explanations before or after the JSON
- Do NOT include code block markers in your response
- If dates are unavailable, use the current date in ISO format`

// SearchResult is the validated output of a claim search.
type SearchResult struct {
	Topic     string     `json:"topic"`
	Timestamp string     `json:"timestamp"`
	Articles  []Citation `json:"articles"`
}

// SearchProvider finds candidate citations for a claim. The structured
// agent path is tried first; anything short of a validated result degrades
// to the raw search API. Search never panics and only returns an error when
// both paths fail, which callers treat as per-claim degradation.
type SearchProvider struct {
	gen TextGenerator
	raw RawSearcher
}

// NewSearchProvider creates a search provider with both paths wired
func NewSearchProvider(gen TextGenerator, raw RawSearcher) *SearchProvider {
	return &SearchProvider{gen: gen, raw: raw}
}

// Search returns ranked citations for the topic
func (s *SearchProvider) Search(ctx context.Context, topic string) (*SearchResult, error) {
	if result := s.structuredSearch(ctx, topic); result != nil {
		return result, nil
	}

	Logger().Info("Could not extract valid JSON for %q, using raw search results", truncate(topic, 50))
	citations, err := s.raw.SearchNews(ctx, topic)
	if err != nil {
		return nil, NewSearchError(ErrSearchAPIFailure, fmt.Sprintf("both search paths failed for topic %q", truncate(topic, 50)), err)
	}
	return &SearchResult{
		Topic:     topic,
		Timestamp: isoTimestamp(time.Now()),
		Articles:  citations,
	}, nil
}

// structuredSearch runs the agent path and validates its output. Returns
// nil on any failure so the caller falls through to the raw path.
func (s *SearchProvider) structuredSearch(ctx context.Context, topic string) *SearchResult {
	if s.gen == nil {
		return nil
	}

	response, err := s.gen.Generate(ctx, searchAgentPrompt, fmt.Sprintf("Search for news about: %s", topic))
	if err != nil {
		Logger().Warning("Structured search failed for %q: %v", truncate(topic, 50), err)
		return nil
	}

	obj, ok := extractArticlesJSON(response)
	if !ok {
		return nil
	}

	// Round-trip through JSON to coerce the loose map into the schema
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	var result SearchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	if result.Topic == "" {
		result.Topic = topic
	}
	if result.Timestamp == "" {
		result.Timestamp = isoTimestamp(time.Now())
	}
	return &result
}

// extractArticlesJSON scans noisy generator output for a JSON object with a
// list-typed "articles" field. When several JSON-looking substrings exist,
// candidates are tried longest first and the first one that parses and
// validates wins.
func extractArticlesJSON(text string) (map[string]interface{}, bool) {
	candidates := jsonCandidates(text)
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i]) > len(candidates[j])
	})

	for _, candidate := range candidates {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
			continue
		}
		articles, exists := obj["articles"]
		if !exists {
			continue
		}
		if _, isList := articles.([]interface{}); !isList {
			continue
		}
		return obj, true
	}
	return nil, false
}

// jsonCandidates returns every balanced-brace substring of the text
func jsonCandidates(text string) []string {
	var candidates []string
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			ch := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == '"':
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidates = append(candidates, text[start:i+1])
					i = len(text)
				}
			}
		}
	}
	return candidates
}

// truncate shortens a string to n characters without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
