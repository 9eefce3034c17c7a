package main

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// classifierTokenBudget is the rough token limit for the classification
// capability; longer articles are truncated before scoring, which may
// mis-score them. Documented lossy behavior.
const classifierTokenBudget = 450

// summarySkippedPlaceholder stands in for the summary when no generation
// credential is configured; the run still completes.
const summarySkippedPlaceholder = "Summarization skipped due to missing API key."

var tokenPattern = regexp.MustCompile(`\w+|[^\w\s]`)

// ArticleScorer produces the article-level authenticity score and summary.
// Both are per-run degraded capabilities: they return neutral or placeholder
// values with an embedded explanation instead of failing the run.
type ArticleScorer struct {
	classifier TextClassifier
	gen        TextGenerator
	cache      *ClassificationCache
	hasAPIKey  bool
}

// NewArticleScorer creates a scorer. The cache is injected so callers
// choose the eviction policy; hasAPIKey gates summarization.
func NewArticleScorer(classifier TextClassifier, gen TextGenerator, cache *ClassificationCache, hasAPIKey bool) *ArticleScorer {
	if cache == nil {
		cache = NewClassificationCache(KeepAllPolicy{})
	}
	return &ArticleScorer{
		classifier: classifier,
		gen:        gen,
		cache:      cache,
		hasAPIKey:  hasAPIKey,
	}
}

// Score classifies the article's authenticity. The returned result is
// always usable; a non-nil error only signals that the neutral fallback was
// taken so the caller can surface a warning.
func (s *ArticleScorer) Score(ctx context.Context, articleText string) (SentimentResult, error) {
	key := HashText(articleText)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	text := truncateToTokenBudget(articleText, classifierTokenBudget)

	label, confidence, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return SentimentResult{
			Score:     0.5,
			Reasoning: fmt.Sprintf("Failed to analyze sentiment: %v", err),
		}, err
	}

	result := interpretLabel(label, confidence)
	s.cache.Put(key, result)
	return result, nil
}

// interpretLabel maps a classifier label onto the 0..1 authenticity scale
// by substring match, so provider-specific label spellings still resolve.
func interpretLabel(label string, confidence float64) SentimentResult {
	upper := strings.ToUpper(label)

	switch {
	case strings.Contains(upper, "REAL") || strings.Contains(upper, "AUTHENTIC") || strings.Contains(upper, "TRUE"):
		return SentimentResult{Score: confidence, Reasoning: label}
	case strings.Contains(upper, "FAKE") || strings.Contains(upper, "FALSE"):
		return SentimentResult{Score: 1 - confidence, Reasoning: label}
	default:
		return SentimentResult{
			Score:     0.5,
			Reasoning: fmt.Sprintf("unclear classification: %s", label),
		}
	}
}

// Summarize produces the article summary. Failures return a descriptive
// placeholder and an error for the caller's warning, never abort the run.
func (s *ArticleScorer) Summarize(ctx context.Context, articleText string) (string, error) {
	if !s.hasAPIKey || s.gen == nil {
		return summarySkippedPlaceholder, fmt.Errorf("no generation API key configured")
	}

	summary, err := s.gen.Generate(ctx, "You summarize news articles concisely and factually.",
		fmt.Sprintf("Summarize the following article:\n\n%s", articleText))
	if err != nil {
		return fmt.Sprintf("Error generating summary: %v", err), err
	}
	return strings.TrimSpace(summary), nil
}

// truncateToTokenBudget approximates tokenization as words and punctuation
// marks and keeps the first budget tokens.
func truncateToTokenBudget(text string, budget int) string {
	tokens := tokenPattern.FindAllString(text, -1)
	if len(tokens) <= budget {
		return text
	}
	return strings.Join(tokens[:budget], " ")
}
