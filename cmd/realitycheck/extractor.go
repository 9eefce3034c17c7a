package main

import (
	"context"
	"regexp"
	"strings"
)

// extractionPrompt constrains the generator to newline-delimited,
// self-contained factual statements with no commentary.
const extractionPrompt = "Analyze the given article and extract complete, self-contained sentences or chunks that make factual claims, assertions, or statements requiring verification. Ensure that each extracted chunk has enough context to be meaningfully checked against external sources. Do not provide any explanations or summaries—only return the extracted statements that require fact-checking."

var (
	// Lines that are nothing but numbering or bullet characters
	bulletOnlyPattern = regexp.MustCompile(`^[\d.\-*•]+$`)
	// Leading list markers: "1. ", "2) " or bullet characters. Anchored so
	// digits that are part of the claim ("2024 revenues rose") stay intact.
	bulletPrefixPattern = regexp.MustCompile(`^(?:\d+[.)]\s+|[-*•]+\s*)`)
)

// ClaimExtractor turns raw article text into an ordered list of atomic,
// checkable claims. Repeated or near-duplicate claims are kept as distinct
// entries; no semantic deduplication is attempted.
type ClaimExtractor struct {
	gen TextGenerator
}

// NewClaimExtractor creates a claim extractor backed by a text generator
func NewClaimExtractor(gen TextGenerator) *ClaimExtractor {
	return &ClaimExtractor{gen: gen}
}

// Extract returns the article's checkable claims in generation order. The
// only failure mode is the generation capability being unreachable, which
// is fatal for the run.
func (e *ClaimExtractor) Extract(ctx context.Context, articleText string) ([]string, error) {
	if strings.TrimSpace(articleText) == "" {
		return nil, nil
	}

	response, err := e.gen.Generate(ctx, extractionPrompt, "Article:\n"+articleText)
	if err != nil {
		return nil, NewPipelineError(ErrPipelineFatal, "claim extraction capability unreachable", err)
	}

	return CleanClaims(strings.Split(response, "\n")), nil
}

// CleanClaims strips numbering artifacts from generator output lines. It is
// idempotent: running it over an already-cleaned list changes nothing.
func CleanClaims(lines []string) []string {
	var claims []string
	for _, line := range lines {
		cleaned := strings.TrimSpace(line)
		if cleaned == "" {
			continue
		}
		// Drop lines that are only numbering or bullets
		if bulletOnlyPattern.MatchString(cleaned) {
			continue
		}
		// Strip stacked markers ("1. - claim") until nothing changes, so
		// a second pass over cleaned output is a no-op
		for {
			stripped := strings.TrimSpace(bulletPrefixPattern.ReplaceAllString(cleaned, ""))
			if stripped == cleaned {
				break
			}
			cleaned = stripped
		}
		if cleaned == "" {
			continue
		}
		claims = append(claims, cleaned)
	}
	return claims
}
