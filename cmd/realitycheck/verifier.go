package main

import "context"

// noArticlesMarker is recorded on a FactCheckEntry when search produced
// nothing usable for the claim.
const noArticlesMarker = "No articles found for this statement"

// ClaimVerifier produces the verification record for a single claim by
// composing search and scraping.
type ClaimVerifier struct {
	search        *SearchProvider
	scraper       *ContentScraper
	maxCitations  int
	scrapeWorkers int
}

// NewClaimVerifier creates a verifier. maxCitations caps how many search
// results get scraped per claim to bound wall-clock cost.
func NewClaimVerifier(search *SearchProvider, scraper *ContentScraper, maxCitations, scrapeWorkers int) *ClaimVerifier {
	if maxCitations < 1 {
		maxCitations = 3
	}
	if scrapeWorkers < 1 {
		scrapeWorkers = 3
	}
	return &ClaimVerifier{
		search:        search,
		scraper:       scraper,
		maxCitations:  maxCitations,
		scrapeWorkers: scrapeWorkers,
	}
}

// Verify returns the fact-check entry for one claim. A claim that finds no
// usable citations gets an entry with the error marker rather than failing;
// sibling claims are never affected.
func (v *ClaimVerifier) Verify(ctx context.Context, claim string) FactCheckEntry {
	result, err := v.search.Search(ctx, claim)
	if err != nil || result == nil || len(result.Articles) == 0 {
		if err != nil {
			Logger().Warning("Search failed for claim %q: %v", truncate(claim, 50), err)
		}
		return FactCheckEntry{
			Statement:   claim,
			SearchTopic: claim,
			Articles:    []Citation{},
			Error:       noArticlesMarker,
		}
	}

	// The search capability may reinterpret the claim; keep its topic
	topic := result.Topic
	if topic == "" {
		topic = claim
	}

	limited := result.Articles
	if len(limited) > v.maxCitations {
		limited = limited[:v.maxCitations]
	}

	enriched := v.scraper.ScrapeMany(ctx, limited, v.scrapeWorkers)

	return FactCheckEntry{
		Statement:   claim,
		SearchTopic: topic,
		Articles:    enriched,
	}
}
