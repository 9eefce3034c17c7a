package main

import "context"

// The pipeline talks to models and search providers through these
// interfaces. Production wiring lives in openai.go and serper.go; tests
// substitute fakes.

// TextGenerator produces free-form text from a system instruction and a
// user prompt.
type TextGenerator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// TextClassifier labels a text and reports the model's confidence in that
// label.
type TextClassifier interface {
	Classify(ctx context.Context, text string) (label string, confidence float64, err error)
}

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RawSearcher is the direct news-search API, used when the structured
// search path produces nothing parseable.
type RawSearcher interface {
	SearchNews(ctx context.Context, topic string) ([]Citation, error)
}

// PageFetcher retrieves the readable text of a web page.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}
