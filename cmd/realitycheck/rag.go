package main

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// RAGDocument is one retrievable summary document
type RAGDocument struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Score    float64                `json:"score,omitempty"`
}

type ragEntry struct {
	doc    RAGDocument
	vector []float32
}

// RAGIndex answers questions over the knowledge base of completed run
// summaries. Search is a brute-force cosine scan; the corpus is small
// enough that an ANN index would be overhead without benefit.
type RAGIndex struct {
	embedder Embedder
	entries  []ragEntry
	byID     map[string]int
	mutex    sync.RWMutex
}

// NewRAGIndex creates an empty index over the given embedder
func NewRAGIndex(embedder Embedder) *RAGIndex {
	return &RAGIndex{
		embedder: embedder,
		byID:     make(map[string]int),
	}
}

// LoadFromStore rebuilds the index from every stored run that carries a
// summary embedding.
func (idx *RAGIndex) LoadFromStore(store *ResultStore) error {
	runs, err := store.LoadAll()
	if err != nil {
		return err
	}

	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.entries = nil
	idx.byID = make(map[string]int)
	for _, run := range runs {
		if len(run.SummaryEmbedding) == 0 || run.Summary == "" {
			continue
		}
		idx.addLocked(run)
	}

	Logger().Info("RAG index loaded with %d documents", len(idx.entries))
	return nil
}

// Add indexes a completed run
func (idx *RAGIndex) Add(run *AnalysisRun) {
	if run == nil || len(run.SummaryEmbedding) == 0 || run.Summary == "" {
		return
	}
	idx.mutex.Lock()
	defer idx.mutex.Unlock()
	idx.addLocked(run)
}

func (idx *RAGIndex) addLocked(run *AnalysisRun) {
	entry := ragEntry{
		doc: RAGDocument{
			ID:      run.AnalysisID,
			Content: run.Summary,
			Metadata: map[string]interface{}{
				"topic":             run.Topic,
				"verification_date": run.VerificationDate,
			},
		},
		vector: run.SummaryEmbedding,
	}
	if pos, exists := idx.byID[run.AnalysisID]; exists {
		idx.entries[pos] = entry
		return
	}
	idx.byID[run.AnalysisID] = len(idx.entries)
	idx.entries = append(idx.entries, entry)
}

// Query returns the topK documents most similar to the query text
func (idx *RAGIndex) Query(ctx context.Context, query string, topK int) ([]RAGDocument, error) {
	if topK < 1 {
		topK = 5
	}

	queryVector, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, NewCapabilityError(ErrCapabilityUnreachable, "failed to embed query", err)
	}

	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	type scored struct {
		doc   RAGDocument
		score float64
	}
	var results []scored
	for _, entry := range idx.entries {
		score := cosineSimilarity(queryVector, entry.vector)
		results = append(results, scored{doc: entry.doc, score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	docs := make([]RAGDocument, 0, len(results))
	for _, r := range results {
		doc := r.doc
		doc.Score = r.score
		docs = append(docs, doc)
	}
	return docs, nil
}

// Get returns one indexed document by ID
func (idx *RAGIndex) Get(id string) (RAGDocument, error) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	pos, exists := idx.byID[id]
	if !exists {
		return RAGDocument{}, NewStorageError(ErrStorageNotFound, fmt.Sprintf("no document with ID %s", id), nil)
	}
	return idx.entries[pos].doc, nil
}

// Len returns the number of indexed documents
func (idx *RAGIndex) Len() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()
	return len(idx.entries)
}

// cosineSimilarity computes the cosine of the angle between two vectors;
// mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
