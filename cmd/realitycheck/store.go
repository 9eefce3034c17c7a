package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ResultStore persists one JSON document per analysis run. Writes go
// through a temp file and rename so a crash never leaves a torn document.
type ResultStore struct {
	dir   string
	mutex sync.RWMutex
}

// NewResultStore creates a store rooted at dir
func NewResultStore(dir string) (*ResultStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, NewStorageError(ErrStorageWrite, fmt.Sprintf("failed to create results directory %s", dir), err)
	}
	return &ResultStore{dir: dir}, nil
}

// Save writes the run document, keyed by its analysis ID
func (s *ResultStore) Save(run *AnalysisRun) error {
	if run.AnalysisID == "" {
		return NewStorageError(ErrStorageWrite, "run has no analysis ID", nil)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return NewStorageError(ErrStorageWrite, "failed to encode run", err)
	}

	path := s.pathFor(run.AnalysisID)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return NewStorageError(ErrStorageWrite, "failed to write run document", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return NewStorageError(ErrStorageWrite, "failed to finalize run document", err)
	}
	return nil
}

// Get loads a stored run by analysis ID
func (s *ResultStore) Get(id string) (*AnalysisRun, error) {
	if !validAnalysisID(id) {
		return nil, NewStorageError(ErrStorageNotFound, fmt.Sprintf("invalid analysis ID: %s", id), nil)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	data, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewStorageError(ErrStorageNotFound, fmt.Sprintf("no result with ID %s", id), err)
		}
		return nil, NewStorageError(ErrStorageWrite, "failed to read run document", err)
	}

	var run AnalysisRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, NewStorageError(ErrStorageWrite, "failed to decode run document", err)
	}
	return &run, nil
}

// List returns the stored analysis IDs, newest first
func (s *ResultStore) List() ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, NewStorageError(ErrStorageWrite, "failed to list results directory", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// LoadAll reads every stored run; used to build the RAG index at startup
func (s *ResultStore) LoadAll() ([]*AnalysisRun, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}

	var runs []*AnalysisRun
	for _, id := range ids {
		run, err := s.Get(id)
		if err != nil {
			Logger().Warning("Skipping unreadable result %s: %v", id, err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *ResultStore) pathFor(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// validAnalysisID rejects IDs that could escape the results directory
func validAnalysisID(id string) bool {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return false
	}
	return true
}
