package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const VERSION = "1.0.0"

// State represents the application runtime state
type State struct {
	RunCount       int       `json:"runCount"`
	CompletedCount int       `json:"completedCount"`
	FailedCount    int       `json:"failedCount"`
	IngestedCount  int       `json:"ingestedCount"`
	LastRunID      string    `json:"lastRunId"`
	LastRunTime    time.Time `json:"lastRunTime"`
	StartupTime    time.Time `json:"startupTime"`
	Version        string    `json:"version"`

	mutex    sync.Mutex
	filePath string
}

var (
	appState     *State
	appStateOnce sync.Once
)

// GetState returns the global runtime state
func GetState() *State {
	appStateOnce.Do(func() {
		appState = &State{
			StartupTime: time.Now(),
			Version:     VERSION,
		}
	})
	return appState
}

// LoadState reads persisted counters from the state file, keeping the
// current process start time.
func LoadState(path string) error {
	s := GetState()
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.filePath = path
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var loaded State
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}
	s.RunCount = loaded.RunCount
	s.CompletedCount = loaded.CompletedCount
	s.FailedCount = loaded.FailedCount
	s.IngestedCount = loaded.IngestedCount
	s.LastRunID = loaded.LastRunID
	s.LastRunTime = loaded.LastRunTime
	return nil
}

// IncrementRunCount records a started run
func (s *State) IncrementRunCount() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.RunCount++
	s.saveLocked()
}

// RecordCompleted records a completed run
func (s *State) RecordCompleted(runID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.CompletedCount++
	s.LastRunID = runID
	s.LastRunTime = time.Now()
	s.saveLocked()
}

// RecordFailed records a failed run
func (s *State) RecordFailed() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.FailedCount++
	s.saveLocked()
}

// RecordIngested records an article picked up from a feed
func (s *State) RecordIngested() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.IngestedCount++
	s.saveLocked()
}

// Snapshot returns the state as a map for the health endpoint
func (s *State) Snapshot() map[string]interface{} {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return map[string]interface{}{
		"status":          "healthy",
		"version":         s.Version,
		"uptime_seconds":  int64(time.Since(s.StartupTime).Seconds()),
		"run_count":       s.RunCount,
		"completed_count": s.CompletedCount,
		"failed_count":    s.FailedCount,
		"ingested_count":  s.IngestedCount,
		"last_run_id":     s.LastRunID,
		"last_run_time":   s.LastRunTime,
	}
}

// saveLocked persists the state file atomically; callers hold the mutex
func (s *State) saveLocked() {
	if s.filePath == "" {
		return
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		Logger().Warning("Failed to encode state: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		Logger().Warning("Failed to create state directory: %v", err)
		return
	}

	tempPath := s.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		Logger().Warning("Failed to write state file: %v", err)
		return
	}
	if err := os.Rename(tempPath, s.filePath); err != nil {
		Logger().Warning("Failed to finalize state file: %v", err)
	}
}
