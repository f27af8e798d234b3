// Package memory provides an in-process job store for tests and
// single-shot runs that do not need durability.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/spoolkit/spool/job"
)

// Store keeps job records in a map. Records are deep-copied through JSON
// on the way in and out so callers cannot alias stored state.
type Store struct {
	mu   sync.RWMutex
	jobs map[string][]byte
}

var _ job.Store = (*Store)(nil)

// NewStore creates an empty in-memory job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string][]byte)}
}

// SaveJob stores or replaces a record.
func (s *Store) SaveJob(_ context.Context, rec *job.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding job %s: %w", rec.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[rec.ID] = data
	return nil
}

// GetJob retrieves a record by ID.
func (s *Store) GetJob(_ context.Context, id string) (*job.Record, error) {
	s.mu.RLock()
	data, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, job.ErrNotFound
	}
	var rec job.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding job %s: %w", id, err)
	}
	return &rec, nil
}

// ListJobs returns summaries for all stored jobs, most recent first.
func (s *Store) ListJobs(_ context.Context) ([]job.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]job.Summary, 0, len(s.jobs))
	for id, data := range s.jobs {
		var rec job.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decoding job %s: %w", id, err)
		}
		summaries = append(summaries, job.Summary{
			ID:         rec.ID,
			DocumentID: rec.DocumentID,
			Task:       rec.Task,
			Status:     rec.Status,
			UnitsDone:  rec.CountByStatus(job.UnitDone),
			UnitsTotal: len(rec.Units),
			UpdatedAt:  rec.UpdatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// DeleteJob removes a record. Deleting a missing job is not an error.
func (s *Store) DeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}
