package store

import (
	"errors"
	"sort"
	"sync"
)

// MemStore is an in-memory Store for tests and dry runs. Implements Store.
type MemStore struct {
	mu      sync.Mutex
	entries []*Entry
	nextID  int64
}

// NewMemStore returns a new in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// RecordStage implements Store.
func (s *MemStore) RecordStage(e *Entry) (int64, error) {
	if e == nil {
		return 0, errors.New("entry is nil")
	}
	if e.RunID == "" || e.Stage == "" {
		return 0, errors.New("entry needs run id and stage")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cp := *e
	cp.ID = s.nextID
	if cp.StartedAt == "" {
		cp.StartedAt = nowUTC()
	}
	s.entries = append(s.entries, &cp)
	return cp.ID, nil
}

// ListRun implements Store.
func (s *MemStore) ListRun(runID string) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Entry
	for _, e := range s.entries {
		if e.RunID == runID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListRuns implements Store. Newest run first.
func (s *MemStore) ListRuns() ([]*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := map[string]*Run{}
	last := map[string]int64{}
	for _, e := range s.entries {
		r, ok := byID[e.RunID]
		if !ok {
			r = &Run{RunID: e.RunID, StartedAt: e.StartedAt}
			byID[e.RunID] = r
		}
		if e.StartedAt < r.StartedAt {
			r.StartedAt = e.StartedAt
		}
		if e.FinishedAt > r.FinishedAt {
			r.FinishedAt = e.FinishedAt
		}
		if e.ObsID == "" {
			r.Stages++
			if e.Status == "failed" {
				r.Failed++
			}
		}
		last[e.RunID] = e.ID
	}
	out := make([]*Run, 0, len(byID))
	for _, r := range byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return last[out[i].RunID] > last[out[j].RunID] })
	return out, nil
}

// LatestByObservation implements Store.
func (s *MemStore) LatestByObservation() ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type key struct{ obs, stage string }
	latest := map[key]*Entry{}
	for _, e := range s.entries {
		if e.ObsID == "" {
			continue
		}
		latest[key{e.ObsID, e.Stage}] = e
	}
	out := make([]*Entry, 0, len(latest))
	for _, e := range latest {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ObsID != out[j].ObsID {
			return out[i].ObsID < out[j].ObsID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Close implements Store.
func (s *MemStore) Close() error { return nil }
