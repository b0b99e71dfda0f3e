package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/cognicore/residue/pkg/residue/glued"
	"github.com/cognicore/residue/pkg/residue/internalerr"
	"github.com/cognicore/residue/pkg/residue/mask"
	"github.com/cognicore/residue/pkg/residue/protect"
	"github.com/cognicore/residue/pkg/residue/similarity"
	"github.com/cognicore/residue/pkg/residue/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu      sync.RWMutex
	runs    map[string]store.Run
	records map[string][]mask.Record
	protect map[string]map[string][]protect.Entry
	glued   map[string][]glued.Result
	groups  map[string][]similarity.Group
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		runs:    make(map[string]store.Run),
		records: make(map[string][]mask.Record),
		protect: make(map[string]map[string][]protect.Entry),
		glued:   make(map[string][]glued.Result),
		groups:  make(map[string][]similarity.Group),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// BeginRun registers a run. Re-registering an id updates it in place.
func (s *Store) BeginRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("begin run: empty id: %w", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = r
	return nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return r, nil
}

// LatestRun returns the run with the greatest id.
func (s *Store) LatestRun(ctx context.Context) (store.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest store.Run
	found := false
	for id, r := range s.runs {
		if !found || id > latest.ID {
			latest, found = r, true
		}
	}
	return latest, found, nil
}

func (s *Store) requireRun(id string) error {
	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return nil
}

// PutRecords replaces the masked records of a run.
func (s *Store) PutRecords(ctx context.Context, runID string, recs []mask.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireRun(runID); err != nil {
		return err
	}
	s.records[runID] = append([]mask.Record(nil), recs...)
	return nil
}

// Records returns the masked records of a run in input order.
func (s *Store) Records(ctx context.Context, runID string) ([]mask.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireRun(runID); err != nil {
		return nil, err
	}
	return append([]mask.Record(nil), s.records[runID]...), nil
}

// PutProtectSet replaces one protect-set table of a run.
func (s *Store) PutProtectSet(ctx context.Context, runID, table string, entries []protect.Entry) error {
	if !store.ValidTable(table) {
		return fmt.Errorf("protect table %q: %w", table, internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireRun(runID); err != nil {
		return err
	}
	if s.protect[runID] == nil {
		s.protect[runID] = make(map[string][]protect.Entry)
	}
	s.protect[runID][table] = append([]protect.Entry(nil), entries...)
	return nil
}

// ProtectSet returns one protect-set table of a run.
func (s *Store) ProtectSet(ctx context.Context, runID, table string) ([]protect.Entry, error) {
	if !store.ValidTable(table) {
		return nil, fmt.Errorf("protect table %q: %w", table, internalerr.ErrInvalidInput)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireRun(runID); err != nil {
		return nil, err
	}
	return append([]protect.Entry(nil), s.protect[runID][table]...), nil
}

// PutGluedResults replaces the coverage results of a run.
func (s *Store) PutGluedResults(ctx context.Context, runID string, results []glued.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireRun(runID); err != nil {
		return err
	}
	s.glued[runID] = append([]glued.Result(nil), results...)
	return nil
}

// GluedResults returns the coverage results of a run.
func (s *Store) GluedResults(ctx context.Context, runID string) ([]glued.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireRun(runID); err != nil {
		return nil, err
	}
	return append([]glued.Result(nil), s.glued[runID]...), nil
}

// PutGroups replaces the entity groups of a run.
func (s *Store) PutGroups(ctx context.Context, runID string, groups []similarity.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireRun(runID); err != nil {
		return err
	}
	s.groups[runID] = append([]similarity.Group(nil), groups...)
	return nil
}

// Groups returns the entity groups of a run.
func (s *Store) Groups(ctx context.Context, runID string) ([]similarity.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireRun(runID); err != nil {
		return nil, err
	}
	return append([]similarity.Group(nil), s.groups[runID]...), nil
}

var _ store.Store = (*Store)(nil)
