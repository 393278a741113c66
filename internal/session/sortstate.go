package session

import (
	"sync"

	"github.com/rowanharker/tabgrid/internal/models"
)

// SortStore holds the active sort per table key, independent of any single
// session's lifecycle: two tabs previewing the same table share sort state.
type SortStore struct {
	mu    sync.RWMutex
	sorts map[string]models.SortState
}

// NewSortStore creates an empty sort store
func NewSortStore() *SortStore {
	return &SortStore{sorts: make(map[string]models.SortState)}
}

// Get returns the active sort for a table, if any
func (s *SortStore) Get(ref models.TableRef) (models.SortState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sorts[ref.Key()]
	return st, ok
}

// Set records the active sort for a table
func (s *SortStore) Set(ref models.TableRef, st models.SortState) {
	s.mu.Lock()
	s.sorts[ref.Key()] = st
	s.mu.Unlock()
}

// Clear removes the sort for a table
func (s *SortStore) Clear(ref models.TableRef) {
	s.mu.Lock()
	delete(s.sorts, ref.Key())
	s.mu.Unlock()
}

// Reset drops all sort state
func (s *SortStore) Reset() {
	s.mu.Lock()
	s.sorts = make(map[string]models.SortState)
	s.mu.Unlock()
}
