package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rowanharker/tabgrid/internal/models"
)

// DefaultChunkSize is the page size used when none is configured
const DefaultChunkSize = 100

// Options configures a Registry
type Options struct {
	// ChunkSize is the pagination page size; DefaultChunkSize if zero
	ChunkSize int
	// Store, when set, persists session definitions across restarts
	Store *Store
}

// Registry owns the set of sessions (tabs). Registry-level invariants: at
// least one session always exists, at most one session is active, and
// sessions are mutated only through registry operations. ResultSets and
// ledgers live only in memory; the store persists definitions alone.
type Registry struct {
	exec  Executor
	pks   *PKCache
	sorts *SortStore
	store *Store
	chunk int

	mu       sync.Mutex
	sessions []*Session
	active   string
}

// NewRegistry creates a registry with a single default session
func NewRegistry(exec Executor, opts Options) *Registry {
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	r := &Registry{
		exec:  exec,
		pks:   NewPKCache(exec),
		sorts: NewSortStore(),
		store: opts.Store,
		chunk: chunk,
	}
	s := newSession("untitled")
	r.sessions = []*Session{s}
	r.active = s.ID
	return r
}

// Sessions returns the sessions in tab order
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// Active returns the active session
func (r *Registry) Active() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(r.active)
}

// Get returns a session by id
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.lookup(id)
	if s == nil {
		return nil, fmt.Errorf("%q: %w", id, ErrSessionNotFound)
	}
	return s, nil
}

func (r *Registry) lookup(id string) *Session {
	for _, s := range r.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// NewSession creates a free-form query session and makes it active
func (r *Registry) NewSession(title string) *Session {
	if title == "" {
		title = "untitled"
	}
	s := newSession(title)
	r.mu.Lock()
	r.sessions = append(r.sessions, s)
	r.active = s.ID
	r.mu.Unlock()
	r.persist()
	return s
}

// OpenTable creates a bound-table session, makes it active and fetches the
// first chunk
func (r *Registry) OpenTable(ctx context.Context, ref models.TableRef) (*Session, error) {
	s := newTableSession(ref)
	r.mu.Lock()
	r.sessions = append(r.sessions, s)
	r.active = s.ID
	r.mu.Unlock()
	r.persist()

	if err := r.fetchTable(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}

// Close removes a session. Closing the last session spawns a fresh default
// one so the registry is never empty.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	idx := -1
	for i, s := range r.sessions {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%q: %w", id, ErrSessionNotFound)
	}
	r.sessions = append(r.sessions[:idx], r.sessions[idx+1:]...)
	if len(r.sessions) == 0 {
		s := newSession("untitled")
		r.sessions = []*Session{s}
		r.active = s.ID
	} else if r.active == id {
		if idx >= len(r.sessions) {
			idx = len(r.sessions) - 1
		}
		r.active = r.sessions[idx].ID
	}
	r.mu.Unlock()
	r.persist()
	return nil
}

// SetActive switches the active session. Other sessions keep their result
// sets and pending edits; returning to a tab reveals them unchanged.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	if r.lookup(id) == nil {
		r.mu.Unlock()
		return fmt.Errorf("%q: %w", id, ErrSessionNotFound)
	}
	r.active = id
	r.mu.Unlock()
	r.persist()
	return nil
}

// SetSource replaces a free-form session's statement text and discards the
// pagination cursor; the previous result stays visible until the next Run
func (r *Registry) SetSource(id, sql string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.state == Running {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	s.SourceText = sql
	s.Title = titleFor(sql)
	s.cur = nil
	s.mu.Unlock()
	r.persist()
	return nil
}

// Rename sets a session title
func (r *Registry) Rename(id, title string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.Title = title
	s.mu.Unlock()
	r.persist()
	return nil
}

// Cancel aborts a running fetch: Running → Idle, cursor discarded, and the
// in-flight result, if it still arrives, is dropped by the epoch check.
// Apply is not cancellable; cancelling during an apply is a no-op.
func (r *Registry) Cancel(id string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	s.cancel()
	return nil
}

// EditCell stages one cell edit on a session's current result
func (r *Registry) EditCell(id string, rowIndex int, column string, value interface{}) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		return ErrSessionBusy
	}
	if s.ledger == nil {
		return ErrNoResult
	}
	return s.ledger.Set(rowIndex, column, value)
}

// DiscardEdits drops all pending edits on a session. Rejected while a fetch
// or apply is in flight: an apply walks the same ledger and clears entries
// only on accounted-for completion.
func (r *Registry) DiscardEdits(id string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		return ErrSessionBusy
	}
	if s.ledger != nil {
		s.ledger.DiscardAll()
	}
	return nil
}

// SortStore exposes the shared sort store (read-only use by callers)
func (r *Registry) SortStore() *SortStore {
	return r.sorts
}

// InvalidateCaches drops connection-derived caches. Called on disconnect.
func (r *Registry) InvalidateCaches() {
	r.pks.Invalidate()
}

// Restore replaces the session list with the definitions persisted in the
// store. Corrupt persisted data yields a single fresh default session.
func (r *Registry) Restore() error {
	if r.store == nil {
		return nil
	}
	defs, active, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	sessions := make([]*Session, 0, len(defs))
	for _, d := range defs {
		sessions = append(sessions, &Session{
			ID:         d.ID,
			Title:      d.Title,
			Kind:       d.Kind,
			Table:      models.TableRef{Schema: d.Schema, Table: d.Table},
			SourceText: d.SourceText,
			ViewMode:   d.ViewMode,
		})
	}
	r.mu.Lock()
	r.sessions = sessions
	r.active = active
	if r.lookup(r.active) == nil && len(r.sessions) > 0 {
		r.active = r.sessions[0].ID
	}
	r.mu.Unlock()
	return nil
}

// persist saves session definitions, best-effort; live data is never stored
func (r *Registry) persist() {
	if r.store == nil {
		return
	}
	r.mu.Lock()
	defs := make([]Def, 0, len(r.sessions))
	for _, s := range r.sessions {
		defs = append(defs, Def{
			ID:         s.ID,
			Title:      s.Title,
			Kind:       s.Kind,
			Schema:     s.Table.Schema,
			Table:      s.Table.Table,
			SourceText: s.SourceText,
			ViewMode:   s.ViewMode,
		})
	}
	active := r.active
	r.mu.Unlock()
	_ = r.store.Save(defs, active)
}
