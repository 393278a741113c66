package session

import (
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rowanharker/tabgrid/internal/models"
)

// Kind distinguishes free-form query sessions from bound-table previews
type Kind int

const (
	FreeQuery Kind = iota
	BoundTable
)

// ViewMode identifies which aspect of a session the caller is presenting
type ViewMode int

const (
	ViewData ViewMode = iota
	ViewStructure
)

// ExecState is the execution status of a session's current attempt.
// Transitions are monotone within one attempt: Idle/Succeeded/Failed →
// Running → (Succeeded | Failed). Cancellation forces Running → Idle.
type ExecState int

const (
	Idle ExecState = iota
	Running
	Succeeded
	Failed
)

func (s ExecState) String() string {
	switch s {
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// cursor is the transient pagination state of a session, discarded whenever
// the underlying query or binding changes
type cursor struct {
	sql       string
	chunkSize int
}

// Session is one independent tab: a free-form query or a bound-table
// preview with its own execution status, result set and edit ledger.
// Mutated only through Registry operations.
type Session struct {
	ID         string
	Title      string
	Kind       Kind
	Table      models.TableRef
	SourceText string
	ViewMode   ViewMode

	mu       sync.Mutex
	state    ExecState
	errMsg   string
	result   *models.ResultSet
	ledger   *Ledger
	cur      *cursor
	epoch    uint64
	applying bool

	// rendered WHERE clause from ad hoc criteria, bound-table only
	criteria string
}

func newSession(title string) *Session {
	return &Session{
		ID:    uuid.New().String(),
		Title: title,
		Kind:  FreeQuery,
	}
}

func newTableSession(ref models.TableRef) *Session {
	return &Session{
		ID:    uuid.New().String(),
		Title: ref.Table,
		Kind:  BoundTable,
		Table: ref,
	}
}

// State returns the current execution state
func (s *Session) State() ExecState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure message of the last attempt, if any
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Result returns the session's current result set, nil before the first
// successful fetch
func (s *Session) Result() *models.ResultSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Ledger returns the session's edit ledger, nil before the first successful
// fetch
func (s *Session) Ledger() *Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger
}

// begin moves the session into Running and returns the epoch the caller must
// present when installing its outcome
func (s *Session) begin() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		return 0, ErrSessionBusy
	}
	s.state = Running
	s.errMsg = ""
	return s.epoch, nil
}

// finish installs an outcome if the session has not moved on since begin.
// A stale epoch means the attempt was cancelled; its result is discarded.
func (s *Session) finish(epoch uint64, apply func(*Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	apply(s)
	return true
}

// cancel forces Running → Idle, bumps the epoch so an in-flight result is
// discarded on arrival, and drops the pagination cursor. Apply is a bounded
// sequential batch and is not cancellable once started.
func (s *Session) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running || s.applying {
		return
	}
	s.epoch++
	s.state = Idle
	s.cur = nil
}

// installResult replaces the result set wholesale and rebinds the ledger,
// clearing any pending edits with it
func (s *Session) installResult(rs *models.ResultSet, pks []string, cur *cursor) {
	s.state = Succeeded
	s.errMsg = ""
	s.result = rs
	s.ledger = NewLedger(rs, pks)
	s.cur = cur
}

// installFailure records a failed attempt; the prior result set is left
// untouched and the cursor is discarded so a retry starts from offset 0
func (s *Session) installFailure(err error) {
	s.state = Failed
	s.errMsg = err.Error()
	s.cur = nil
}

var selectRe = regexp.MustCompile(`(?is)^\s*(select|with|table|values)\b`)

// chunkable reports whether a statement can be wrapped in a paginating
// subquery. Anything else runs unpaginated through Query.
func chunkable(sql string) bool {
	return selectRe.MatchString(sql)
}

var (
	fromRe   = regexp.MustCompile(`(?i)\bFROM\s+([a-zA-Z_][a-zA-Z0-9_.]*)`)
	updateRe = regexp.MustCompile(`(?i)\bUPDATE\s+([a-zA-Z_][a-zA-Z0-9_.]*)`)
	insertRe = regexp.MustCompile(`(?i)\bINSERT\s+INTO\s+([a-zA-Z_][a-zA-Z0-9_.]*)`)
)

// titleFor derives a tab title from statement text: the referenced table
// name when one can be found, otherwise the truncated statement
func titleFor(sql string) string {
	for _, re := range []*regexp.Regexp{fromRe, updateRe, insertRe} {
		if m := re.FindStringSubmatch(sql); len(m) > 1 {
			return m[1]
		}
	}
	cleaned := strings.Join(strings.Fields(sql), " ")
	if len(cleaned) > 20 {
		cleaned = cleaned[:17] + "..."
	}
	if cleaned == "" {
		cleaned = "untitled"
	}
	return cleaned
}
