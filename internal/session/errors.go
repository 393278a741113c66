package session

import "errors"

var (
	// ErrSessionNotFound is returned for an unknown session id
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy is returned when an operation is requested while the
	// session already has a request in flight
	ErrSessionBusy = errors.New("session has a running operation")

	// ErrNoMoreRows is returned by FetchMore when the last result reported
	// no further rows
	ErrNoMoreRows = errors.New("no more rows to fetch")

	// ErrNoResult is returned when an operation needs a fetched result set
	// and the session has none
	ErrNoResult = errors.New("session has no result set")

	// ErrPendingEdits rejects operations that would desynchronize
	// index-keyed edits from their row positions
	ErrPendingEdits = errors.New("pending edits must be applied or discarded first")

	// ErrRowNotEditable is returned when a row cannot be safely targeted by
	// a mutation (missing or null primary key)
	ErrRowNotEditable = errors.New("row is not editable")

	// ErrNotBoundTable is returned when a table-only operation is requested
	// on a free-form query session
	ErrNotBoundTable = errors.New("session is not bound to a table")
)
