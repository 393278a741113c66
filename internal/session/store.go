package session

import (
	"database/sql"
	_ "embed"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Def is the durable definition of a session: identity, binding and source
// text only. Result sets, ledgers and caches are rebuilt, never stored.
type Def struct {
	ID         string
	Title      string
	Kind       Kind
	Schema     string
	Table      string
	SourceText string
	ViewMode   ViewMode
}

// Store persists session definitions in SQLite
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the session store at path
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored session list
func (s *Store) Save(defs []Def, activeID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sessions`); err != nil {
		_ = tx.Rollback()
		return err
	}
	for i, d := range defs {
		active := 0
		if d.ID == activeID {
			active = 1
		}
		_, err := tx.Exec(`
			INSERT INTO sessions
			(id, title, kind, schema_name, table_name, source_text, view_mode, position, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.Title, int(d.Kind), d.Schema, d.Table, d.SourceText, int(d.ViewMode), i, active,
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Load returns the stored session definitions in tab order plus the active
// session id. Corrupt rows (missing fields, unknown kinds, unparseable ids)
// poison the whole list: a single fresh default definition is returned
// instead of propagating bad state.
func (s *Store) Load() ([]Def, string, error) {
	rows, err := s.db.Query(`
		SELECT id, title, kind, schema_name, table_name, source_text, view_mode, is_active
		FROM sessions
		ORDER BY position`)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = rows.Close() }()

	var defs []Def
	var active string
	corrupt := false

	for rows.Next() {
		var (
			id, title, schema, table sql.NullString
			kind, viewMode, isActive sql.NullInt64
			sourceText               sql.NullString
		)
		if err := rows.Scan(&id, &title, &kind, &schema, &table, &sourceText, &viewMode, &isActive); err != nil {
			corrupt = true
			break
		}
		d, ok := validateDef(id, title, kind, schema, table, sourceText, viewMode)
		if !ok {
			corrupt = true
			break
		}
		defs = append(defs, d)
		if isActive.Valid && isActive.Int64 != 0 {
			active = d.ID
		}
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	if corrupt || len(defs) == 0 {
		d := defaultDef()
		return []Def{d}, d.ID, nil
	}
	if active == "" {
		active = defs[0].ID
	}
	return defs, active, nil
}

func validateDef(id, title sql.NullString, kind sql.NullInt64, schema, table, sourceText sql.NullString, viewMode sql.NullInt64) (Def, bool) {
	var d Def
	if !id.Valid || id.String == "" || !title.Valid || !kind.Valid || !sourceText.Valid {
		return d, false
	}
	if _, err := uuid.Parse(id.String); err != nil {
		return d, false
	}
	k := Kind(kind.Int64)
	if k != FreeQuery && k != BoundTable {
		return d, false
	}
	if k == BoundTable && (!schema.Valid || schema.String == "" || !table.Valid || table.String == "") {
		return d, false
	}
	vm := ViewData
	if viewMode.Valid {
		vm = ViewMode(viewMode.Int64)
		if vm != ViewData && vm != ViewStructure {
			return d, false
		}
	}
	return Def{
		ID:         id.String,
		Title:      title.String,
		Kind:       k,
		Schema:     schema.String,
		Table:      table.String,
		SourceText: sourceText.String,
		ViewMode:   vm,
	}, true
}

func defaultDef() Def {
	return Def{
		ID:    uuid.New().String(),
		Title: "untitled",
		Kind:  FreeQuery,
	}
}
