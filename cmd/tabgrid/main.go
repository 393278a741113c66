package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rowanharker/tabgrid/internal/config"
	"github.com/rowanharker/tabgrid/internal/db/connection"
	"github.com/rowanharker/tabgrid/internal/db/query"
	"github.com/rowanharker/tabgrid/internal/export"
	"github.com/rowanharker/tabgrid/internal/filter"
	"github.com/rowanharker/tabgrid/internal/models"
	"github.com/rowanharker/tabgrid/internal/queries"
	"github.com/rowanharker/tabgrid/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Warning: Could not load config: %v (using defaults)\n", err)
		cfg = config.GetDefaults()
	}

	ctx := context.Background()

	manager := connection.NewManager(cfg.Performance.ConnectionPoolSize)
	id, err := manager.Connect(ctx, cfg.Connection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to %s: %v\n", id, err)
		os.Exit(1)
	}
	defer func() { _ = manager.Disconnect(id) }()
	conn, err := manager.GetActive()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	storageDir, err := cfg.StorageDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving storage directory: %v\n", err)
		os.Exit(1)
	}

	store, err := session.NewStore(filepath.Join(storageDir, "sessions.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening session store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	saved, err := queries.NewManager(storageDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading saved queries: %v\n", err)
		os.Exit(1)
	}

	exec := query.New(conn.Pool)
	reg := session.NewRegistry(exec, session.Options{
		ChunkSize: cfg.Fetch.ChunkSize,
		Store:     store,
	})
	if cfg.General.RestoreSessions {
		if err := reg.Restore(); err != nil {
			log.Printf("Warning: Could not restore sessions: %v\n", err)
		}
	}
	manager.OnDisconnect(reg.InvalidateCaches)

	sh := &shell{
		cfg:   cfg,
		reg:   reg,
		exec:  exec,
		saved: saved,
		out:   os.Stdout,
	}
	sh.run(ctx, os.Stdin)
}

type shell struct {
	cfg   *config.Config
	reg   *session.Registry
	exec  *query.Executor
	saved *queries.Manager
	out   *os.File
}

func (sh *shell) run(ctx context.Context, in *os.File) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	sh.printTabs()
	fmt.Fprint(sh.out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == `\q` || line == "exit" {
			return
		}
		if line != "" {
			sh.dispatch(ctx, line)
		}
		fmt.Fprint(sh.out, "> ")
	}
}

func (sh *shell) dispatch(ctx context.Context, line string) {
	ctx, cancel := sh.opContext(ctx)
	defer cancel()

	if !strings.HasPrefix(line, `\`) {
		sh.runSQL(ctx, line)
		return
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case `\open`:
		err = sh.openTable(ctx, args)
	case `\tabs`:
		sh.printTabs()
	case `\tab`:
		err = sh.switchTab(args)
	case `\close`:
		err = sh.reg.Close(sh.reg.Active().ID)
	case `\new`:
		sh.reg.NewSession(strings.Join(args, " "))
	case `\more`:
		if err = sh.reg.FetchMore(ctx, sh.reg.Active().ID); err == nil {
			sh.printResult(sh.reg.Active())
		}
	case `\refresh`:
		if err = sh.reg.Refresh(ctx, sh.reg.Active().ID); err == nil {
			sh.printResult(sh.reg.Active())
		}
	case `\sort`:
		err = sh.sort(ctx, args)
	case `\filter`:
		err = sh.filter(ctx, args)
	case `\edit`:
		err = sh.edit(args)
	case `\apply`:
		err = sh.apply(ctx)
	case `\discard`:
		err = sh.reg.DiscardEdits(sh.reg.Active().ID)
	case `\cancel`:
		if err = sh.reg.Cancel(sh.reg.Active().ID); err == nil {
			err = sh.exec.Cancel(ctx)
		}
	case `\export`:
		err = sh.export(args)
	case `\save`:
		err = sh.saveQuery(args)
	case `\queries`:
		sh.printSaved()
	case `\use`:
		err = sh.useQuery(ctx, args)
	default:
		err = fmt.Errorf("unknown command %s", cmd)
	}

	if err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
	}
}

func (sh *shell) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(sh.cfg.Performance.QueryTimeout) * time.Millisecond
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (sh *shell) runSQL(ctx context.Context, sql string) {
	s := sh.reg.Active()
	if err := sh.reg.SetSource(s.ID, sql); err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
		return
	}
	if err := sh.reg.Run(ctx, s.ID); err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
		return
	}
	sh.printResult(s)
}

func (sh *shell) openTable(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf(`usage: \open schema.table`)
	}
	schema, table, ok := strings.Cut(args[0], ".")
	if !ok {
		schema, table = "public", args[0]
	}
	s, err := sh.reg.OpenTable(ctx, models.TableRef{Schema: schema, Table: table})
	if err != nil {
		return err
	}
	sh.printResult(s)
	return nil
}

func (sh *shell) switchTab(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf(`usage: \tab N`)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad tab number %q", args[0])
	}
	sessions := sh.reg.Sessions()
	if n < 1 || n > len(sessions) {
		return fmt.Errorf("tab %d out of range", n)
	}
	return sh.reg.SetActive(sessions[n-1].ID)
}

func (sh *shell) sort(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf(`usage: \sort column [asc|desc]`)
	}
	dir := models.SortAsc
	if len(args) == 2 && strings.EqualFold(args[1], "desc") {
		dir = models.SortDesc
	}
	if err := sh.reg.SetSort(ctx, sh.reg.Active().ID, args[0], dir); err != nil {
		return err
	}
	sh.printResult(sh.reg.Active())
	return nil
}

// filter builds a single-condition criteria clause from "column op value"
// and applies it; no arguments clears the criteria
func (sh *shell) filter(ctx context.Context, args []string) error {
	s := sh.reg.Active()
	if len(args) == 0 {
		if err := sh.reg.SetCriteria(ctx, s.ID, ""); err != nil {
			return err
		}
		sh.printResult(s)
		return nil
	}
	if len(args) < 2 {
		return fmt.Errorf(`usage: \filter column op [value]`)
	}

	column := args[0]
	op := models.FilterOperator(strings.ToUpper(args[1]))
	if args[1] == "=" || args[1] == "!=" || args[1] == ">" || args[1] == ">=" || args[1] == "<" || args[1] == "<=" {
		op = models.FilterOperator(args[1])
	}

	var typeName string
	if rs := s.Result(); rs != nil {
		typeName = rs.TypeOf(column)
	}

	cond := models.FilterCondition{Column: column, Operator: op, Type: typeName}
	if len(args) > 2 {
		cond.Value = strings.Join(args[2:], " ")
	}

	builder := filter.NewBuilder()
	clause, err := builder.BuildWhere(models.Filter{
		RootGroup: models.FilterGroup{Conditions: []models.FilterCondition{cond}},
		Table:     s.Table,
	})
	if err != nil {
		return err
	}

	if err := sh.reg.SetCriteria(ctx, s.ID, clause); err != nil {
		return err
	}
	sh.printResult(s)
	return nil
}

func (sh *shell) edit(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf(`usage: \edit row column value`)
	}
	row, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad row index %q", args[0])
	}
	value := strings.Join(args[2:], " ")
	if value == "NULL" {
		return sh.reg.EditCell(sh.reg.Active().ID, row, args[1], nil)
	}
	return sh.reg.EditCell(sh.reg.Active().ID, row, args[1], value)
}

func (sh *shell) apply(ctx context.Context) error {
	outcome, err := sh.reg.Apply(ctx, sh.reg.Active().ID)
	fmt.Fprintln(sh.out, outcome.Summary())
	if err != nil {
		return err
	}
	sh.printResult(sh.reg.Active())
	return nil
}

func (sh *shell) export(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf(`usage: \export csv|json path`)
	}
	rs := sh.reg.Active().Result()
	if rs == nil {
		return fmt.Errorf("no result to export")
	}
	switch args[0] {
	case "csv":
		return export.ExportToCSV(rs, args[1])
	case "json":
		return export.ExportToJSON(rs, args[1])
	default:
		return fmt.Errorf("unknown format %q", args[0])
	}
}

func (sh *shell) saveQuery(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(`usage: \save name`)
	}
	s := sh.reg.Active()
	if strings.TrimSpace(s.SourceText) == "" {
		return fmt.Errorf("active session has no statement to save")
	}
	_, err := sh.saved.Add(strings.Join(args, " "), "", s.SourceText, nil)
	return err
}

func (sh *shell) useQuery(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(`usage: \use name`)
	}
	sq, err := sh.saved.GetByName(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if err := sh.saved.RecordUsage(sq.ID); err != nil {
		return err
	}
	sh.runSQL(ctx, sq.Query)
	return nil
}

func (sh *shell) printSaved() {
	for _, sq := range sh.saved.GetAll() {
		fmt.Fprintf(sh.out, "%-24s %s\n", sq.Name, sq.Query)
	}
}

func (sh *shell) printTabs() {
	active := sh.reg.Active()
	for i, s := range sh.reg.Sessions() {
		marker := " "
		if active != nil && s.ID == active.ID {
			marker = "*"
		}
		fmt.Fprintf(sh.out, "%s %d: %s [%s]\n", marker, i+1, s.Title, s.State())
	}
}

func (sh *shell) printResult(s *session.Session) {
	if s.State() == session.Failed {
		fmt.Fprintf(sh.out, "error: %s\n", s.Err())
		return
	}
	rs := s.Result()
	if rs == nil {
		fmt.Fprintln(sh.out, "(no result)")
		return
	}

	names := rs.FieldNames()
	fmt.Fprintln(sh.out, strings.Join(names, " | "))
	for _, row := range rs.Rows {
		cells := make([]string, len(names))
		for i, name := range names {
			cells[i] = sh.formatCell(row[name])
		}
		fmt.Fprintln(sh.out, strings.Join(cells, " | "))
	}

	more := ""
	if rs.HasMore {
		more = ` (more available, \more to fetch)`
	}
	fmt.Fprintf(sh.out, "%d rows in %s%s\n", rs.RowCount, rs.ExecutionTime.Round(time.Millisecond), more)
}

func (sh *shell) formatCell(val interface{}) string {
	var text string
	switch v := val.(type) {
	case nil:
		text = "NULL"
	case map[string]interface{}, []interface{}:
		if data, err := json.Marshal(v); err == nil {
			text = string(data)
		} else {
			text = fmt.Sprintf("%v", v)
		}
	case []byte:
		text = string(v)
	default:
		text = fmt.Sprintf("%v", v)
	}

	width := sh.cfg.Fetch.MaxCellDisplayWidth
	if width > 3 && len(text) > width {
		text = text[:width-3] + "..."
	}
	return text
}
