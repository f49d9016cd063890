package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/tablekit/internal/engine"
	"github.com/leapstack-labs/tablekit/pkg/core"
	"github.com/spf13/cobra"
)

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell [table]",
		Short: "Browse and edit tables interactively",
		Long: `Start an interactive shell over the database.

Lines starting with a dot are commands (.help lists them). Any other line
searches the open table for rows containing every word.

Writes are committed immediately unless a transaction is opened with .begin;
pending writes are committed with .commit or on exit.`,
		Example: `  tablekit shell
  tablekit shell jobs`,
		Args: cobra.MaximumNArgs(1),
		RunE: runShell,
	}
}

func runShell(cmd *cobra.Command, args []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	sh := newShell(ctx, cmdCtx)
	if len(args) == 1 {
		if err := sh.open(args[0]); err != nil {
			return err
		}
	}

	tables, _ := cmdCtx.Engine.Introspector().TableNames(ctx, cmdCtx.Cfg.ExcludeTables...)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          sh.prompt(),
		HistoryFile:     filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "shell_history"),
		AutoComplete:    newShellCompleter(tables),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "tablekit shell. Type .help for commands, .quit to exit")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if sh.exec(line) {
			break
		}
		rl.SetPrompt(sh.prompt())
	}
	return nil
}

// shell holds the interactive session state: the open table and the view over it.
type shell struct {
	ctx    context.Context
	cmdCtx *CommandContext
	eng    *engine.Engine
	view   engine.View
	desc   *core.TableDescriptor
}

func newShell(ctx context.Context, cmdCtx *CommandContext) *shell {
	return &shell{
		ctx:    ctx,
		cmdCtx: cmdCtx,
		eng:    cmdCtx.Engine,
		view:   engine.View{Limit: cmdCtx.Engine.PageSize()},
	}
}

func (s *shell) prompt() string {
	p := "tablekit"
	if s.desc != nil {
		p += ":" + s.desc.Name
	}
	if s.eng.Session().InTx() {
		p += "*"
	}
	return p + "> "
}

// exec runs one input line and reports whether the shell should exit.
func (s *shell) exec(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, ".") {
		s.report(s.search(line))
		return false
	}

	parts := strings.Fields(line)
	command, args := strings.ToLower(parts[0]), parts[1:]

	var err error
	switch command {
	case ".quit", ".exit":
		return true
	case ".help":
		printShellHelp(s.cmdCtx.Renderer.Writer())
	case ".tables":
		err = s.tables()
	case ".open":
		if err = needArgs(args, 1, ".open <table>"); err == nil {
			if err = s.open(args[0]); err == nil {
				err = s.show()
			}
		}
	case ".columns":
		err = s.withTable(func() error { return renderDescriptor(s.cmdCtx.Renderer, s.desc) })
	case ".page":
		err = s.show()
	case ".next":
		s.view = s.view.Next()
		err = s.show()
	case ".prev":
		s.view = s.view.Prev()
		err = s.show()
	case ".reset":
		s.view = s.view.Reset()
		err = s.show()
	case ".order":
		err = s.order(args)
	case ".in":
		s.view.SearchColumns = splitList(strings.Join(args, ","))
		s.view.Offset = 0
		err = s.show()
	case ".edit":
		if err = needArgs(args, 3, ".edit <key> <column> <value>"); err == nil {
			err = s.edit(args[0], args[1], strings.Join(args[2:], " "))
		}
	case ".null":
		if err = needArgs(args, 2, ".null <key> <column>"); err == nil {
			err = s.edit(args[0], args[1], nil)
		}
	case ".status":
		if err = needArgs(args, 2, ".status <key> <status>"); err == nil {
			err = s.status(args[0], strings.Join(args[1:], " "))
		}
	case ".insert":
		err = s.insert(args)
	case ".delete":
		if err = needArgs(args, 1, ".delete <key>..."); err == nil {
			err = s.delete(args)
		}
	case ".resync":
		err = s.resync()
	case ".sql":
		err = s.query(strings.TrimSpace(line[len(parts[0]):]))
	case ".begin":
		err = s.eng.Session().Begin(s.ctx)
	case ".commit":
		if err = s.eng.Session().Flush(); err == nil {
			s.cmdCtx.Renderer.Success("committed")
		}
	case ".rollback":
		if err = s.eng.Session().Rollback(); err == nil {
			s.cmdCtx.Renderer.Muted("rolled back")
		}
	default:
		err = fmt.Errorf("unknown command: %s (type .help for commands)", command)
	}
	s.report(err)
	return false
}

func (s *shell) report(err error) {
	if err == nil {
		return
	}
	var dup *engine.DuplicateKeyError
	if errors.As(err, &dup) {
		s.cmdCtx.Renderer.Error(fmt.Sprintf("key %v is taken; %s %v keeps its key", dup.New, dup.Table, dup.Old))
		return
	}
	s.cmdCtx.Renderer.Error(err.Error())
}

func (s *shell) tables() error {
	names, err := s.eng.Introspector().TableNames(s.ctx, s.cmdCtx.Cfg.ExcludeTables...)
	if err != nil {
		return err
	}
	return renderNames(s.cmdCtx.Renderer, "Tables", names)
}

func (s *shell) open(table string) error {
	desc, err := describeTable(s.ctx, s.cmdCtx, table)
	if err != nil {
		return err
	}
	s.desc = desc
	s.view = s.view.Open(desc.Name)
	return nil
}

// refresh re-reads the descriptor so edits see the live schema.
func (s *shell) refresh() error {
	desc, err := s.eng.Describe(s.ctx, s.view.Table)
	if err != nil {
		return err
	}
	s.desc = desc
	return nil
}

func (s *shell) withTable(fn func() error) error {
	if s.desc == nil {
		return errors.New("no table open; use .open <table>")
	}
	return fn()
}

func (s *shell) show() error {
	return s.withTable(func() error {
		var (
			page *core.Page
			err  error
		)
		if s.view.Search != "" {
			page, err = s.eng.Search(s.ctx, s.desc, s.view.SearchColumns, s.view.Search, s.view.Request())
		} else {
			page, err = s.eng.FetchPage(s.ctx, s.desc, s.view.Request())
		}
		if err != nil {
			return err
		}
		return renderPage(s.cmdCtx.Renderer, page)
	})
}

func (s *shell) search(query string) error {
	return s.withTable(func() error {
		s.view.Search = query
		s.view.Offset = 0
		return s.show()
	})
}

func (s *shell) order(args []string) error {
	if err := needArgs(args, 1, ".order <column> [asc|desc]"); err != nil {
		return err
	}
	s.view.OrderBy = args[0]
	s.view.Ascending = len(args) > 1 && strings.EqualFold(args[1], "asc")
	s.view.Offset = 0
	return s.show()
}

func (s *shell) edit(rawKey, column string, value any) error {
	return s.withTable(func() error {
		if err := s.refresh(); err != nil {
			return err
		}
		key, err := engine.ParseKey(s.desc, rawKey)
		if err != nil {
			return err
		}
		res, err := s.eng.EditCell(s.ctx, s.desc, key, column, value)
		if err != nil {
			return err
		}
		return renderEdit(s.cmdCtx.Renderer, s.desc.Name, res)
	})
}

func (s *shell) status(rawKey, status string) error {
	return s.withTable(func() error {
		key, err := engine.ParseKey(s.desc, rawKey)
		if err != nil {
			return err
		}
		if err := s.eng.SetStatus(s.ctx, s.desc, key, status); err != nil {
			return err
		}
		s.cmdCtx.Renderer.Success(fmt.Sprintf("%s %v: status set to %q", s.desc.Name, key, status))
		return nil
	})
}

func (s *shell) insert(args []string) error {
	return s.withTable(func() error {
		values, err := parseShellAssignments(args)
		if err != nil {
			return err
		}
		if err := s.refresh(); err != nil {
			return err
		}
		n, err := s.eng.Insert(s.ctx, s.desc, values)
		if err != nil {
			return err
		}
		s.cmdCtx.Renderer.Success(fmt.Sprintf("inserted %d row(s) into %s", n, s.desc.Name))
		return nil
	})
}

func (s *shell) delete(rawKeys []string) error {
	return s.withTable(func() error {
		keys := make([]any, 0, len(rawKeys))
		for _, raw := range rawKeys {
			key, err := engine.ParseKey(s.desc, raw)
			if err != nil {
				return err
			}
			keys = append(keys, key)
		}
		if len(keys) == 1 {
			if err := s.eng.DeleteOne(s.ctx, s.desc, keys[0]); err != nil {
				return err
			}
			s.cmdCtx.Renderer.Success(fmt.Sprintf("deleted %s %v", s.desc.Name, keys[0]))
			return nil
		}
		n, err := s.eng.DeleteByKeys(s.ctx, s.desc, keys)
		if err != nil {
			return err
		}
		s.cmdCtx.Renderer.Success(fmt.Sprintf("deleted %d row(s) from %s", n, s.desc.Name))
		return nil
	})
}

func (s *shell) resync() error {
	return s.withTable(func() error {
		res, err := s.eng.Resync(s.ctx, s.desc)
		if err != nil {
			return err
		}
		return renderResync(s.cmdCtx.Renderer, []engine.ResyncResult{res})
	})
}

// query runs an SQL statement. Pending writes are committed first.
func (s *shell) query(stmt string) error {
	if err := needArgs(strings.Fields(stmt), 1, ".sql <statement>"); err != nil {
		return err
	}
	pending := s.eng.Session().InTx()
	res, err := s.eng.Query(s.ctx, stmt, 0)
	if err != nil {
		return err
	}
	if pending {
		s.cmdCtx.Renderer.Muted("pending writes committed")
	}
	return renderQueryResult(s.cmdCtx.Renderer, res)
}

// parseShellAssignments reads column=value pairs from whitespace-split words.
// A word without '=' continues the previous value.
func parseShellAssignments(words []string) (map[string]string, error) {
	values := make(map[string]string, len(words))
	last := ""
	for _, w := range words {
		col, val, ok := strings.Cut(w, "=")
		if ok && col != "" {
			values[col] = val
			last = col
			continue
		}
		if last == "" {
			return nil, fmt.Errorf("expected column=value, got %q", w)
		}
		values[last] += " " + w
	}
	return values, nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func needArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  .tables                       List tables
  .open <table>                 Open a table and show its first page
  .columns                      Show the open table's columns
  .page / .next / .prev         Show the current, next or previous page
  .reset                        Back to the first page, clearing the search
  .order <column> [asc|desc]    Change the ordering
  .in <col,col>                 Limit searches to these columns
  .edit <key> <column> <value>  Change one cell (editing the key renames the row)
  .null <key> <column>          Set a cell to NULL
  .status <key> <status>        Move a row to a new status
  .insert col=value ...         Add a record
  .delete <key>...              Delete rows
  .resync                       Resync the auto-increment counter
  .sql <statement>              Run an SQL statement (commits pending writes)
  .begin / .commit / .rollback  Group writes in a transaction
  .help                         Show this help message
  .quit / .exit                 Exit the shell

Any other input searches the open table for rows containing every word.
`
	_, _ = fmt.Fprintln(w, help)
}

// newShellCompleter creates a readline completer for commands and table names.
func newShellCompleter(tables []string) *readline.PrefixCompleter {
	tableItems := make([]readline.PrefixCompleterInterface, len(tables))
	for i, t := range tables {
		tableItems[i] = readline.PcItem(t)
	}

	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".open", tableItems...),
	}
	for _, c := range []string{
		".tables", ".columns", ".page", ".next", ".prev", ".reset", ".order", ".in",
		".edit", ".null", ".status", ".insert", ".delete", ".resync", ".sql",
		".begin", ".commit", ".rollback", ".help", ".quit",
	} {
		items = append(items, readline.PcItem(c))
	}
	return readline.NewPrefixCompleter(items...)
}
