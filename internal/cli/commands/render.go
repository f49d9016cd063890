package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/tablekit/internal/cli/output"
	"github.com/leapstack-labs/tablekit/internal/engine"
	"github.com/leapstack-labs/tablekit/pkg/core"
)

// newTable returns a go-pretty writer mirrored to the renderer's output.
func newTable(r *output.Renderer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	return t
}

// flush renders t in the renderer's tabular mode.
func flush(r *output.Renderer, t table.Writer) {
	switch r.EffectiveMode() {
	case output.ModeCSV:
		t.RenderCSV()
	case output.ModeMarkdown:
		t.RenderMarkdown()
	default:
		t.Render()
	}
}

// renderPage writes one page of rows.
func renderPage(r *output.Renderer, page *core.Page) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(page)
	}

	if len(page.Rows) == 0 && r.EffectiveMode() != output.ModeCSV {
		r.Muted("(0 rows)")
		return nil
	}

	t := newTable(r)
	header := make(table.Row, len(page.Columns))
	for i, c := range page.Columns {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, row := range page.Rows {
		out := make(table.Row, len(row))
		for i, v := range row {
			out[i] = formatValue(v)
		}
		t.AppendRow(out)
	}
	flush(r, t)

	if r.EffectiveMode() == output.ModeCSV {
		return nil
	}
	footer := fmt.Sprintf("(%d rows, offset %d)", len(page.Rows), page.Offset)
	if page.HasNext {
		footer += fmt.Sprintf(" next: --offset %d", page.Offset+page.Limit)
	}
	r.Muted(footer)
	return nil
}

// renderDescriptor writes a table's columns.
func renderDescriptor(r *output.Renderer, desc *core.TableDescriptor) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(desc)
	}

	if r.EffectiveMode() != output.ModeCSV {
		r.Header(2, "Table: "+desc.Name)
	}
	t := newTable(r)
	t.AppendHeader(table.Row{"Column", "Type", "Category", "Nullable", "Key"})
	for _, c := range desc.Columns {
		key := ""
		if c.Name == desc.PrimaryKey {
			key = "PK"
		}
		t.AppendRow(table.Row{c.Name, c.Type, string(c.Category), yesNo(c.Nullable), key})
	}
	flush(r, t)

	if !desc.HasPrimaryKey() && r.EffectiveMode() != output.ModeCSV {
		r.Warning("no primary key: rows of this table are read-only")
	}
	return nil
}

// renderNames writes a one-column list.
func renderNames(r *output.Renderer, title string, names []string) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{strings.ToLower(title): names})
	}

	t := newTable(r)
	t.AppendHeader(table.Row{title})
	for _, n := range names {
		t.AppendRow(table.Row{n})
	}
	flush(r, t)
	return nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(engine.DateTimeLayout)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
