package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table prints aligned columns. The header and its underline are written
// with the first row, so a table without rows prints nothing. Empty cells,
// and cells missing from short rows, print as "-".
type Table struct {
	tw      *tabwriter.Writer
	headers []string
	indent  string
	rows    int
}

// NewTable returns a table writing to w.
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{
		tw:      tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		headers: headers,
	}
}

// WithPrefix indents every line by prefix.
func (t *Table) WithPrefix(prefix string) *Table {
	t.indent = prefix
	return t
}

// Row adds one row.
func (t *Table) Row(cells ...string) {
	if t.rows == 0 {
		t.line(t.headers)
		under := make([]string, len(t.headers))
		for i, h := range t.headers {
			under[i] = strings.Repeat("-", len(h))
		}
		t.line(under)
	}
	t.rows++

	n := max(len(cells), len(t.headers))
	out := make([]string, n)
	for i := range out {
		out[i] = "-"
		if i < len(cells) && cells[i] != "" {
			out[i] = cells[i]
		}
	}
	t.line(out)
}

// Len returns the number of rows added.
func (t *Table) Len() int {
	return t.rows
}

// Flush writes the table out.
func (t *Table) Flush() {
	if t.rows > 0 {
		t.tw.Flush()
	}
}

func (t *Table) line(cells []string) {
	fmt.Fprintln(t.tw, t.indent+strings.Join(cells, "\t"))
}
