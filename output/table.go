package output

import (
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/s3sel/query"
)

// TableFormatter renders rows as an aligned text table. Column widths
// depend on every row, so output is produced by Flush.
type TableFormatter struct {
	table    *tablewriter.Table
	maxWidth int
	rows     int
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer, opts Options) *TableFormatter {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	return &TableFormatter{table: table, maxWidth: opts.MaxWidth}
}

// WriteHeader sets the column names
func (t *TableFormatter) WriteHeader(names []string) error {
	header := make([]string, len(names))
	for i, name := range names {
		header[i] = t.clip(name)
	}
	t.table.SetHeader(header)
	return nil
}

// WriteRow buffers one row
func (t *TableFormatter) WriteRow(values []query.Value) error {
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = t.clip(v.String())
	}
	t.table.Append(record)
	t.rows++
	return nil
}

// Flush renders the table. Nothing is written when no row was added.
func (t *TableFormatter) Flush() error {
	if t.rows == 0 {
		return nil
	}
	t.table.Render()
	return nil
}

// clip shortens s to the configured display width, counting wide runes as
// two columns
func (t *TableFormatter) clip(s string) string {
	if t.maxWidth <= 0 || runewidth.StringWidth(s) <= t.maxWidth {
		return s
	}
	return runewidth.Truncate(s, t.maxWidth, "...")
}
