// Package output provides formatters that write query results as CSV,
// JSON Lines or an aligned text table.
//
// Example usage:
//
//	f, err := output.New("csv", os.Stdout, output.Options{Header: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stats, err := query.Execute(ctx, q, src, f, query.ExecOptions{})
//	...
//	if err := f.Flush(); err != nil {
//	    log.Fatal(err)
//	}
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/s3sel/query"
)

// Formatter defines the interface for output formatters.
//
// WriteHeader is called once before the first row. Formatters may buffer;
// Flush must be called after the last row.
type Formatter interface {
	WriteHeader(names []string) error
	WriteRow(values []query.Value) error
	Flush() error
}

// Options controls formatting
type Options struct {
	// Delimiter separates CSV fields. Zero means comma.
	Delimiter rune
	// Header writes the column names first (CSV and table).
	Header bool
	// MaxWidth clips table cells to this display width. Zero disables it.
	MaxWidth int
	// SanitizeFormulas prefixes CSV text that a spreadsheet would run as a
	// formula.
	SanitizeFormulas bool
}

// Formats lists the supported format names
var Formats = []string{"csv", "json", "table"}

// New creates the formatter called format writing to w
func New(format string, w io.Writer, opts Options) (Formatter, error) {
	switch strings.ToLower(format) {
	case "csv":
		return NewCSVFormatter(w, opts), nil
	case "json", "jsonl":
		return NewJSONFormatter(w), nil
	case "table":
		return NewTableFormatter(w, opts), nil
	}
	return nil, fmt.Errorf("unknown output format %q (supported: %s)", format, strings.Join(Formats, ", "))
}

// IsFormat reports whether New accepts format
func IsFormat(format string) bool {
	switch strings.ToLower(format) {
	case "csv", "json", "jsonl", "table":
		return true
	}
	return false
}
