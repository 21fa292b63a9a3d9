package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/s3sel/query"
)

// CSVFormatter outputs rows as CSV format
type CSVFormatter struct {
	writer   *csv.Writer
	header   bool
	sanitize bool
	record   []string
}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter(w io.Writer, opts Options) *CSVFormatter {
	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}
	return &CSVFormatter{writer: cw, header: opts.Header, sanitize: opts.SanitizeFormulas}
}

// WriteHeader writes the column names when headers are enabled
func (c *CSVFormatter) WriteHeader(names []string) error {
	if !c.header {
		return nil
	}
	return c.writer.Write(names)
}

// WriteRow writes one record
func (c *CSVFormatter) WriteRow(values []query.Value) error {
	c.record = c.record[:0]
	for _, v := range values {
		c.record = append(c.record, c.formatValue(v))
	}
	return c.writer.Write(c.record)
}

// Flush writes any buffered data
func (c *CSVFormatter) Flush() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// formatValue renders a value for CSV output
func (c *CSVFormatter) formatValue(v query.Value) string {
	s := v.String()
	if !c.sanitize || !v.IsText() || len(s) == 0 {
		return s
	}

	// Sanitize against CSV injection by prefixing dangerous characters
	// that could trigger formula execution in spreadsheet applications
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '\n', '|':
		return "'" + strings.ReplaceAll(s, "'", "''")
	}
	return s
}
