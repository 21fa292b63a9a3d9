package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/s3sel/query"
)

// HeaderMode says what the first CSV record is
type HeaderMode string

const (
	// HeaderNone means every record is data; columns are positional only.
	HeaderNone HeaderMode = "none"
	// HeaderUse takes column names from the first record.
	HeaderUse HeaderMode = "use"
	// HeaderIgnore skips the first record.
	HeaderIgnore HeaderMode = "ignore"
)

// ParseHeaderMode validates a header mode name. The empty string means none.
func ParseHeaderMode(name string) (HeaderMode, error) {
	switch m := HeaderMode(strings.ToLower(name)); m {
	case "":
		return HeaderNone, nil
	case HeaderNone, HeaderUse, HeaderIgnore:
		return m, nil
	}
	return "", fmt.Errorf("unknown header mode %q (supported: none, use, ignore)", name)
}

// CSVOptions configures CSVSource
type CSVOptions struct {
	Delimiter rune // zero means comma
	Comment   rune // zero disables comments
	Header    HeaderMode
}

// CSVSource reads delimited text records. Fields are passed to the query
// as raw tokens.
type CSVSource struct {
	r       *csv.Reader
	closer  io.Closer
	columns []string
	line    int64
}

// NewCSVSource reads records from r. The header record, if any, is read
// immediately.
func NewCSVSource(r io.Reader, opts CSVOptions) (*CSVSource, error) {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.Comment = opts.Comment
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	s := &CSVSource{r: cr}
	if closer, ok := r.(io.Closer); ok {
		s.closer = closer
	}

	switch opts.Header {
	case HeaderUse, HeaderIgnore:
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV header: %w", err)
		}
		s.line++
		if opts.Header == HeaderUse {
			s.columns = make([]string, len(rec))
			for i, name := range rec {
				s.columns[i] = strings.TrimSpace(name)
			}
		}
	}
	return s, nil
}

// Columns returns the header names, or nil without a used header
func (s *CSVSource) Columns() []string {
	return s.columns
}

// Next returns the next record. The tokens are only valid until the next
// call.
func (s *CSVSource) Next() (query.Row, error) {
	rec, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return query.Row{}, io.EOF
		}
		return query.Row{}, fmt.Errorf("CSV record %d: %w", s.line+1, err)
	}
	s.line++
	return query.Row{Tokens: rec}, nil
}

// Close closes the underlying reader
func (s *CSVSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
