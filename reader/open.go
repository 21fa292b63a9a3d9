package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vegasq/s3sel/query"
)

// Format names an input format
type Format string

const (
	FormatAuto    Format = "auto"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// maxFiles limits how many files a glob pattern may expand to
const maxFiles = 1000

// ParseFormat validates a format name. The empty string means auto.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatCSV, FormatJSON, FormatParquet:
		return f, nil
	case "jsonl", "ndjson":
		return FormatJSON, nil
	case "tsv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown input format %q (supported: auto, csv, json, parquet)", name)
}

// FormatFromPath detects the format from the file extension, ignoring a
// trailing compression extension. Unknown extensions are read as CSV.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(stripCompressionExt(path))) {
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON
	case ".parquet", ".pq":
		return FormatParquet
	default:
		return FormatCSV
	}
}

// Options configures Open
type Options struct {
	Format      Format
	Compression Compression
	CSV         CSVOptions
}

// Source is a query.RowSource backed by open files
type Source interface {
	query.RowSource
	io.Closer
}

// Open opens path, which may be a glob pattern or "-" for standard input,
// as a row source.
//
// The pattern can include wildcards:
//   - * matches any sequence of non-separator characters
//   - ? matches any single non-separator character
//   - [range] matches any character in range
//
// Files of a pattern are read one after another in lexical order and share
// the columns of the first file.
func Open(path string, opts Options) (Source, error) {
	if path == "-" {
		return openStream(os.Stdin, "", opts)
	}
	if !strings.ContainsAny(path, "*?[") {
		return openFile(path, opts)
	}

	matches, err := filepath.Glob(path)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match pattern: %s", path)
	}
	if len(matches) > maxFiles {
		return nil, fmt.Errorf("glob pattern matched too many files (%d), maximum is %d", len(matches), maxFiles)
	}
	if len(matches) == 1 {
		return openFile(matches[0], opts)
	}
	return newMultiSource(matches, opts)
}

func openFile(path string, opts Options) (Source, error) {
	format := opts.Format
	if format == "" || format == FormatAuto {
		format = FormatFromPath(path)
	}
	if format == FormatParquet {
		return OpenParquet(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	opts.Format = format
	src, err := openStream(file, path, opts)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// openStream decodes a possibly compressed text stream. Closing the
// returned source closes r.
func openStream(r io.ReadCloser, path string, opts Options) (Source, error) {
	if opts.Format == FormatParquet {
		return nil, errors.New("parquet input needs a seekable file")
	}

	compression := opts.Compression
	if compression == "" || compression == CompressionAuto {
		if c := CompressionFromPath(path); c != CompressionNone {
			compression = c
		}
	}
	body, err := Decompress(r, compression, path)
	if err != nil {
		return nil, err
	}
	stream := &stackedCloser{Reader: body, closers: []io.Closer{body, r}}

	if opts.Format == FormatJSON {
		return NewJSONSource(stream)
	}
	return NewCSVSource(stream, opts.CSV)
}

// stackedCloser closes a decoder and the file below it
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// multiSource chains the sources of several files
type multiSource struct {
	paths   []string
	opts    Options
	current Source
	next    int
	columns []string
}

func newMultiSource(paths []string, opts Options) (*multiSource, error) {
	first, err := openFile(paths[0], opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", paths[0], err)
	}
	return &multiSource{
		paths:   paths,
		opts:    opts,
		current: first,
		next:    1,
		columns: first.Columns(),
	}, nil
}

func (m *multiSource) Columns() []string {
	return m.columns
}

func (m *multiSource) Next() (query.Row, error) {
	for {
		if m.current == nil {
			return query.Row{}, io.EOF
		}
		row, err := m.current.Next()
		if !errors.Is(err, io.EOF) {
			return row, err
		}

		closeErr := m.current.Close()
		m.current = nil
		if closeErr != nil {
			return query.Row{}, fmt.Errorf("failed to close %s: %w", m.paths[m.next-1], closeErr)
		}
		if m.next >= len(m.paths) {
			return query.Row{}, io.EOF
		}
		path := m.paths[m.next]
		m.next++
		if m.current, err = openFile(path, m.opts); err != nil {
			return query.Row{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
}

func (m *multiSource) Close() error {
	if m.current != nil {
		err := m.current.Close()
		m.current = nil
		return err
	}
	return nil
}
