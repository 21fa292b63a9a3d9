package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/s3sel/query"
)

// rowBatch is the number of rows fetched from the parquet reader at once
const rowBatch = 128

type timeUnit uint8

const (
	unitMillis timeUnit = iota
	unitMicros
	unitNanos
)

// converter turns one non-null parquet value into a Go value understood by
// query.ValueOf
type converter func(parquet.Value) any

func converterFor(typ parquet.Type) converter {
	if lt := typ.LogicalType(); lt != nil {
		switch {
		case lt.Timestamp != nil:
			unit := timestampUnit(lt.Timestamp)
			return func(v parquet.Value) any {
				n := v.Int64()
				switch unit {
				case unitNanos:
					return time.Unix(0, n).UTC()
				case unitMicros:
					return time.UnixMicro(n).UTC()
				default:
					return time.UnixMilli(n).UTC()
				}
			}
		case lt.Date != nil:
			return func(v parquet.Value) any {
				return time.Unix(int64(v.Int32())*86400, 0).UTC()
			}
		}
	}

	switch typ.Kind() {
	case parquet.Boolean:
		return func(v parquet.Value) any { return v.Boolean() }
	case parquet.Int32:
		return func(v parquet.Value) any { return v.Int32() }
	case parquet.Int64:
		return func(v parquet.Value) any { return v.Int64() }
	case parquet.Float:
		return func(v parquet.Value) any { return v.Float() }
	case parquet.Double:
		return func(v parquet.Value) any { return v.Double() }
	case parquet.ByteArray, parquet.FixedLenByteArray:
		// The row buffer is reused between batches, so bytes are copied.
		return func(v parquet.Value) any { return string(v.ByteArray()) }
	default:
		return func(v parquet.Value) any { return v.String() }
	}
}

// ParquetSource reads rows of a Parquet file with their column types.
//
// It maintains both an OS file handle and a parquet file handle to enable
// proper resource cleanup.
type ParquetSource struct {
	file    *os.File
	pqFile  *parquet.File
	reader  *parquet.Reader
	schema  []SchemaInfo
	columns []string

	batch  []parquet.Row
	pos    int
	n      int
	eof    bool
	fields []any
	lists  [][]string
}

// OpenParquet opens path as a Parquet file. Returns an error if the file
// doesn't exist or is not a valid parquet file.
func OpenParquet(path string) (*ParquetSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	schema, err := leafSchema(pqFile.Schema())
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	columns := make([]string, len(schema))
	for i, info := range schema {
		columns[i] = info.Name
	}

	return &ParquetSource{
		file:    file,
		pqFile:  pqFile,
		reader:  parquet.NewReader(pqFile),
		schema:  schema,
		columns: columns,
		batch:   make([]parquet.Row, rowBatch),
		fields:  make([]any, len(schema)),
		lists:   make([][]string, len(schema)),
	}, nil
}

// Schema describes the leaf columns
func (p *ParquetSource) Schema() []SchemaInfo {
	return p.schema
}

// NumRows returns the row count recorded in the file metadata
func (p *ParquetSource) NumRows() int64 {
	return p.pqFile.NumRows()
}

// Columns returns the leaf column names in dot notation
func (p *ParquetSource) Columns() []string {
	return p.columns
}

// Next returns the next row. The fields are only valid until the next call.
func (p *ParquetSource) Next() (query.Row, error) {
	for p.pos >= p.n {
		if p.eof {
			return query.Row{}, io.EOF
		}
		n, err := p.reader.ReadRows(p.batch)
		p.pos, p.n = 0, n
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return query.Row{}, fmt.Errorf("failed to read row: %w", err)
			}
			p.eof = true
		}
	}

	row := p.batch[p.pos]
	p.pos++
	p.decode(row)
	return query.Row{Fields: p.fields}, nil
}

// decode fills p.fields from a row. Repeated columns become a bracketed,
// comma separated list of their values.
func (p *ParquetSource) decode(row parquet.Row) {
	for i := range p.fields {
		p.fields[i] = nil
		p.lists[i] = p.lists[i][:0]
	}

	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(p.schema) || v.IsNull() {
			continue
		}
		info := &p.schema[col]
		if info.conv == nil {
			continue
		}
		value := info.conv(v)
		if info.Repeated {
			p.lists[col] = append(p.lists[col], query.ValueOf(value).String())
			continue
		}
		p.fields[col] = value
	}

	for i, info := range p.schema {
		if info.Repeated && len(p.lists[i]) > 0 {
			p.fields[i] = "[" + strings.Join(p.lists[i], ",") + "]"
		}
	}
}

// Close closes the parquet reader and releases associated resources.
// It is safe to call Close multiple times.
func (p *ParquetSource) Close() error {
	if p.reader != nil {
		_ = p.reader.Close()
		p.reader = nil
	}
	if p.file != nil {
		err := p.file.Close()
		p.file = nil
		return err
	}
	return nil
}
