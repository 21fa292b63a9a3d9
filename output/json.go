package output

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/vegasq/s3sel/query"
)

// JSONFormatter outputs rows as JSON Lines format. Keys follow the column
// order of the query.
type JSONFormatter struct {
	writer *bufio.Writer
	keys   [][]byte
	buf    []byte
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: bufio.NewWriter(w)}
}

// WriteHeader records the object keys. Duplicate names are kept as they
// are.
func (j *JSONFormatter) WriteHeader(names []string) error {
	j.keys = j.keys[:0]
	for _, name := range names {
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		j.keys = append(j.keys, key)
	}
	return nil
}

// WriteRow writes one JSON object on its own line
func (j *JSONFormatter) WriteRow(values []query.Value) error {
	j.buf = append(j.buf[:0], '{')
	for i, v := range values {
		if i > 0 {
			j.buf = append(j.buf, ',')
		}
		if i < len(j.keys) {
			j.buf = append(j.buf, j.keys[i]...)
		} else {
			j.buf = append(j.buf, `"_`...)
			j.buf = strconv.AppendInt(j.buf, int64(i+1), 10)
			j.buf = append(j.buf, '"')
		}
		j.buf = append(j.buf, ':')

		var err error
		if j.buf, err = json.Append(j.buf, jsonValue(v), 0); err != nil {
			return err
		}
	}
	j.buf = append(j.buf, '}', '\n')
	_, err := j.writer.Write(j.buf)
	return err
}

// Flush writes any buffered data
func (j *JSONFormatter) Flush() error {
	return j.writer.Flush()
}

// jsonValue maps a query value onto the Go value encoded for it. NaN and
// infinities have no JSON number form and are written as strings.
func jsonValue(v query.Value) any {
	switch v.Kind() {
	case query.KindInteger:
		return v.Int()
	case query.KindFloat:
		if math.IsInf(v.Float(), 0) {
			return v.String()
		}
		return v.Float()
	case query.KindText:
		return v.Text()
	case query.KindBool:
		return v.Bool()
	case query.KindTimestamp:
		return v.Time().Format(time.RFC3339Nano)
	case query.KindNaN:
		return "NaN"
	default:
		return nil
	}
}
