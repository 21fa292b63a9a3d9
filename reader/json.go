package reader

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/segmentio/encoding/json"

	"github.com/vegasq/s3sel/query"
)

// JSONSource reads a stream of JSON documents: JSON Lines, concatenated
// objects, or top-level arrays of objects. Columns are the keys of the
// first object, sorted; keys missing from later objects are null.
type JSONSource struct {
	dec     *json.Decoder
	closer  io.Closer
	columns []string
	pending []any
	fields  []any
	doc     int64
}

// NewJSONSource reads documents from r. The first object is decoded
// immediately to learn the columns.
func NewJSONSource(r io.Reader) (*JSONSource, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	s := &JSONSource{dec: dec}
	if closer, ok := r.(io.Closer); ok {
		s.closer = closer
	}

	first, err := s.peek()
	if errors.Is(err, io.EOF) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	obj, ok := first.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("JSON document 1: expected an object, got %T", first)
	}
	for key := range obj {
		s.columns = append(s.columns, key)
	}
	sort.Strings(s.columns)
	s.fields = make([]any, len(s.columns))
	return s, nil
}

// peek makes sure at least one document is pending and returns it
func (s *JSONSource) peek() (any, error) {
	for len(s.pending) == 0 {
		var doc any
		if err := s.dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("JSON document %d: %w", s.doc+1, err)
		}
		if arr, ok := doc.([]any); ok {
			s.pending = append(s.pending, arr...)
			continue
		}
		s.pending = append(s.pending, doc)
	}
	return s.pending[0], nil
}

// Columns returns the keys of the first object
func (s *JSONSource) Columns() []string {
	return s.columns
}

// Next returns the next object as typed fields. Nested objects and arrays
// are passed as their JSON text.
func (s *JSONSource) Next() (query.Row, error) {
	doc, err := s.peek()
	if err != nil {
		return query.Row{}, err
	}
	s.pending = s.pending[1:]
	s.doc++

	obj, ok := doc.(map[string]any)
	if !ok {
		return query.Row{}, fmt.Errorf("JSON document %d: expected an object, got %T", s.doc, doc)
	}
	for i, col := range s.columns {
		s.fields[i] = jsonField(obj[col])
	}
	return query.Row{Fields: s.fields}, nil
}

func jsonField(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	}
	return v
}

// Close closes the underlying reader
func (s *JSONSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
