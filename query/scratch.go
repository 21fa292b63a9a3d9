package query

import "fmt"

// ScratchArea holds the current row. Tokens are views into the caller's
// buffers and are only valid until the next update; no history is kept.
type ScratchArea struct {
	schema []string
	tokens []string
	fields []any
	typed  bool
}

// Bind sets the schema column names. Positions are 0-based.
func (s *ScratchArea) Bind(columns []string) {
	s.schema = append(s.schema[:0], columns...)
}

// Schema returns the bound column names
func (s *ScratchArea) Schema() []string {
	return s.schema
}

// Position returns the schema position of a named column
func (s *ScratchArea) Position(name string) (int, bool) {
	for i, col := range s.schema {
		if col == name {
			return i, true
		}
	}
	return -1, false
}

// Update replaces the current row with raw text tokens
func (s *ScratchArea) Update(tokens []string) {
	s.tokens = tokens
	s.fields = nil
	s.typed = false
}

// UpdateFields replaces the current row with typed fields from a source that
// already knows its column types. Strings stay text.
func (s *ScratchArea) UpdateFields(fields []any) {
	s.fields = fields
	s.tokens = nil
	s.typed = true
}

// Len returns the number of columns in the current row
func (s *ScratchArea) Len() int {
	if s.typed {
		return len(s.fields)
	}
	return len(s.tokens)
}

// Column returns the value at 0-based position pos
func (s *ScratchArea) Column(pos int) (Value, error) {
	if pos < 0 || pos >= s.Len() {
		return Value{}, fmt.Errorf("%w: _%d (row has %d columns)", ErrColumnOutOfRange, pos+1, s.Len())
	}
	if !s.typed {
		return ParseToken(s.tokens[pos]), nil
	}
	return ValueOf(s.fields[pos]), nil
}
