package query

import (
	"fmt"
	"strconv"
)

// OutcomeKind tells the caller what one call to EvaluateRow or Finish
// produced
type OutcomeKind uint8

const (
	// OutcomeFiltered means the row was rejected and nothing is produced.
	OutcomeFiltered OutcomeKind = iota
	// OutcomeProjected carries the projected values of the row.
	OutcomeProjected
	// OutcomeAccumulated means an aggregate query consumed the row.
	OutcomeAccumulated
	// OutcomeEndOfAggregation carries the finalized aggregate row.
	OutcomeEndOfAggregation
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeProjected:
		return "projected"
	case OutcomeAccumulated:
		return "accumulated"
	case OutcomeEndOfAggregation:
		return "end-of-aggregation"
	default:
		return "filtered"
	}
}

// RowOutcome is the result of evaluating one row
type RowOutcome struct {
	Kind   OutcomeKind
	Values []Value

	// Rejected holds the recoverable errors of aggregate inputs that were
	// left out of an accumulated row. It is reused by the next row.
	Rejected []error
}

// HasValues reports whether the outcome carries an output row
func (o RowOutcome) HasValues() bool {
	return o.Kind == OutcomeProjected || o.Kind == OutcomeEndOfAggregation
}

type options struct {
	maxNodes int
	maxBytes int
}

// Option configures Parse
type Option func(*options)

// WithArenaLimits bounds the number of nodes and string bytes one query may
// allocate. Non-positive values keep the defaults.
func WithArenaLimits(maxNodes, maxBytes int) Option {
	return func(o *options) {
		o.maxNodes = maxNodes
		o.maxBytes = maxBytes
	}
}

// Query is a compiled statement together with its per-row state. A Query is
// not safe for concurrent use; separate queries share nothing.
type Query struct {
	text    string
	arena   *Arena
	aliases *AliasTable
	scratch ScratchArea
	cache   aliasCache

	aliasDepth int
	inputErrs  []error

	projections []Projection
	filter      NodeID
	source      string
	sourceAlias string
	limit       int64
	aggregate   bool
	finished    bool
}

// Parse compiles text. Syntax errors and the aggregate and alias rules are
// reported as *ParseError carrying the byte offset where compilation
// stopped.
func Parse(text string, opts ...Option) (*Query, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := ValidateQuery(text); err != nil {
		return nil, &ParseError{Offset: MaxQueryLength, Msg: err.Error(), Err: err}
	}
	tokens := Tokenize(text)
	if err := ValidateTokens(tokens); err != nil {
		return nil, &ParseError{Offset: tokens[MaxTokens].Pos, Msg: err.Error(), Err: err}
	}

	arena := NewArena(o.maxNodes, o.maxBytes)
	p := NewParser(text, tokens, arena)
	if err := p.parseStatement(); err != nil {
		arena.Release()
		return nil, err
	}

	aggregate, err := validateStatement(arena, p.aliases, p.projections, p.filter)
	if err != nil {
		arena.Release()
		return nil, err
	}

	q := &Query{
		text:        text,
		arena:       arena,
		aliases:     p.aliases,
		projections: p.projections,
		filter:      p.filter,
		source:      p.source,
		sourceAlias: p.tableAlias,
		limit:       p.limit,
		aggregate:   aggregate,
	}
	q.cache.reset(q.aliases.Len())
	return q, nil
}

// Text returns the query text
func (q *Query) Text() string { return q.text }

// Source returns the FROM target, e.g. s3object
func (q *Query) Source() string { return q.source }

// SourceAlias returns the alias given to the FROM target, if any
func (q *Query) SourceAlias() string { return q.sourceAlias }

// IsAggregate reports whether the query produces a single aggregated row
func (q *Query) IsAggregate() bool { return q.aggregate }

// Limit returns the LIMIT row count; ok is false when there is none
func (q *Query) Limit() (n int64, ok bool) { return q.limit, q.limit >= 0 }

// NodeCount returns the number of AST nodes the query allocated
func (q *Query) NodeCount() int {
	if q.arena.Released() {
		return 0
	}
	return q.arena.Len()
}

// Bind sets the schema column names used to resolve named columns. A name
// that is both a schema column and an alias referenced by the query is
// rejected.
func (q *Query) Bind(columns []string) error {
	if q.arena.Released() {
		return ErrReleased
	}
	q.scratch.Bind(columns)

	for i := 0; i < q.arena.Len(); i++ {
		n := q.arena.Node(NodeID(i))
		if n.Kind != NodeColumn {
			continue
		}
		n.binding = bindUnresolved
		if n.Pos > 0 {
			continue
		}
		if _, isAlias := q.aliases.Lookup(n.Name); isAlias {
			if _, inSchema := q.scratch.Position(n.Name); inSchema {
				return fmt.Errorf("%w: %q", ErrAmbiguousAlias, n.Name)
			}
		}
	}
	return nil
}

// UpdateRow makes tokens the current row. Tokens are only read until the
// next update.
func (q *Query) UpdateRow(tokens []string) {
	q.scratch.Update(tokens)
	q.cache.reset(q.aliases.Len())
}

// UpdateRecord makes fields from a typed source the current row
func (q *Query) UpdateRecord(fields []any) {
	q.scratch.UpdateFields(fields)
	q.cache.reset(q.aliases.Len())
}

// EvaluateRow applies the filter and projections to the current row.
// Errors wrapping a Recoverable sentinel only affect this row. In an
// aggregate query each aggregate skips its own bad input instead: the row
// is still accumulated and the rejected inputs are listed in the outcome.
func (q *Query) EvaluateRow() (RowOutcome, error) {
	if q.arena.Released() {
		return RowOutcome{}, ErrReleased
	}
	q.aliasDepth = 0

	if q.filter != NoNode {
		v, err := q.eval(q.filter, ModeRow)
		if err != nil {
			return RowOutcome{}, err
		}
		if !truthy(v) {
			if !v.IsBool() && !v.isNullLike() {
				return RowOutcome{}, fmt.Errorf("%w: WHERE clause must be a condition, got %s", ErrTypeMismatch, v.Kind())
			}
			return RowOutcome{Kind: OutcomeFiltered}, nil
		}
	}

	if q.aggregate {
		q.inputErrs = q.inputErrs[:0]
		for _, proj := range q.projections {
			if _, err := q.evalProjection(proj, ModeAccumulate); err != nil {
				return RowOutcome{}, err
			}
		}
		return RowOutcome{Kind: OutcomeAccumulated, Rejected: q.inputErrs}, nil
	}

	values := make([]Value, 0, len(q.projections))
	for _, proj := range q.projections {
		if q.arena.Node(proj.Node).Kind == NodeStar {
			for pos := 0; pos < q.scratch.Len(); pos++ {
				v, err := q.scratch.Column(pos)
				if err != nil {
					return RowOutcome{}, err
				}
				values = append(values, v)
			}
			continue
		}
		v, err := q.evalProjection(proj, ModeRow)
		if err != nil {
			return RowOutcome{}, err
		}
		values = append(values, v)
	}
	return RowOutcome{Kind: OutcomeProjected, Values: values}, nil
}

// Finish runs the finalization pass of an aggregate query and returns its
// single output row. It produces the row only once; non-aggregate queries
// have nothing to finish.
func (q *Query) Finish() (RowOutcome, error) {
	if q.arena.Released() {
		return RowOutcome{}, ErrReleased
	}
	if !q.aggregate || q.finished {
		return RowOutcome{Kind: OutcomeFiltered}, nil
	}
	q.finished = true
	q.aliasDepth = 0
	q.cache.reset(q.aliases.Len())

	values := make([]Value, 0, len(q.projections))
	for _, proj := range q.projections {
		v, err := q.evalProjection(proj, ModeFinalize)
		if err != nil {
			return RowOutcome{}, err
		}
		values = append(values, v)
	}
	return RowOutcome{Kind: OutcomeEndOfAggregation, Values: values}, nil
}

func (q *Query) evalProjection(proj Projection, mode Mode) (Value, error) {
	if proj.aliasIdx >= 0 {
		return q.evalAlias(proj.aliasIdx, mode)
	}
	return q.eval(proj.Node, mode)
}

// ColumnNames returns the output header. Aliased projections use the alias,
// plain column references their name and anything else its 1-based
// position as _N. * expands to the schema, or to _1.._N for the current row
// when no schema is bound.
func (q *Query) ColumnNames() []string {
	if q.arena.Released() {
		return nil
	}

	var names []string
	for i, proj := range q.projections {
		n := q.arena.Node(proj.Node)
		switch {
		case n.Kind == NodeStar:
			if schema := q.scratch.Schema(); len(schema) > 0 {
				names = append(names, schema...)
				continue
			}
			for pos := 1; pos <= q.scratch.Len(); pos++ {
				names = append(names, "_"+strconv.Itoa(pos))
			}
		case proj.Alias != "":
			names = append(names, proj.Alias)
		case n.Kind == NodeColumn && !n.Negate:
			names = append(names, n.Name)
		default:
			names = append(names, "_"+strconv.Itoa(i+1))
		}
	}
	return names
}

// Release frees the arena. Every later call on q fails with ErrReleased.
func (q *Query) Release() {
	if q.arena.Released() {
		return
	}
	q.arena.Release()
	q.projections = nil
	q.aliases = &AliasTable{}
	q.cache = aliasCache{}
	q.scratch = ScratchArea{}
}
