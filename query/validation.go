package query

import (
	"errors"
	"fmt"
)

// Validation constants to prevent DoS and resource exhaustion
const (
	// MaxQueryLength is the maximum allowed query string length (1MB)
	MaxQueryLength = 1024 * 1024

	// MaxTokens is the maximum number of tokens in a query
	MaxTokens = 10000

	// MaxExpressionDepth is the maximum nesting depth for expressions
	MaxExpressionDepth = 100

	// MaxColumnNameLength is the maximum length for a column name
	MaxColumnNameLength = 256
)

var (
	// ErrQueryTooLong is returned when query exceeds MaxQueryLength
	ErrQueryTooLong = errors.New("query too long")

	// ErrTooManyTokens is returned when query has too many tokens
	ErrTooManyTokens = errors.New("too many tokens in query")

	// ErrExpressionTooDeep is returned when expression nesting exceeds limit
	ErrExpressionTooDeep = errors.New("expression nesting too deep")

	// ErrColumnNameTooLong is returned when column name is too long
	ErrColumnNameTooLong = errors.New("column name too long")
)

// ValidateQuery performs security validation on query input
func ValidateQuery(query string) error {
	if len(query) > MaxQueryLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrQueryTooLong, len(query), MaxQueryLength)
	}
	return nil
}

// ValidateColumnName validates column name length
func ValidateColumnName(name string) error {
	if len(name) > MaxColumnNameLength {
		return fmt.Errorf("%w: %d chars (max %d)", ErrColumnNameTooLong, len(name), MaxColumnNameLength)
	}
	return nil
}

// ValidateTokens validates token count
func ValidateTokens(tokens []Token) error {
	if len(tokens) > MaxTokens {
		return fmt.Errorf("%w: %d tokens (max %d)", ErrTooManyTokens, len(tokens), MaxTokens)
	}
	return nil
}

// ExpressionDepthCounter tracks expression nesting depth
type ExpressionDepthCounter struct {
	depth    int
	maxDepth int
}

// NewExpressionDepthCounter creates a new depth counter
func NewExpressionDepthCounter() *ExpressionDepthCounter {
	return &ExpressionDepthCounter{depth: 0, maxDepth: MaxExpressionDepth}
}

// Enter increments depth and returns error if limit exceeded
func (c *ExpressionDepthCounter) Enter() error {
	c.depth++
	if c.depth > c.maxDepth {
		return fmt.Errorf("%w: %d (max %d)", ErrExpressionTooDeep, c.depth, c.maxDepth)
	}
	return nil
}

// Exit decrements depth
func (c *ExpressionDepthCounter) Exit() {
	c.depth--
}

// Semantic validation

// exprFacts summarises a subtree for the aggregate rules
type exprFacts struct {
	height    int  // deepest chain of alias references
	aggregate bool // contains an aggregate call
	outside   bool // references a row column outside any aggregate call
}

func (f exprFacts) merge(o exprFacts) exprFacts {
	return exprFacts{
		height:    max(f.height, o.height),
		aggregate: f.aggregate || o.aggregate,
		outside:   f.outside || o.outside,
	}
}

const (
	aliasUnvisited = iota
	aliasVisiting
	aliasDone
)

type aliasFacts struct {
	state int
	facts exprFacts
}

// validator walks the compiled statement once, following alias references.
// Column names that match an alias are treated as alias references here;
// a clash with a schema column is reported at bind time.
type validator struct {
	arena   *Arena
	aliases *AliasTable
	memo    []aliasFacts
}

func newValidator(arena *Arena, aliases *AliasTable) *validator {
	return &validator{arena: arena, aliases: aliases, memo: make([]aliasFacts, aliases.Len())}
}

func (v *validator) fail(err error, offset int) error {
	return &ParseError{Offset: offset, Msg: err.Error(), Err: err}
}

// alias returns the facts of alias i. Entering an alias counts one level of
// depth; a chain longer than MaxAliasDepth, or one that loops back on
// itself, is an alias cycle.
func (v *validator) alias(i int, offset int) (exprFacts, error) {
	m := &v.memo[i]
	switch m.state {
	case aliasDone:
		return m.facts, nil
	case aliasVisiting:
		return exprFacts{}, v.fail(fmt.Errorf("%w: %q refers to itself", ErrAliasCycle, v.aliases.Name(i)), offset)
	}

	m.state = aliasVisiting
	f, err := v.walk(v.aliases.Node(i))
	if err != nil {
		return exprFacts{}, err
	}
	f.height++
	if f.height > MaxAliasDepth {
		return exprFacts{}, v.fail(fmt.Errorf("%w: %q (max %d)", ErrAliasCycle, v.aliases.Name(i), MaxAliasDepth), offset)
	}
	v.memo[i] = aliasFacts{state: aliasDone, facts: f}
	return f, nil
}

func (v *validator) walk(id NodeID) (exprFacts, error) {
	n := v.arena.Node(id)

	switch n.Kind {
	case NodeLiteral:
		return exprFacts{}, nil
	case NodeStar:
		return exprFacts{outside: true}, nil
	case NodeColumn:
		if n.Pos == 0 {
			if i, ok := v.aliases.Lookup(n.Name); ok {
				return v.alias(i, n.Offset)
			}
		}
		return exprFacts{outside: true}, nil
	case NodeArith, NodeCompare, NodeLogical:
		left, err := v.walk(n.Left)
		if err != nil {
			return exprFacts{}, err
		}
		right, err := v.walk(n.Right)
		if err != nil {
			return exprFacts{}, err
		}
		return left.merge(right), nil
	case NodeFunc:
		var f exprFacts
		for _, arg := range n.Args {
			af, err := v.walk(arg)
			if err != nil {
				return exprFacts{}, err
			}
			f = f.merge(af)
		}
		if !isAggregate(n.Name) {
			return f, nil
		}
		if f.aggregate {
			return exprFacts{}, v.fail(fmt.Errorf("%w: %s", ErrNestedAggregate, n.Name), n.Offset)
		}
		return exprFacts{height: f.height, aggregate: true}, nil
	}
	return exprFacts{}, nil
}

// validateStatement applies the aggregate and alias rules to a parsed
// statement and reports whether it is an aggregate query.
func validateStatement(arena *Arena, aliases *AliasTable, projections []Projection, filter NodeID) (bool, error) {
	v := newValidator(arena, aliases)

	var aggregate, outside bool
	outsideAt := 0
	for _, proj := range projections {
		var (
			f   exprFacts
			err error
		)
		if proj.aliasIdx >= 0 {
			f, err = v.alias(proj.aliasIdx, arena.Node(proj.Node).Offset)
		} else {
			f, err = v.walk(proj.Node)
		}
		if err != nil {
			return false, err
		}
		aggregate = aggregate || f.aggregate
		if f.outside && !outside {
			outside = true
			outsideAt = arena.Node(proj.Node).Offset
		}
	}

	if aggregate && outside {
		return false, v.fail(fmt.Errorf("%w: only aggregate functions and constants may be projected", ErrMixedAggregate), outsideAt)
	}

	if filter != NoNode {
		f, err := v.walk(filter)
		if err != nil {
			return false, err
		}
		if f.aggregate {
			return false, v.fail(ErrAggregateInFilter, arena.Node(filter).Offset)
		}
	}

	return aggregate, nil
}
