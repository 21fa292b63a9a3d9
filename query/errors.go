package query

import (
	"errors"
	"fmt"
)

// Severity classifies how far an error reaches.
type Severity int

const (
	// Recoverable errors are scoped to one row; the row is skipped.
	Recoverable Severity = iota
	// Fatal errors abort the whole query.
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "fatal"
	}
	return "recoverable"
}

var (
	// ErrSyntax is returned when the query text does not match the grammar
	ErrSyntax = errors.New("syntax error")

	// ErrDuplicateAlias is returned when the same alias is defined twice
	ErrDuplicateAlias = errors.New("alias defined more than once")

	// ErrAmbiguousAlias is returned when a name is both a schema column and an alias
	ErrAmbiguousAlias = errors.New("name is both a column and an alias")

	// ErrNestedAggregate is returned when an aggregate call contains another one
	ErrNestedAggregate = errors.New("nested aggregate function")

	// ErrMixedAggregate is returned when a projection mixes aggregates with row columns
	ErrMixedAggregate = errors.New("aggregate and non-aggregate column in projection")

	// ErrAggregateInFilter is returned when WHERE references an aggregate
	ErrAggregateInFilter = errors.New("aggregate function in WHERE clause")

	// ErrUnknownFunction is returned when a function name is not registered
	ErrUnknownFunction = errors.New("unknown function")

	// ErrArity is returned when a function gets the wrong number of arguments
	ErrArity = errors.New("wrong number of arguments")

	// ErrAliasCycle is returned when alias references nest deeper than MaxAliasDepth
	ErrAliasCycle = errors.New("alias nesting too deep, probably a cyclic reference")

	// ErrArenaExhausted is returned when a query outgrows its arena limits
	ErrArenaExhausted = errors.New("query arena exhausted")

	// ErrColumnNotFound is returned when a name is neither a column nor an alias
	ErrColumnNotFound = errors.New("column not found")

	// ErrReleased is returned when a query is used after Release
	ErrReleased = errors.New("query already released")

	// ErrTypeMismatch is returned when operand kinds cannot be combined
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDivisionByZero is returned for division or modulo by zero
	ErrDivisionByZero = errors.New("division by zero")

	// ErrColumnOutOfRange is returned when a positional column is past the row end
	ErrColumnOutOfRange = errors.New("column position out of range")

	// ErrInvalidArgument is returned when a function argument has an unusable value
	ErrInvalidArgument = errors.New("invalid argument")
)

var fatalErrors = []error{
	ErrSyntax,
	ErrDuplicateAlias,
	ErrAmbiguousAlias,
	ErrNestedAggregate,
	ErrMixedAggregate,
	ErrAggregateInFilter,
	ErrUnknownFunction,
	ErrArity,
	ErrAliasCycle,
	ErrArenaExhausted,
	ErrColumnNotFound,
	ErrReleased,
	ErrTooManyRowErrors,
}

// SeverityOf reports the severity tagged to err. Errors that do not wrap one
// of the package sentinels are treated as fatal.
func SeverityOf(err error) Severity {
	for _, target := range fatalErrors {
		if errors.Is(err, target) {
			return Fatal
		}
	}
	for _, target := range []error{ErrTypeMismatch, ErrDivisionByZero, ErrColumnOutOfRange, ErrInvalidArgument} {
		if errors.Is(err, target) {
			return Recoverable
		}
	}
	return Fatal
}

// IsFatal reports whether err aborts the whole query.
func IsFatal(err error) bool {
	return err != nil && SeverityOf(err) == Fatal
}

// ParseError reports a query that could not be compiled. Offset is the byte
// offset in the query text where matching stopped.
type ParseError struct {
	Offset int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Msg)
}

// Unwrap returns the sentinel classifying the failure.
func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrSyntax
}
