package query

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Predicate Functions

// BetweenFunc implements x BETWEEN lower AND upper. All three operands must
// be mutually comparable.
type BetweenFunc struct{ scalar }

func (BetweenFunc) Call(args Args) (Value, error) {
	var vals [3]Value
	for i := range vals {
		v, err := args.Eval(i)
		if err != nil {
			return Value{}, err
		}
		vals[i] = v
	}
	x, lower, upper := vals[0], vals[1], vals[2]

	if !comparableKinds(x, lower) || !comparableKinds(x, upper) || !comparableKinds(lower, upper) {
		return Value{}, fmt.Errorf("%w: BETWEEN over %s, %s and %s", ErrTypeMismatch, x.Kind(), lower.Kind(), upper.Kind())
	}

	ge, err := x.Compare(TokenGreaterEqual, lower)
	if err != nil || !ge {
		return BoolValue(false), err
	}
	le, err := x.Compare(TokenLessEqual, upper)
	if err != nil {
		return Value{}, err
	}
	return BoolValue(le), nil
}

// InFunc implements x IN (v1, v2, ...). Candidates of a kind that cannot
// be compared with x never match.
type InFunc struct{ scalar }

func (InFunc) Call(args Args) (Value, error) {
	x, err := args.Eval(0)
	if err != nil {
		return Value{}, err
	}
	for i := 1; i < args.Len(); i++ {
		v, err := args.Eval(i)
		if err != nil {
			return Value{}, err
		}
		if equal(x, v) {
			return BoolValue(true), nil
		}
	}
	return BoolValue(false), nil
}

// IsNullFunc implements x IS NULL. A missing value counts as null.
type IsNullFunc struct{ scalar }

func (IsNullFunc) Call(args Args) (Value, error) {
	v, err := args.Eval(0)
	if err != nil {
		return Value{}, err
	}
	return BoolValue(v.IsNull() || v.IsUnset()), nil
}

// LikeFunc implements x LIKE pattern [ESCAPE char]. A constant pattern is
// compiled once when the function is bound.
type LikeFunc struct {
	scalar
	re *regexp.Regexp
}

func newLikeFunc(args Args) (Function, error) {
	pattern, ok := args.Constant(1)
	if !ok || !pattern.IsText() {
		return LikeFunc{}, nil
	}
	escape := ""
	if args.Len() == 3 {
		e, ok := args.Constant(2)
		if !ok || !e.IsText() {
			return LikeFunc{}, nil
		}
		escape = e.Text()
	}

	re, err := compileLike(pattern.Text(), escape)
	if err != nil {
		return nil, err
	}
	return LikeFunc{re: re}, nil
}

func (f LikeFunc) Call(args Args) (Value, error) {
	str, null, err := textArg(args, "LIKE", 0)
	if err != nil || null {
		return BoolValue(false), err
	}

	re := f.re
	if re == nil {
		pattern, null, err := textArg(args, "LIKE", 1)
		if err != nil || null {
			return BoolValue(false), err
		}
		escape := ""
		if args.Len() == 3 {
			if escape, _, err = textArg(args, "LIKE", 2); err != nil {
				return Value{}, err
			}
		}
		if re, err = compileLike(pattern, escape); err != nil {
			return Value{}, err
		}
	}
	return BoolValue(re.MatchString(str)), nil
}

// compileLike translates a LIKE pattern into an anchored regular expression.
// % matches any run of characters and _ exactly one; the escape character
// makes the following character literal.
func compileLike(pattern, escape string) (*regexp.Regexp, error) {
	var esc rune = -1
	if escape != "" {
		if utf8.RuneCountInString(escape) != 1 {
			return nil, fmt.Errorf("%w: LIKE escape must be a single character, got %q", ErrInvalidArgument, escape)
		}
		esc, _ = utf8.DecodeRuneInString(escape)
	}

	var b strings.Builder
	b.WriteString("(?s)^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == esc:
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		return nil, fmt.Errorf("%w: LIKE pattern %q ends with the escape character", ErrInvalidArgument, pattern)
	}
	b.WriteString("$")

	return regexp.Compile(b.String())
}
