package query

import (
	"fmt"
	"math"
	"strings"
)

// Type Conversion Functions

// CastFunc converts its argument to the target kind. Null and NaN pass
// through unchanged.
type CastFunc struct {
	scalar
	target Kind
}

func (f CastFunc) Call(args Args) (Value, error) {
	if f.target == KindTimestamp {
		v, _, err := timeArg(args, "CAST", 0)
		return v, err
	}

	v, err := args.Eval(0)
	if err != nil || v.isNullLike() {
		return v, err
	}

	switch f.target {
	case KindInteger:
		return castInt(v)
	case KindFloat:
		return castFloat(v)
	case KindText:
		return TextValue(v.String()), nil
	case KindBool:
		return castBool(v)
	}
	return Value{}, fmt.Errorf("%w: cannot cast to %s", ErrInvalidArgument, f.target)
}

func castInt(v Value) (Value, error) {
	switch v.Kind() {
	case KindInteger:
		return v, nil
	case KindFloat:
		f := v.Float()
		if f >= math.MaxInt64 || f < math.MinInt64 {
			return Value{}, fmt.Errorf("%w: %s out of integer range", ErrInvalidArgument, v)
		}
		return IntValue(int64(f)), nil
	case KindBool:
		if v.Bool() {
			return IntValue(1), nil
		}
		return IntValue(0), nil
	case KindText:
		p := ParseToken(strings.TrimSpace(v.Text()))
		if p.IsNumber() {
			return castInt(p)
		}
		return Value{}, fmt.Errorf("%w: cannot cast %q to int", ErrInvalidArgument, v.Text())
	}
	return Value{}, fmt.Errorf("%w: cannot cast %s to int", ErrTypeMismatch, v.Kind())
}

func castFloat(v Value) (Value, error) {
	switch v.Kind() {
	case KindInteger, KindFloat:
		return FloatValue(v.Float()), nil
	case KindBool:
		if v.Bool() {
			return FloatValue(1), nil
		}
		return FloatValue(0), nil
	case KindText:
		p := ParseToken(strings.TrimSpace(v.Text()))
		if p.IsNumber() || p.IsNaN() {
			return FloatValue(p.Float()), nil
		}
		return Value{}, fmt.Errorf("%w: cannot cast %q to float", ErrInvalidArgument, v.Text())
	}
	return Value{}, fmt.Errorf("%w: cannot cast %s to float", ErrTypeMismatch, v.Kind())
}

func castBool(v Value) (Value, error) {
	switch v.Kind() {
	case KindBool:
		return v, nil
	case KindInteger, KindFloat:
		return BoolValue(v.Float() != 0), nil
	case KindText:
		switch strings.ToLower(strings.TrimSpace(v.Text())) {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}
		return Value{}, fmt.Errorf("%w: cannot cast %q to bool", ErrInvalidArgument, v.Text())
	}
	return Value{}, fmt.Errorf("%w: cannot cast %s to bool", ErrTypeMismatch, v.Kind())
}

// Conditional Functions

// CoalesceFunc returns the first argument that is not Null. Arguments after
// it are not evaluated.
type CoalesceFunc struct{ scalar }

func (CoalesceFunc) Call(args Args) (Value, error) {
	for i := 0; i < args.Len(); i++ {
		v, err := args.Eval(i)
		if err != nil {
			return Value{}, err
		}
		if !v.IsNull() && !v.IsUnset() {
			return v, nil
		}
	}
	return Null(), nil
}

// NullIfFunc returns Null when both arguments are equal, otherwise the first
type NullIfFunc struct{ scalar }

func (NullIfFunc) Call(args Args) (Value, error) {
	a, err := args.Eval(0)
	if err != nil {
		return Value{}, err
	}
	b, err := args.Eval(1)
	if err != nil {
		return Value{}, err
	}
	if equal(a, b) {
		return Null(), nil
	}
	return a, nil
}

// equal reports a = b, treating kinds that cannot be compared as unequal
func equal(a, b Value) bool {
	eq, err := a.Compare(TokenEqual, b)
	return err == nil && eq
}

// CaseWhenFunc implements CASE WHEN cond THEN result ... [ELSE result] END.
// Arguments come in (cond, result) pairs with an optional trailing else.
type CaseWhenFunc struct{ scalar }

func (CaseWhenFunc) Call(args Args) (Value, error) {
	n := args.Len()
	for i := 0; i+1 < n; i += 2 {
		cond, err := args.Eval(i)
		if err != nil {
			return Value{}, err
		}
		if truthy(cond) {
			return args.Eval(i + 1)
		}
	}
	if n%2 == 1 {
		return args.Eval(n - 1)
	}
	return Null(), nil
}

// CaseValueFunc implements CASE value WHEN match THEN result ... END. The
// first argument is the value, followed by (match, result) pairs and an
// optional trailing else.
type CaseValueFunc struct{ scalar }

func (CaseValueFunc) Call(args Args) (Value, error) {
	subject, err := args.Eval(0)
	if err != nil {
		return Value{}, err
	}

	n := args.Len()
	for i := 1; i+1 < n; i += 2 {
		match, err := args.Eval(i)
		if err != nil {
			return Value{}, err
		}
		if equal(subject, match) {
			return args.Eval(i + 1)
		}
	}
	if (n-1)%2 == 1 {
		return args.Eval(n - 1)
	}
	return Null(), nil
}
