package query

import (
	"fmt"
)

// Aggregate Functions
//
// Call is invoked once per accepted row and returns Unset. Finalize returns
// the result after the last row. Null inputs are ignored; an input that
// cannot be combined is reported as a recoverable error and leaves the
// state unchanged.

// SumFunc adds its inputs. The sum stays an Integer while every input is
// one and the total fits in an int64; otherwise it becomes a Float.
type SumFunc struct {
	count   int64
	isFloat bool
	isNaN   bool
	ints    int64
	floats  float64
}

func (f *SumFunc) add(v Value) {
	f.count++
	if v.IsNaN() {
		f.isNaN = true
		return
	}
	if v.isIntegerKind() && !f.isFloat {
		n := v.Int()
		// keep the integer sum unless it would overflow
		if sum := f.ints + n; (f.ints^sum)&(n^sum) >= 0 {
			f.ints = sum
			return
		}
	}
	if !f.isFloat {
		f.isFloat = true
		f.floats = float64(f.ints)
	}
	f.floats += v.Float()
}

func (f *SumFunc) Call(args Args) (Value, error) {
	v, err := numericInput(args, "sum")
	if err != nil || v.IsUnset() {
		return Value{}, err
	}
	f.add(v)
	return Value{}, nil
}

func (f *SumFunc) Finalize() (Value, error) {
	switch {
	case f.count == 0:
		return Null(), nil
	case f.isNaN:
		return NaN(), nil
	case f.isFloat:
		return FloatValue(f.floats), nil
	default:
		return IntValue(f.ints), nil
	}
}

// numericInput evaluates the aggregate argument. Null inputs come back as
// Unset so the caller skips them.
func numericInput(args Args, name string) (Value, error) {
	v, err := args.Eval(0)
	if err != nil {
		return Value{}, err
	}
	if v.IsNull() || v.IsUnset() {
		return Value{}, nil
	}
	if !v.IsNumber() && !v.IsNaN() {
		return Value{}, fmt.Errorf("%w: %s cannot combine %s value %q", ErrTypeMismatch, name, v.Kind(), v.String())
	}
	return v, nil
}

// CountFunc counts rows for count(*) and count(), and non-null inputs
// otherwise
type CountFunc struct {
	n int64
}

func (f *CountFunc) Call(args Args) (Value, error) {
	if args.Len() == 0 || args.IsStar(0) {
		f.n++
		return Value{}, nil
	}
	v, err := args.Eval(0)
	if err != nil {
		return Value{}, err
	}
	if !v.IsNull() && !v.IsUnset() {
		f.n++
	}
	return Value{}, nil
}

func (f *CountFunc) Finalize() (Value, error) {
	return IntValue(f.n), nil
}

// AvgFunc returns the mean of its inputs as a Float
type AvgFunc struct {
	sum SumFunc
}

func (f *AvgFunc) Call(args Args) (Value, error) {
	v, err := numericInput(args, "avg")
	if err != nil || v.IsUnset() {
		return Value{}, err
	}
	f.sum.add(v)
	return Value{}, nil
}

func (f *AvgFunc) Finalize() (Value, error) {
	total, err := f.sum.Finalize()
	if err != nil || total.isNullLike() {
		return total, err
	}
	return FloatValue(total.Float() / float64(f.sum.count)), nil
}

// MinFunc keeps the smallest input, or the largest when max is set.
// Numbers, strings and timestamps can be ordered; kinds cannot be mixed.
type MinFunc struct {
	max  bool
	best Value
}

// MaxFunc keeps the largest input
type MaxFunc = MinFunc

func (f *MinFunc) name() string {
	if f.max {
		return "max"
	}
	return "min"
}

func (f *MinFunc) Call(args Args) (Value, error) {
	v, err := args.Eval(0)
	if err != nil {
		return Value{}, err
	}
	if v.isNullLike() {
		return Value{}, nil
	}
	if v.IsBool() {
		return Value{}, fmt.Errorf("%w: %s cannot order bool values", ErrTypeMismatch, f.name())
	}
	if f.best.IsUnset() {
		f.best = v
		return Value{}, nil
	}

	op := TokenLess
	if f.max {
		op = TokenGreater
	}
	better, err := v.Compare(op, f.best)
	if err != nil {
		return Value{}, fmt.Errorf("%s: %w", f.name(), err)
	}
	if better {
		f.best = v
	}
	return Value{}, nil
}

func (f *MinFunc) Finalize() (Value, error) {
	if f.best.IsUnset() {
		return Null(), nil
	}
	return f.best, nil
}
