package query

import (
	"fmt"
	"math"
)

// Math Functions

// AbsFunc returns the absolute value
type AbsFunc struct{ scalar }

func (AbsFunc) Call(args Args) (Value, error) {
	v, null, err := numberArg(args, "abs", 0)
	if err != nil || null {
		return v, err
	}
	if v.isIntegerKind() {
		if v.Int() < 0 {
			return IntValue(-v.Int()), nil
		}
		return v, nil
	}
	return FloatValue(math.Abs(v.Float())), nil
}

// RoundFunc rounds to the nearest integer, or to the number of decimal
// places given as the second argument
type RoundFunc struct{ scalar }

func (RoundFunc) Call(args Args) (Value, error) {
	v, null, err := numberArg(args, "round", 0)
	if err != nil || null {
		return v, err
	}

	var places int64
	if args.Len() == 2 {
		places, null, err = intArg(args, "round", 1)
		if err != nil || null {
			return Null(), err
		}
	}

	if v.isIntegerKind() && places >= 0 {
		return v, nil
	}
	if places == 0 {
		return FloatValue(math.Round(v.Float())), nil
	}
	scale := math.Pow(10, float64(places))
	return FloatValue(math.Round(v.Float()*scale) / scale), nil
}

// FloorFunc returns the largest integer not greater than the argument
type FloorFunc struct{ scalar }

func (FloorFunc) Call(args Args) (Value, error) {
	v, null, err := numberArg(args, "floor", 0)
	if err != nil || null || v.isIntegerKind() {
		return v, err
	}
	return FloatValue(math.Floor(v.Float())), nil
}

// CeilFunc returns the smallest integer not less than the argument
type CeilFunc struct{ scalar }

func (CeilFunc) Call(args Args) (Value, error) {
	v, null, err := numberArg(args, "ceil", 0)
	if err != nil || null || v.isIntegerKind() {
		return v, err
	}
	return FloatValue(math.Ceil(v.Float())), nil
}

// SqrtFunc returns the square root
type SqrtFunc struct{ scalar }

func (SqrtFunc) Call(args Args) (Value, error) {
	v, null, err := numberArg(args, "sqrt", 0)
	if err != nil || null {
		return v, err
	}
	if v.Float() < 0 {
		return Value{}, fmt.Errorf("%w: sqrt of negative number %s", ErrInvalidArgument, v)
	}
	return FloatValue(math.Sqrt(v.Float())), nil
}
