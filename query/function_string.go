package query

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// String Functions

// UpperFunc converts a string to uppercase
type UpperFunc struct{ scalar }

func (UpperFunc) Call(args Args) (Value, error) {
	str, null, err := textArg(args, "upper", 0)
	if err != nil || null {
		return Null(), err
	}
	return TextValue(strings.ToUpper(str)), nil
}

// LowerFunc converts a string to lowercase
type LowerFunc struct{ scalar }

func (LowerFunc) Call(args Args) (Value, error) {
	str, null, err := textArg(args, "lower", 0)
	if err != nil || null {
		return Null(), err
	}
	return TextValue(strings.ToLower(str)), nil
}

// ConcatFunc concatenates the text form of its arguments. Any Null
// argument makes the result Null.
type ConcatFunc struct{ scalar }

func (ConcatFunc) Call(args Args) (Value, error) {
	var builder strings.Builder
	for i := 0; i < args.Len(); i++ {
		v, err := args.Eval(i)
		if err != nil {
			return Value{}, err
		}
		if v.IsNull() || v.IsUnset() {
			return Null(), nil
		}
		builder.WriteString(v.String())
	}
	return TextValue(builder.String()), nil
}

// CharLengthFunc returns the number of characters in a string
type CharLengthFunc struct{ scalar }

func (CharLengthFunc) Call(args Args) (Value, error) {
	str, null, err := textArg(args, "char_length", 0)
	if err != nil || null {
		return Null(), err
	}
	return IntValue(int64(utf8.RuneCountInString(str))), nil
}

type trimSide uint8

const (
	trimBoth trimSide = iota
	trimLeading
	trimTrailing
)

// TrimFunc removes spaces, or the characters of the optional second
// argument, from one or both ends of a string
type TrimFunc struct {
	scalar
	side trimSide
}

func (f TrimFunc) Call(args Args) (Value, error) {
	str, null, err := textArg(args, "trim", 0)
	if err != nil || null {
		return Null(), err
	}

	cutset := " "
	if args.Len() == 2 {
		cutset, null, err = textArg(args, "trim", 1)
		if err != nil || null {
			return Null(), err
		}
	}

	switch f.side {
	case trimLeading:
		return TextValue(strings.TrimLeft(str, cutset)), nil
	case trimTrailing:
		return TextValue(strings.TrimRight(str, cutset)), nil
	default:
		return TextValue(strings.Trim(str, cutset)), nil
	}
}

// SubstringFunc extracts a substring (1-indexed, SQL style). A start
// before the first character shortens the requested length accordingly.
type SubstringFunc struct{ scalar }

// substringEnd returns min(start-1+length, n) for a non-negative length
// without overflowing int64.
func substringEnd(start, length, n int64) int64 {
	if start > 0 {
		if length > n-(start-1) {
			return n
		}
		return start - 1 + length
	}
	last := length + start
	if last <= 0 {
		return 0
	}
	return min(last-1, n)
}

func (SubstringFunc) Call(args Args) (Value, error) {
	str, null, err := textArg(args, "substring", 0)
	if err != nil || null {
		return Null(), err
	}

	start, null, err := intArg(args, "substring", 1)
	if err != nil || null {
		return Null(), err
	}

	// Convert to runes to handle multibyte UTF-8 characters correctly
	runes := []rune(str)
	end := int64(len(runes))

	if args.Len() == 3 {
		length, null, err := intArg(args, "substring", 2)
		if err != nil || null {
			return Null(), err
		}
		if length < 0 {
			return Value{}, fmt.Errorf("%w: substring: negative length %d", ErrInvalidArgument, length)
		}
		end = substringEnd(start, length, end)
	}

	var begin int64
	if start > 1 {
		begin = start - 1
	}
	if begin >= end {
		return TextValue(""), nil
	}
	return TextValue(string(runes[begin:end])), nil
}
