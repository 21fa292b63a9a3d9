package query

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
)

// Kind identifies the variant held by a Value
type Kind uint8

const (
	KindUnset Kind = iota // not evaluated (skipped during accumulation)
	KindNull
	KindNaN
	KindInteger
	KindFloat
	KindText
	KindTimestamp
	KindBool
)

var kindNames = [...]string{
	KindUnset:     "unset",
	KindNull:      "null",
	KindNaN:       "nan",
	KindInteger:   "integer",
	KindFloat:     "float",
	KindText:      "text",
	KindTimestamp: "timestamp",
	KindBool:      "bool",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is the runtime value produced by evaluating a node. The zero Value
// is Unset.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	t    time.Time
}

// IntValue returns an Integer value
func IntValue(i int64) Value { return Value{kind: KindInteger, i: i} }

// FloatValue returns a Float value. A NaN float becomes the NaN kind.
func FloatValue(f float64) Value {
	if math.IsNaN(f) {
		return NaN()
	}
	return Value{kind: KindFloat, f: f}
}

// TextValue returns a Text value
func TextValue(s string) Value { return Value{kind: KindText, s: s} }

// TimeValue returns a Timestamp value
func TimeValue(t time.Time) Value { return Value{kind: KindTimestamp, t: t} }

// BoolValue returns a Bool value
func BoolValue(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.i = 1
	}
	return v
}

// Null returns the Null value
func Null() Value { return Value{kind: KindNull} }

// NaN returns the NaN value
func NaN() Value { return Value{kind: KindNaN, f: math.NaN()} }

// Kind returns the value's kind
func (v Value) Kind() Kind { return v.kind }

// IsNumber reports whether the value is an Integer or a Float. NaN is not a
// number here.
func (v Value) IsNumber() bool { return v.kind == KindInteger || v.kind == KindFloat }

// IsText reports whether the value is a string
func (v Value) IsText() bool { return v.kind == KindText }

// IsNull reports whether the value is Null
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNaN reports whether the value is NaN
func (v Value) IsNaN() bool { return v.kind == KindNaN }

// IsUnset reports whether the value is the zero Value
func (v Value) IsUnset() bool { return v.kind == KindUnset }

// IsBool reports whether the value is a boolean
func (v Value) IsBool() bool { return v.kind == KindBool }

// IsTimestamp reports whether the value is a timestamp
func (v Value) IsTimestamp() bool { return v.kind == KindTimestamp }

// Int returns the integer payload. It is 0 for other kinds.
func (v Value) Int() int64 { return v.i }

// Text returns the string payload. Use String for a rendering of any kind.
func (v Value) Text() string { return v.s }

// Time returns the timestamp payload
func (v Value) Time() time.Time { return v.t }

// Bool returns the boolean payload; false for other kinds
func (v Value) Bool() bool { return v.kind == KindBool && v.i != 0 }

func (v Value) isNullLike() bool {
	return v.kind == KindNull || v.kind == KindNaN || v.kind == KindUnset
}

func (v Value) isIntegerKind() bool { return v.kind == KindInteger }

// Float returns the value as float64. Integers are converted.
func (v Value) Float() float64 {
	switch v.kind {
	case KindInteger:
		return float64(v.i)
	case KindFloat, KindNaN:
		return v.f
	default:
		return 0
	}
}

// String renders the canonical text form of the value.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindText:
		return v.s
	case KindTimestamp:
		return v.t.Format(time.RFC3339Nano)
	case KindBool:
		return strconv.FormatBool(v.Bool())
	case KindNull:
		return "null"
	case KindNaN:
		return "NaN"
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ParseToken infers a Value from a raw row token: empty tokens are Null,
// integer syntax is Integer, float syntax is Float (or NaN), anything else
// is Text.
func ParseToken(tok string) Value {
	if tok == "" {
		return Null()
	}
	if c := tok[0]; (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'n' || c == 'N' || c == 'i' || c == 'I' {
		if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return IntValue(i)
		}
		if f, err := strconv.ParseFloat(tok, 64); err == nil && !strings.ContainsAny(tok, "_xX") {
			return FloatValue(f)
		}
	}
	return TextValue(tok)
}

// ValueOf converts a Go value produced by a typed row source.
func ValueOf(x any) Value {
	switch val := x.(type) {
	case nil:
		return Null()
	case Value:
		return val
	case string:
		return TextValue(val)
	case []byte:
		return TextValue(string(val))
	case bool:
		return BoolValue(val)
	case int:
		return IntValue(int64(val))
	case int8:
		return IntValue(int64(val))
	case int16:
		return IntValue(int64(val))
	case int32:
		return IntValue(int64(val))
	case int64:
		return IntValue(val)
	case uint:
		return IntValue(int64(val))
	case uint8:
		return IntValue(int64(val))
	case uint16:
		return IntValue(int64(val))
	case uint32:
		return IntValue(int64(val))
	case uint64:
		return IntValue(int64(val))
	case float32:
		return FloatValue(float64(val))
	case float64:
		return FloatValue(val)
	case time.Time:
		return TimeValue(val)
	case json.Number:
		return ParseToken(val.String())
	case fmt.Stringer:
		return TextValue(val.String())
	default:
		return TextValue(fmt.Sprint(val))
	}
}

func typeMismatch(op string, a, b Value) error {
	return fmt.Errorf("%w: cannot apply %s to %s and %s", ErrTypeMismatch, op, a.kind, b.kind)
}

// Add returns v + o
func (v Value) Add(o Value) (Value, error) { return arith(TokenPlus, v, o) }

// Sub returns v - o
func (v Value) Sub(o Value) (Value, error) { return arith(TokenMinus, v, o) }

// Mul returns v * o
func (v Value) Mul(o Value) (Value, error) { return arith(TokenAsterisk, v, o) }

// Div returns v / o
func (v Value) Div(o Value) (Value, error) { return arith(TokenSlash, v, o) }

// Mod returns v % o
func (v Value) Mod(o Value) (Value, error) { return arith(TokenPercent, v, o) }

// Pow returns v ^ o
func (v Value) Pow(o Value) (Value, error) { return arith(TokenCaret, v, o) }

// arith applies a binary arithmetic operator. Null and NaN propagate, text,
// timestamps and booleans never take part in arithmetic.
func arith(op TokenType, a, b Value) (Value, error) {
	if a.kind == KindUnset || b.kind == KindUnset {
		return Value{}, nil
	}
	if a.kind == KindNull || b.kind == KindNull {
		return Null(), nil
	}
	if a.kind == KindNaN || b.kind == KindNaN {
		if (a.IsNumber() || a.IsNaN()) && (b.IsNumber() || b.IsNaN()) {
			return NaN(), nil
		}
		return Value{}, typeMismatch(op.String(), a, b)
	}
	if !a.IsNumber() || !b.IsNumber() {
		return Value{}, typeMismatch(op.String(), a, b)
	}

	bothInt := a.kind == KindInteger && b.kind == KindInteger
	switch op {
	case TokenPlus:
		if bothInt {
			return IntValue(a.i + b.i), nil
		}
		return FloatValue(a.Float() + b.Float()), nil
	case TokenMinus:
		if bothInt {
			return IntValue(a.i - b.i), nil
		}
		return FloatValue(a.Float() - b.Float()), nil
	case TokenAsterisk:
		if bothInt {
			return IntValue(a.i * b.i), nil
		}
		return FloatValue(a.Float() * b.Float()), nil
	case TokenSlash:
		if b.Float() == 0 {
			return Value{}, fmt.Errorf("%w: %s / %s", ErrDivisionByZero, a, b)
		}
		if bothInt {
			return IntValue(a.i / b.i), nil
		}
		return FloatValue(a.Float() / b.Float()), nil
	case TokenPercent:
		if !bothInt {
			return Value{}, typeMismatch("%", a, b)
		}
		if b.i == 0 {
			return Value{}, fmt.Errorf("%w: %s %% %s", ErrDivisionByZero, a, b)
		}
		return IntValue(a.i % b.i), nil
	case TokenCaret:
		return FloatValue(math.Pow(a.Float(), b.Float())), nil
	default:
		return Value{}, fmt.Errorf("unsupported arithmetic operator: %v", op)
	}
}

// Compare evaluates v <op> o. When either side is Null or NaN ordering
// predicates and equality are false and inequality is true.
func (v Value) Compare(op TokenType, o Value) (bool, error) {
	if v.isNullLike() || o.isNullLike() {
		return op == TokenNotEqual, nil
	}

	switch {
	case v.IsNumber() && o.IsNumber():
		if v.kind == KindInteger && o.kind == KindInteger {
			return ordered(cmp.Compare(v.i, o.i), op), nil
		}
		return ordered(cmp.Compare(v.Float(), o.Float()), op), nil
	case v.kind == KindText && o.kind == KindText:
		return ordered(strings.Compare(v.s, o.s), op), nil
	case v.kind == KindTimestamp && o.kind == KindTimestamp:
		return ordered(v.t.Compare(o.t), op), nil
	case v.kind == KindBool && o.kind == KindBool:
		switch op {
		case TokenEqual:
			return v.Bool() == o.Bool(), nil
		case TokenNotEqual:
			return v.Bool() != o.Bool(), nil
		}
	}
	return false, typeMismatch(op.String(), v, o)
}

// comparableKinds reports whether v and o can be ordered against each other.
func comparableKinds(v, o Value) bool {
	switch {
	case v.isNullLike() || o.isNullLike():
		return true
	case v.IsNumber() && o.IsNumber():
		return true
	default:
		return v.kind == o.kind && v.kind != KindBool
	}
}

func ordered(c int, op TokenType) bool {
	switch op {
	case TokenEqual:
		return c == 0
	case TokenNotEqual:
		return c != 0
	case TokenLess:
		return c < 0
	case TokenGreater:
		return c > 0
	case TokenLessEqual:
		return c <= 0
	case TokenGreaterEqual:
		return c >= 0
	default:
		return false
	}
}
