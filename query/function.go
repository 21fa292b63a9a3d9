package query

import (
	"fmt"
	"slices"
)

// Function is the call contract shared by every builtin. Scalar functions
// compute their result in Call; aggregates accumulate in Call and produce
// their result in Finalize.
type Function interface {
	// Call consumes the arguments of one row. Arguments are evaluated on
	// demand, so a function may leave some of them untouched.
	Call(args Args) (Value, error)
	// Finalize returns the accumulated result. Scalars return Unset.
	Finalize() (Value, error)
}

// scalar provides the no-op Finalize for non-aggregate functions
type scalar struct{}

func (scalar) Finalize() (Value, error) { return Value{}, nil }

// Args gives a function lazy access to its argument subtrees
type Args struct {
	q    *Query
	ids  []NodeID
	mode Mode
}

// Len returns the number of arguments
func (a Args) Len() int {
	return len(a.ids)
}

// Eval evaluates argument i
func (a Args) Eval(i int) (Value, error) {
	return a.q.eval(a.ids[i], a.mode)
}

// Constant returns the value of argument i when it is a literal
func (a Args) Constant(i int) (Value, bool) {
	if i >= len(a.ids) {
		return Value{}, false
	}
	n := a.q.arena.Node(a.ids[i])
	if n.Kind != NodeLiteral {
		return Value{}, false
	}
	return n.Value, true
}

// IsStar reports whether argument i is the * wildcard
func (a Args) IsStar(i int) bool {
	return i < len(a.ids) && a.q.arena.Node(a.ids[i]).Kind == NodeStar
}

// Internal names of the predicate, CASE and CAST forms. They cannot be
// typed as function calls since # is not an identifier character.
const (
	fnBetween     = "#between#"
	fnIn          = "#in_predicate#"
	fnLike        = "#like_predicate#"
	fnIsNull      = "#is_null#"
	fnCaseWhen    = "#case_when#"
	fnCaseValue   = "#case_value#"
	fnToInt       = "#to_int#"
	fnToFloat     = "#to_float#"
	fnToString    = "#to_string#"
	fnToTimestamp = "#to_timestamp#"
	fnToBool      = "#to_bool#"
)

// builtin describes one registry entry. maxArgs -1 means variadic.
type builtin struct {
	new       func(args Args) (Function, error)
	aggregate bool
	minArgs   int
	maxArgs   int
}

func stateless(f Function) func(Args) (Function, error) {
	return func(Args) (Function, error) { return f, nil }
}

// builtins is the static function registry. Names are matched exactly.
var builtins = map[string]builtin{
	// aggregates
	"sum":   {new: func(Args) (Function, error) { return &SumFunc{}, nil }, aggregate: true, minArgs: 1, maxArgs: 1},
	"count": {new: func(Args) (Function, error) { return &CountFunc{}, nil }, aggregate: true, minArgs: 0, maxArgs: 1},
	"avg":   {new: func(Args) (Function, error) { return &AvgFunc{}, nil }, aggregate: true, minArgs: 1, maxArgs: 1},
	"min":   {new: func(Args) (Function, error) { return &MinFunc{}, nil }, aggregate: true, minArgs: 1, maxArgs: 1},
	"max":   {new: func(Args) (Function, error) { return &MaxFunc{max: true}, nil }, aggregate: true, minArgs: 1, maxArgs: 1},

	// string
	"substring":        {new: stateless(SubstringFunc{}), minArgs: 2, maxArgs: 3},
	"substr":           {new: stateless(SubstringFunc{}), minArgs: 2, maxArgs: 3},
	"lower":            {new: stateless(LowerFunc{}), minArgs: 1, maxArgs: 1},
	"upper":            {new: stateless(UpperFunc{}), minArgs: 1, maxArgs: 1},
	"trim":             {new: stateless(TrimFunc{side: trimBoth}), minArgs: 1, maxArgs: 2},
	"ltrim":            {new: stateless(TrimFunc{side: trimLeading}), minArgs: 1, maxArgs: 2},
	"rtrim":            {new: stateless(TrimFunc{side: trimTrailing}), minArgs: 1, maxArgs: 2},
	"char_length":      {new: stateless(CharLengthFunc{}), minArgs: 1, maxArgs: 1},
	"character_length": {new: stateless(CharLengthFunc{}), minArgs: 1, maxArgs: 1},
	"concat":           {new: stateless(ConcatFunc{}), minArgs: 1, maxArgs: -1},

	// numeric
	"abs":   {new: stateless(AbsFunc{}), minArgs: 1, maxArgs: 1},
	"round": {new: stateless(RoundFunc{}), minArgs: 1, maxArgs: 2},
	"floor": {new: stateless(FloorFunc{}), minArgs: 1, maxArgs: 1},
	"ceil":  {new: stateless(CeilFunc{}), minArgs: 1, maxArgs: 1},
	"sqrt":  {new: stateless(SqrtFunc{}), minArgs: 1, maxArgs: 1},

	// timestamp
	"to_timestamp": {new: stateless(ToTimestampFunc{}), minArgs: 1, maxArgs: 1},
	"utcnow":       {new: newUTCNowFunc, minArgs: 0, maxArgs: 0},
	"extract":      {new: stateless(ExtractFunc{}), minArgs: 2, maxArgs: 2},
	"date_add":     {new: stateless(DateAddFunc{}), minArgs: 3, maxArgs: 3},
	"date_diff":    {new: stateless(DateDiffFunc{}), minArgs: 3, maxArgs: 3},
	"to_string":    {new: newToStringFunc, minArgs: 1, maxArgs: 2},

	// conditional
	"coalesce":  {new: stateless(CoalesceFunc{}), minArgs: 1, maxArgs: -1},
	"nullif":    {new: stateless(NullIfFunc{}), minArgs: 2, maxArgs: 2},
	fnCaseWhen:  {new: stateless(CaseWhenFunc{}), minArgs: 2, maxArgs: -1},
	fnCaseValue: {new: stateless(CaseValueFunc{}), minArgs: 3, maxArgs: -1},

	// predicates
	fnBetween: {new: stateless(BetweenFunc{}), minArgs: 3, maxArgs: 3},
	fnIn:      {new: stateless(InFunc{}), minArgs: 2, maxArgs: -1},
	fnLike:    {new: newLikeFunc, minArgs: 2, maxArgs: 3},
	fnIsNull:  {new: stateless(IsNullFunc{}), minArgs: 1, maxArgs: 1},

	// casts
	fnToInt:       {new: stateless(CastFunc{target: KindInteger}), minArgs: 1, maxArgs: 1},
	fnToFloat:     {new: stateless(CastFunc{target: KindFloat}), minArgs: 1, maxArgs: 1},
	fnToString:    {new: stateless(CastFunc{target: KindText}), minArgs: 1, maxArgs: 1},
	fnToTimestamp: {new: stateless(CastFunc{target: KindTimestamp}), minArgs: 1, maxArgs: 1},
	fnToBool:      {new: stateless(CastFunc{target: KindBool}), minArgs: 1, maxArgs: 1},
}

// isAggregate reports whether name is a registered aggregate function
func isAggregate(name string) bool {
	return builtins[name].aggregate
}

// FunctionNames returns the callable builtin names in sorted order.
// Internal names used by the predicate and CAST forms are left out.
func FunctionNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		if name[0] != '#' {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// bind resolves the implementation of function node n on first use
func (q *Query) bind(id NodeID) (Function, error) {
	n := q.arena.Node(id)
	if n.fn != nil {
		return n.fn, nil
	}

	b, ok := builtins[n.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, n.Name)
	}
	if len(n.Args) < b.minArgs || (b.maxArgs >= 0 && len(n.Args) > b.maxArgs) {
		return nil, fmt.Errorf("%w: %s takes %s, got %d", ErrArity, displayName(n.Name), arityText(b), len(n.Args))
	}

	fn, err := b.new(Args{q: q, ids: n.Args, mode: ModeRow})
	if err != nil {
		return nil, err
	}
	n.fn = fn
	return fn, nil
}

func arityText(b builtin) string {
	switch {
	case b.maxArgs < 0:
		return fmt.Sprintf("at least %d arguments", b.minArgs)
	case b.minArgs == b.maxArgs:
		return fmt.Sprintf("%d arguments", b.minArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", b.minArgs, b.maxArgs)
	}
}

// displayName maps internal function names back to their SQL form
func displayName(name string) string {
	switch name {
	case fnBetween:
		return "BETWEEN"
	case fnIn:
		return "IN"
	case fnLike:
		return "LIKE"
	case fnIsNull:
		return "IS NULL"
	case fnCaseWhen, fnCaseValue:
		return "CASE"
	case fnToInt, fnToFloat, fnToString, fnToTimestamp, fnToBool:
		return "CAST"
	}
	return name
}

// argument helpers

// textArg evaluates argument i as text. null reports a Null or NaN input.
func textArg(args Args, name string, i int) (s string, null bool, err error) {
	v, err := args.Eval(i)
	if err != nil {
		return "", false, err
	}
	if v.isNullLike() {
		return "", true, nil
	}
	if !v.IsText() {
		return "", false, fmt.Errorf("%w: %s: argument %d must be a string, got %s", ErrTypeMismatch, name, i+1, v.Kind())
	}
	return v.Text(), false, nil
}

// numberArg evaluates argument i as a number
func numberArg(args Args, name string, i int) (v Value, null bool, err error) {
	v, err = args.Eval(i)
	if err != nil {
		return Value{}, false, err
	}
	if v.isNullLike() {
		return v, true, nil
	}
	if v.IsText() {
		// text read from untyped sources may still hold a number
		if p := ParseToken(v.Text()); p.IsNumber() {
			return p, false, nil
		}
	}
	if !v.IsNumber() {
		return Value{}, false, fmt.Errorf("%w: %s: argument %d must be a number, got %s", ErrTypeMismatch, name, i+1, v.Kind())
	}
	return v, false, nil
}

// intArg evaluates argument i as an integer. Floats are truncated.
func intArg(args Args, name string, i int) (n int64, null bool, err error) {
	v, null, err := numberArg(args, name, i)
	if err != nil || null {
		return 0, null, err
	}
	if v.isIntegerKind() {
		return v.Int(), false, nil
	}
	return int64(v.Float()), false, nil
}

// timeArg evaluates argument i as a timestamp. Text is parsed.
func timeArg(args Args, name string, i int) (v Value, null bool, err error) {
	v, err = args.Eval(i)
	if err != nil {
		return Value{}, false, err
	}
	if v.isNullLike() {
		return v, true, nil
	}
	switch {
	case v.IsTimestamp():
		return v, false, nil
	case v.IsText():
		t, err := parseTimestamp(v.Text())
		if err != nil {
			return Value{}, false, fmt.Errorf("%s: %w", name, err)
		}
		return TimeValue(t), false, nil
	}
	return Value{}, false, fmt.Errorf("%w: %s: argument %d must be a timestamp, got %s", ErrTypeMismatch, name, i+1, v.Kind())
}
