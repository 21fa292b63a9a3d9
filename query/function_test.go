package query

import (
	"errors"
	"slices"
	"testing"
)

// evalExpr evaluates a single projected expression against an empty row
func evalExpr(t *testing.T, expr string) (Value, error) {
	t.Helper()

	q, err := Parse("select " + expr + " from x")
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", expr, err)
	}
	defer q.Release()

	q.UpdateRow(nil)
	out, err := q.EvaluateRow()
	if err != nil {
		return Value{}, err
	}
	return out.Values[0], nil
}

type exprCase struct {
	expr    string
	want    string
	wantErr error
}

func runExprCases(t *testing.T, tests []exprCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evalExpr(t, tt.expr)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %q (%s), want %q", got.String(), got.Kind(), tt.want)
			}
		})
	}
}

func TestStringFunctions(t *testing.T) {
	runExprCases(t, []exprCase{
		{expr: "upper('abc')", want: "ABC"},
		{expr: "lower('AbC')", want: "abc"},
		{expr: "upper(null)", want: "null"},
		{expr: "upper(1)", wantErr: ErrTypeMismatch},
		{expr: "trim('  x  ')", want: "x"},
		{expr: "ltrim('xxaxx', 'x')", want: "axx"},
		{expr: "rtrim('xxaxx', 'x')", want: "xxa"},
		{expr: "char_length('héllo')", want: "5"},
		{expr: "character_length('')", want: "0"},
		{expr: "concat('a', 1, true)", want: "a1true"},
		{expr: "concat('a', null)", want: "null"},
		{expr: "substring('hello', 2, 3)", want: "ell"},
		{expr: "substring('hello', 2)", want: "ello"},
		{expr: "substring('hello', 0, 3)", want: "he"},
		{expr: "substring('hello', -1, 3)", want: "h"},
		{expr: "substr('hi', 5)", want: ""},
		{expr: "substring('héllo', 2, 1)", want: "é"},
		{expr: "substring('hello', 1, -1)", wantErr: ErrInvalidArgument},
		{expr: "substring('abc', 2, 9223372036854775807)", want: "bc"},
		{expr: "substring('abc', 9223372036854775807, 9223372036854775807)", want: ""},
		{expr: "substring('abc', -9223372036854775807)", want: "abc"},
		{expr: "substring('abc', -9223372036854775807, 9223372036854775807)", want: ""},
	})
}

func TestMathFunctions(t *testing.T) {
	runExprCases(t, []exprCase{
		{expr: "abs(-3)", want: "3"},
		{expr: "abs(-2.5)", want: "2.5"},
		{expr: "abs('-4')", want: "4"},
		{expr: "abs('x')", wantErr: ErrTypeMismatch},
		{expr: "round(2.5)", want: "3"},
		{expr: "round(3.14159, 2)", want: "3.14"},
		{expr: "round(2.567, 1)", want: "2.6"},
		{expr: "round(7)", want: "7"},
		{expr: "floor(2.7)", want: "2"},
		{expr: "floor(5)", want: "5"},
		{expr: "ceil(2.1)", want: "3"},
		{expr: "sqrt(16)", want: "4"},
		{expr: "sqrt(-1)", wantErr: ErrInvalidArgument},
		{expr: "abs(null)", want: "null"},
	})
}

func TestDateTimeFunctions(t *testing.T) {
	runExprCases(t, []exprCase{
		{expr: "to_timestamp('2024-03-01T12:30:00Z')", want: "2024-03-01T12:30:00Z"},
		{expr: "to_timestamp('2024-03-01')", want: "2024-03-01T00:00:00Z"},
		{expr: "to_timestamp('not a date')", wantErr: ErrInvalidArgument},
		{expr: "extract(year from to_timestamp('2024-03-01T12:30:00Z'))", want: "2024"},
		{expr: "extract(month from '2024-03-01')", want: "3"},
		{expr: "extract(minute from '2024-03-01T12:30:00Z')", want: "30"},
		{expr: "extract(timezone_hour from '2024-03-01T12:00:00+05:30')", want: "5"},
		{expr: "extract(timezone_minute from '2024-03-01T12:00:00+05:30')", want: "30"},
		{expr: "extract(hour from 5)", wantErr: ErrTypeMismatch},
		{expr: "date_add(day, 1, '2024-02-28')", want: "2024-02-29T00:00:00Z"},
		{expr: "date_add(hour, -2, '2024-03-01T01:00:00Z')", want: "2024-02-29T23:00:00Z"},
		{expr: "date_add(year, 1, '2024-03-01')", want: "2025-03-01T00:00:00Z"},
		{expr: "date_diff(day, '2024-01-01', '2024-01-31')", want: "30"},
		{expr: "date_diff(month, '2024-01-15', '2024-03-14')", want: "1"},
		{expr: "date_diff(month, '2024-01-15', '2024-03-15')", want: "2"},
		{expr: "date_diff(year, '2020-06-01', '2024-05-31')", want: "3"},
		{expr: "date_diff(hour, '2024-01-02', '2024-01-01')", want: "-24"},
		{expr: "to_string(to_timestamp('2024-03-01T09:05:07Z'), 'yyyy-MM-dd HH:mm:ss')", want: "2024-03-01 09:05:07"},
		{expr: "to_string('2024-03-01T21:05:07Z', 'MMM d, yy h a')", want: "Mar 1, 24 9 PM"},
		{expr: "to_string('2024-03-01T09:05:07Z', '''at'' HH')", want: "at 09"},
		{expr: "to_string('2024-03-01T09:05:07Z', 'X')", want: "Z"},
		{expr: "to_string('2024-03-01T09:05:07Z', 'yyyy q')", wantErr: ErrInvalidArgument},
	})
}

func TestUTCNowIsStablePerQuery(t *testing.T) {
	q, err := Parse("select utcnow() from x")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer q.Release()

	var first Value
	for i := 0; i < 2; i++ {
		q.UpdateRow(nil)
		out, err := q.EvaluateRow()
		if err != nil {
			t.Fatalf("EvaluateRow() error = %v", err)
		}
		v := out.Values[0]
		if !v.IsTimestamp() {
			t.Fatalf("utcnow() kind = %s, want timestamp", v.Kind())
		}
		if i == 0 {
			first = v
		} else if !v.Time().Equal(first.Time()) {
			t.Errorf("utcnow() changed between rows: %v then %v", first, v)
		}
	}
}

func TestConvertFunctions(t *testing.T) {
	runExprCases(t, []exprCase{
		{expr: "cast('12' as int)", want: "12"},
		{expr: "cast(' 7 ' as integer)", want: "7"},
		{expr: "cast(3.9 as int)", want: "3"},
		{expr: "cast(true as int)", want: "1"},
		{expr: "cast('abc' as int)", wantErr: ErrInvalidArgument},
		{expr: "cast(1 as float)", want: "1"},
		{expr: "cast('2.5' as double)", want: "2.5"},
		{expr: "cast(12 as string)", want: "12"},
		{expr: "cast('TRUE' as bool)", want: "true"},
		{expr: "cast(0 as boolean)", want: "false"},
		{expr: "cast('maybe' as bool)", wantErr: ErrInvalidArgument},
		{expr: "cast('2024-03-01' as timestamp)", want: "2024-03-01T00:00:00Z"},
		{expr: "cast(null as int)", want: "null"},

		{expr: "coalesce(null, null, 'x')", want: "x"},
		{expr: "coalesce(null)", want: "null"},
		{expr: "coalesce(1, 1 / 0)", want: "1"},
		{expr: "nullif(1, 1)", want: "null"},
		{expr: "nullif(1, 2)", want: "1"},
		{expr: "nullif('a', 1)", want: "a"},

		{expr: "case when 1 > 2 then 'a' when 2 > 1 then 'b' end", want: "b"},
		{expr: "case when false then 1 end", want: "null"},
		{expr: "case 2 when 1 then 'one' when 2 then 'two' else 'many' end", want: "two"},
		{expr: "case 5 when 1 then 'one' else 'many' end", want: "many"},
	})
}

func TestPredicateFunctions(t *testing.T) {
	runExprCases(t, []exprCase{
		{expr: "5 between 1 and 10", want: "true"},
		{expr: "11 between 1 and 10", want: "false"},
		{expr: "5 not between 1 and 10", want: "false"},
		{expr: "'b' between 'a' and 'c'", want: "true"},
		{expr: "2.5 between 2 and 3", want: "true"},
		{expr: "'b' between 1 and 'c'", wantErr: ErrTypeMismatch},

		{expr: "2 in (1, 2, 3)", want: "true"},
		{expr: "4 in (1, 2)", want: "false"},
		{expr: "'a' in (1, 'a')", want: "true"},
		{expr: "4 not in (1, 2)", want: "true"},

		{expr: "'abc' like 'a_c'", want: "true"},
		{expr: "'abc' like 'a%'", want: "true"},
		{expr: "'abc' like 'A%'", want: "false"},
		{expr: "'abc' like 'a.c'", want: "false"},
		{expr: "'a%c' like 'a!%c' escape '!'", want: "true"},
		{expr: "'abc' like 'a!%c' escape '!'", want: "false"},
		{expr: "'abc' not like 'x%'", want: "true"},
		{expr: "null like 'a%'", want: "false"},
		{expr: "'abc' like 'a%' escape 'xy'", wantErr: ErrInvalidArgument},
		{expr: "'abc' like 'a!' escape '!'", wantErr: ErrInvalidArgument},

		{expr: "null is null", want: "true"},
		{expr: "1 is null", want: "false"},
		{expr: "1 is not null", want: "true"},
	})
}

func TestAggregate_RecoverableInputs(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		rows         []string
		want         string
		wantRejected int
	}{
		{"sum skips text", "select sum(_1) from x", []string{"1", "abc", "2"}, "3", 1},
		{"avg skips text", "select avg(_1) from x", []string{"1", "abc", "2"}, "1.5", 1},
		{"min rejects mixed kinds", "select min(_1) from x", []string{"5", "abc", "2"}, "2", 1},
		{"max rejects mixed kinds", "select max(_1) from x", []string{"5", "abc", "7"}, "7", 1},
		{"sum with nan", "select sum(_1) from x", []string{"1", "NaN"}, "NaN", 0},
		{"each aggregate rejects its own input", "select sum(_1), min(_1), count(_1) from x", []string{"1", "abc"}, "1", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			defer q.Release()

			rejected := 0
			for _, row := range tt.rows {
				q.UpdateRow([]string{row})
				out, err := q.EvaluateRow()
				if err != nil {
					t.Fatalf("row %q: error %v", row, err)
				}
				if out.Kind != OutcomeAccumulated {
					t.Fatalf("row %q: outcome = %s, want accumulated", row, out.Kind)
				}
				for _, rerr := range out.Rejected {
					if !errors.Is(rerr, ErrTypeMismatch) {
						t.Errorf("row %q: rejected input error = %v, want ErrTypeMismatch", row, rerr)
					}
				}
				rejected += len(out.Rejected)
			}
			if rejected != tt.wantRejected {
				t.Errorf("rejected inputs = %d, want %d", rejected, tt.wantRejected)
			}
			out, err := q.Finish()
			if err != nil {
				t.Fatalf("Finish() error = %v", err)
			}
			if got := out.Values[0].String(); got != tt.want {
				t.Errorf("result = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFunctionNames(t *testing.T) {
	names := FunctionNames()
	if !slices.IsSorted(names) {
		t.Errorf("FunctionNames() not sorted: %v", names)
	}
	for _, want := range []string{"count", "substring", "date_add", "coalesce", "to_string"} {
		if !slices.Contains(names, want) {
			t.Errorf("FunctionNames() missing %q", want)
		}
	}
	for _, name := range names {
		if name[0] == '#' {
			t.Errorf("FunctionNames() exposes internal name %q", name)
		}
	}
}
