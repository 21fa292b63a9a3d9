package query

import (
	"errors"
	"strings"
	"testing"
)

func TestParser_SimpleQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantSource string
		wantAlias  string
		wantProj   int
		wantFilter bool
		wantLimit  int64
		wantHasLim bool
		wantAggr   bool
	}{
		{
			name:       "select all",
			query:      "select * from s3object;",
			wantSource: "s3object",
			wantProj:   1,
		},
		{
			name:       "select with where",
			query:      "SELECT name, age FROM data.csv WHERE age > 30",
			wantSource: "data.csv",
			wantProj:   2,
			wantFilter: true,
		},
		{
			name:       "quoted source and alias",
			query:      "select s._1 from 'logs/app.csv' as s",
			wantSource: "logs/app.csv",
			wantAlias:  "s",
			wantProj:   1,
		},
		{
			name:       "limit",
			query:      "select _1 from s3object limit 10",
			wantSource: "s3object",
			wantProj:   1,
			wantLimit:  10,
			wantHasLim: true,
		},
		{
			name:       "aggregate",
			query:      "select count(*), sum(_1) from s3object",
			wantSource: "s3object",
			wantProj:   2,
			wantAggr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			defer q.Release()

			if q.Source() != tt.wantSource {
				t.Errorf("Source() = %q, want %q", q.Source(), tt.wantSource)
			}
			if q.SourceAlias() != tt.wantAlias {
				t.Errorf("SourceAlias() = %q, want %q", q.SourceAlias(), tt.wantAlias)
			}
			if len(q.projections) != tt.wantProj {
				t.Errorf("projections = %d, want %d", len(q.projections), tt.wantProj)
			}
			if (q.filter != NoNode) != tt.wantFilter {
				t.Errorf("has filter = %v, want %v", q.filter != NoNode, tt.wantFilter)
			}
			n, ok := q.Limit()
			if ok != tt.wantHasLim || (ok && n != tt.wantLimit) {
				t.Errorf("Limit() = %d, %v, want %d, %v", n, ok, tt.wantLimit, tt.wantHasLim)
			}
			if q.IsAggregate() != tt.wantAggr {
				t.Errorf("IsAggregate() = %v, want %v", q.IsAggregate(), tt.wantAggr)
			}
		})
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantOffset int
		wantErr    error
	}{
		{"missing select", "from s3object", 0, ErrSyntax},
		{"missing projection", "select from s3object", 7, ErrSyntax},
		{"missing source", "select a from", 13, ErrSyntax},
		{"empty where", "select a from x where", 21, ErrSyntax},
		{"trailing tokens", "select a b c from x", 11, ErrSyntax},
		{"unclosed paren", "select (1 + 2 from x", 14, ErrSyntax},
		{"bad limit", "select a from x limit -1", 22, ErrSyntax},
		{"junk after statement", "select a from x; select", 17, ErrSyntax},
		{"unterminated string", "select 'abc from x", 7, ErrSyntax},
		{"alias on star", "select * as all from x", 12, ErrSyntax},
		{"duplicate alias", "select _1 as a, _2 as a from x", 22, ErrDuplicateAlias},
		{"nested aggregate", "select sum(count(*)) from x", 7, ErrNestedAggregate},
		{"mixed aggregate", "select sum(_1) + _1 from x", 15, ErrMixedAggregate},
		{"mixed across projections", "select sum(_1), _2 from x", 16, ErrMixedAggregate},
		{"aggregate in where", "select _1 from x where sum(_1) > 1", 31, ErrAggregateInFilter},
		{"self referencing alias", "select a + 1 as a from x", 7, ErrAliasCycle},
		{"mutual aliases", "select b + 1 as a, a + 1 as b from x", 19, ErrAliasCycle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.query)
			if err == nil {
				q.Release()
				t.Fatalf("Parse(%q) expected error", tt.query)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error %T is not a *ParseError: %v", err, err)
			}
			if perr.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d (%v)", perr.Offset, tt.wantOffset, err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if !IsFatal(err) {
				t.Errorf("parse error should be fatal: %v", err)
			}
		})
	}
}

func TestParser_QualifiedColumns(t *testing.T) {
	q, err := Parse("select s._2, s3object[*].name, s.city from s3object s")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer q.Release()

	want := []struct {
		name string
		pos  int
	}{{"_2", 2}, {"name", 0}, {"city", 0}}
	for i, w := range want {
		n := q.arena.Node(q.projections[i].Node)
		if n.Kind != NodeColumn || n.Name != w.name || n.Pos != w.pos {
			t.Errorf("projection %d = {%v %q %d}, want column %q at %d", i, n.Kind, n.Name, n.Pos, w.name, w.pos)
		}
	}
}

func TestParser_FunctionNamesAreLowercased(t *testing.T) {
	q, err := Parse("select UPPER(_1), Count(*) from s3object")
	if err == nil {
		q.Release()
		t.Fatal("mixing a row function with an aggregate should fail")
	}

	q, err = Parse("select UPPER(_1), Char_Length(_1) from s3object")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer q.Release()
	for i, want := range []string{"upper", "char_length"} {
		if n := q.arena.Node(q.projections[i].Node); n.Name != want {
			t.Errorf("function %d name = %q, want %q", i, n.Name, want)
		}
	}
}

func TestParser_DoubleNegation(t *testing.T) {
	tests := []struct {
		query      string
		wantNegate bool
	}{
		{"select _1 from x where not _1 = 1", true},
		{"select _1 from x where not not _1 = 1", false},
		{"select _1 from x where not not not _1 = 1", true},
	}
	for _, tt := range tests {
		q, err := Parse(tt.query)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", tt.query, err)
		}
		if got := q.arena.Node(q.filter).Negate; got != tt.wantNegate {
			t.Errorf("%q: Negate = %v, want %v", tt.query, got, tt.wantNegate)
		}
		q.Release()
	}
}

func TestParser_Limits(t *testing.T) {
	t.Run("query too long", func(t *testing.T) {
		_, err := Parse("select " + strings.Repeat("a", MaxQueryLength) + " from x")
		if !errors.Is(err, ErrQueryTooLong) {
			t.Errorf("error = %v, want ErrQueryTooLong", err)
		}
	})

	t.Run("expression too deep", func(t *testing.T) {
		expr := strings.Repeat("(", MaxExpressionDepth+1) + "1" + strings.Repeat(")", MaxExpressionDepth+1)
		_, err := Parse("select " + expr + " from x")
		if !errors.Is(err, ErrExpressionTooDeep) {
			t.Errorf("error = %v, want ErrExpressionTooDeep", err)
		}
	})

	t.Run("arena exhausted", func(t *testing.T) {
		_, err := Parse("select _1 + _2 + _3 + _4 from x", WithArenaLimits(4, 0))
		if !errors.Is(err, ErrArenaExhausted) {
			t.Errorf("error = %v, want ErrArenaExhausted", err)
		}
	})

	t.Run("column name too long", func(t *testing.T) {
		_, err := Parse("select " + strings.Repeat("c", MaxColumnNameLength+1) + " from x")
		if !errors.Is(err, ErrColumnNameTooLong) {
			t.Errorf("error = %v, want ErrColumnNameTooLong", err)
		}
	})
}
