package query

import "testing"

func TestTokenize(t *testing.T) {
	type tok struct {
		typ   TokenType
		value string
		pos   int
	}

	tests := []struct {
		name  string
		input string
		want  []tok
	}{
		{
			name:  "select star",
			input: "select * from s3object;",
			want: []tok{
				{TokenSelect, "select", 0},
				{TokenAsterisk, "*", 7},
				{TokenFrom, "from", 9},
				{TokenIdent, "s3object", 14},
				{TokenSemicolon, ";", 22},
				{TokenEOF, "", 23},
			},
		},
		{
			name:  "operators",
			input: "a<>b != c <= d >= e == f ^ g % h",
			want: []tok{
				{TokenIdent, "a", 0}, {TokenNotEqual, "<>", 1}, {TokenIdent, "b", 3},
				{TokenNotEqual, "!=", 5}, {TokenIdent, "c", 8},
				{TokenLessEqual, "<=", 10}, {TokenIdent, "d", 13},
				{TokenGreaterEqual, ">=", 15}, {TokenIdent, "e", 18},
				{TokenEqual, "=", 20}, {TokenIdent, "f", 23},
				{TokenCaret, "^", 25}, {TokenIdent, "g", 27},
				{TokenPercent, "%", 29}, {TokenIdent, "h", 31},
				{TokenEOF, "", 32},
			},
		},
		{
			name:  "numbers",
			input: "12 3.5 .5 1e3 2E-2",
			want: []tok{
				{TokenNumber, "12", 0}, {TokenNumber, "3.5", 3}, {TokenNumber, ".5", 7},
				{TokenNumber, "1e3", 10}, {TokenNumber, "2E-2", 14}, {TokenEOF, "", 18},
			},
		},
		{
			name:  "strings with doubled quotes",
			input: `'it''s' "say ""hi"""`,
			want: []tok{
				{TokenString, "it's", 0}, {TokenString, `say "hi"`, 8}, {TokenEOF, "", 20},
			},
		},
		{
			name:  "qualified and document references",
			input: "s._1 s3object[*].name",
			want: []tok{
				{TokenIdent, "s._1", 0}, {TokenIdent, "s3object[*].name", 5}, {TokenEOF, "", 21},
			},
		},
		{
			name:  "keywords are case insensitive",
			input: "SeLeCt NOT Between TRUE",
			want: []tok{
				{TokenSelect, "SeLeCt", 0}, {TokenNot, "NOT", 7}, {TokenBetween, "Between", 11},
				{TokenBool, "TRUE", 19}, {TokenEOF, "", 23},
			},
		},
		{
			name:  "unterminated string",
			input: "select 'abc",
			want:  []tok{{TokenSelect, "select", 0}, {TokenError, "unterminated string", 7}},
		},
		{
			name:  "unexpected character stops",
			input: "a # b",
			want:  []tok{{TokenIdent, "a", 0}, {TokenError, "#", 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) returned %d tokens, want %d: %v", tt.input, len(got), len(tt.want), got)
			}
			for i, w := range tt.want {
				if got[i].Type != w.typ || got[i].Value != w.value || got[i].Pos != w.pos {
					t.Errorf("token %d = {%v %q %d}, want {%v %q %d}",
						i, got[i].Type, got[i].Value, got[i].Pos, w.typ, w.value, w.pos)
				}
			}
		})
	}
}
