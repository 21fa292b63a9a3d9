package reader

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func TestCSVSource_HeaderModes(t *testing.T) {
	const input = "name,age\nAlice,30\nBob,25\n"

	tests := []struct {
		name        string
		opts        CSVOptions
		wantColumns []string
		wantRows    [][]string
	}{
		{
			name:     "none",
			opts:     CSVOptions{Header: HeaderNone},
			wantRows: [][]string{{"name", "age"}, {"Alice", "30"}, {"Bob", "25"}},
		},
		{
			name:        "use",
			opts:        CSVOptions{Header: HeaderUse},
			wantColumns: []string{"name", "age"},
			wantRows:    [][]string{{"Alice", "30"}, {"Bob", "25"}},
		},
		{
			name:     "ignore",
			opts:     CSVOptions{Header: HeaderIgnore},
			wantRows: [][]string{{"Alice", "30"}, {"Bob", "25"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewCSVSource(strings.NewReader(input), tt.opts)
			if err != nil {
				t.Fatalf("NewCSVSource() error = %v", err)
			}
			if !reflect.DeepEqual(src.Columns(), tt.wantColumns) {
				t.Errorf("Columns() = %v, want %v", src.Columns(), tt.wantColumns)
			}
			got := drainTokens(t, src)
			if !reflect.DeepEqual(got, tt.wantRows) {
				t.Errorf("rows = %v, want %v", got, tt.wantRows)
			}
		})
	}
}

func TestCSVSource_Dialect(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  CSVOptions
		want  [][]string
	}{
		{
			name:  "tab delimiter",
			input: "a\tb c\n1\t2\n",
			opts:  CSVOptions{Delimiter: '\t'},
			want:  [][]string{{"a", "b c"}, {"1", "2"}},
		},
		{
			name:  "comment lines",
			input: "# generated\n1,2\n# trailer\n",
			opts:  CSVOptions{Comment: '#'},
			want:  [][]string{{"1", "2"}},
		},
		{
			name:  "quoted fields",
			input: "\"x, y\",\"say \"\"hi\"\"\"\n",
			want:  [][]string{{"x, y", `say "hi"`}},
		},
		{
			name:  "ragged rows",
			input: "1,2,3\n4\n",
			want:  [][]string{{"1", "2", "3"}, {"4"}},
		},
		{
			name:  "empty input",
			input: "",
			opts:  CSVOptions{Header: HeaderUse},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewCSVSource(strings.NewReader(tt.input), tt.opts)
			if err != nil {
				t.Fatalf("NewCSVSource() error = %v", err)
			}
			got := drainTokens(t, src)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("rows = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseHeaderMode(t *testing.T) {
	tests := []struct {
		in      string
		want    HeaderMode
		wantErr bool
	}{
		{"", HeaderNone, false},
		{"USE", HeaderUse, false},
		{"ignore", HeaderIgnore, false},
		{"first", "", true},
	}
	for _, tt := range tests {
		got, err := ParseHeaderMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHeaderMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseHeaderMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// drainTokens copies every record of src, since records are reused
func drainTokens(t *testing.T, src *CSVSource) [][]string {
	t.Helper()

	var rows [][]string
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		rows = append(rows, append([]string(nil), row.Tokens...))
	}
}
