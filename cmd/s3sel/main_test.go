package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/s3sel/query"
)

// TestRow defines a simple test data structure
type TestRow struct {
	ID     int64   `parquet:"id"`
	Name   string  `parquet:"name"`
	Age    int64   `parquet:"age"`
	Salary float64 `parquet:"salary"`
}

// createTestParquetFile creates a temporary parquet file with test data
func createTestParquetFile(t *testing.T, dir, filename string, rows []TestRow) string {
	t.Helper()
	testFile := filepath.Join(dir, filename)

	f, err := os.Create(testFile)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	writer := parquet.NewGenericWriter[TestRow](f)
	if _, err := writer.Write(rows); err != nil {
		t.Fatalf("failed to write test data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close file: %v", err)
	}

	return testFile
}

// runCommand executes the root command with args and returns its stdout
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func TestMain_Commands(t *testing.T) {
	testFile := createTestParquetFile(t, t.TempDir(), "test.parquet", []TestRow{
		{ID: 1, Name: "Alice", Age: 30, Salary: 50000.0},
		{ID: 2, Name: "Bob", Age: 25, Salary: 45000.0},
		{ID: 3, Name: "Charlie", Age: 35, Salary: 60000.0},
	})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "filter",
			args: []string{"query", "-q", "select name from s3object where age > 28", testFile},
			want: "Alice\nCharlie\n",
		},
		{
			name: "aggregate as json",
			args: []string{"query", "-f", "json", "-q", "select count(*) as n, max(salary) as top from s3object", testFile},
			want: `{"n":3,"top":60000}` + "\n",
		},
		{
			name: "header and limit",
			args: []string{"query", "--out-header", "-q", "select id, name from s3object limit 1", testFile},
			want: "id,name\n1,Alice\n",
		},
		{
			name: "from target",
			args: []string{"query", "-q", fmt.Sprintf("select count(*) from '%s' where salary >= 50000", testFile)},
			want: "2\n",
		},
		{
			name: "version",
			args: []string{"version"},
			want: "s3sel " + version + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runCommand(t, tt.args...)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMain_Schema(t *testing.T) {
	testFile := createTestParquetFile(t, t.TempDir(), "test.parquet", []TestRow{{ID: 1, Name: "Alice"}})

	got, err := runCommand(t, "schema", testFile)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if lines[0] != "name,type,physical_type,logical_type,required,repeated" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 5 {
		t.Fatalf("schema output = %q, want four columns", got)
	}
	found := false
	for _, line := range lines[1:] {
		found = found || strings.HasPrefix(line, "salary,")
	}
	if !found {
		t.Errorf("schema output = %q, want a salary row", got)
	}
}

func TestMain_Functions(t *testing.T) {
	got, err := runCommand(t, "functions")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(got, "substring\n") {
		t.Errorf("functions output missing substring: %q", got)
	}
}

func TestMain_Errors(t *testing.T) {
	testFile := createTestParquetFile(t, t.TempDir(), "test.parquet", []TestRow{{ID: 1, Name: "Alice"}})

	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"parse error", []string{"query", "-q", "select from s3object", testFile}, 2},
		{"unknown function", []string{"query", "-q", "select nosuch(name) from s3object", testFile}, 2},
		{"unknown column", []string{"query", "-q", "select missing from s3object", testFile}, 1},
		{"missing file", []string{"query", "-q", "select * from s3object", filepath.Join(t.TempDir(), "none.csv")}, 1},
		{"bad output format", []string{"query", "-f", "xml", "-q", "select * from s3object", testFile}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, tt.args...)
			if err == nil {
				t.Fatal("Execute() expected error")
			}
			if got := exitCode(err); got != tt.wantCode {
				t.Errorf("exitCode(%v) = %d, want %d", err, got, tt.wantCode)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(&query.ParseError{Offset: 3, Msg: "bad"}); got != 2 {
		t.Errorf("exitCode(ParseError) = %d, want 2", got)
	}
	if got := exitCode(fmt.Errorf("wrapped: %w", query.ErrUnknownFunction)); got != 2 {
		t.Errorf("exitCode(ErrUnknownFunction) = %d, want 2", got)
	}
	if got := exitCode(errors.New("io failure")); got != 1 {
		t.Errorf("exitCode(other) = %d, want 1", got)
	}
}
