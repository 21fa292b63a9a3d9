package reader

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
)

// writeParquet writes rows to path as a parquet file
func writeParquet[T any](t *testing.T, path string, rows []T) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	writer := parquet.NewGenericWriter[T](f)
	if _, err := writer.Write(rows); err != nil {
		t.Fatalf("failed to write test data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close file: %v", err)
	}
}

// readAll drains src into a slice of column name to value maps
func readAll(t *testing.T, src Source) []map[string]any {
	t.Helper()

	var rows []map[string]any
	cols := src.Columns()
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		m := make(map[string]any, len(cols))
		for i, col := range cols {
			if row.Fields != nil {
				m[col] = row.Fields[i]
			} else if i < len(row.Tokens) {
				m[col] = row.Tokens[i]
			}
		}
		rows = append(rows, m)
	}
}

func TestExtractSchemaInfo_PrimitiveTypes(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test.parquet")

	type Row struct {
		ID       int64   `parquet:"id"`
		Name     string  `parquet:"name"`
		Age      int32   `parquet:"age"`
		Score    float64 `parquet:"score"`
		Active   bool    `parquet:"active"`
		Optional *string `parquet:"optional,optional"`
	}

	optVal := "test"
	writeParquet(t, testFile, []Row{
		{ID: 1, Name: "Alice", Age: 30, Score: 95.5, Active: true, Optional: &optVal},
	})

	schemaInfos, err := ExtractSchemaInfo(testFile)
	if err != nil {
		t.Fatalf("ExtractSchemaInfo() error = %v", err)
	}
	if len(schemaInfos) != 6 {
		t.Fatalf("ExtractSchemaInfo() returned %d fields, want 6", len(schemaInfos))
	}

	fieldMap := make(map[string]SchemaInfo)
	for _, info := range schemaInfos {
		fieldMap[info.Name] = info
	}

	tests := []struct {
		name         string
		wantType     string
		wantPhysical string
		wantOptional bool
	}{
		{"id", "INT64", "INT64", false},
		{"name", "STRING", "BYTE_ARRAY", false},
		{"age", "INT32", "INT32", false},
		{"score", "FLOAT64", "DOUBLE", false},
		{"active", "BOOLEAN", "BOOLEAN", false},
		{"optional", "STRING", "BYTE_ARRAY", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, ok := fieldMap[tt.name]
			if !ok {
				t.Fatalf("field %s not found", tt.name)
			}
			if info.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", info.Type, tt.wantType)
			}
			if info.PhysicalType != tt.wantPhysical {
				t.Errorf("PhysicalType = %s, want %s", info.PhysicalType, tt.wantPhysical)
			}
			if info.Optional != tt.wantOptional {
				t.Errorf("Optional = %v, want %v", info.Optional, tt.wantOptional)
			}
			if info.Repeated {
				t.Error("Repeated = true, want false")
			}
		})
	}
}

func TestExtractSchemaInfo_NestedAndRepeated(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "nested.parquet")

	type Address struct {
		Street string `parquet:"street"`
		City   string `parquet:"city"`
	}
	type Row struct {
		ID      int64    `parquet:"id"`
		Address Address  `parquet:"address"`
		Tags    []string `parquet:"tags"`
	}

	writeParquet(t, testFile, []Row{{ID: 1, Address: Address{Street: "Main", City: "Oslo"}, Tags: []string{"a"}}})

	infos, err := ExtractSchemaInfo(testFile)
	if err != nil {
		t.Fatalf("ExtractSchemaInfo() error = %v", err)
	}

	fieldMap := make(map[string]SchemaInfo)
	for _, info := range infos {
		fieldMap[info.Name] = info
	}
	for _, name := range []string{"id", "address.street", "address.city", "tags"} {
		if _, ok := fieldMap[name]; !ok {
			t.Errorf("field %s not found in %v", name, infos)
		}
	}
	if !fieldMap["tags"].Repeated {
		t.Error("tags should be repeated")
	}
	if fieldMap["address.city"].Repeated {
		t.Error("address.city should not be repeated")
	}
}

func TestParquetSource_TypedFields(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "typed.parquet")

	type Row struct {
		ID     int64     `parquet:"id"`
		Name   string    `parquet:"name"`
		Age    int32     `parquet:"age"`
		Score  float32   `parquet:"score"`
		Active bool      `parquet:"active"`
		Note   *string   `parquet:"note,optional"`
		Seen   time.Time `parquet:"seen,timestamp(millisecond)"`
		Tags   []string  `parquet:"tags"`
	}

	seen := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	note := "vip"
	writeParquet(t, testFile, []Row{
		{ID: 1, Name: "Alice", Age: 30, Score: 1.5, Active: true, Note: &note, Seen: seen, Tags: []string{"x", "y"}},
		{ID: 2, Name: "Bob", Age: 25, Score: 2.25, Seen: seen.Add(time.Hour)},
	})

	src, err := OpenParquet(testFile)
	if err != nil {
		t.Fatalf("OpenParquet() error = %v", err)
	}
	defer func() { _ = src.Close() }()

	if src.NumRows() != 2 {
		t.Errorf("NumRows() = %d, want 2", src.NumRows())
	}

	rows := readAll(t, src)
	if len(rows) != 2 {
		t.Fatalf("read %d rows, want 2", len(rows))
	}

	first := rows[0]
	checks := []struct {
		col  string
		want any
	}{
		{"id", int64(1)},
		{"name", "Alice"},
		{"age", int32(30)},
		{"score", float32(1.5)},
		{"active", true},
		{"note", "vip"},
		{"seen", seen},
		{"tags", "[x,y]"},
	}
	for _, c := range checks {
		if got := first[c.col]; got != c.want {
			t.Errorf("row 1 %s = %#v, want %#v", c.col, got, c.want)
		}
	}

	second := rows[1]
	if second["note"] != nil {
		t.Errorf("row 2 note = %#v, want nil", second["note"])
	}
	if second["tags"] != nil {
		t.Errorf("row 2 tags = %#v, want nil", second["tags"])
	}
	if second["active"] != false {
		t.Errorf("row 2 active = %#v, want false", second["active"])
	}
}

func TestParquetSource_ManyRows(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "many.parquet")

	type Row struct {
		N int64 `parquet:"n"`
	}
	rows := make([]Row, rowBatch*3+7)
	for i := range rows {
		rows[i].N = int64(i)
	}
	writeParquet(t, testFile, rows)

	src, err := OpenParquet(testFile)
	if err != nil {
		t.Fatalf("OpenParquet() error = %v", err)
	}
	defer func() { _ = src.Close() }()

	got := readAll(t, src)
	if len(got) != len(rows) {
		t.Fatalf("read %d rows, want %d", len(got), len(rows))
	}
	for i, row := range got {
		if row["n"] != int64(i) {
			t.Fatalf("row %d n = %v", i, row["n"])
		}
	}

	// Close is idempotent
	if err := src.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestOpenParquet_Errors(t *testing.T) {
	dir := t.TempDir()
	notParquet := filepath.Join(dir, "bad.parquet")
	if err := os.WriteFile(notParquet, []byte("not a parquet file"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.parquet")},
		{"invalid file", notParquet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OpenParquet(tt.path); err == nil {
				t.Error("OpenParquet() expected error")
			}
		})
	}
}
