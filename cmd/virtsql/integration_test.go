package main

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	_ "modernc.org/sqlite"
)

// TestRow defines a simple test data structure
type TestRow struct {
	ID     int64   `parquet:"id"`
	Name   string  `parquet:"name"`
	Age    int64   `parquet:"age"`
	Salary float64 `parquet:"salary"`
}

// DeptRow maps users to departments
type DeptRow struct {
	ID   int64  `parquet:"id"`
	Dept string `parquet:"dept"`
}

// createParquetFile creates a temporary parquet file with test data
func createParquetFile[T any](t *testing.T, dir, filename string, rows []T) string {
	t.Helper()
	testFile := filepath.Join(dir, filename)

	f, err := os.Create(testFile)
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

	return testFile
}

func people(t *testing.T, dir string) string {
	t.Helper()
	return createParquetFile(t, dir, "people.parquet", []TestRow{
		{ID: 1, Name: "Alice", Age: 30, Salary: 50000.0},
		{ID: 2, Name: "Bob", Age: 25, Salary: 45000.0},
		{ID: 3, Name: "Charlie", Age: 35, Salary: 60000.0},
	})
}

// runCLI runs the command and returns its standard output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, nil, &stdout, &stderr)
	return stdout.String(), err
}

func lines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestMain_ReadFile(t *testing.T) {
	testFile := people(t, t.TempDir())

	out, err := runCLI(t, testFile)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	got := lines(out)
	if len(got) != 3 {
		t.Fatalf("got %d rows, want 3:\n%s", len(got), out)
	}
	if got[0] != `{"id":1,"name":"Alice","age":30,"salary":50000}` {
		t.Errorf("first row = %s", got[0])
	}
}

func TestMain_BasicQuery(t *testing.T) {
	testFile := people(t, t.TempDir())

	out, err := runCLI(t, "-q", "select name from people where age > :min order by name desc", "-p", "min=28", testFile)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	want := []string{`{"name":"Charlie"}`, `{"name":"Alice"}`}
	got := lines(out)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMain_QueryFileByPath(t *testing.T) {
	testFile := people(t, t.TempDir())

	out, err := runCLI(t, "-q", `select count(*) as n from "`+testFile+`"`)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if strings.TrimSpace(out) != `{"n":3}` {
		t.Errorf("got %s", out)
	}
}

func TestMain_FormatAndLimit(t *testing.T) {
	testFile := people(t, t.TempDir())

	out, err := runCLI(t, "-f", "csv", "--limit", "1", "-q", "select id, name from people", testFile)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	want := "id,name\n1,Alice\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}

	out, err = runCLI(t, "-f", "table", "-q", "select name from people where id = 2", testFile)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out, "Bob") || strings.Contains(out, "Alice") {
		t.Errorf("unexpected table output:\n%s", out)
	}
}

func TestMain_SchemaMode(t *testing.T) {
	testFile := people(t, t.TempDir())

	out, err := runCLI(t, "--schema", testFile)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if len(lines(out)) != 4 {
		t.Errorf("want one line per column, got:\n%s", out)
	}
	if !strings.Contains(out, `"name":"salary"`) {
		t.Errorf("Schema output missing 'salary' column:\n%s", out)
	}

	out, err = runCLI(t, "-f", "csv", "--schema", testFile)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.HasPrefix(out, "name,type,physical_type,logical_type,required,optional,repeated\n") {
		t.Errorf("CSV schema output missing expected headers:\n%s", out)
	}
}

func TestHandleSchemaMode_GlobPattern(t *testing.T) {
	tmpDir := t.TempDir()
	createParquetFile(t, tmpDir, "a.parquet", []TestRow{{ID: 1, Name: "Alice"}})
	createParquetFile(t, tmpDir, "b.parquet", []TestRow{{ID: 2, Name: "Bob"}})

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--schema", filepath.Join(tmpDir, "*.parquet")}, nil, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(stderr.String(), "2 files matched") {
		t.Errorf("missing glob notice, stderr: %s", stderr.String())
	}
	if !strings.Contains(stdout.String(), `"name":"id"`) {
		t.Errorf("Schema output missing expected fields:\n%s", stdout.String())
	}
}

func TestMain_MultipleFiles(t *testing.T) {
	tmpDir := t.TempDir()
	createParquetFile(t, tmpDir, "part1.parquet", []TestRow{{ID: 1, Name: "Alice"}})
	createParquetFile(t, tmpDir, "part2.parquet", []TestRow{{ID: 2, Name: "Bob"}})

	pattern := filepath.Join(tmpDir, "part*.parquet")
	out, err := runCLI(t, "-q", `select name, _file from "`+pattern+`" order by name`)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	got := lines(out)
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2:\n%s", len(got), out)
	}
	if !strings.Contains(got[0], "part1.parquet") || !strings.Contains(got[1], "part2.parquet") {
		t.Errorf("rows do not name their files:\n%s", out)
	}
}

func TestMain_JoinOperations(t *testing.T) {
	tmpDir := t.TempDir()
	users := people(t, tmpDir)
	depts := createParquetFile(t, tmpDir, "depts.parquet", []DeptRow{
		{ID: 1, Dept: "Engineering"},
		{ID: 3, Dept: "Sales"},
	})

	out, err := runCLI(t, "-f", "csv",
		"-q", "select name, dept from people left join depts using (id) order by name",
		users, depts)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	want := "name,dept\nAlice,Engineering\nBob,\nCharlie,Sales\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestMain_CTEQueries(t *testing.T) {
	testFile := people(t, t.TempDir())

	out, err := runCLI(t, "-f", "csv", "-q",
		"with seniors as (select name, salary from people where age >= 30) select name from seniors order by salary desc",
		testFile)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if out != "name\nCharlie\nAlice\n" {
		t.Errorf("got %q", out)
	}
}

func TestMain_DatabaseAndConfig(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "shop.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Exec(`CREATE TABLE items (name TEXT, price REAL);
		INSERT INTO items VALUES ('pen', 1.5), ('book', 12.0), ('lamp', 30.0);`); err != nil {
		t.Fatal(err)
	}
	conn.Close()

	out, err := runCLI(t, "--db", "shop=sqlite://"+dbPath, "-f", "csv",
		"-q", "select name from shop.items where price > 10 order by name")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if out != "name\nbook\nlamp\n" {
		t.Errorf("got %q", out)
	}

	cfgFile := filepath.Join(tmpDir, "virtsql.yaml")
	body := "format: csv\ndatabases:\n  shop: sqlite://" + dbPath + "\nviews:\n  cheap: SELECT name FROM shop.items WHERE price < 5\n"
	if err := os.WriteFile(cfgFile, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err = runCLI(t, "--config", cfgFile, "-q", "select * from cheap")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if out != "name\npen\n" {
		t.Errorf("got %q", out)
	}
}

func TestMain_Errors(t *testing.T) {
	testFile := people(t, t.TempDir())

	tests := []struct {
		name string
		args []string
	}{
		{"no input", nil},
		{"schema with query", []string{"--schema", testFile, "-q", "select 1"}},
		{"missing file", []string{filepath.Join(t.TempDir(), "absent.parquet")}},
		{"bad query", []string{"-q", "select from", testFile}},
		{"unknown column", []string{"-q", "select nope from people", testFile}},
		{"unbound parameter", []string{"-q", "select name from people where id = :id", testFile}},
		{"unknown format", []string{"-f", "xml", testFile}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, tt.args...); err == nil {
				t.Errorf("run(%v) succeeded, want error", tt.args)
			}
		})
	}
}

func TestViewName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"data.parquet", "data"},
		{"/tmp/x/users.csv", "users"},
		{"dir/archive.v2.jsonl", "archive.v2"},
	}
	for _, tt := range tests {
		if got := viewName(tt.path); got != tt.want {
			t.Errorf("viewName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
