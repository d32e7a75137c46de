package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tordrt/dbmlsqlite"
	"github.com/tordrt/dbmlsqlite/internal/config"
)

const moodDBML = `Enum mood {
  happy
  sad
}

Table people {
  id integer [pk]
  feeling mood
}
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeDBML(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.dbml")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}
	return path
}

func TestParseTableList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"users", []string{"users"}},
		{"users, posts ,comments", []string{"users", "posts", "comments"}},
		{"users,,posts,", []string{"users", "posts"}},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, parseTableList(tt.in)); diff != "" {
			t.Errorf("parseTableList(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestRootPrintsDDL(t *testing.T) {
	path := writeDBML(t, "Table tester {\n  id integer\n}\n")

	got, err := runCLI(t, path)
	if err != nil {
		t.Fatalf("dbmlsqlite error = %v", err)
	}
	if want := "CREATE TABLE tester (\n  id INTEGER\n);\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}

	got, err = runCLI(t, "-t", path)
	if err != nil {
		t.Fatalf("dbmlsqlite -t error = %v", err)
	}
	if want := "CREATE TABLE IF NOT EXISTS tester (\n  id INTEGER\n);\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestRootSinks(t *testing.T) {
	path := writeDBML(t, moodDBML)
	dir := t.TempDir()
	outFile := filepath.Join(dir, "schema.sql")
	outDir := filepath.Join(dir, "split")
	dbFile := filepath.Join(dir, "app.db")

	got, err := runCLI(t, path, "-n", "-t", "-i", "-w", outFile, "-d", outDir, "-x", dbFile)
	if err != nil {
		t.Fatalf("dbmlsqlite error = %v", err)
	}
	if got != "" {
		t.Errorf("--no-print still printed %q", got)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", outFile, err)
	}
	if !strings.Contains(string(data), "CREATE TABLE IF NOT EXISTS mood (") {
		t.Errorf("written file lacks the lookup table:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(outDir, "people.sql")); err != nil {
		t.Errorf("output dir missing people.sql: %v", err)
	}

	s, err := dbmlsqlite.ImportSchema(context.Background(), "sqlite://"+dbFile, nil)
	if err != nil {
		t.Fatalf("ImportSchema() error = %v", err)
	}
	if diff := cmp.Diff([]string{"people"}, s.TableNames()); diff != "" {
		t.Errorf("executed tables mismatch (-want +got):\n%s", diff)
	}
}

func TestEmulationFlagsConflict(t *testing.T) {
	path := writeDBML(t, moodDBML)

	if _, err := runCLI(t, path, "--full", "--half"); err == nil {
		t.Error("--full together with --half should fail")
	}
}

func TestEnvironmentDefaults(t *testing.T) {
	path := writeDBML(t, moodDBML)
	t.Setenv(config.EnvEmulation, "half")
	t.Setenv(config.EnvTableIfNotExists, "true")

	got, err := runCLI(t, path)
	if err != nil {
		t.Fatalf("dbmlsqlite error = %v", err)
	}
	if !strings.Contains(got, "feeling TEXT CHECK( feeling IN ('happy', 'sad') ) NOT NULL") {
		t.Errorf("environment emulation not applied:\n%s", got)
	}
	if !strings.HasPrefix(got, "CREATE TABLE IF NOT EXISTS people (") {
		t.Errorf("environment table guard not applied:\n%s", got)
	}

	// explicit flags win over the environment
	got, err = runCLI(t, path, "--full", "--if-table-exists=false")
	if err != nil {
		t.Fatalf("dbmlsqlite --full error = %v", err)
	}
	if !strings.HasPrefix(got, "CREATE TABLE mood (") {
		t.Errorf("flags did not override the environment:\n%s", got)
	}
}

func TestInvalidEnvironmentEmulation(t *testing.T) {
	path := writeDBML(t, moodDBML)
	t.Setenv(config.EnvEmulation, "quarter")

	_, err := runCLI(t, path)
	if !errors.Is(err, dbmlsqlite.ErrInvalidEmulation) {
		t.Errorf("error = %v, want ErrInvalidEmulation", err)
	}
}

func TestRootReportsErrorKinds(t *testing.T) {
	_, err := runCLI(t, filepath.Join(t.TempDir(), "missing.dbml"))
	if !errors.Is(err, dbmlsqlite.ErrPathNotFound) {
		t.Errorf("error = %v, want ErrPathNotFound", err)
	}

	if _, err := runCLI(t, writeDBML(t, moodDBML), "--namer", "sequence"); err == nil {
		t.Error("unknown namer should fail")
	}
}

func TestImportSQLite(t *testing.T) {
	ctx := context.Background()
	dbFile := filepath.Join(t.TempDir(), "people.db")

	script, err := dbmlsqlite.ToSQLite(ctx, writeDBML(t, moodDBML), nil)
	if err != nil {
		t.Fatalf("ToSQLite() error = %v", err)
	}
	if err := dbmlsqlite.Execute(ctx, dbFile, script); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got, err := runCLI(t, "import", "--sqlite", dbFile, "--half")
	if err != nil {
		t.Fatalf("dbmlsqlite import error = %v", err)
	}
	want := "CREATE TABLE people (\n  id INTEGER PRIMARY KEY,\n  feeling TEXT CHECK( feeling IN ('happy', 'sad') ) NOT NULL\n);\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("import output mismatch (-want +got):\n%s", diff)
	}

	got, err = runCLI(t, "import", "--sqlite", dbFile, "--exclude", "people")
	if err != nil {
		t.Fatalf("dbmlsqlite import --exclude error = %v", err)
	}
	if strings.Contains(got, "people") {
		t.Errorf("excluded table was imported:\n%s", got)
	}
}

func TestImportDatabaseFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   importFlags
		want    string
		wantErr bool
	}{
		{name: "none", wantErr: true},
		{name: "two", flags: importFlags{dbURL: "postgres://x", sqlitePath: "a.db"}, wantErr: true},
		{name: "postgres", flags: importFlags{dbURL: "postgres://u@h/db"}, want: "postgres://u@h/db"},
		{name: "mysql dsn", flags: importFlags{mysqlURL: "u:p@tcp(h:3306)/db"}, want: "mysql://u:p@tcp(h:3306)/db"},
		{name: "mysql url", flags: importFlags{mysqlURL: "mysql://u:p@tcp(h:3306)/db"}, want: "mysql://u:p@tcp(h:3306)/db"},
		{name: "sqlite", flags: importFlags{sqlitePath: "app.db"}, want: "sqlite://app.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.databaseURL()
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("databaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRootCompilesDirectoryNamedLikeCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "version")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "t.dbml"), []byte("Table t {\n  id int\n}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// an absolute or ./-prefixed path is not mistaken for the subcommand
	got, err := runCLI(t, dir)
	if err != nil {
		t.Fatalf("dbmlsqlite error = %v", err)
	}
	if want := "CREATE TABLE t (\n  id INTEGER\n);\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}

	if !strings.Contains(newRootCmd().Long, "./version") {
		t.Error("help text does not explain how to compile a directory named like a command")
	}
}

func TestVersionCommand(t *testing.T) {
	got, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("dbmlsqlite version error = %v", err)
	}
	if !strings.HasPrefix(got, "dbmlsqlite v") {
		t.Errorf("version output = %q", got)
	}
}
