//go:build integration
// +build integration

package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tordrt/dbmlsqlite"
	"github.com/tordrt/dbmlsqlite/internal/schema"
)

// verifyTablesExist checks that exactly the expected tables are present
func verifyTablesExist(t *testing.T, s *schema.Schema, expectedTables []string) {
	t.Helper()

	if len(s.Tables) != len(expectedTables) {
		t.Errorf("Expected %d tables, got %d (%v)", len(expectedTables), len(s.Tables), s.TableNames())
	}

	for _, tableName := range expectedTables {
		if s.Table(tableName) == nil {
			t.Errorf("Expected table %s not found in schema", tableName)
		}
	}
}

// verifyColumns checks that expected columns exist in a table
func verifyColumns(t *testing.T, table *schema.Table, expectedColumns []string) {
	t.Helper()

	for _, colName := range expectedColumns {
		if table.Column(colName) == nil {
			t.Errorf("Expected column %s not found in %s table", colName, table.Name)
		}
	}
}

// verifyPrimaryKey accepts a single key on the column or a composite key on
// the table
func verifyPrimaryKey(t *testing.T, table *schema.Table, expectedPK []string) {
	t.Helper()

	if len(expectedPK) == 1 {
		col := table.Column(expectedPK[0])
		if col == nil || !col.PrimaryKey {
			t.Errorf("Expected %s.%s to be the primary key", table.Name, expectedPK[0])
		}
		return
	}

	if len(table.PrimaryKey) != len(expectedPK) {
		t.Errorf("Expected primary key %v, got %v", expectedPK, table.PrimaryKey)
		return
	}
	for i, pk := range expectedPK {
		if table.PrimaryKey[i] != pk {
			t.Errorf("Expected primary key %v, got %v", expectedPK, table.PrimaryKey)
			return
		}
	}
}

// verifyUniqueConstraint checks that a column has a unique constraint
func verifyUniqueConstraint(t *testing.T, s *schema.Schema, tableName, columnName string) {
	t.Helper()

	col := findColumn(t, s, tableName, columnName)
	if col != nil && !col.Unique {
		t.Errorf("Expected %s column to have unique constraint", columnName)
	}
}

// verifyForeignKey checks that a single-column reference exists
func verifyForeignKey(t *testing.T, s *schema.Schema, tableName, sourceColumn, targetTable string) *schema.Reference {
	t.Helper()

	table := findTable(t, s, tableName)
	for i, ref := range table.References {
		if ref.TargetTable == targetTable && len(ref.SourceColumns) == 1 && ref.SourceColumns[0] == sourceColumn {
			return &table.References[i]
		}
	}

	t.Errorf("Expected foreign key from %s.%s to %s not found", tableName, sourceColumn, targetTable)
	return nil
}

// verifyIndex checks that an index exists with the expected columns
func verifyIndex(t *testing.T, s *schema.Schema, tableName, indexName string, expectedColumns []string) {
	t.Helper()

	table := findTable(t, s, tableName)
	for _, idx := range table.Indexes {
		if idx.Name != indexName {
			continue
		}
		if len(idx.Columns) != len(expectedColumns) {
			t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
			return
		}
		for i, col := range expectedColumns {
			if idx.Columns[i] != col {
				t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
				return
			}
		}
		return
	}

	t.Errorf("Expected index %s on %s table not found", indexName, tableName)
}

// verifyEnumValues checks that a column is enum-typed with the given items
// in order
func verifyEnumValues(t *testing.T, s *schema.Schema, tableName, columnName string, expectedValues []string) {
	t.Helper()

	col := findColumn(t, s, tableName, columnName)
	if col == nil {
		return
	}
	if col.Type.Kind != schema.TypeEnum || col.Type.Enum == nil {
		t.Errorf("Expected %s.%s to be an enum, got %+v", tableName, columnName, col.Type)
		return
	}

	got := col.Type.Enum.ItemNames()
	if len(got) != len(expectedValues) {
		t.Errorf("Expected enum values %v for %s, got %v", expectedValues, columnName, got)
		return
	}
	for i := range expectedValues {
		if got[i] != expectedValues[i] {
			t.Errorf("Expected enum values %v for %s, got %v", expectedValues, columnName, got)
			return
		}
	}
}

func findTable(t *testing.T, s *schema.Schema, tableName string) *schema.Table {
	t.Helper()

	table := s.Table(tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
	}
	return table
}

func findColumn(t *testing.T, s *schema.Schema, tableName, columnName string) *schema.Column {
	t.Helper()

	col := findTable(t, s, tableName).Column(columnName)
	if col == nil {
		t.Errorf("Column %s not found in table %s", columnName, tableName)
	}
	return col
}

// compileIntoSQLite compiles an imported schema, runs it against a fresh
// SQLite file and reads the result back
func compileIntoSQLite(t *testing.T, s *schema.Schema, opts *dbmlsqlite.Options) (string, *schema.Schema) {
	t.Helper()
	ctx := context.Background()

	script, err := dbmlsqlite.CompileSchema(s, opts)
	if err != nil {
		t.Fatalf("Failed to compile schema: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "compiled.db")
	if err := dbmlsqlite.Execute(ctx, dbPath, script); err != nil {
		t.Fatalf("Failed to execute compiled schema: %v\n%s", err, script)
	}

	back, err := dbmlsqlite.ImportSchema(ctx, "sqlite://"+dbPath, nil)
	if err != nil {
		t.Fatalf("Failed to read compiled schema back: %v", err)
	}
	return script, back
}
