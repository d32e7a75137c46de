package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/dbmlsqlite/internal/schema"
)

// SQLiteExtractor handles schema extraction from SQLite.
//
// Lookup tables shaped like the ones full enum emulation creates
// (id, type, seq) are folded back into enums, and the columns referencing
// them become enum columns again.
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{
		client: client,
	}
}

// ExtractSchema extracts the complete schema for specified tables.
// If tables is empty, extracts all tables in the database.
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	s := &schema.Schema{}

	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	for _, tableName := range tableNames {
		table, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		s.Tables = append(s.Tables, *table)
	}

	if err := e.foldEnumTables(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to extract enums: %w", err)
	}

	return s, nil
}

// getTableNames returns the list of tables to extract, in creation order
func (e *SQLiteExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY rowid
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

func (e *SQLiteExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	columns, pk, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table does not exist")
	}
	table.Columns = columns
	applyPrimaryKey(table, pk)

	refs, err := e.extractReferences(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract references: %w", err)
	}
	table.References = refs

	unique, indexes, err := e.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes
	for _, name := range unique {
		if col := table.Column(name); col != nil && !col.PrimaryKey {
			col.Unique = true
		}
	}

	return table, nil
}

// extractColumns returns the columns and the primary key columns in key
// order
func (e *SQLiteExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, []string, error) {
	query := `SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`

	rows, err := e.client.GetDB().QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	pkOrder := make(map[int]string)

	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, err
		}

		// a column declared without a type has BLOB affinity
		if strings.TrimSpace(colType) == "" {
			colType = "blob"
		}

		col := schema.Column{
			Name:    name,
			Type:    schema.Primitive(normalizeTypeName(colType)),
			NotNull: notNull == 1,
		}
		if defaultValue.Valid && !strings.EqualFold(defaultValue.String, "null") {
			def := unquoteDefault(defaultValue.String)
			col.Default = &def
		}
		if pk > 0 {
			pkOrder[pk] = name
		}

		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	pk := make([]string, 0, len(pkOrder))
	for i := 1; i <= len(pkOrder); i++ {
		pk = append(pk, pkOrder[i])
	}
	return columns, pk, nil
}

// extractReferences groups pragma_foreign_key_list rows by constraint id
func (e *SQLiteExtractor) extractReferences(ctx context.Context, tableName string) ([]schema.Reference, error) {
	query := `SELECT id, seq, "table", "from", "to", on_update, on_delete FROM pragma_foreign_key_list(?) ORDER BY id, seq`

	rows, err := e.client.GetDB().QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []schema.Reference
	lastID := -1

	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, onUpdate, onDelete string
		var toCol sql.NullString

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete); err != nil {
			return nil, err
		}

		if id != lastID {
			refs = append(refs, schema.Reference{
				TargetTable: targetTable,
				OnUpdate:    sqliteAction(onUpdate),
				OnDelete:    sqliteAction(onDelete),
			})
			lastID = id
		}
		ref := &refs[len(refs)-1]
		ref.SourceColumns = append(ref.SourceColumns, fromCol)
		ref.TargetColumns = append(ref.TargetColumns, toCol.String)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// the pragma lists constraints last-declared first
	for i, j := 0, len(refs)-1; i < j; i, j = i+1, j-1 {
		refs[i], refs[j] = refs[j], refs[i]
	}
	return refs, nil
}

// sqliteAction drops the implicit NO ACTION so it is not re-emitted
func sqliteAction(action string) string {
	if strings.EqualFold(action, "NO ACTION") {
		return ""
	}
	return action
}

// extractIndexes returns the single columns covered by a UNIQUE constraint
// and the explicitly created indexes
func (e *SQLiteExtractor) extractIndexes(ctx context.Context, tableName string) ([]string, []schema.Index, error) {
	query := `SELECT name, "unique", origin FROM pragma_index_list(?) ORDER BY seq DESC`

	rows, err := e.client.GetDB().QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, nil, err
	}

	type indexRow struct {
		name   string
		unique bool
		origin string
	}
	var list []indexRow
	for rows.Next() {
		var r indexRow
		if err := rows.Scan(&r.name, &r.unique, &r.origin); err != nil {
			rows.Close()
			return nil, nil, err
		}
		list = append(list, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var uniqueColumns []string
	var indexes []schema.Index

	for _, r := range list {
		columns, err := e.indexColumns(ctx, r.name)
		if err != nil {
			return nil, nil, err
		}

		switch r.origin {
		case "u":
			if len(columns) == 1 {
				uniqueColumns = append(uniqueColumns, columns[0])
			}
		case "c":
			if len(columns) > 0 {
				indexes = append(indexes, schema.Index{Name: r.name, Unique: r.unique, Columns: columns})
			}
		}
	}

	return uniqueColumns, indexes, nil
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, `SELECT name FROM pragma_index_info(?) ORDER BY seqno`, indexName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		// expression key parts have no name
		if name.Valid {
			columns = append(columns, name.String)
		}
	}
	return columns, rows.Err()
}

// foldEnumTables turns lookup tables into enums. Candidates are the
// extracted tables and every table they reference.
func (e *SQLiteExtractor) foldEnumTables(ctx context.Context, s *schema.Schema) error {
	var candidates []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			candidates = append(candidates, name)
		}
	}
	for _, t := range s.Tables {
		add(t.Name)
		for _, r := range t.References {
			add(r.TargetTable)
		}
	}

	lookup := make(map[string]bool)
	for _, name := range candidates {
		ok, err := e.isEnumTable(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		items, err := e.enumItems(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		s.Enums = append(s.Enums, schema.Enum{Name: name, Items: items})
		lookup[name] = true
	}
	if len(lookup) == 0 {
		return nil
	}

	tables := make([]schema.Table, 0, len(s.Tables))
	for _, t := range s.Tables {
		if lookup[t.Name] {
			continue
		}
		refs := make([]schema.Reference, 0, len(t.References))
		for _, r := range t.References {
			if lookup[r.TargetTable] && len(r.SourceColumns) == 1 && len(r.TargetColumns) == 1 && r.TargetColumns[0] == "type" {
				if col := t.Column(r.SourceColumns[0]); col != nil {
					col.Type = schema.Primitive(r.TargetTable)
					continue
				}
			}
			refs = append(refs, r)
		}
		t.References = refs
		tables = append(tables, t)
	}
	s.Tables = tables

	resolveEnumColumns(s)
	return nil
}

func (e *SQLiteExtractor) isEnumTable(ctx context.Context, name string) (bool, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, name)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return false, err
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	return strings.Join(columns, ",") == "id,type,seq", nil
}

func (e *SQLiteExtractor) enumItems(ctx context.Context, name string) ([]schema.EnumItem, error) {
	query := fmt.Sprintf(`SELECT type FROM "%s" ORDER BY seq`, strings.ReplaceAll(name, `"`, `""`))

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []schema.EnumItem
	for rows.Next() {
		var item schema.EnumItem
		if err := rows.Scan(&item.Name); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
