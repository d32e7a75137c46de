package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/dbmlsqlite/internal/schema"
)

// MySQLExtractor handles schema extraction from MySQL
type MySQLExtractor struct {
	client     *MySQLClient
	schemaName string
}

// NewMySQLExtractor creates a new MySQL schema extractor
func NewMySQLExtractor(client *MySQLClient, schemaName string) *MySQLExtractor {
	return &MySQLExtractor{
		client:     client,
		schemaName: schemaName,
	}
}

// ExtractSchema extracts the complete schema for specified tables.
// Inline enum columns become enums named <table>_<column>.
func (e *MySQLExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	s := &schema.Schema{Name: e.schemaName}

	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	for _, tableName := range tableNames {
		table, enums, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		s.Tables = append(s.Tables, *table)
		s.Enums = append(s.Enums, enums...)
	}

	resolveEnumColumns(s)
	return s, nil
}

// getTableNames returns the list of tables to extract
func (e *MySQLExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

func (e *MySQLExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, []schema.Enum, error) {
	table := &schema.Table{Name: tableName}

	columns, enums, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns

	pk, err := e.extractPrimaryKey(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	applyPrimaryKey(table, pk)

	refs, err := e.extractReferences(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract references: %w", err)
	}
	table.References = refs

	indexes, err := e.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes

	return table, enums, nil
}

// normalizeMySQLType maps a MySQL column_type to a coercible name
func normalizeMySQLType(dataType, columnType string) string {
	switch strings.ToLower(dataType) {
	case "set":
		return "text"
	case "year":
		return "smallint"
	case "bit":
		return "integer"
	default:
		return normalizeTypeName(columnType)
	}
}

func (e *MySQLExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, []schema.Enum, error) {
	query := `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable,
			c.column_default,
			CASE WHEN EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
					AND tc.table_name = kcu.table_name
				WHERE tc.table_schema = ?
					AND tc.table_name = ?
					AND tc.constraint_type = 'UNIQUE'
					AND kcu.column_name = c.column_name
					AND (
						SELECT COUNT(*) FROM information_schema.key_column_usage x
						WHERE x.table_schema = tc.table_schema
							AND x.table_name = tc.table_name
							AND x.constraint_name = tc.constraint_name
					) = 1
			) THEN true ELSE false END as is_unique,
			c.data_type,
			c.extra
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName, e.schemaName, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	var enums []schema.Enum

	for rows.Next() {
		var col schema.Column
		var columnType string
		var nullable string
		var defaultVal sql.NullString
		var dataType string
		var extra string

		if err := rows.Scan(&col.Name, &columnType, &nullable, &defaultVal, &col.Unique, &dataType, &extra); err != nil {
			return nil, nil, err
		}

		col.NotNull = nullable == "NO"
		col.Increment = strings.Contains(strings.ToLower(extra), "auto_increment")
		if defaultVal.Valid && !strings.EqualFold(defaultVal.String, "null") {
			def := unquoteDefault(defaultVal.String)
			col.Default = &def
		}

		if strings.EqualFold(dataType, "enum") {
			values, err := parseMySQLEnumValues(columnType)
			if err != nil {
				return nil, nil, err
			}
			enum := schema.Enum{Name: tableName + "_" + col.Name}
			for _, v := range values {
				enum.Items = append(enum.Items, schema.EnumItem{Name: v})
			}
			enums = append(enums, enum)
			col.Type = schema.Primitive(enum.Name)
		} else {
			col.Type = schema.Primitive(normalizeMySQLType(dataType, columnType))
		}

		columns = append(columns, col)
	}

	return columns, enums, rows.Err()
}

// parseMySQLEnumValues parses the values of a column type such as
// enum('a','it''s','b,c')
func parseMySQLEnumValues(columnType string) ([]string, error) {
	start := strings.Index(columnType, "(")
	end := strings.LastIndex(columnType, ")")
	if !strings.HasPrefix(strings.ToLower(columnType), "enum(") || start == -1 || end <= start {
		return nil, fmt.Errorf("invalid enum type format: %s", columnType)
	}
	list := columnType[start+1 : end]

	var values []string
	var sb strings.Builder
	inQuote := false
	for i := 0; i < len(list); i++ {
		c := list[i]
		switch {
		case c == '\'' && inQuote && i+1 < len(list) && list[i+1] == '\'':
			sb.WriteByte('\'')
			i++
		case c == '\'':
			if inQuote {
				values = append(values, sb.String())
				sb.Reset()
			}
			inQuote = !inQuote
		case inQuote:
			sb.WriteByte(c)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("invalid enum type format: %s", columnType)
	}

	return values, nil
}

func (e *MySQLExtractor) extractPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var colName string
		if err := rows.Scan(&colName); err != nil {
			return nil, err
		}
		pk = append(pk, colName)
	}

	return pk, rows.Err()
}

func (e *MySQLExtractor) extractReferences(ctx context.Context, tableName string) ([]schema.Reference, error) {
	query := `
		SELECT
			kcu.constraint_name,
			GROUP_CONCAT(kcu.column_name ORDER BY kcu.ordinal_position) AS source_columns,
			kcu.referenced_table_name,
			GROUP_CONCAT(kcu.referenced_column_name ORDER BY kcu.ordinal_position) AS target_columns,
			rc.update_rule,
			rc.delete_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_schema = kcu.table_schema
			AND rc.constraint_name = kcu.constraint_name
			AND rc.table_name = kcu.table_name
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		GROUP BY kcu.constraint_name, kcu.referenced_table_name, rc.update_rule, rc.delete_rule
		ORDER BY kcu.constraint_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []schema.Reference
	for rows.Next() {
		var ref schema.Reference
		var sourceColumns, targetColumns string
		if err := rows.Scan(&ref.Name, &sourceColumns, &ref.TargetTable, &targetColumns, &ref.OnUpdate, &ref.OnDelete); err != nil {
			return nil, err
		}
		ref.SourceColumns = strings.Split(sourceColumns, ",")
		ref.TargetColumns = strings.Split(targetColumns, ",")
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

// extractIndexes reads indexes that do not back a constraint
func (e *MySQLExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			s.index_name,
			s.non_unique = 0 AS is_unique,
			MAX(s.index_type) AS index_type,
			GROUP_CONCAT(s.column_name ORDER BY s.seq_in_index) AS column_names
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
			AND s.table_name = ?
			AND s.index_name != 'PRIMARY'
			AND s.index_name NOT IN (
				SELECT tc.constraint_name
				FROM information_schema.table_constraints tc
				WHERE tc.table_schema = ? AND tc.table_name = ?
			)
		GROUP BY s.index_name, s.non_unique
		ORDER BY s.index_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		var isUnique int
		var columnNames sql.NullString

		if err := rows.Scan(&idx.Name, &isUnique, &idx.Type, &columnNames); err != nil {
			return nil, err
		}

		// functional key parts have no column name
		if !columnNames.Valid || columnNames.String == "" {
			continue
		}

		idx.Unique = isUnique == 1
		idx.Type = strings.ToLower(idx.Type)
		idx.Columns = strings.Split(columnNames.String, ",")

		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}
