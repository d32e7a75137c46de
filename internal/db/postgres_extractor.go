package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/dbmlsqlite/internal/schema"
)

const varcharType = "varchar"

// PostgresExtractor handles schema extraction from PostgreSQL
type PostgresExtractor struct {
	client *PostgresClient
	schema string

	// user-defined column types seen while extracting, in first-seen order
	udts []string
}

// NewPostgresExtractor creates a new PostgreSQL schema extractor
func NewPostgresExtractor(client *PostgresClient, schemaName string) *PostgresExtractor {
	return &PostgresExtractor{
		client: client,
		schema: schemaName,
	}
}

// ExtractSchema extracts tables and the enums their columns use.
// If tables is empty, extracts all tables in the schema.
func (e *PostgresExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	e.udts = nil
	s := &schema.Schema{Name: e.schema}

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

	enums, err := e.extractEnums(ctx, e.udts)
	if err != nil {
		return nil, fmt.Errorf("failed to extract enums: %w", err)
	}
	s.Enums = enums
	resolveEnumColumns(s)

	return s, nil
}

// getTableNames returns the list of tables to extract
func (e *PostgresExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema)
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

func (e *PostgresExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	columns, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns

	pk, err := e.extractPrimaryKey(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	applyPrimaryKey(table, pk)

	refs, err := e.extractReferences(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract references: %w", err)
	}
	table.References = refs

	indexes, err := e.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes

	return table, nil
}

// normalizePostgresType maps information_schema type names to names the
// SQLite coercion table knows. Arrays have no SQLite counterpart and are
// carried as json.
func normalizePostgresType(dataType, udtName string, charMaxLength *int) string {
	switch dataType {
	case "timestamp with time zone":
		return "timestamptz"
	case "timestamp without time zone":
		return "timestamp"
	case "time with time zone":
		return "timetz"
	case "time without time zone":
		return "time"
	case "character varying":
		if charMaxLength != nil {
			return fmt.Sprintf("varchar(%d)", *charMaxLength)
		}
		return varcharType
	case "character":
		return "char"
	case "ARRAY":
		return "json"
	case "USER-DEFINED":
		return udtName
	default:
		return normalizeTypeName(dataType)
	}
}

func (e *PostgresExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			c.column_default,
			CASE WHEN EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.constraint_column_usage ccu
					ON tc.constraint_name = ccu.constraint_name
					AND tc.table_schema = ccu.table_schema
				WHERE tc.table_schema = $1
					AND tc.table_name = $2
					AND tc.constraint_type = 'UNIQUE'
					AND ccu.column_name = c.column_name
					AND (
						SELECT count(*) FROM information_schema.constraint_column_usage x
						WHERE x.constraint_name = tc.constraint_name
							AND x.table_schema = tc.table_schema
					) = 1
			) THEN true ELSE false END as is_unique,
			c.udt_name,
			c.character_maximum_length
		FROM information_schema.columns c
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable string
		var defaultVal *string
		var dataType string
		var udtName string
		var charMaxLength *int

		if err := rows.Scan(&col.Name, &dataType, &nullable, &defaultVal, &col.Unique, &udtName, &charMaxLength); err != nil {
			return nil, err
		}

		col.NotNull = nullable == "NO"
		col.Type = schema.Primitive(normalizePostgresType(dataType, udtName, charMaxLength))

		if defaultVal != nil {
			if strings.HasPrefix(*defaultVal, "nextval(") {
				col.Increment = true
			} else if def := unquoteDefault(*defaultVal); !strings.EqualFold(def, "null") {
				col.Default = &def
			}
		}

		if dataType == "USER-DEFINED" {
			e.rememberUDT(udtName)
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (e *PostgresExtractor) rememberUDT(name string) {
	for _, seen := range e.udts {
		if seen == name {
			return
		}
	}
	e.udts = append(e.udts, name)
}

// extractEnums loads the labels of every enum among typeNames. Types that
// are not enums (domains, composites) are left out and fail coercion later.
func (e *PostgresExtractor) extractEnums(ctx context.Context, typeNames []string) ([]schema.Enum, error) {
	if len(typeNames) == 0 {
		return nil, nil
	}

	query := `
		SELECT t.typname, e.enumlabel
		FROM pg_type t
		JOIN pg_enum e ON t.oid = e.enumtypid
		JOIN pg_namespace n ON t.typnamespace = n.oid
		WHERE n.nspname = $1 AND t.typname = ANY($2)
		ORDER BY t.typname, e.enumsortorder
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, typeNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := make(map[string][]schema.EnumItem)
	for rows.Next() {
		var typName, enumLabel string
		if err := rows.Scan(&typName, &enumLabel); err != nil {
			return nil, err
		}
		labels[typName] = append(labels[typName], schema.EnumItem{Name: enumLabel})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var enums []schema.Enum
	for _, name := range typeNames {
		if items, ok := labels[name]; ok {
			enums = append(enums, schema.Enum{Name: name, Items: items})
		}
	}
	return enums, nil
}

func (e *PostgresExtractor) extractPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = $1
			AND table_name = $2
			AND constraint_name IN (
				SELECT constraint_name
				FROM information_schema.table_constraints
				WHERE table_schema = $1
					AND table_name = $2
					AND constraint_type = 'PRIMARY KEY'
			)
		ORDER BY ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
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

// postgresAction maps pg_constraint action codes to SQL
var postgresAction = map[string]string{
	"a": "NO ACTION",
	"r": "RESTRICT",
	"c": "CASCADE",
	"n": "SET NULL",
	"d": "SET DEFAULT",
}

// extractReferences reads foreign keys from pg_constraint so composite keys
// keep their column pairing
func (e *PostgresExtractor) extractReferences(ctx context.Context, tableName string) ([]schema.Reference, error) {
	query := `
		SELECT
			con.conname,
			array_agg(src.attname::text ORDER BY k.ord) AS source_columns,
			ref.relname AS target_table,
			array_agg(dst.attname::text ORDER BY k.ord) AS target_columns,
			con.confupdtype::text,
			con.confdeltype::text
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = rel.relnamespace
		JOIN pg_class ref ON ref.oid = con.confrelid
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(src_num, dst_num, ord)
		JOIN pg_attribute src ON src.attrelid = con.conrelid AND src.attnum = k.src_num
		JOIN pg_attribute dst ON dst.attrelid = con.confrelid AND dst.attnum = k.dst_num
		WHERE con.contype = 'f'
			AND n.nspname = $1
			AND rel.relname = $2
		GROUP BY con.conname, ref.relname, con.confupdtype, con.confdeltype
		ORDER BY con.conname
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []schema.Reference
	for rows.Next() {
		var ref schema.Reference
		var onUpdate, onDelete string
		if err := rows.Scan(&ref.Name, &ref.SourceColumns, &ref.TargetTable, &ref.TargetColumns, &onUpdate, &onDelete); err != nil {
			return nil, err
		}
		ref.OnUpdate = postgresAction[onUpdate]
		ref.OnDelete = postgresAction[onDelete]
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

// extractIndexes reads plain indexes. Indexes backing a primary key or a
// constraint are covered by the column and table definitions.
func (e *PostgresExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			am.amname AS index_type,
			array_agg(a.attname::text ORDER BY array_position(ix.indkey, a.attnum)) AS column_names
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_am am ON am.oid = i.relam
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind = 'r'
			AND n.nspname = $1
			AND t.relname = $2
			AND NOT ix.indisprimary
			AND NOT EXISTS (SELECT 1 FROM pg_constraint c WHERE c.conindid = ix.indexrelid)
		GROUP BY i.relname, ix.indisunique, am.amname
		ORDER BY i.relname
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		if err := rows.Scan(&idx.Name, &idx.Unique, &idx.Type, &idx.Columns); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}
