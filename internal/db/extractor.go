package db

import (
	"context"
	"regexp"
	"strings"

	"github.com/tordrt/dbmlsqlite/internal/schema"
)

// SchemaExtractor reads a live database catalog into the schema model.
// An empty tables list extracts every base table.
type SchemaExtractor interface {
	ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error)
}

var (
	_ SchemaExtractor = (*PostgresExtractor)(nil)
	_ SchemaExtractor = (*MySQLExtractor)(nil)
	_ SchemaExtractor = (*SQLiteExtractor)(nil)
)

var typeParams = regexp.MustCompile(`\s*\(.*\)`)

// normalizeTypeName lower-cases a catalog type name and drops its
// parameters, except the length of varchar which SQLite coercion accepts
func normalizeTypeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(name, "varchar(") {
		return strings.TrimSuffix(strings.SplitN(name, ")", 2)[0], " ") + ")"
	}
	name = typeParams.ReplaceAllString(name, "")
	name = strings.TrimSuffix(name, " zerofill")
	name = strings.TrimSuffix(name, " unsigned")
	return strings.TrimSpace(name)
}

// applyPrimaryKey marks a single key column on the column itself and keeps
// composite keys on the table
func applyPrimaryKey(table *schema.Table, pk []string) {
	switch len(pk) {
	case 0:
	case 1:
		if col := table.Column(pk[0]); col != nil {
			col.PrimaryKey = true
			col.Unique = false
			return
		}
		table.PrimaryKey = pk
	default:
		table.PrimaryKey = pk
	}
}

// resolveEnumColumns points primitive columns whose type names one of the
// schema's enums at that enum. It must run after s.Enums is final.
func resolveEnumColumns(s *schema.Schema) {
	if len(s.Enums) == 0 {
		return
	}
	for ti := range s.Tables {
		for ci := range s.Tables[ti].Columns {
			col := &s.Tables[ti].Columns[ci]
			if col.Type.Kind != schema.TypePrimitive {
				continue
			}
			if e := s.Enum(col.Type.Name); e != nil {
				col.Type = schema.EnumRef(e)
			}
		}
	}
}

// unquoteDefault strips a trailing ::cast and surrounding single quotes
// from a catalog default expression
func unquoteDefault(def string) string {
	def = strings.TrimSpace(def)
	if i := strings.LastIndex(def, "::"); i > 0 && !strings.Contains(def[i:], "'") && !strings.Contains(def[i:], ")") {
		def = def[:i]
	}
	if len(def) >= 2 && def[0] == '\'' && def[len(def)-1] == '\'' {
		def = strings.ReplaceAll(def[1:len(def)-1], "''", "'")
	}
	return def
}
