package ddl

import (
	"fmt"
	"regexp"
	"strings"
)

// StorageClass is one of SQLite's five native storage classes
type StorageClass string

const (
	Null    StorageClass = "NULL"
	Integer StorageClass = "INTEGER"
	Real    StorageClass = "REAL"
	Text    StorageClass = "TEXT"
	Blob    StorageClass = "BLOB"
)

var storageClasses = map[StorageClass][]string{
	Null: {"NULL"},
	Integer: {
		"INT", "INTEGER", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT",
		"UNSIGNED BIG INT", "INT2", "INT4", "INT8", "BOOL", "BOOLEAN",
		"SERIAL", "SMALLSERIAL", "BIGSERIAL",
	},
	Real: {
		"REAL", "DOUBLE", "DOUBLE PRECISION", "FLOAT", "FLOAT4", "FLOAT8",
		"NUMERIC", "DECIMAL", "MONEY",
	},
	Text: {
		"TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT", "CHAR", "CHARACTER",
		"VARCHAR", "CHARACTER VARYING", "VARYING CHARACTER", "NCHAR",
		"NATIVE CHARACTER", "NVARCHAR", "CLOB", "STRING", "DATE", "DATETIME",
		"TIME", "TIMETZ", "TIMESTAMP", "TIMESTAMPTZ", "INTERVAL", "UUID",
		"JSON", "JSONB", "XML",
	},
	Blob: {
		"BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BINARY", "VARBINARY",
		"BYTEA", "BYTES",
	},
}

// typeLookup is the flattened form of storageClasses
var typeLookup = func() map[string]StorageClass {
	m := make(map[string]StorageClass)
	for class, aliases := range storageClasses {
		for _, alias := range aliases {
			m[alias] = class
		}
	}
	return m
}()

// The declared length is informational; SQLite does not enforce it.
var varcharPattern = regexp.MustCompile(`^VARCHAR\([1-9][0-9]*\)$`)

// Coerce maps a source type name to its SQLite storage class. The lookup
// is case-insensitive. Unknown names are an error, never a default.
func Coerce(typeName string) (StorageClass, error) {
	name := strings.ToUpper(strings.TrimSpace(typeName))

	if class, ok := typeLookup[name]; ok {
		return class, nil
	}
	if varcharPattern.MatchString(name) {
		return Text, nil
	}

	return "", fmt.Errorf("%w: cannot coerce %q to a SQLite storage class", ErrUnsupportedType, typeName)
}
