package ddl

import (
	"fmt"
	"strings"

	"github.com/tordrt/dbmlsqlite/internal/schema"
)

// EmitEnum renders the satellite lookup table for e followed by one seeded
// row per item. seq is the 1-based item position. Only meaningful in full
// emulation; Compile never calls it in half mode.
func EmitEnum(e schema.Enum, opts Options) (string, error) {
	if strings.TrimSpace(e.Name) == "" {
		return "", fmt.Errorf("%w: enum with empty name", ErrMalformedConstruct)
	}

	name := quoteIdent(e.Name)

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if opts.TableIfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(name)
	sb.WriteString(" (\n")
	sb.WriteString("  id INTEGER PRIMARY KEY,\n")
	sb.WriteString("  type TEXT NOT NULL UNIQUE,\n")
	sb.WriteString("  seq INTEGER NOT NULL UNIQUE\n")
	sb.WriteString(");")

	// Re-running seeds against an existing table would violate UNIQUE
	insert := "INSERT INTO "
	if opts.TableIfNotExists {
		insert = "INSERT OR IGNORE INTO "
	}

	for i, item := range e.Items {
		fmt.Fprintf(&sb, "\n%s%s(type, seq) VALUES (%s, %d);", insert, name, quoteLiteral(item.Name), i+1)
	}

	return sb.String(), nil
}
