package ddl

import (
	"fmt"
	"strings"

	"github.com/tordrt/dbmlsqlite/internal/schema"
)

// EmitIndex renders a CREATE INDEX statement for idx on table t. An index
// without a name is named by namer. Column order is preserved.
func EmitIndex(t schema.Table, idx schema.Index, namer Namer, opts Options) (string, error) {
	if len(idx.Columns) == 0 {
		return "", fmt.Errorf("%w: index on %s has no columns", ErrMalformedConstruct, t.Name)
	}

	name := strings.TrimSpace(idx.Name)
	if name == "" {
		if namer == nil {
			namer = opts.namer()
		}
		name = namer.NextName(t.Name, idx.Columns)
	}

	var sb strings.Builder
	sb.WriteString("CREATE ")
	if idx.Unique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	if opts.IndexIfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}

	columns := make([]string, len(idx.Columns))
	for i, col := range idx.Columns {
		columns[i] = indexColumn(col)
	}

	fmt.Fprintf(&sb, "%s ON %s (%s);", quoteIdent(name), quoteIdent(t.Name), strings.Join(columns, ", "))
	return sb.String(), nil
}

// indexColumn emits backtick expressions raw and quotes plain column names
func indexColumn(col string) string {
	if len(col) >= 2 && strings.HasPrefix(col, "`") && strings.HasSuffix(col, "`") {
		return col[1 : len(col)-1]
	}
	return quoteIdent(col)
}
