package ddl

import (
	"fmt"
	"strings"

	"github.com/tordrt/dbmlsqlite/internal/schema"
)

// EmitTable renders a CREATE TABLE statement of the form
//
//	CREATE TABLE [IF NOT EXISTS] name (
//	  col1 TYPE ...,
//	  PRIMARY KEY (a, b),
//	  FOREIGN KEY(x) REFERENCES other(y)
//	);
//
// Columns come first, then a composite primary key if one was declared,
// then references, each in declaration order.
func EmitTable(t schema.Table, opts Options) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("%w: table with empty name", ErrMalformedConstruct)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%w: table %s has no columns", ErrMalformedConstruct, t.Name)
	}

	keyed := 0
	for _, col := range t.Columns {
		if col.PrimaryKey {
			keyed++
		}
	}
	if keyed > 1 || (keyed == 1 && len(t.PrimaryKey) > 0) {
		return "", fmt.Errorf("%w: table %s has more than one primary key", ErrMalformedConstruct, t.Name)
	}

	fragments := make([]string, 0, len(t.Columns)+len(t.References)+1)

	for _, col := range t.Columns {
		frag, err := EmitColumn(col, opts)
		if err != nil {
			return "", fmt.Errorf("table %s: %w", t.Name, err)
		}
		fragments = append(fragments, frag)
	}

	if len(t.PrimaryKey) > 0 {
		fragments = append(fragments, fmt.Sprintf("PRIMARY KEY (%s)", quoteIdents(t.PrimaryKey)))
	}

	for _, ref := range t.References {
		frag, err := EmitReference(ref)
		if err != nil {
			return "", fmt.Errorf("table %s: %w", t.Name, err)
		}
		fragments = append(fragments, frag)
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if opts.TableIfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(quoteIdent(t.Name))
	sb.WriteString(" (\n  ")
	sb.WriteString(strings.Join(fragments, ",\n  "))
	sb.WriteString("\n);")

	return sb.String(), nil
}
