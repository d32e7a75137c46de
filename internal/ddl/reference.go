package ddl

import (
	"fmt"
	"strings"

	"github.com/tordrt/dbmlsqlite/internal/schema"
)

// EmitReference renders a table-level foreign key constraint. Actions are
// appended only when present and are upper-cased.
func EmitReference(r schema.Reference) (string, error) {
	if len(r.SourceColumns) == 0 || len(r.TargetColumns) == 0 {
		return "", fmt.Errorf("%w: reference to %s has no columns", ErrMalformedConstruct, r.TargetTable)
	}
	if len(r.SourceColumns) != len(r.TargetColumns) {
		return "", fmt.Errorf("%w: reference to %s maps %d columns onto %d",
			ErrMalformedConstruct, r.TargetTable, len(r.SourceColumns), len(r.TargetColumns))
	}
	if strings.TrimSpace(r.TargetTable) == "" {
		return "", fmt.Errorf("%w: reference with empty target table", ErrMalformedConstruct)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "FOREIGN KEY(%s) REFERENCES %s(%s)",
		quoteIdents(r.SourceColumns), quoteIdent(r.TargetTable), quoteIdents(r.TargetColumns))

	if action := strings.TrimSpace(r.OnUpdate); action != "" {
		sb.WriteString(" ON UPDATE ")
		sb.WriteString(strings.ToUpper(action))
	}
	if action := strings.TrimSpace(r.OnDelete); action != "" {
		sb.WriteString(" ON DELETE ")
		sb.WriteString(strings.ToUpper(action))
	}

	return sb.String(), nil
}
