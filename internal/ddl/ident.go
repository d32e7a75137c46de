package ddl

import (
	"regexp"
	"strings"
)

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func isPlainIdent(s string) bool {
	return plainIdent.MatchString(s)
}

// quoteIdent leaves plain identifiers untouched and double-quotes
// everything else
func quoteIdent(id string) string {
	if isPlainIdent(id) {
		return id
	}
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func quoteIdents(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = quoteIdent(id)
	}
	return strings.Join(quoted, ", ")
}

// quoteLiteral renders s as a single-quoted SQL string literal
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
