package ddl

import (
	"fmt"
	"strings"

	"github.com/tordrt/dbmlsqlite/internal/schema"
)

// EmitColumn renders one column definition:
//
//	<name> <type-fragment> [PRIMARY KEY] [NOT NULL] [UNIQUE] [DEFAULT '<literal>']
//
// Enum-typed columns render per the emulation mode and already carry
// NOT NULL.
func EmitColumn(c schema.Column, opts Options) (string, error) {
	if strings.TrimSpace(c.Name) == "" {
		return "", fmt.Errorf("%w: column with empty name", ErrMalformedConstruct)
	}

	name := quoteIdent(c.Name)
	parts := []string{name}
	notNull := c.NotNull

	switch c.Type.Kind {
	case schema.TypePrimitive:
		class, err := Coerce(c.Type.Name)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", c.Name, err)
		}
		parts = append(parts, string(class))

	case schema.TypeEnum:
		if c.Type.Enum == nil {
			return "", fmt.Errorf("%w: column %s references a nil enum", ErrMalformedConstruct, c.Name)
		}
		parts = append(parts, enumTypeFragment(name, c.Type.Enum, opts.emulation()))
		notNull = false

	default:
		return "", fmt.Errorf("%w: column %s has a %s type, want primitive or enum", ErrMalformedConstruct, c.Name, c.Type.Kind)
	}

	if c.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	if notNull {
		parts = append(parts, "NOT NULL")
	}
	if c.Unique {
		parts = append(parts, "UNIQUE")
	}
	if c.Default != nil {
		parts = append(parts, "DEFAULT "+quoteLiteral(*c.Default))
	}

	return strings.Join(parts, " "), nil
}

func enumTypeFragment(column string, e *schema.Enum, mode Emulation) string {
	if mode == EmulationHalf {
		items := make([]string, len(e.Items))
		for i, item := range e.Items {
			items[i] = quoteLiteral(item.Name)
		}
		return fmt.Sprintf("TEXT CHECK( %s IN (%s) ) NOT NULL", column, strings.Join(items, ", "))
	}
	return fmt.Sprintf("TEXT NOT NULL REFERENCES %s(type)", quoteIdent(e.Name))
}
