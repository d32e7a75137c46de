// Package schema holds the parsed, read-only schema model handed to the
// DDL compiler: tables, columns, enums, references and indexes.
package schema

// Schema represents one parsed schema source (a single .dbml file or one
// imported database)
type Schema struct {
	Name   string
	Tables []Table
	Enums  []Enum
}

// Table represents a database table
type Table struct {
	Name       string
	Columns    []Column
	References []Reference
	Indexes    []Index
	// PrimaryKey is set only for a composite key declared through an
	// index with the pk setting. Single-column keys live on the column.
	PrimaryKey []string
	Note       string
}

// Column represents a table column
type Column struct {
	Name       string
	Type       ColumnType
	PrimaryKey bool
	NotNull    bool
	Unique     bool
	Increment  bool
	Default    *string
	Note       string
}

// TypeKind discriminates the ColumnType variants
type TypeKind int

const (
	// TypeInvalid is the zero value and never valid input for the compiler
	TypeInvalid TypeKind = iota
	TypePrimitive
	TypeEnum
)

func (k TypeKind) String() string {
	switch k {
	case TypePrimitive:
		return "primitive"
	case TypeEnum:
		return "enum"
	default:
		return "invalid"
	}
}

// ColumnType is either a primitive type name or a reference to an Enum.
// Build it with Primitive or EnumRef.
type ColumnType struct {
	Kind TypeKind
	Name string
	Enum *Enum
}

// Primitive returns a ColumnType naming a primitive type such as "integer"
// or "varchar(255)"
func Primitive(name string) ColumnType {
	return ColumnType{Kind: TypePrimitive, Name: name}
}

// EnumRef returns a ColumnType referencing e
func EnumRef(e *Enum) ColumnType {
	ct := ColumnType{Kind: TypeEnum, Enum: e}
	if e != nil {
		ct.Name = e.Name
	}
	return ct
}

// Enum represents an enumeration. Item order is significant.
type Enum struct {
	Name  string
	Items []EnumItem
}

// EnumItem is a single enumeration value
type EnumItem struct {
	Name string
	Note string
}

// ItemNames returns the item names in declaration order
func (e *Enum) ItemNames() []string {
	names := make([]string, len(e.Items))
	for i, item := range e.Items {
		names[i] = item.Name
	}
	return names
}

// Reference represents a foreign key from SourceColumns of the owning
// table to TargetColumns of TargetTable
type Reference struct {
	Name          string
	SourceColumns []string
	TargetTable   string
	TargetColumns []string
	OnUpdate      string
	OnDelete      string
}

// Index represents a table index. Columns may hold backtick expressions
// verbatim.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Type    string
	Note    string
}

// Table returns the table with the given name, or nil
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Enum returns the enum with the given name, or nil
func (s *Schema) Enum(name string) *Enum {
	for i := range s.Enums {
		if s.Enums[i].Name == name {
			return &s.Enums[i]
		}
	}
	return nil
}

// TableNames returns table names in declaration order
func (s *Schema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// Column returns the column with the given name, or nil
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}
