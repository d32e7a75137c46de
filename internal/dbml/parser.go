// Package dbml parses DBML source into the schema model compiled by the
// ddl package.
//
// The parser covers the constructs that map onto SQLite DDL: tables with
// column settings and indexes, enums, and references in inline, short and
// block form. Project, TableGroup, TablePartial, Records and sticky Note
// blocks are accepted and skipped.
package dbml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tordrt/dbmlsqlite/internal/schema"
)

// ErrSyntax is returned for malformed DBML. The message carries
// name:line:col of the offending token.
var ErrSyntax = errors.New("dbml syntax error")

// relationship operators
const (
	manyToOne  = ">"
	oneToMany  = "<"
	oneToOne   = "-"
	manyToMany = "<>"
)

type endpoint struct {
	table   string
	columns []string
	tok     token
}

type pendingRef struct {
	name     string
	left     endpoint
	op       string
	right    endpoint
	onUpdate string
	onDelete string
}

type setting struct {
	key   string
	value []token
	tok   token
}

type parser struct {
	name string
	toks []token
	pos  int

	tables     []schema.Table
	enums      []schema.Enum
	aliases    map[string]string
	inlineRefs []pendingRef
	refs       []pendingRef
}

// Parse parses DBML src. name identifies the source in error messages and
// becomes the Schema name.
func Parse(name string, src []byte) (*schema.Schema, error) {
	toks, err := tokenize(name, src)
	if err != nil {
		return nil, err
	}

	p := &parser{name: name, toks: toks, aliases: make(map[string]string)}
	if err := p.parseFile(); err != nil {
		return nil, err
	}
	return p.build()
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+offset]
}

func (p *parser) advance() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return fmt.Errorf("%w: %s:%d:%d: %s", ErrSyntax, p.name, tok.line, tok.col, fmt.Sprintf(format, args...))
}

func (p *parser) expect(punct string) (token, error) {
	tok := p.advance()
	if !tok.is(punct) {
		return tok, p.errorf(tok, "expected %q, found %s", punct, tok)
	}
	return tok, nil
}

func (p *parser) expectName(what string) (token, error) {
	tok := p.advance()
	if !tok.isName() {
		return tok, p.errorf(tok, "expected %s name, found %s", what, tok)
	}
	return tok, nil
}

func (p *parser) parseFile() error {
	for {
		tok := p.peek()
		switch {
		case tok.kind == tokEOF:
			return nil
		case tok.isWord("table"):
			if err := p.parseTable(); err != nil {
				return err
			}
		case tok.isWord("enum"):
			if err := p.parseEnum(); err != nil {
				return err
			}
		case tok.isWord("ref"):
			if err := p.parseRef(); err != nil {
				return err
			}
		case tok.isWord("project"), tok.isWord("tablegroup"), tok.isWord("tablepartial"),
			tok.isWord("records"), tok.isWord("note"):
			if err := p.skipElement(); err != nil {
				return err
			}
		default:
			return p.errorf(tok, "unexpected %s at top level", tok)
		}
	}
}

// skipElement skips a keyword and everything up to and including its
// brace-delimited body. A "Note: '...'" short form is skipped too.
func (p *parser) skipElement() error {
	start := p.advance()
	if p.peek().is(":") {
		p.advance()
		p.advance()
		return nil
	}
	for !p.peek().is("{") {
		if p.peek().kind == tokEOF {
			return p.errorf(start, "missing body for %s", start.text)
		}
		p.advance()
	}
	return p.skipBlock()
}

// skipBlock skips a balanced { ... } starting at the current token
func (p *parser) skipBlock() error {
	open, err := p.expect("{")
	if err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		tok := p.advance()
		switch {
		case tok.kind == tokEOF:
			return p.errorf(open, "unterminated block")
		case tok.is("{"):
			depth++
		case tok.is("}"):
			depth--
		}
	}
	return nil
}

// parseQualifiedName reads name ('.' name)* and returns the parts
func (p *parser) parseQualifiedName(what string) ([]string, token, error) {
	first, err := p.expectName(what)
	if err != nil {
		return nil, first, err
	}
	parts := []string{first.text}
	for p.peek().is(".") && p.peekAt(1).isName() {
		p.advance()
		parts = append(parts, p.advance().text)
	}
	return parts, first, nil
}

func (p *parser) parseTable() error {
	p.advance()

	parts, nameTok, err := p.parseQualifiedName("table")
	if err != nil {
		return err
	}
	table := schema.Table{Name: parts[len(parts)-1]}

	if p.peek().isWord("as") {
		p.advance()
		alias, err := p.expectName("alias")
		if err != nil {
			return err
		}
		p.aliases[alias.text] = table.Name
	}

	if p.peek().is("[") {
		if _, err := p.parseSettings(); err != nil {
			return err
		}
	}

	if _, err := p.expect("{"); err != nil {
		return err
	}

	for {
		tok := p.peek()
		switch {
		case tok.is("}"):
			p.advance()
			if p.findTable(table.Name) != nil {
				return p.errorf(nameTok, "table %s is already defined", table.Name)
			}
			p.tables = append(p.tables, table)
			return nil

		case tok.kind == tokEOF:
			return p.errorf(nameTok, "unterminated table %s", table.Name)

		case tok.isWord("note") && (p.peekAt(1).is(":") || p.peekAt(1).is("{")):
			note, err := p.parseNote()
			if err != nil {
				return err
			}
			table.Note = note

		case tok.isWord("indexes") && p.peekAt(1).is("{"):
			if err := p.parseIndexes(&table); err != nil {
				return err
			}

		case tok.is("~"):
			// partial injection
			p.advance()
			if _, err := p.expectName("partial"); err != nil {
				return err
			}

		default:
			col, err := p.parseColumn(table.Name)
			if err != nil {
				return err
			}
			table.Columns = append(table.Columns, col)
		}
	}
}

// parseNote reads "Note: '...'" or "Note { '...' }"
func (p *parser) parseNote() (string, error) {
	p.advance()
	if p.peek().is(":") {
		p.advance()
		tok := p.advance()
		if tok.kind != tokString {
			return "", p.errorf(tok, "expected note string, found %s", tok)
		}
		return tok.text, nil
	}

	if _, err := p.expect("{"); err != nil {
		return "", err
	}
	var note string
	if p.peek().kind == tokString {
		note = p.advance().text
	}
	if _, err := p.expect("}"); err != nil {
		return "", err
	}
	return note, nil
}

func (p *parser) parseColumn(tableName string) (schema.Column, error) {
	nameTok, err := p.expectName("column")
	if err != nil {
		return schema.Column{}, err
	}
	col := schema.Column{Name: nameTok.text}

	typeName, err := p.parseTypeName()
	if err != nil {
		return col, err
	}
	col.Type = schema.Primitive(typeName)

	if !p.peek().is("[") {
		return col, nil
	}

	settings, err := p.parseSettings()
	if err != nil {
		return col, err
	}

	for _, s := range settings {
		switch s.key {
		case "pk", "primary key":
			col.PrimaryKey = true
		case "not null":
			col.NotNull = true
		case "null":
			col.NotNull = false
		case "unique":
			col.Unique = true
		case "increment":
			col.Increment = true
		case "note":
			col.Note = renderValue(s.value)
		case "default":
			if len(s.value) == 1 && s.value[0].isWord("null") {
				col.Default = nil
				continue
			}
			if len(s.value) == 0 {
				return col, p.errorf(s.tok, "default of column %s has no value", col.Name)
			}
			v := renderValue(s.value)
			col.Default = &v
		case "ref":
			ref, err := p.parseInlineRef(s, tableName, col.Name)
			if err != nil {
				return col, err
			}
			p.inlineRefs = append(p.inlineRefs, ref)
		}
	}

	return col, nil
}

// parseTypeName reads a column type: a name, optionally schema-qualified,
// with optional (args) and [] suffixes
func (p *parser) parseTypeName() (string, error) {
	parts, _, err := p.parseQualifiedName("type")
	if err != nil {
		return "", err
	}
	name := strings.Join(parts, ".")

	if p.peek().is("(") {
		open := p.advance()
		var args []string
		for !p.peek().is(")") {
			tok := p.advance()
			if tok.kind == tokEOF {
				return "", p.errorf(open, "unterminated type arguments")
			}
			args = append(args, tok.text)
		}
		p.advance()
		name += "(" + strings.Join(args, "") + ")"
	}

	if p.peek().is("[") && p.peekAt(1).is("]") {
		p.advance()
		p.advance()
		name += "[]"
	}

	return name, nil
}

// parseSettings reads [a, b: value, ...]. Keys are lower-cased with their
// words joined by one space.
func (p *parser) parseSettings() ([]setting, error) {
	open, err := p.expect("[")
	if err != nil {
		return nil, err
	}

	var settings []setting
	var current []token

	flush := func() {
		if len(current) == 0 {
			return
		}
		s := setting{tok: current[0]}
		keyToks := current
		for i, tok := range current {
			if tok.is(":") {
				keyToks = current[:i]
				s.value = current[i+1:]
				break
			}
		}
		words := make([]string, len(keyToks))
		for i, tok := range keyToks {
			words[i] = strings.ToLower(tok.text)
		}
		s.key = strings.Join(words, " ")
		settings = append(settings, s)
		current = nil
	}

	depth := 0
	for {
		tok := p.advance()
		switch {
		case tok.kind == tokEOF:
			return nil, p.errorf(open, "unterminated settings list")
		case tok.is("]") && depth == 0:
			flush()
			return settings, nil
		case tok.is(",") && depth == 0:
			flush()
		default:
			if tok.is("(") {
				depth++
			} else if tok.is(")") {
				depth--
			}
			current = append(current, tok)
		}
	}
}

// renderValue turns a setting value back into text. Strings and
// expressions lose their delimiters; numbers like -1.5 are re-joined.
func renderValue(toks []token) string {
	var sb strings.Builder
	for _, tok := range toks {
		sb.WriteString(tok.text)
	}
	return sb.String()
}

func (p *parser) parseIndexes(table *schema.Table) error {
	p.advance()
	open, err := p.expect("{")
	if err != nil {
		return err
	}

	for {
		tok := p.peek()
		if tok.is("}") {
			p.advance()
			return nil
		}
		if tok.kind == tokEOF {
			return p.errorf(open, "unterminated indexes block in table %s", table.Name)
		}

		var columns []string
		switch {
		case tok.is("("):
			p.advance()
			for {
				item := p.advance()
				switch {
				case item.kind == tokExpr:
					columns = append(columns, "`"+item.text+"`")
				case item.isName():
					columns = append(columns, item.text)
				default:
					return p.errorf(item, "expected index column, found %s", item)
				}
				sep := p.advance()
				if sep.is(")") {
					break
				}
				if !sep.is(",") {
					return p.errorf(sep, "expected ',' or ')' in index column list, found %s", sep)
				}
			}
		case tok.kind == tokExpr:
			p.advance()
			columns = []string{"`" + tok.text + "`"}
		case tok.isName():
			p.advance()
			columns = []string{tok.text}
		default:
			return p.errorf(tok, "unexpected %s in indexes block", tok)
		}

		idx := schema.Index{Columns: columns}
		primary := false

		if p.peek().is("[") {
			settings, err := p.parseSettings()
			if err != nil {
				return err
			}
			for _, s := range settings {
				switch s.key {
				case "unique":
					idx.Unique = true
				case "pk", "primary key":
					primary = true
				case "name":
					idx.Name = renderValue(s.value)
				case "type":
					idx.Type = renderValue(s.value)
				case "note":
					idx.Note = renderValue(s.value)
				}
			}
		}

		if primary {
			if hasPrimaryKey(table) {
				return p.errorf(tok, "table %s declares more than one primary key", table.Name)
			}
			if len(columns) == 1 {
				if col := table.Column(columns[0]); col != nil {
					col.PrimaryKey = true
					continue
				}
			}
			table.PrimaryKey = columns
			continue
		}

		table.Indexes = append(table.Indexes, idx)
	}
}

func hasPrimaryKey(t *schema.Table) bool {
	if len(t.PrimaryKey) > 0 {
		return true
	}
	for _, col := range t.Columns {
		if col.PrimaryKey {
			return true
		}
	}
	return false
}

func (p *parser) parseEnum() error {
	p.advance()

	parts, nameTok, err := p.parseQualifiedName("enum")
	if err != nil {
		return err
	}
	enum := schema.Enum{Name: parts[len(parts)-1]}

	if _, err := p.expect("{"); err != nil {
		return err
	}

	for {
		tok := p.advance()
		switch {
		case tok.is("}"):
			if p.findEnum(enum.Name) != nil {
				return p.errorf(nameTok, "enum %s is already defined", enum.Name)
			}
			p.enums = append(p.enums, enum)
			return nil
		case tok.kind == tokEOF:
			return p.errorf(nameTok, "unterminated enum %s", enum.Name)
		case tok.isName() || tok.kind == tokString:
			item := schema.EnumItem{Name: tok.text}
			if p.peek().is("[") {
				settings, err := p.parseSettings()
				if err != nil {
					return err
				}
				for _, s := range settings {
					if s.key == "note" {
						item.Note = renderValue(s.value)
					}
				}
			}
			enum.Items = append(enum.Items, item)
		default:
			return p.errorf(tok, "unexpected %s in enum %s", tok, enum.Name)
		}
	}
}

// parseRef handles "Ref name?: a.b > c.d [...]" and "Ref name? { ... }"
func (p *parser) parseRef() error {
	p.advance()

	var name string
	if p.peek().isName() && (p.peekAt(1).is(":") || p.peekAt(1).is("{")) {
		name = p.advance().text
	}

	tok := p.advance()
	switch {
	case tok.is(":"):
		ref, err := p.parseRefBody(name)
		if err != nil {
			return err
		}
		p.refs = append(p.refs, ref)
		return nil

	case tok.is("{"):
		for !p.peek().is("}") {
			if p.peek().kind == tokEOF {
				return p.errorf(tok, "unterminated Ref block")
			}
			ref, err := p.parseRefBody(name)
			if err != nil {
				return err
			}
			p.refs = append(p.refs, ref)
		}
		p.advance()
		return nil

	default:
		return p.errorf(tok, "expected ':' or '{' after Ref, found %s", tok)
	}
}

func (p *parser) parseRefBody(name string) (pendingRef, error) {
	ref := pendingRef{name: name}

	left, err := p.parseEndpoint()
	if err != nil {
		return ref, err
	}
	ref.left = left

	op, err := p.parseRelOp()
	if err != nil {
		return ref, err
	}
	ref.op = op

	right, err := p.parseEndpoint()
	if err != nil {
		return ref, err
	}
	ref.right = right

	if p.peek().is("[") {
		settings, err := p.parseSettings()
		if err != nil {
			return ref, err
		}
		applyRefActions(&ref, settings)
	}

	return ref, nil
}

func applyRefActions(ref *pendingRef, settings []setting) {
	for _, s := range settings {
		words := make([]string, len(s.value))
		for i, tok := range s.value {
			words[i] = tok.text
		}
		switch s.key {
		case "update":
			ref.onUpdate = strings.Join(words, " ")
		case "delete":
			ref.onDelete = strings.Join(words, " ")
		}
	}
}

func (p *parser) parseRelOp() (string, error) {
	tok := p.advance()
	switch {
	case tok.is(manyToOne), tok.is(oneToMany), tok.is(oneToOne), tok.is(manyToMany):
		return tok.text, nil
	default:
		return "", p.errorf(tok, "expected relationship operator (<, >, -, <>), found %s", tok)
	}
}

// parseEndpoint reads table.column, schema.table.column, table.(a, b) or
// schema.table.(a, b)
func (p *parser) parseEndpoint() (endpoint, error) {
	first, err := p.expectName("table")
	if err != nil {
		return endpoint{}, err
	}
	ep := endpoint{tok: first}
	parts := []string{first.text}

	for p.peek().is(".") {
		p.advance()
		if p.peek().is("(") {
			p.advance()
			for {
				col, err := p.expectName("column")
				if err != nil {
					return ep, err
				}
				ep.columns = append(ep.columns, col.text)
				sep := p.advance()
				if sep.is(")") {
					break
				}
				if !sep.is(",") {
					return ep, p.errorf(sep, "expected ',' or ')' in column list, found %s", sep)
				}
			}
			ep.table = parts[len(parts)-1]
			return ep, nil
		}
		part, err := p.expectName("column")
		if err != nil {
			return ep, err
		}
		parts = append(parts, part.text)
	}

	if len(parts) < 2 {
		return ep, p.errorf(first, "reference endpoint %s needs table.column", first.text)
	}
	ep.table = parts[len(parts)-2]
	ep.columns = []string{parts[len(parts)-1]}
	return ep, nil
}

// parseInlineRef turns a column's "ref: > table.column" setting into a
// pending reference whose left side is that column
func (p *parser) parseInlineRef(s setting, tableName, columnName string) (pendingRef, error) {
	sub := &parser{name: p.name, toks: append(append([]token{}, s.value...), token{kind: tokEOF, line: s.tok.line, col: s.tok.col})}

	op, err := sub.parseRelOp()
	if err != nil {
		return pendingRef{}, err
	}
	right, err := sub.parseEndpoint()
	if err != nil {
		return pendingRef{}, err
	}
	if tok := sub.peek(); tok.kind != tokEOF {
		return pendingRef{}, p.errorf(tok, "unexpected %s after inline ref", tok)
	}

	return pendingRef{
		left:  endpoint{table: tableName, columns: []string{columnName}, tok: s.tok},
		op:    op,
		right: right,
	}, nil
}

func (p *parser) findTable(name string) *schema.Table {
	for i := range p.tables {
		if p.tables[i].Name == name {
			return &p.tables[i]
		}
	}
	return nil
}

func (p *parser) findEnum(name string) *schema.Enum {
	for i := range p.enums {
		if p.enums[i].Name == name {
			return &p.enums[i]
		}
	}
	return nil
}

func (p *parser) resolveTable(name string) string {
	if real, ok := p.aliases[name]; ok {
		return real
	}
	return name
}

// build resolves enum-typed columns and attaches references to the table
// that owns the foreign key
func (p *parser) build() (*schema.Schema, error) {
	s := &schema.Schema{Name: p.name, Tables: p.tables, Enums: p.enums}

	for ti := range s.Tables {
		for ci := range s.Tables[ti].Columns {
			col := &s.Tables[ti].Columns[ci]
			name := col.Type.Name
			if i := strings.LastIndex(name, "."); i >= 0 {
				name = name[i+1:]
			}
			if e := s.Enum(name); e != nil {
				col.Type = schema.EnumRef(e)
			}
		}
	}

	for _, ref := range append(p.inlineRefs, p.refs...) {
		if err := p.attach(s, ref); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (p *parser) attach(s *schema.Schema, ref pendingRef) error {
	from, to := ref.left, ref.right
	switch ref.op {
	case manyToMany:
		// no foreign key can express it without a join table
		return nil
	case oneToMany:
		from, to = ref.right, ref.left
	}

	owner := s.Table(p.resolveTable(from.table))
	if owner == nil {
		return p.errorf(from.tok, "reference from undefined table %s", from.table)
	}

	owner.References = append(owner.References, schema.Reference{
		Name:          ref.name,
		SourceColumns: from.columns,
		TargetTable:   p.resolveTable(to.table),
		TargetColumns: to.columns,
		OnUpdate:      ref.onUpdate,
		OnDelete:      ref.onDelete,
	})
	return nil
}
