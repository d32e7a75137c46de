package dbml

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF    tokenKind = iota
	tokIdent            // bare word or number
	tokString           // '...' or '''...'''
	tokQuoted           // "..."
	tokExpr             // `...`
	tokPunct            // single character, or "<>"
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokQuoted:
		return "quoted identifier"
	case tokExpr:
		return "expression"
	default:
		return "punctuation"
	}
}

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return t.kind.String()
	}
	return fmt.Sprintf("%s %q", t.kind, t.text)
}

// is reports whether t is the punctuation p
func (t token) is(p string) bool {
	return t.kind == tokPunct && t.text == p
}

// isWord reports whether t is the bare word w, ignoring case
func (t token) isWord(w string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, w)
}

// isName reports whether t can name a table, column, enum or item
func (t token) isName() bool {
	return t.kind == tokIdent || t.kind == tokQuoted
}

type lexer struct {
	name string
	src  []rune
	pos  int
	line int
	col  int
}

func tokenize(name string, src []byte) ([]token, error) {
	l := &lexer{name: name, src: []rune(string(src)), line: 1, col: 1}

	var toks []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (l *lexer) peek(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) errorf(line, col int, format string, args ...any) error {
	return fmt.Errorf("%w: %s:%d:%d: %s", ErrSyntax, l.name, line, col, fmt.Sprintf(format, args...))
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.src) {
		r := l.peek(0)
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case r == '/' && l.peek(1) == '/':
			for l.pos < len(l.src) && l.peek(0) != '\n' {
				l.advance()
			}
		case r == '/' && l.peek(1) == '*':
			line, col := l.line, l.col
			l.advance()
			l.advance()
			for {
				if l.pos >= len(l.src) {
					return l.errorf(line, col, "unterminated block comment")
				}
				if l.peek(0) == '*' && l.peek(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) next() (token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token{}, err
	}

	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: line, col: col}, nil
	}

	r := l.peek(0)
	switch {
	case isWordRune(r):
		var sb strings.Builder
		for l.pos < len(l.src) && isWordRune(l.peek(0)) {
			sb.WriteRune(l.advance())
		}
		return token{kind: tokIdent, text: sb.String(), line: line, col: col}, nil

	case r == '\'' && l.peek(1) == '\'' && l.peek(2) == '\'':
		text, err := l.readTripleString(line, col)
		return token{kind: tokString, text: text, line: line, col: col}, err

	case r == '\'':
		text, err := l.readDelimited('\'', line, col)
		return token{kind: tokString, text: text, line: line, col: col}, err

	case r == '"':
		text, err := l.readDelimited('"', line, col)
		return token{kind: tokQuoted, text: text, line: line, col: col}, err

	case r == '`':
		text, err := l.readDelimited('`', line, col)
		return token{kind: tokExpr, text: text, line: line, col: col}, err

	case r == '<' && l.peek(1) == '>':
		l.advance()
		l.advance()
		return token{kind: tokPunct, text: "<>", line: line, col: col}, nil

	default:
		l.advance()
		return token{kind: tokPunct, text: string(r), line: line, col: col}, nil
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// readDelimited reads a single-line-or-more literal closed by quote.
// A backslash escapes the next character.
func (l *lexer) readDelimited(quote rune, line, col int) (string, error) {
	l.advance()

	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", l.errorf(line, col, "unterminated %c literal", quote)
		}
		r := l.advance()
		switch {
		case r == '\\' && l.pos < len(l.src):
			sb.WriteRune(l.advance())
		case r == quote:
			return sb.String(), nil
		default:
			sb.WriteRune(r)
		}
	}
}

func (l *lexer) readTripleString(line, col int) (string, error) {
	l.advance()
	l.advance()
	l.advance()

	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", l.errorf(line, col, "unterminated ''' literal")
		}
		if l.peek(0) == '\'' && l.peek(1) == '\'' && l.peek(2) == '\'' {
			l.advance()
			l.advance()
			l.advance()
			return sb.String(), nil
		}
		r := l.advance()
		if r == '\\' && l.pos < len(l.src) {
			r = l.advance()
		}
		sb.WriteRune(r)
	}
}
