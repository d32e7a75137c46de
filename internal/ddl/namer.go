package ddl

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// Namer synthesizes a name for an index declared without one. Every name
// it returns must be unique across a compilation run.
type Namer interface {
	NextName(table string, columns []string) string
}

// NamerFunc adapts an ordinary function to the Namer interface
type NamerFunc func(table string, columns []string) string

// NextName calls f(table, columns)
func (f NamerFunc) NextName(table string, columns []string) string {
	return f(table, columns)
}

// UUIDNamer returns idx_ followed by a random 128-bit hex token
type UUIDNamer struct{}

// NextName ignores its arguments
func (UUIDNamer) NextName(string, []string) string {
	id := uuid.New()
	return "idx_" + hex.EncodeToString(id[:])
}

// HashNamer derives names from the table and column list, so the same
// schema compiles to the same names on every run. Repeats within one run
// get a numeric suffix.
type HashNamer struct {
	mu   sync.Mutex
	seen map[string]int
}

// NewHashNamer creates a HashNamer with an empty run history
func NewHashNamer() *HashNamer {
	return &HashNamer{seen: make(map[string]int)}
}

// NextName returns idx_<table>_<hash>, or idx_<hash> when the table name
// is not a plain identifier
func (n *HashNamer) NextName(table string, columns []string) string {
	sum := xxh3.HashString(table + "\x00" + strings.Join(columns, "\x00"))

	base := fmt.Sprintf("idx_%016x", sum)
	if isPlainIdent(table) {
		base = fmt.Sprintf("idx_%s_%016x", table, sum)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.seen[base]++
	if count := n.seen[base]; count > 1 {
		return fmt.Sprintf("%s_%d", base, count)
	}
	return base
}

// SequenceNamer returns <prefix>_1, <prefix>_2, ... in call order
type SequenceNamer struct {
	prefix string
	mu     sync.Mutex
	next   int
}

// NewSequenceNamer creates a SequenceNamer; an empty prefix means "idx"
func NewSequenceNamer(prefix string) *SequenceNamer {
	if prefix == "" {
		prefix = "idx"
	}
	return &SequenceNamer{prefix: prefix}
}

// NextName ignores its arguments
func (n *SequenceNamer) NextName(string, []string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	return fmt.Sprintf("%s_%d", n.prefix, n.next)
}

// NewNamer returns the namer registered under kind: "uuid" or "hash"
func NewNamer(kind string) (Namer, error) {
	switch strings.ToLower(kind) {
	case "", "uuid":
		return UUIDNamer{}, nil
	case "hash":
		return NewHashNamer(), nil
	default:
		return nil, fmt.Errorf("unknown index namer: %s (must be 'uuid' or 'hash')", kind)
	}
}
