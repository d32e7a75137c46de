// Package ddl compiles a parsed schema into SQLite DDL.
//
// Emitters are pure functions of their inputs and an Options bundle; the
// only state involved is the Namer used for anonymous indexes. Compile
// fixes the statement order: enum tables (full emulation only), then
// tables, then indexes grouped by table, all in declaration order.
package ddl

import (
	"fmt"
	"strings"

	"github.com/tordrt/dbmlsqlite/internal/schema"
)

// BlockSeparator separates statement blocks in compiled output
const BlockSeparator = "\n\n"

// Compile renders s as SQLite DDL. Blocks are separated by a blank line
// and non-empty output ends with a newline. Nothing is returned on error.
func Compile(s *schema.Schema, opts Options) (string, error) {
	blocks, err := CompileBlocks(s, opts)
	if err != nil {
		return "", err
	}
	return JoinBlocks(blocks), nil
}

// JoinBlocks assembles compiled blocks into unit output; no blocks yield ""
func JoinBlocks(blocks []string) string {
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, BlockSeparator) + "\n"
}

// CompileBlocks returns the statement blocks of s in emission order
func CompileBlocks(s *schema.Schema, opts Options) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrMalformedConstruct)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var blocks []string

	if opts.emulation() == EmulationFull {
		for _, e := range s.Enums {
			block, err := EmitEnum(e, opts)
			if err != nil {
				return nil, fmt.Errorf("enum %s: %w", e.Name, err)
			}
			blocks = append(blocks, block)
		}
	}

	for _, t := range s.Tables {
		block, err := EmitTable(t, opts)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	namer := opts.namer()
	for _, t := range s.Tables {
		for _, idx := range t.Indexes {
			block, err := EmitIndex(t, idx, namer, opts)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", t.Name, err)
			}
			blocks = append(blocks, block)
		}
	}

	return blocks, nil
}
