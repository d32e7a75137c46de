// Package batch compiles one .dbml file or every .dbml file directly inside
// a directory, each as an independent unit, and concatenates the results in
// resolution order.
package batch

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tordrt/dbmlsqlite/internal/dbml"
	"github.com/tordrt/dbmlsqlite/internal/ddl"
	"github.com/tordrt/dbmlsqlite/internal/logger"
	"github.com/tordrt/dbmlsqlite/internal/schema"
)

// ParseFunc turns source text into a schema. name identifies the source.
type ParseFunc func(name string, src []byte) (*schema.Schema, error)

// Options configures a batch run
type Options struct {
	Compile   ddl.Options
	Extension ExtensionPolicy

	// Parse defaults to dbml.Parse
	Parse ParseFunc

	// Jobs bounds parallel reading and parsing; 0 or 1 runs sequentially.
	// Compilation always follows resolution order.
	Jobs int
}

// Unit is the compiled output of one source file
type Unit struct {
	Path   string
	Schema *schema.Schema
	DDL    string
}

// Result holds the units of a run in resolution order
type Result struct {
	Units []Unit
}

// String concatenates the non-empty unit outputs separated by a blank line
func (r *Result) String() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Units))
	for _, u := range r.Units {
		if u.DDL != "" {
			parts = append(parts, u.DDL)
		}
	}
	return strings.Join(parts, "\n")
}

// Run resolves path and compiles every source it names. The first failure
// aborts the run; the error names the file and wraps the cause.
func Run(ctx context.Context, path string, opts Options) (*Result, error) {
	if err := opts.Compile.Validate(); err != nil {
		return nil, err
	}

	files, err := Resolve(path, opts.Extension)
	if err != nil {
		return nil, err
	}
	logger.Get().Debug("resolved sources", "path", path, "files", len(files), "extension", opts.Extension)

	if opts.Parse == nil {
		opts.Parse = dbml.Parse
	}
	// one namer per run keeps synthesized names unique across units
	if opts.Compile.Namer == nil {
		opts.Compile.Namer = ddl.UUIDNamer{}
	}

	units := make([]Unit, len(files))

	if opts.Jobs <= 1 {
		for i, file := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			s, err := parseFile(file, opts.Parse)
			if err != nil {
				return nil, err
			}
			if units[i], err = compileUnit(file, s, opts.Compile); err != nil {
				return nil, err
			}
		}
		return &Result{Units: units}, nil
	}

	// Sources are read and parsed in parallel. Compilation stays in
	// resolution order because the shared namer is order-sensitive.
	schemas := make([]*schema.Schema, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := parseFile(file, opts.Parse)
			if err != nil {
				return err
			}
			schemas[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, file := range files {
		unit, err := compileUnit(file, schemas[i], opts.Compile)
		if err != nil {
			return nil, err
		}
		units[i] = unit
	}
	return &Result{Units: units}, nil
}

func parseFile(path string, parse ParseFunc) (*schema.Schema, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	s, err := parse(path, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return s, nil
}

func compileUnit(path string, s *schema.Schema, opts ddl.Options) (Unit, error) {
	blocks, err := ddl.CompileBlocks(s, opts)
	if err != nil {
		return Unit{}, fmt.Errorf("failed to compile %s: %w", path, err)
	}

	if logger.IsDebug() {
		logger.Get().Debug("compiled unit", "path", path, "tables", len(s.Tables), "enums", len(s.Enums), "statements", len(blocks))
	}
	return Unit{Path: path, Schema: s, DDL: ddl.JoinBlocks(blocks)}, nil
}
