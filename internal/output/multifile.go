package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tordrt/dbmlsqlite/internal/batch"
)

// OverviewFile lists the per-unit scripts as sqlite3 shell .read commands
const OverviewFile = "_overview.sql"

// MultiFileWriter writes one <source-basename>.sql per compiled unit
type MultiFileWriter struct {
	OutputDir string
}

// NewMultiFileWriter creates a new multi-file writer
func NewMultiFileWriter(outputDir string) *MultiFileWriter {
	return &MultiFileWriter{OutputDir: outputDir}
}

// Write writes every non-empty unit and the overview. Two units mapping to
// the same file name is an error.
func (w *MultiFileWriter) Write(units []batch.Unit) error {
	if err := os.MkdirAll(w.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	seen := make(map[string]string)

	for _, u := range units {
		if u.DDL == "" {
			continue
		}

		name := FileName(u.Path)
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%s and %s both map to %s", prev, u.Path, name)
		}
		seen[name] = u.Path

		if err := os.WriteFile(filepath.Join(w.OutputDir, name), []byte(u.DDL), 0644); err != nil {
			return fmt.Errorf("failed to write file for %s: %w", u.Path, err)
		}
		written = append(written, name)
	}

	if err := w.writeOverview(written); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}
	return nil
}

func (w *MultiFileWriter) writeOverview(files []string) error {
	var sb strings.Builder
	sb.WriteString("-- Apply with: sqlite3 <database> < " + OverviewFile + "\n")
	for _, f := range files {
		fmt.Fprintf(&sb, ".read %s\n", f)
	}
	return os.WriteFile(filepath.Join(w.OutputDir, OverviewFile), []byte(sb.String()), 0644)
}

// FileName maps a source path to its output name: the base name with the
// extension replaced by .sql
func FileName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".sql"
}
