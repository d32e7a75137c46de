// Package output delivers compiled DDL to writers, files and directories
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteTo writes ddl to w unchanged
func WriteTo(w io.Writer, ddl string) error {
	if _, err := io.WriteString(w, ddl); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteFile writes ddl to path, creating parent directories and replacing
// any existing file
func WriteFile(path, ddl string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(ddl), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
