package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extension is the suffix a schema source must carry
const Extension = ".dbml"

var (
	// ErrPathNotFound is returned when the input is neither a file nor a directory
	ErrPathNotFound = errors.New("path not found")

	// ErrInvalidExtension is returned when a single input file lacks the .dbml extension
	ErrInvalidExtension = errors.New("invalid file extension")
)

// ExtensionPolicy selects how the .dbml suffix is matched
type ExtensionPolicy int

const (
	// ExtensionCaseInsensitive accepts .dbml in any case, e.g. schema.DBML
	ExtensionCaseInsensitive ExtensionPolicy = iota
	// ExtensionCaseSensitive accepts only the lower-case .dbml suffix
	ExtensionCaseSensitive
)

func (p ExtensionPolicy) String() string {
	if p == ExtensionCaseSensitive {
		return "case-sensitive"
	}
	return "case-insensitive"
}

// ValidExtension reports whether name ends in .dbml under policy
func ValidExtension(name string, policy ExtensionPolicy) bool {
	ext := filepath.Ext(name)
	if policy == ExtensionCaseSensitive {
		return ext == Extension
	}
	return strings.EqualFold(ext, Extension)
}

// Resolve returns the schema sources named by path. A file resolves to
// itself; a directory resolves to its direct regular-file children with the
// extension, in lexical order. Subdirectories are not searched.
func Resolve(path string, policy ExtensionPolicy) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}

	switch {
	case info.Mode().IsRegular():
		if !ValidExtension(path, policy) {
			return nil, fmt.Errorf("%w: %s is not a %s file", ErrInvalidExtension, path, Extension)
		}
		return []string{path}, nil

	case info.IsDir():
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
		}

		var files []string
		for _, entry := range entries {
			if entry.IsDir() || !ValidExtension(entry.Name(), policy) {
				continue
			}
			full := filepath.Join(path, entry.Name())
			if !entry.Type().IsRegular() {
				// follow symlinks to regular files
				target, err := os.Stat(full)
				if err != nil || !target.Mode().IsRegular() {
					continue
				}
			}
			files = append(files, full)
		}
		return files, nil

	default:
		return nil, fmt.Errorf("%w: %s is neither a file nor a directory", ErrPathNotFound, path)
	}
}
