package ddl

import (
	"fmt"
	"strings"
)

// Emulation selects how enums are represented in SQLite, which has no
// native enum type
type Emulation string

const (
	// EmulationFull materializes each enum as a satellite lookup table
	EmulationFull Emulation = "full"
	// EmulationHalf inlines each enum as a CHECK constraint at point of use
	EmulationHalf Emulation = "half"
)

// ParseEmulation parses "full" or "half", case-insensitively
func ParseEmulation(s string) (Emulation, error) {
	switch Emulation(strings.ToLower(strings.TrimSpace(s))) {
	case EmulationFull:
		return EmulationFull, nil
	case EmulationHalf:
		return EmulationHalf, nil
	default:
		return "", fmt.Errorf("%w: %q (must be 'full' or 'half')", ErrInvalidEmulation, s)
	}
}

// Options is the parameter bundle threaded through every emitter
type Options struct {
	// Emulation defaults to EmulationFull when empty
	Emulation Emulation

	// TableIfNotExists adds IF NOT EXISTS to CREATE TABLE statements
	TableIfNotExists bool

	// IndexIfNotExists adds IF NOT EXISTS to CREATE INDEX statements
	IndexIfNotExists bool

	// Namer synthesizes names for indexes declared without one.
	// Defaults to UUIDNamer.
	Namer Namer
}

// Validate reports an unknown emulation mode
func (o Options) Validate() error {
	switch o.Emulation {
	case "", EmulationFull, EmulationHalf:
		return nil
	default:
		return fmt.Errorf("%w: %q (must be 'full' or 'half')", ErrInvalidEmulation, o.Emulation)
	}
}

func (o Options) emulation() Emulation {
	if o.Emulation == "" {
		return EmulationFull
	}
	return o.Emulation
}

func (o Options) namer() Namer {
	if o.Namer == nil {
		return UUIDNamer{}
	}
	return o.Namer
}
