package ddl

import "errors"

var (
	// ErrUnsupportedType is returned when a primitive column type has no
	// SQLite storage class mapping
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrMalformedConstruct is returned when a schema construct cannot be
	// rendered, e.g. a column type that is neither primitive nor enum
	ErrMalformedConstruct = errors.New("malformed construct")

	// ErrInvalidEmulation is returned for an unknown enum emulation mode
	ErrInvalidEmulation = errors.New("invalid emulation mode")
)
