package areas

import "errors"

var (
	// ErrNotFound is returned by lookups of unknown languages, measures, years or areas.
	ErrNotFound = errors.New("not found")
	// ErrInvalidFormat is returned for malformed language codes and filter arguments.
	ErrInvalidFormat = errors.New("invalid format")
)
