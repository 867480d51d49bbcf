package importer

import (
	"errors"
	"fmt"
)

// ErrFormat matches every *FormatError with errors.Is.
var ErrFormat = errors.New("format error")

var (
	errMissingMapping = errors.New("column mapping is missing")
	errMissingField   = errors.New("missing required field")
	errRowWidth       = errors.New("row width does not match header")
)

// FormatError reports a source record that cannot be decoded under its declared layout.
type FormatError struct {
	Layout Layout
	Source string
	// Record is the 1-based record number in the source, or -1 when the
	// error concerns the source as a whole (header, mapping, envelope).
	Record int
	Field  string
	Err    error
}

func (e *FormatError) Error() string {
	msg := e.Layout.String()
	if e.Source != "" {
		msg = e.Source + " (" + msg + ")"
	}
	if e.Record >= 0 {
		msg += fmt.Sprintf(" record %d", e.Record)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" field %q", e.Field)
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap exposes both ErrFormat and the underlying cause.
func (e *FormatError) Unwrap() []error { return []error{ErrFormat, e.Err} }

// ErrorPolicy controls what Populate does with records that fail to decode.
type ErrorPolicy int

const (
	// FailFast aborts the import on the first malformed record. Records
	// merged before it stay in the collection.
	FailFast ErrorPolicy = iota
	// SkipInvalid drops malformed records, counts them and carries on.
	SkipInvalid
)

func (p ErrorPolicy) String() string {
	switch p {
	case SkipInvalid:
		return "skip"
	default:
		return "fail-fast"
	}
}

// ParseErrorPolicy accepts "fail-fast" (or "") and "skip".
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch s {
	case "", "fail-fast", "failfast":
		return FailFast, nil
	case "skip", "skip-invalid":
		return SkipInvalid, nil
	default:
		return FailFast, fmt.Errorf("unknown error policy %q (want fail-fast or skip)", s)
	}
}
