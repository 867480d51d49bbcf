package importer

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Decoder turns a stream in one source layout into normalized Records.
// Implementations apply the filters while decoding and hand every surviving
// record (or every malformed one) to the Emitter.
type Decoder interface {
	// Layout returns the source layout this decoder handles.
	Layout() Layout
	// Description returns a human-readable description.
	Description() string
	// Validate checks that cols carries every field the layout needs.
	Validate(cols ColumnMapping) error
	// Decode reads r to completion, or until a fatal error or until the
	// Emitter returns an error.
	Decode(r io.Reader, cols ColumnMapping, filters *Filters, emit Emitter) error
}

// Emitter receives the output of a Decoder.
type Emitter interface {
	// Emit is called with a fully decoded record that passed every filter.
	Emit(rec Record) error
	// Reject is called with a record that could not be decoded. Returning
	// a non-nil error aborts decoding.
	Reject(err *FormatError) error
}

var (
	registryMu sync.RWMutex
	decoders   = make(map[Layout]Decoder)
)

// Register adds a decoder to the layout registry.
func Register(d Decoder) {
	registryMu.Lock()
	defer registryMu.Unlock()
	decoders[d.Layout()] = d
}

// Get returns the decoder for layout, or an error if none is registered.
func Get(layout Layout) (Decoder, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := decoders[layout]
	if !ok {
		return nil, fmt.Errorf("no decoder for source layout %v", layout)
	}
	return d, nil
}

// All returns all registered decoders sorted by layout.
func All() []Decoder {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Decoder, 0, len(decoders))
	for _, d := range decoders {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Layout() < result[j].Layout() })
	return result
}
