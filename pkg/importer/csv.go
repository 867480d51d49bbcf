package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// csvSource wraps encoding/csv with header indexing shared by the CSV layouts.
type csvSource struct {
	layout Layout
	r      *csv.Reader
	header []string
	index  map[string]int
	row    int
}

func newCSVSource(layout Layout, r io.Reader) (*csvSource, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &FormatError{Layout: layout, Record: -1, Field: "header", Err: errors.New("empty source")}
		}
		return nil, &FormatError{Layout: layout, Record: -1, Field: "header", Err: err}
	}

	index := make(map[string]int, len(header))
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
		index[strings.ToLower(header[i])] = i
	}
	return &csvSource{layout: layout, r: cr, header: header, index: index}, nil
}

// column returns the index of the header named name (case-insensitive).
func (s *csvSource) column(name string) (int, error) {
	i, ok := s.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return -1, &FormatError{Layout: s.layout, Record: -1, Field: name,
			Err: fmt.Errorf("column not found in header %v", s.header)}
	}
	return i, nil
}

// next returns the next row. A row whose width differs from the header is
// returned together with a *FormatError; io.EOF ends the stream.
func (s *csvSource) next() ([]string, error) {
	record, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			s.row++
			return nil, &FormatError{Layout: s.layout, Record: s.row, Err: err}
		}
		return nil, err
	}
	s.row++
	if len(record) != len(s.header) {
		return record, &FormatError{Layout: s.layout, Record: s.row,
			Err: fmt.Errorf("%w: got %d fields, want %d", errRowWidth, len(record), len(s.header))}
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	return record, nil
}

// each calls fn for every well-formed row and hands malformed ones to emit.Reject.
func (s *csvSource) each(emit Emitter, fn func(row []string) error) error {
	for {
		row, err := s.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var fe *FormatError
			if !errors.As(err, &fe) {
				return err
			}
			if rerr := emit.Reject(fe); rerr != nil {
				return rerr
			}
			continue
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}
