package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

func init() {
	Register(&authorityByYearCSVDecoder{})
}

// authorityByYearCSVDecoder reads a single measure laid out with one row per
// authority and one column per year:
//
//	AuthorityCode,1991,1992,...
//	W06000001,69.4,69.6,...
//
// The measure code and label come from the column mapping.
type authorityByYearCSVDecoder struct{}

func (d *authorityByYearCSVDecoder) Layout() Layout { return AuthorityByYearCSV }
func (d *authorityByYearCSVDecoder) Description() string {
	return "One measure, one row per authority, one column per year (CSV)"
}

func (d *authorityByYearCSVDecoder) Validate(cols ColumnMapping) error {
	return cols.require(AuthorityByYearCSV, AuthCode, SingleMeasureCode, SingleMeasureName)
}

func (d *authorityByYearCSVDecoder) Decode(r io.Reader, cols ColumnMapping, filters *Filters, emit Emitter) error {
	measureCode, _ := cols.Lookup(SingleMeasureCode)
	measureLabel, _ := cols.Lookup(SingleMeasureName)
	if !filters.AcceptMeasure(measureCode) {
		// Nothing in this source can survive; consume it so the caller sees a fully read stream.
		_, err := io.Copy(io.Discard, r)
		return err
	}

	src, err := newCSVSource(AuthorityByYearCSV, r)
	if err != nil {
		return err
	}
	codeName, _ := cols.Lookup(AuthCode)
	codeIdx, err := src.column(codeName)
	if err != nil {
		return err
	}

	years := make(map[int]int, len(src.header)-1)
	for i, h := range src.header {
		if i == codeIdx {
			continue
		}
		year, err := strconv.Atoi(h)
		if err != nil {
			return &FormatError{Layout: AuthorityByYearCSV, Record: -1, Field: h,
				Err: fmt.Errorf("year column is not an integer: %w", err)}
		}
		years[i] = year
	}

	return src.each(emit, func(row []string) error {
		code := row[codeIdx]
		if code == "" {
			return emit.Reject(&FormatError{Layout: AuthorityByYearCSV, Record: src.row, Field: codeName,
				Err: fmt.Errorf("%w: authority code", errMissingField)})
		}
		if !filters.AcceptArea(code) {
			return nil
		}

		values := make(map[int]float64, len(years))
		for i, year := range years {
			if !filters.AcceptYear(year) {
				continue
			}
			raw := strings.ReplaceAll(row[i], ",", "")
			v, err := parseReading(raw)
			if err != nil {
				return emit.Reject(&FormatError{Layout: AuthorityByYearCSV, Record: src.row, Field: src.header[i],
					Err: fmt.Errorf("value %q: %w", row[i], err)})
			}
			values[year] = v
		}
		if len(values) == 0 {
			return nil
		}

		return emit.Emit(Record{
			Position:     src.row,
			AreaCode:     code,
			MeasureCode:  measureCode,
			MeasureLabel: measureLabel,
			Values:       values,
		})
	})
}
