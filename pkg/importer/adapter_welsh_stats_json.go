package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func init() {
	Register(&welshStatsJSONDecoder{})
}

// welshStatsJSONDecoder reads StatsWales OData exports. Each node of the
// top-level "value" array holds one reading:
//
//	{"value": [{"Localauthority_code": "W06000001", "Year_code": "1991", "Data": 69.4, ...}]}
//
// The measure comes either from per-node fields (MEASURE_CODE and
// MEASURE_NAME) or, for single-measure exports, from the mapping itself.
type welshStatsJSONDecoder struct{}

func (d *welshStatsJSONDecoder) Layout() Layout      { return WelshStatsJSON }
func (d *welshStatsJSONDecoder) Description() string { return "StatsWales JSON export, one reading per node" }

func (d *welshStatsJSONDecoder) Validate(cols ColumnMapping) error {
	if err := cols.require(WelshStatsJSON, AuthCode, Year, Value); err != nil {
		return err
	}
	if cols.require(WelshStatsJSON, MeasureCode, MeasureName) == nil {
		return nil
	}
	if err := cols.require(WelshStatsJSON, SingleMeasureCode, SingleMeasureName); err != nil {
		return &FormatError{Layout: WelshStatsJSON, Record: -1,
			Field: "MEASURE_CODE,MEASURE_NAME|SINGLE_MEASURE_CODE,SINGLE_MEASURE_NAME", Err: errMissingMapping}
	}
	return nil
}

func (d *welshStatsJSONDecoder) Decode(r io.Reader, cols ColumnMapping, filters *Filters, emit Emitter) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	found := false
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return envelopeError(err)
		}
		key, _ := tok.(string)
		if key != "value" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return envelopeError(err)
			}
			continue
		}
		found = true
		if err := d.decodeNodes(dec, cols, filters, emit); err != nil {
			return err
		}
	}
	if !found {
		return &FormatError{Layout: WelshStatsJSON, Record: -1, Field: "value", Err: errors.New("no value array in document")}
	}
	return expectDelim(dec, '}')
}

func (d *welshStatsJSONDecoder) decodeNodes(dec *json.Decoder, cols ColumnMapping, filters *Filters, emit Emitter) error {
	if err := expectDelim(dec, '['); err != nil {
		return err
	}
	for n := 1; dec.More(); n++ {
		var node map[string]any
		if err := dec.Decode(&node); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				if rerr := emit.Reject(&FormatError{Layout: WelshStatsJSON, Record: n, Err: err}); rerr != nil {
					return rerr
				}
				continue
			}
			return &FormatError{Layout: WelshStatsJSON, Record: n, Err: err}
		}

		rec, ok, ferr := decodeNode(node, cols, filters)
		if ferr != nil {
			ferr.Record = n
			if err := emit.Reject(ferr); err != nil {
				return err
			}
			continue
		}
		if !ok {
			continue
		}
		rec.Position = n
		if err := emit.Emit(rec); err != nil {
			return err
		}
	}
	return expectDelim(dec, ']')
}

// decodeNode converts one node. ok is false when a filter drops it.
func decodeNode(node map[string]any, cols ColumnMapping, filters *Filters) (rec Record, ok bool, ferr *FormatError) {
	missing := func(field string) *FormatError {
		return &FormatError{Layout: WelshStatsJSON, Field: field, Err: errMissingField}
	}

	codeField, _ := cols.Lookup(AuthCode)
	code, present := nodeString(node, codeField)
	if !present || code == "" {
		return rec, false, missing(codeField)
	}
	if !filters.AcceptArea(code) {
		return rec, false, nil
	}

	var measureCode, measureLabel string
	if field, perNode := cols.Lookup(MeasureCode); perNode {
		if measureCode, present = nodeString(node, field); !present || measureCode == "" {
			return rec, false, missing(field)
		}
		labelField, _ := cols.Lookup(MeasureName)
		measureLabel, _ = nodeString(node, labelField)
	} else {
		measureCode, _ = cols.Lookup(SingleMeasureCode)
		measureLabel, _ = cols.Lookup(SingleMeasureName)
	}
	if !filters.AcceptMeasure(measureCode) {
		return rec, false, nil
	}

	yearField, _ := cols.Lookup(Year)
	rawYear, present := nodeString(node, yearField)
	if !present {
		return rec, false, missing(yearField)
	}
	year, err := strconv.Atoi(rawYear)
	if err != nil {
		return rec, false, &FormatError{Layout: WelshStatsJSON, Field: yearField, Err: fmt.Errorf("year %q: %w", rawYear, err)}
	}
	if !filters.AcceptYear(year) {
		return rec, false, nil
	}

	valueField, _ := cols.Lookup(Value)
	rawValue, present := nodeString(node, valueField)
	if !present {
		return rec, false, missing(valueField)
	}
	value, err := parseReading(rawValue)
	if err != nil {
		return rec, false, &FormatError{Layout: WelshStatsJSON, Field: valueField, Err: fmt.Errorf("value %q: %w", rawValue, err)}
	}

	names := make(map[string]string, len(nameColumns))
	for _, nc := range nameColumns {
		if field, mapped := cols.Lookup(nc.col); mapped {
			if name, _ := nodeString(node, field); name != "" {
				names[nc.lang] = name
			}
		}
	}

	return Record{
		AreaCode:     code,
		Names:        names,
		MeasureCode:  measureCode,
		MeasureLabel: measureLabel,
		Values:       map[int]float64{year: value},
	}, true, nil
}

// nodeString returns field as text. Strings and numbers are accepted.
func nodeString(node map[string]any, field string) (string, bool) {
	switch v := node[field].(type) {
	case string:
		return strings.TrimSpace(v), true
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return envelopeError(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return &FormatError{Layout: WelshStatsJSON, Record: -1, Err: fmt.Errorf("expected %q, got %v", want, tok)}
	}
	return nil
}

func envelopeError(err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return &FormatError{Layout: WelshStatsJSON, Record: -1, Err: err}
}
