package importer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Layout identifies one of the known source file shapes.
type Layout int

const (
	// AuthorityCodeCSV is a CSV of authority codes with English and Welsh names.
	AuthorityCodeCSV Layout = iota + 1
	// AuthorityByYearCSV is a CSV with one row per authority and one column per year,
	// holding a single measure.
	AuthorityByYearCSV
	// WelshStatsJSON is a StatsWales JSON export: {"value": [ {...}, ... ]}
	// with one reading per node.
	WelshStatsJSON
)

var layoutNames = map[Layout]string{
	AuthorityCodeCSV:   "authority_code_csv",
	AuthorityByYearCSV: "authority_by_year_csv",
	WelshStatsJSON:     "welsh_stats_json",
}

func (l Layout) String() string {
	if name, ok := layoutNames[l]; ok {
		return name
	}
	return fmt.Sprintf("layout(%d)", int(l))
}

// ParseLayout resolves a layout by name. Matching ignores case, and "-" and "_" are interchangeable.
func ParseLayout(s string) (Layout, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for l, name := range layoutNames {
		if name == key {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown source layout %q (known: %s)", s,
		strings.Join(lo.Map(All(), func(d Decoder, _ int) string { return d.Layout().String() }), ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (l Layout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Layout) UnmarshalText(text []byte) error {
	parsed, err := ParseLayout(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Column is a semantic field of a source record.
type Column string

const (
	AuthCode          Column = "AUTH_CODE"
	AuthNameEng       Column = "AUTH_NAME_ENG"
	AuthNameCym       Column = "AUTH_NAME_CYM"
	MeasureCode       Column = "MEASURE_CODE"
	MeasureName       Column = "MEASURE_NAME"
	SingleMeasureCode Column = "SINGLE_MEASURE_CODE"
	SingleMeasureName Column = "SINGLE_MEASURE_NAME"
	Year              Column = "YEAR"
	Value             Column = "VALUE"
)

// nameColumns maps name columns to the language they carry.
var nameColumns = []struct {
	col  Column
	lang string
}{
	{AuthNameEng, "eng"},
	{AuthNameCym, "cym"},
}

// ColumnMapping gives, per semantic column, the header name or JSON field
// holding it. For the single-measure columns the value is the measure code
// or label itself.
type ColumnMapping map[Column]string

// Lookup returns the mapped name for col.
func (m ColumnMapping) Lookup(col Column) (string, bool) {
	v, ok := m[col]
	return v, ok && v != ""
}

// require returns an error naming every missing column.
func (m ColumnMapping) require(layout Layout, cols ...Column) error {
	var missing []string
	for _, c := range cols {
		if _, ok := m.Lookup(c); !ok {
			missing = append(missing, string(c))
		}
	}
	if len(missing) > 0 {
		return &FormatError{Layout: layout, Record: -1, Field: strings.Join(missing, ","), Err: errMissingMapping}
	}
	return nil
}

// Record is the normalized shape every layout decodes to.
type Record struct {
	// Position is the 1-based record number in the source.
	Position     int
	AreaCode     string
	Names        map[string]string
	MeasureCode  string
	MeasureLabel string
	Values       map[int]float64
}

// HasMeasure reports whether the record carries a measure.
func (r Record) HasMeasure() bool {
	return r.MeasureCode != ""
}

var errNonFinite = errors.New("value is not a finite number")

// parseReading parses a numeric reading. NaN and infinities are rejected.
func parseReading(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNonFinite
	}
	return v, nil
}
