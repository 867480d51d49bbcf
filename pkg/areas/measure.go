package areas

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/hazyhaar/bethyw/pkg/stats"
)

// Measure is a named statistical indicator tracked as a year-keyed series.
type Measure struct {
	codename string
	label    string
	values   map[int]float64
}

// NewMeasure creates an empty measure. The codename is stored lowercase.
func NewMeasure(codename, label string) *Measure {
	return &Measure{
		codename: FoldCode(codename),
		label:    label,
		values:   make(map[int]float64),
	}
}

// Codename returns the lowercase measure code.
func (m *Measure) Codename() string { return m.codename }

// Label returns the human-readable name of the measure.
func (m *Measure) Label() string { return m.label }

// SetLabel replaces the human-readable name.
func (m *Measure) SetLabel(label string) { m.label = label }

// SetValue inserts or overwrites the reading for year.
func (m *Measure) SetValue(year int, value float64) {
	m.values[year] = value
}

// Value returns the reading for year.
func (m *Measure) Value(year int) (float64, error) {
	v, ok := m.values[year]
	if !ok {
		return 0, fmt.Errorf("no value for year %d in measure %s: %w", year, m.codename, ErrNotFound)
	}
	return v, nil
}

// Values returns a copy of all readings.
func (m *Measure) Values() map[int]float64 {
	return maps.Clone(m.values)
}

// Years returns the recorded years in ascending order.
func (m *Measure) Years() []int {
	s := m.Series()
	years := make([]int, len(s))
	for i, p := range s {
		years[i] = p.Year
	}
	return years
}

// Series returns the readings ordered by year.
func (m *Measure) Series() stats.Series {
	return stats.NewSeries(m.values)
}

// Size returns the number of distinct years recorded.
func (m *Measure) Size() int {
	return len(m.values)
}

// Merge copies every reading of other into m, overwriting years present in both.
func (m *Measure) Merge(other *Measure) {
	for year, v := range other.values {
		m.values[year] = v
	}
}

// Difference returns the last year's value minus the first year's value.
func (m *Measure) Difference() (float64, error) {
	return stats.Difference(m.Series())
}

// DifferenceAsPercentage returns Difference as a percentage of the first year's value.
func (m *Measure) DifferenceAsPercentage() (float64, error) {
	return stats.DifferenceAsPercentage(m.Series())
}

// Average returns the mean of all readings.
func (m *Measure) Average() (float64, error) {
	return stats.Average(m.Series())
}

// Summary returns every derived statistic for the measure.
func (m *Measure) Summary() stats.Summary {
	return stats.Summarize(m.Series())
}

// Equal reports whether both measures have the same codename, label and readings.
func (m *Measure) Equal(other *Measure) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.codename == other.codename &&
		m.label == other.label &&
		maps.Equal(m.values, other.values)
}

func (m *Measure) clone() *Measure {
	return &Measure{
		codename: m.codename,
		label:    m.label,
		values:   maps.Clone(m.values),
	}
}

// String renders the measure as a label line, a tab-separated header of
// years and statistics, and a tab-separated line of values.
func (m *Measure) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", m.label, m.codename)

	s := m.Series()
	header := make([]string, 0, len(s)+3)
	row := make([]string, 0, len(s)+3)
	for _, p := range s {
		header = append(header, strconv.Itoa(p.Year))
		row = append(row, formatValue(p.Value))
	}
	header = append(header, "Average", "Diff.", "% Diff.")
	row = append(row,
		formatStat(m.Average()),
		formatStat(m.Difference()),
		formatStat(m.DifferenceAsPercentage()),
	)

	b.WriteString(strings.Join(header, "\t"))
	b.WriteByte('\n')
	b.WriteString(strings.Join(row, "\t"))
	b.WriteByte('\n')
	return b.String()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// formatStat renders a statistic, falling back to "n/a" when it could not be computed.
func formatStat(v float64, err error) string {
	if err != nil {
		return "n/a"
	}
	return formatValue(v)
}
