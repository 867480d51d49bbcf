package importer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-set/v2"

	"github.com/hazyhaar/bethyw/pkg/areas"
)

// StringFilter is a case-insensitive set of codes. An empty (or nil) filter accepts everything.
type StringFilter struct {
	codes *set.Set[string]
}

// NewStringFilter builds a filter from codes. Blank codes are ignored.
func NewStringFilter(codes ...string) *StringFilter {
	s := set.New[string](len(codes))
	for _, c := range codes {
		if folded := areas.FoldCode(c); folded != "" {
			s.Insert(folded)
		}
	}
	return &StringFilter{codes: s}
}

// ParseStringFilter builds a filter from command-line style values. Each
// value may hold a comma-separated list; the keyword "all" (any case)
// anywhere in the list disables filtering.
func ParseStringFilter(values []string) *StringFilter {
	var codes []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if strings.EqualFold(part, "all") {
				return NewStringFilter()
			}
			codes = append(codes, part)
		}
	}
	return NewStringFilter(codes...)
}

// Empty reports whether the filter accepts everything.
func (f *StringFilter) Empty() bool {
	return f == nil || f.codes == nil || f.codes.Size() == 0
}

// Contains reports whether code is in the filter, ignoring case.
func (f *StringFilter) Contains(code string) bool {
	if f.Empty() {
		return false
	}
	return f.codes.Contains(areas.FoldCode(code))
}

// Accept reports whether code passes the filter.
func (f *StringFilter) Accept(code string) bool {
	return f.Empty() || f.Contains(code)
}

// Values returns the folded codes in ascending order.
func (f *StringFilter) Values() []string {
	if f.Empty() {
		return nil
	}
	v := f.codes.Slice()
	sort.Strings(v)
	return v
}

// YearRange is an inclusive range of years. The zero value (0, 0) means all years.
type YearRange struct {
	Start int
	End   int
}

// AllYears is the sentinel range that disables year filtering.
var AllYears = YearRange{}

// IsAll reports whether the range is the (0, 0) sentinel.
func (y YearRange) IsAll() bool {
	return y.Start == 0 && y.End == 0
}

// Contains reports whether year is inside the range.
func (y YearRange) Contains(year int) bool {
	return y.IsAll() || (year >= y.Start && year <= y.End)
}

func (y YearRange) String() string {
	if y.IsAll() {
		return "all"
	}
	if y.Start == y.End {
		return strconv.Itoa(y.Start)
	}
	return fmt.Sprintf("%d-%d", y.Start, y.End)
}

// ParseYearRange parses "YYYY" or "YYYY-ZZZZ". The empty string, "0" and
// "0-0" yield AllYears. A range with only one zero bound, a start after its
// end, or anything non-numeric is rejected with areas.ErrInvalidFormat.
func ParseYearRange(s string) (YearRange, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return AllYears, nil
	}

	startStr, endStr, isRange := strings.Cut(s, "-")
	if !isRange {
		endStr = startStr
	}

	start, err := parseYear(startStr)
	if err != nil {
		return YearRange{}, fmt.Errorf("invalid years %q: %w", s, err)
	}
	end, err := parseYear(endStr)
	if err != nil {
		return YearRange{}, fmt.Errorf("invalid years %q: %w", s, err)
	}

	r := YearRange{Start: start, End: end}
	switch {
	case r.IsAll():
		return AllYears, nil
	case start == 0 || end == 0:
		return YearRange{}, fmt.Errorf("invalid years %q: both bounds must be set or both zero: %w", s, areas.ErrInvalidFormat)
	case start > end:
		return YearRange{}, fmt.Errorf("invalid years %q: start after end: %w", s, areas.ErrInvalidFormat)
	}
	return r, nil
}

func parseYear(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty year: %w", areas.ErrInvalidFormat)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("year %q is not a number: %w", s, areas.ErrInvalidFormat)
		}
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("year %q: %w", s, areas.ErrInvalidFormat)
	}
	return y, nil
}

// Filters restrict which records an import keeps. A nil *Filters keeps everything.
type Filters struct {
	Areas    *StringFilter
	Measures *StringFilter
	Years    YearRange
}

// AcceptArea reports whether records for the authority code should be imported.
func (f *Filters) AcceptArea(code string) bool {
	return f == nil || f.Areas.Accept(code)
}

// AcceptMeasure reports whether records for the measure code should be imported.
func (f *Filters) AcceptMeasure(code string) bool {
	return f == nil || f.Measures.Accept(code)
}

// AcceptYear reports whether readings for year should be imported.
func (f *Filters) AcceptYear(year int) bool {
	return f == nil || f.Years.Contains(year)
}
