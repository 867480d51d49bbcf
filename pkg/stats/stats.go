// Package stats computes derived statistics over yearly time series.
package stats

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrEmptySeries is returned when a statistic is requested on a series
	// with no recorded years.
	ErrEmptySeries = errors.New("empty series")
	// ErrZeroBaseline is returned by DifferenceAsPercentage when the value
	// at the first year is zero.
	ErrZeroBaseline = errors.New("zero baseline value")
)

// Point is a single yearly reading.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Series is a list of readings ordered by ascending year.
type Series []Point

// NewSeries builds a year-ordered series from a year->value map.
func NewSeries(values map[int]float64) Series {
	s := make(Series, 0, len(values))
	for year, v := range values {
		s = append(s, Point{Year: year, Value: v})
	}
	sort.Slice(s, func(i, j int) bool { return s[i].Year < s[j].Year })
	return s
}

// Len returns the number of readings.
func (s Series) Len() int {
	return len(s)
}

// First returns the reading for the earliest year.
func (s Series) First() (Point, error) {
	if len(s) == 0 {
		return Point{}, ErrEmptySeries
	}
	return s[0], nil
}

// Last returns the reading for the latest year.
func (s Series) Last() (Point, error) {
	if len(s) == 0 {
		return Point{}, ErrEmptySeries
	}
	return s[len(s)-1], nil
}

// Difference returns the value at the last year minus the value at the first year.
func Difference(s Series) (float64, error) {
	if len(s) == 0 {
		return 0, ErrEmptySeries
	}
	return s[len(s)-1].Value - s[0].Value, nil
}

// DifferenceAsPercentage returns Difference relative to the first year's value, times 100.
func DifferenceAsPercentage(s Series) (float64, error) {
	diff, err := Difference(s)
	if err != nil {
		return 0, err
	}
	base := s[0].Value
	if base == 0 {
		return 0, fmt.Errorf("percentage difference from %d: %w", s[0].Year, ErrZeroBaseline)
	}
	return diff / base * 100, nil
}

// Average returns the arithmetic mean of all values.
func Average(s Series) (float64, error) {
	if len(s) == 0 {
		return 0, ErrEmptySeries
	}
	sum := 0.0
	for _, p := range s {
		sum += p.Value
	}
	return sum / float64(len(s)), nil
}

// Min returns the reading with the smallest value. Ties go to the earliest year.
func Min(s Series) (Point, error) {
	if len(s) == 0 {
		return Point{}, ErrEmptySeries
	}
	min := s[0]
	for _, p := range s[1:] {
		if p.Value < min.Value {
			min = p
		}
	}
	return min, nil
}

// Max returns the reading with the largest value. Ties go to the earliest year.
func Max(s Series) (Point, error) {
	if len(s) == 0 {
		return Point{}, ErrEmptySeries
	}
	max := s[0]
	for _, p := range s[1:] {
		if p.Value > max.Value {
			max = p
		}
	}
	return max, nil
}

// Summary bundles the derived statistics of a series. Fields whose
// computation failed are nil.
type Summary struct {
	First                  *Point   `json:"first,omitempty"`
	Last                   *Point   `json:"last,omitempty"`
	Min                    *Point   `json:"min,omitempty"`
	Max                    *Point   `json:"max,omitempty"`
	Average                *float64 `json:"average,omitempty"`
	Difference             *float64 `json:"difference,omitempty"`
	DifferenceAsPercentage *float64 `json:"difference_pct,omitempty"`
}

// Summarize computes every statistic it can. An empty series yields an empty Summary.
func Summarize(s Series) Summary {
	var sum Summary
	if p, err := s.First(); err == nil {
		sum.First = &p
	}
	if p, err := s.Last(); err == nil {
		sum.Last = &p
	}
	if p, err := Min(s); err == nil {
		sum.Min = &p
	}
	if p, err := Max(s); err == nil {
		sum.Max = &p
	}
	if v, err := Average(s); err == nil {
		sum.Average = &v
	}
	if v, err := Difference(s); err == nil {
		sum.Difference = &v
	}
	if v, err := DifferenceAsPercentage(s); err == nil {
		sum.DifferenceAsPercentage = &v
	}
	return sum
}
