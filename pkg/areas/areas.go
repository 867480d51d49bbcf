// Package areas holds the in-memory model of imported statistics: Areas
// own Area values keyed by local authority code, each Area owns its
// Measures keyed by lowercase codename.
//
// The model is not safe for concurrent mutation. Imports are expected to
// run sequentially before the collection is queried.
package areas

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Areas is the registry of every imported area.
type Areas struct {
	byCode map[string]*Area
}

// New creates an empty collection.
func New() *Areas {
	return &Areas{byCode: make(map[string]*Area)}
}

// GetOrCreate returns the area for code, creating it on first reference.
// Lookup is case-insensitive; a new area keeps code as given.
func (as *Areas) GetOrCreate(code string) *Area {
	key := FoldCode(code)
	a, ok := as.byCode[key]
	if !ok {
		a = NewArea(strings.TrimSpace(code))
		as.byCode[key] = a
	}
	return a
}

// Area returns the area for code (case-insensitive).
func (as *Areas) Area(code string) (*Area, error) {
	a, ok := as.byCode[FoldCode(code)]
	if !ok {
		return nil, fmt.Errorf("No area found matching %s: %w", code, ErrNotFound)
	}
	return a, nil
}

// Contains reports whether an area with code exists.
func (as *Areas) Contains(code string) bool {
	_, ok := as.byCode[FoldCode(code)]
	return ok
}

// Set stores area, merging it into an existing area with the same code.
func (as *Areas) Set(area *Area) error {
	ms := lo.Map(lo.Values(area.measures), func(m *Measure, _ int) *Measure { return m.clone() })
	return as.merge(area.code, area.names, ms)
}

// Merge is the single merge step shared by every import layout: it looks
// up or creates the area for code, applies every name and merges m (when
// non-nil) into the area's measures.
func (as *Areas) Merge(code string, names map[string]string, m *Measure) error {
	if m == nil {
		return as.merge(code, names, nil)
	}
	return as.merge(code, names, []*Measure{m})
}

func (as *Areas) merge(code string, names map[string]string, ms []*Measure) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("empty authority code: %w", ErrInvalidFormat)
	}

	// Validate names before touching the collection so a bad record leaves no trace.
	for lang := range names {
		if _, err := NormalizeLang(lang); err != nil {
			return fmt.Errorf("area %s: %w", code, err)
		}
	}

	a := as.GetOrCreate(code)
	for lang, name := range names {
		if err := a.SetName(lang, name); err != nil {
			return err
		}
	}
	for _, m := range ms {
		a.SetMeasure(m.codename, m)
	}
	return nil
}

// All returns every area ordered by code.
func (as *Areas) All() []*Area {
	result := lo.Values(as.byCode)
	sort.Slice(result, func(i, j int) bool { return result[i].code < result[j].code })
	return result
}

// Size returns the number of areas.
func (as *Areas) Size() int {
	return len(as.byCode)
}

// MeasureCount returns the total number of measures across all areas.
func (as *Areas) MeasureCount() int {
	return lo.SumBy(lo.Values(as.byCode), func(a *Area) int { return a.Size() })
}

// String renders every area ordered by code, separated by blank lines.
func (as *Areas) String() string {
	parts := lo.Map(as.All(), func(a *Area, _ int) string { return a.String() })
	return strings.Join(parts, "\n")
}
