package areas

import (
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Area is an administrative region identified by its local authority code.
type Area struct {
	code     string
	names    map[string]string
	measures map[string]*Measure
}

// NewArea creates an Area with no names and no measures.
func NewArea(code string) *Area {
	return &Area{
		code:     code,
		names:    make(map[string]string),
		measures: make(map[string]*Measure),
	}
}

// Code returns the local authority code.
func (a *Area) Code() string { return a.code }

// SetName stores the name of the area in lang, replacing any previous one.
// lang must be three alphabetical characters; it is stored lowercase.
func (a *Area) SetName(lang, name string) error {
	key, err := NormalizeLang(lang)
	if err != nil {
		return fmt.Errorf("area %s: %w", a.code, err)
	}
	a.names[key] = name
	return nil
}

// Name returns the name of the area in lang (case-insensitive).
func (a *Area) Name(lang string) (string, error) {
	name, ok := a.names[strings.ToLower(lang)]
	if !ok {
		return "", fmt.Errorf("area %s has no name for language %q: %w", a.code, lang, ErrNotFound)
	}
	return name, nil
}

// Names returns a copy of the lang -> name map.
func (a *Area) Names() map[string]string {
	return maps.Clone(a.names)
}

// HasMeasure reports whether a measure with codename exists (case-insensitive).
func (a *Area) HasMeasure(codename string) bool {
	_, ok := a.measures[FoldCode(codename)]
	return ok
}

// Measure returns the stored measure for codename (case-insensitive). The
// returned pointer is the live measure owned by the area.
func (a *Area) Measure(codename string) (*Measure, error) {
	m, ok := a.measures[FoldCode(codename)]
	if !ok {
		return nil, fmt.Errorf("No measure found matching %s: %w", codename, ErrNotFound)
	}
	return m, nil
}

// SetMeasure adds m under the lowercase codename. When a measure already
// exists under that codename, the readings of m are merged into it and
// readings for years not present in m are kept. The stored label is kept
// unless it is empty. A nil m is ignored.
func (a *Area) SetMeasure(codename string, m *Measure) {
	if m == nil {
		return
	}
	key := FoldCode(codename)
	existing, ok := a.measures[key]
	if !ok {
		if m.codename != key {
			m = m.clone()
			m.codename = key
		}
		a.measures[key] = m
		return
	}
	existing.Merge(m)
	if existing.label == "" {
		existing.label = m.label
	}
}

// Measures returns copies of all measures keyed by codename.
func (a *Area) Measures() map[string]*Measure {
	return lo.MapValues(a.measures, func(m *Measure, _ string) *Measure { return m.clone() })
}

// Codenames returns the measure codenames in ascending order.
func (a *Area) Codenames() []string {
	keys := lo.Keys(a.measures)
	sort.Strings(keys)
	return keys
}

// Size returns the number of measures.
func (a *Area) Size() int {
	return len(a.measures)
}

// Equal reports whether both areas have the same code, names and measures.
func (a *Area) Equal(other *Area) bool {
	if a == nil || other == nil {
		return a == other
	}
	if a.code != other.code || !maps.Equal(a.names, other.names) {
		return false
	}
	return maps.EqualFunc(a.measures, other.measures, func(x, y *Measure) bool { return x.Equal(y) })
}

// DisplayName joins the known names with " / ", English first and Welsh
// second, or returns "Unnamed" when the area has none.
func (a *Area) DisplayName() string {
	if len(a.names) == 0 {
		return "Unnamed"
	}

	langs := lo.Keys(a.names)
	sort.Slice(langs, func(i, j int) bool {
		ri, rj := langRank(langs[i]), langRank(langs[j])
		if ri != rj {
			return ri < rj
		}
		return langs[i] < langs[j]
	})

	names := lo.Map(langs, func(l string, _ int) string { return a.names[l] })
	return strings.Join(names, " / ")
}

func langRank(lang string) int {
	switch lang {
	case "eng":
		return 0
	case "cym":
		return 1
	default:
		return 2
	}
}

// String renders the area header followed by every measure ordered by codename.
func (a *Area) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", a.DisplayName(), a.code)

	if len(a.measures) == 0 {
		b.WriteString("<no measures>\n")
		return b.String()
	}

	for _, code := range a.Codenames() {
		b.WriteString(a.measures[code].String())
		b.WriteByte('\n')
	}
	return b.String()
}
