package areas

import (
	"encoding/json"
	"strconv"
)

// AreaExport is the interchange form of an Area.
type AreaExport struct {
	Names    map[string]string             `json:"names"`
	Measures map[string]map[string]float64 `json:"measures"`
}

// Export converts an area to its interchange form. Years become string keys.
func (a *Area) Export() AreaExport {
	out := AreaExport{
		Names:    a.Names(),
		Measures: make(map[string]map[string]float64, len(a.measures)),
	}
	for code, m := range a.measures {
		values := make(map[string]float64, len(m.values))
		for year, v := range m.values {
			values[strconv.Itoa(year)] = v
		}
		out.Measures[code] = values
	}
	return out
}

// Export converts the whole collection to a map of authority code to area export.
func (as *Areas) Export() map[string]AreaExport {
	out := make(map[string]AreaExport, len(as.byCode))
	for _, a := range as.byCode {
		out[a.code] = a.Export()
	}
	return out
}

// MarshalJSON encodes the collection as {"<code>": {"names": {...}, "measures": {...}}}.
func (as *Areas) MarshalJSON() ([]byte, error) {
	return json.Marshal(as.Export())
}

// MarshalJSON encodes a single area in its interchange form.
func (a *Area) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Export())
}
