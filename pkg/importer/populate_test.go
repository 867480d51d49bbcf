package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/hazyhaar/bethyw/pkg/areas"
)

const areasCSV = `Local authority code,Name (eng),Name (cym)
W06000001,Isle of Anglesey,Ynys Môn
W06000011,Swansea,Abertawe
W06000023,Powys,Powys
`

var areasCols = ColumnMapping{
	AuthCode:    "Local authority code",
	AuthNameEng: "Name (eng)",
	AuthNameCym: "Name (cym)",
}

const popdenJSON = `{
  "odata.metadata": "ignored",
  "value": [
    {"Localauthority_code": "W06000023", "Localauthority_itemname_en": "Powys", "Measure_Code": "DENS", "Measure_itemname_en": "Population density", "Year_code": "2010", "Data": 25.1},
    {"Localauthority_code": "W06000023", "Localauthority_itemname_en": "Powys", "Measure_Code": "DENS", "Measure_itemname_en": "Population density", "Year_code": "2016", "Data": 25.9},
    {"Localauthority_code": "W06000023", "Localauthority_itemname_en": "Powys", "Measure_Code": "DENS", "Measure_itemname_en": "Population density", "Year_code": "2021", "Data": 26.2},
    {"Localauthority_code": "W06000011", "Localauthority_itemname_en": "Swansea", "Measure_Code": "POP", "Measure_itemname_en": "Population", "Year_code": 2016, "Data": "244513"}
  ],
  "odata.nextLink": "ignored"
}`

var popdenCols = ColumnMapping{
	AuthCode:    "Localauthority_code",
	AuthNameEng: "Localauthority_itemname_en",
	MeasureCode: "Measure_Code",
	MeasureName: "Measure_itemname_en",
	Year:        "Year_code",
	Value:       "Data",
}

const areaByYearCSV = `AuthorityCode,2014,2015,2016
W06000023,5180.6,5180.7,5180.8
W06000011,379.7,379.7,379.8
`

var areaByYearCols = ColumnMapping{
	AuthCode:          "AuthorityCode",
	SingleMeasureCode: "area",
	SingleMeasureName: "Land area (sq. km)",
}

func TestPopulateAuthorityCSV(t *testing.T) {
	as := areas.New()
	rep, err := Populate(as, strings.NewReader(areasCSV), AuthorityCodeCSV, areasCols, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Merged)
	assert.Equal(t, int64(len(areasCSV)), rep.Bytes)

	a, err := as.Area("w06000001")
	require.NoError(t, err)
	name, err := a.Name("CYM")
	require.NoError(t, err)
	assert.Equal(t, "Ynys Môn", name)
	assert.Equal(t, 0, a.Size())
}

func TestPopulateWelshStatsJSON(t *testing.T) {
	as := areas.New()
	rep, err := Populate(as, strings.NewReader(popdenJSON), WelshStatsJSON, popdenCols, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Merged)

	powys, err := as.Area("W06000023")
	require.NoError(t, err)
	dens, err := powys.Measure("dens")
	require.NoError(t, err)
	assert.Equal(t, "Population density", dens.Label())
	assert.Equal(t, []int{2010, 2016, 2021}, dens.Years())

	swansea, err := as.Area("W06000011")
	require.NoError(t, err)
	pop, err := swansea.Measure("POP")
	require.NoError(t, err)
	v, err := pop.Value(2016)
	require.NoError(t, err)
	assert.Equal(t, 244513.0, v)
}

func TestPopulateAuthorityByYearCSV(t *testing.T) {
	as := areas.New()
	_, err := Populate(as, strings.NewReader(areaByYearCSV), AuthorityByYearCSV, areaByYearCols, nil)
	require.NoError(t, err)

	powys, err := as.Area("W06000023")
	require.NoError(t, err)
	m, err := powys.Measure("AREA")
	require.NoError(t, err)
	assert.Equal(t, "Land area (sq. km)", m.Label())
	assert.Equal(t, map[int]float64{2014: 5180.6, 2015: 5180.7, 2016: 5180.8}, m.Values())
}

func TestPopulateYearFilter(t *testing.T) {
	as := areas.New()
	opts := &Options{Filters: Filters{Years: YearRange{2015, 2020}}}
	_, err := Populate(as, strings.NewReader(popdenJSON), WelshStatsJSON, popdenCols, opts)
	require.NoError(t, err)

	powys, err := as.Area("W06000023")
	require.NoError(t, err)
	dens, err := powys.Measure("dens")
	require.NoError(t, err)
	assert.Equal(t, []int{2016}, dens.Years())

	all := areas.New()
	_, err = Populate(all, strings.NewReader(popdenJSON), WelshStatsJSON, popdenCols, &Options{Filters: Filters{Years: AllYears}})
	require.NoError(t, err)
	powys, err = all.Area("W06000023")
	require.NoError(t, err)
	dens, err = powys.Measure("dens")
	require.NoError(t, err)
	assert.Equal(t, []int{2010, 2016, 2021}, dens.Years())
}

func TestPopulateYearFilterDropsEmptyRows(t *testing.T) {
	as := areas.New()
	opts := &Options{Filters: Filters{Years: YearRange{2020, 2025}}}
	rep, err := Populate(as, strings.NewReader(areaByYearCSV), AuthorityByYearCSV, areaByYearCols, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Merged)
	assert.Equal(t, 0, as.Size())
}

func TestPopulateAreaFilterIsCaseInsensitive(t *testing.T) {
	as := areas.New()
	opts := &Options{Filters: Filters{Areas: NewStringFilter("w06000023")}}
	_, err := Populate(as, strings.NewReader(popdenJSON), WelshStatsJSON, popdenCols, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, as.Size())
	assert.True(t, as.Contains("W06000023"))
	assert.False(t, as.Contains("W06000011"))
}

func TestPopulateMeasureFilter(t *testing.T) {
	as := areas.New()
	opts := &Options{Filters: Filters{Measures: NewStringFilter("pop")}}
	_, err := Populate(as, strings.NewReader(popdenJSON), WelshStatsJSON, popdenCols, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"W06000011"}, codes(as))

	// A single-measure source whose measure is filtered out is drained without merging anything.
	r := strings.NewReader(areaByYearCSV)
	rep, err := Populate(as, r, AuthorityByYearCSV, areaByYearCols, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Merged)
	assert.Equal(t, 0, r.Len())
}

func TestPopulateUnionAcrossCalls(t *testing.T) {
	as := areas.New()
	_, err := Populate(as, strings.NewReader(areasCSV), AuthorityCodeCSV, areasCols, nil)
	require.NoError(t, err)
	_, err = Populate(as, strings.NewReader(popdenJSON), WelshStatsJSON, popdenCols, nil)
	require.NoError(t, err)
	_, err = Populate(as, strings.NewReader(areaByYearCSV), AuthorityByYearCSV, areaByYearCols, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, as.Size())
	powys, err := as.Area("W06000023")
	require.NoError(t, err)
	assert.Equal(t, []string{"area", "dens"}, powys.Codenames())
	name, err := powys.Name("cym")
	require.NoError(t, err)
	assert.Equal(t, "Powys", name)
}

func TestPopulateFailFastKeepsEarlierRecords(t *testing.T) {
	src := `AuthorityCode,2014,2015
W06000023,1,2
W06000011,3,oops
W06000001,5,6
`
	as := areas.New()
	rep, err := Populate(as, strings.NewReader(src), AuthorityByYearCSV, areaByYearCols, &Options{Source: "bad.csv"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 2, fe.Record)
	assert.Equal(t, "2015", fe.Field)
	assert.Equal(t, "bad.csv", fe.Source)
	assert.Contains(t, err.Error(), "bad.csv")

	assert.Equal(t, 1, rep.Merged)
	assert.True(t, as.Contains("W06000023"))
	// The malformed row is never partially merged.
	assert.False(t, as.Contains("W06000011"))
	assert.False(t, as.Contains("W06000001"))
}

func TestPopulateSkipInvalid(t *testing.T) {
	src := `Local authority code,Name (eng),Name (cym)
W06000001,Isle of Anglesey,Ynys Môn
W06000011,Swansea
,Nowhere,Unman
W06000023,Powys,Powys
`
	as := areas.New()
	rep, err := Populate(as, strings.NewReader(src), AuthorityCodeCSV, areasCols, &Options{Policy: SkipInvalid})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Merged)
	assert.Equal(t, 2, rep.Skipped)
	require.Len(t, rep.Errors, 2)
	assert.ErrorIs(t, rep.Errors[0], errRowWidth)
	assert.ErrorIs(t, rep.Errors[1], errMissingField)
	assert.Equal(t, []string{"W06000001", "W06000023"}, codes(as))
}

func TestPopulateJSONSkipsMalformedNodes(t *testing.T) {
	src := `{"value": [
		{"Localauthority_code": "W06000023", "Measure_Code": "dens", "Measure_itemname_en": "Density", "Year_code": "2016", "Data": 1},
		42,
		{"Localauthority_code": "W06000023", "Measure_Code": "dens", "Year_code": "twenty", "Data": 1},
		{"Localauthority_code": "W06000023", "Measure_Code": "dens", "Year_code": "2017"},
		{"Localauthority_code": "W06000023", "Measure_Code": "dens", "Measure_itemname_en": "Density", "Year_code": "2018", "Data": 3}
	]}`
	as := areas.New()
	rep, err := Populate(as, strings.NewReader(src), WelshStatsJSON, popdenCols, &Options{Policy: SkipInvalid})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Merged)
	assert.Equal(t, 3, rep.Skipped)

	powys, err := as.Area("W06000023")
	require.NoError(t, err)
	m, err := powys.Measure("dens")
	require.NoError(t, err)
	assert.Equal(t, []int{2016, 2018}, m.Years())
}

func TestPopulateRejectsNonFiniteValues(t *testing.T) {
	t.Run("by year csv", func(t *testing.T) {
		src := "AuthorityCode,2010,2011\nW06000023,NaN,5\nW06000011,4,+Inf\nW06000001,1,2\n"
		as := areas.New()
		rep, err := Populate(as, strings.NewReader(src), AuthorityByYearCSV, areaByYearCols, &Options{Policy: SkipInvalid})
		require.NoError(t, err)
		assert.Equal(t, 1, rep.Merged)
		assert.Equal(t, 2, rep.Skipped)
		for _, e := range rep.Errors {
			assert.ErrorIs(t, e, errNonFinite)
		}
		assert.Equal(t, []string{"W06000001"}, codes(as))

		_, err = Populate(areas.New(), strings.NewReader(src), AuthorityByYearCSV, areaByYearCols, nil)
		assert.ErrorIs(t, err, ErrFormat)
		assert.ErrorIs(t, err, errNonFinite)
	})

	t.Run("welsh stats json", func(t *testing.T) {
		src := `{"value": [
			{"Localauthority_code": "W06000023", "Measure_Code": "dens", "Year_code": "2016", "Data": "Inf"},
			{"Localauthority_code": "W06000023", "Measure_Code": "dens", "Year_code": "2017", "Data": "nan"},
			{"Localauthority_code": "W06000023", "Measure_Code": "dens", "Year_code": "2018", "Data": 3}
		]}`
		as := areas.New()
		rep, err := Populate(as, strings.NewReader(src), WelshStatsJSON, popdenCols, &Options{Policy: SkipInvalid})
		require.NoError(t, err)
		assert.Equal(t, 1, rep.Merged)
		assert.Equal(t, 2, rep.Skipped)

		powys, err := as.Area("W06000023")
		require.NoError(t, err)
		m, err := powys.Measure("dens")
		require.NoError(t, err)
		assert.Equal(t, []int{2018}, m.Years())
		avg, err := m.Average()
		require.NoError(t, err)
		assert.Equal(t, 3.0, avg)

		_, err = json.Marshal(as)
		assert.NoError(t, err)
	})
}

func TestPopulateJSONEnvelopeErrors(t *testing.T) {
	for name, src := range map[string]string{
		"no value array": `{"other": []}`,
		"not an object":  `[1, 2]`,
		"truncated":      `{"value": [{"Localauthority_code": "W06000023"`,
		"empty":          ``,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Populate(areas.New(), strings.NewReader(src), WelshStatsJSON, popdenCols, &Options{Policy: SkipInvalid})
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestPopulateMissingMapping(t *testing.T) {
	_, err := Populate(areas.New(), strings.NewReader(areasCSV), AuthorityCodeCSV, ColumnMapping{AuthCode: "Local authority code"}, nil)
	assert.ErrorIs(t, err, ErrFormat)
	assert.ErrorIs(t, err, errMissingMapping)

	_, err = Populate(areas.New(), strings.NewReader(popdenJSON), WelshStatsJSON, ColumnMapping{
		AuthCode: "Localauthority_code", Year: "Year_code", Value: "Data",
	}, nil)
	assert.ErrorIs(t, err, errMissingMapping)
}

func TestPopulateMissingHeaderColumn(t *testing.T) {
	cols := ColumnMapping{AuthCode: "Code", AuthNameEng: "Name (eng)", AuthNameCym: "Name (cym)"}
	_, err := Populate(areas.New(), strings.NewReader(areasCSV), AuthorityCodeCSV, cols, nil)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, -1, fe.Record)
	assert.Equal(t, "Code", fe.Field)
}

func TestPopulateRejectsNonIntegerYearHeader(t *testing.T) {
	src := "AuthorityCode,2014,Total\nW06000023,1,2\n"
	_, err := Populate(areas.New(), strings.NewReader(src), AuthorityByYearCSV, areaByYearCols, &Options{Policy: SkipInvalid})
	assert.ErrorIs(t, err, ErrFormat)
}

func TestPopulateUnknownLayout(t *testing.T) {
	_, err := Populate(areas.New(), strings.NewReader(""), Layout(99), nil, nil)
	assert.Error(t, err)
}

func TestPopulateTranscodes(t *testing.T) {
	latin1, err := charmap.Windows1252.NewEncoder().String(areasCSV)
	require.NoError(t, err)

	as := areas.New()
	_, err = Populate(as, bytes.NewBufferString(latin1), AuthorityCodeCSV, areasCols, &Options{Encoding: "windows-1252"})
	require.NoError(t, err)
	a, err := as.Area("W06000001")
	require.NoError(t, err)
	name, err := a.Name("cym")
	require.NoError(t, err)
	assert.Equal(t, "Ynys Môn", name)

	_, err = Populate(as, strings.NewReader(areasCSV), AuthorityCodeCSV, areasCols, &Options{Encoding: "klingon"})
	assert.Error(t, err)
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("Welsh-Stats-JSON")
	require.NoError(t, err)
	assert.Equal(t, WelshStatsJSON, l)

	_, err = ParseLayout("xml")
	assert.ErrorContains(t, err, "authority_code_csv")

	assert.Len(t, All(), 3)
}

func codes(as *areas.Areas) []string {
	var out []string
	for _, a := range as.All() {
		out = append(out, a.Code())
	}
	return out
}
