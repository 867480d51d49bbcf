package importer

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/hazyhaar/bethyw/pkg/areas"
)

// Options configure a single Populate call.
type Options struct {
	Filters
	// Policy decides what happens to records that fail to decode.
	Policy ErrorPolicy
	// Encoding names the character encoding of the source (e.g.
	// "windows-1252"). Empty means UTF-8.
	Encoding string
	// Source names the stream in errors and logs (usually a file name).
	Source string
	Logger *slog.Logger
}

// Report summarizes a Populate call.
type Report struct {
	Source  string
	Layout  Layout
	Merged  int     // records merged into the collection
	Skipped int     // malformed records dropped under SkipInvalid
	Errors  []error // one *FormatError per skipped record
	Bytes   int64   // bytes consumed from the stream
}

// Populate decodes r under layout using cols and merges every record that
// survives the filters into as. Records are merged as soon as they are
// decoded, so a fail-fast abort leaves earlier records in place; a record
// that fails to decode is never partially merged.
func Populate(as *areas.Areas, r io.Reader, layout Layout, cols ColumnMapping, opts *Options) (*Report, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dec, err := Get(layout)
	if err != nil {
		return nil, err
	}
	if err := dec.Validate(cols); err != nil {
		return nil, withSource(err, opts.Source)
	}

	counter := &countingReader{r: r}
	reader, err := transcode(counter, opts.Encoding)
	if err != nil {
		return nil, err
	}

	m := &merger{
		areas:  as,
		policy: opts.Policy,
		source: opts.Source,
		report: &Report{Source: opts.Source, Layout: layout},
	}

	err = dec.Decode(reader, cols, &opts.Filters, m)
	m.report.Bytes = counter.n
	if err != nil {
		err = withSource(err, opts.Source)
		logger.Error("import aborted",
			"source", opts.Source,
			"layout", layout,
			"merged", m.report.Merged,
			"error", err,
		)
		return m.report, err
	}

	logger.Info("import complete",
		"source", opts.Source,
		"layout", layout,
		"merged", m.report.Merged,
		"skipped", m.report.Skipped,
		"read", humanize.Bytes(uint64(m.report.Bytes)),
	)
	for _, e := range m.report.Errors {
		logger.Warn("record skipped", "source", opts.Source, "error", e)
	}
	return m.report, nil
}

// merger is the Emitter that feeds decoded records into the collection.
type merger struct {
	areas  *areas.Areas
	policy ErrorPolicy
	source string
	report *Report
}

func (m *merger) Emit(rec Record) error {
	var measure *areas.Measure
	if rec.HasMeasure() {
		measure = areas.NewMeasure(rec.MeasureCode, rec.MeasureLabel)
		for year, v := range rec.Values {
			measure.SetValue(year, v)
		}
	}
	if err := m.areas.Merge(rec.AreaCode, rec.Names, measure); err != nil {
		return m.Reject(&FormatError{Record: rec.Position, Err: err})
	}
	m.report.Merged++
	return nil
}

func (m *merger) Reject(err *FormatError) error {
	if err.Source == "" {
		err.Source = m.source
	}
	if err.Layout == 0 {
		err.Layout = m.report.Layout
	}
	if m.policy == FailFast {
		return err
	}
	m.report.Skipped++
	m.report.Errors = append(m.report.Errors, err)
	return nil
}

func withSource(err error, source string) error {
	if fe, ok := err.(*FormatError); ok && fe.Source == "" {
		fe.Source = source
	}
	return err
}

// transcode wraps r in a decoder for non-UTF-8 encodings.
func transcode(r io.Reader, enc string) (io.Reader, error) {
	if enc == "" || isUTF8(enc) {
		return r, nil
	}
	e, err := htmlindex.Get(enc)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", enc, err)
	}
	return transform.NewReader(r, e.NewDecoder()), nil
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
