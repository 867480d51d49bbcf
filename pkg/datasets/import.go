package datasets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hazyhaar/bethyw/pkg/areas"
	"github.com/hazyhaar/bethyw/pkg/importer"
)

// Result collects the per-file reports of one source import.
type Result struct {
	Source  string
	Reports []*importer.Report
}

// Merged returns the number of records merged across all files.
func (r *Result) Merged() int {
	n := 0
	for _, rep := range r.Reports {
		n += rep.Merged
	}
	return n
}

// Skipped returns the number of malformed records dropped across all files.
func (r *Result) Skipped() int {
	n := 0
	for _, rep := range r.Reports {
		n += rep.Skipped
	}
	return n
}

// Bytes returns the number of bytes read across all files.
func (r *Result) Bytes() int64 {
	var n int64
	for _, rep := range r.Reports {
		n += rep.Bytes
	}
	return n
}

// Path returns where f is expected inside dir.
func (f File) Path(dir string) string {
	return filepath.Join(dir, f.Name)
}

// Import reads every file of src from dir into as. opts supplies filters,
// error policy and logger; Source and Encoding are set per file. Import stops
// at the first file that fails, keeping whatever was merged before it.
func Import(as *areas.Areas, src *Source, dir string, opts importer.Options) (*Result, error) {
	res := &Result{Source: src.Code}
	for _, f := range src.Files {
		rep, err := importFile(as, src.Layout, f, dir, opts)
		if rep != nil {
			res.Reports = append(res.Reports, rep)
		}
		if err != nil {
			return res, fmt.Errorf("dataset %s: %w", src.Code, err)
		}
	}
	return res, nil
}

func importFile(as *areas.Areas, layout importer.Layout, f File, dir string, opts importer.Options) (*importer.Report, error) {
	file, err := os.Open(f.Path(dir))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer file.Close()

	opts.Source = f.Name
	opts.Encoding = f.Encoding
	return importer.Populate(as, file, layout, f.Columns, &opts)
}
