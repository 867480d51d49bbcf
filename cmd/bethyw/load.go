package main

import (
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/hazyhaar/bethyw/pkg/areas"
	"github.com/hazyhaar/bethyw/pkg/datasets"
	"github.com/hazyhaar/bethyw/pkg/importer"
)

// importFlags select what gets imported. Shared by every command that loads data.
type importFlags struct {
	Datasets []string `short:"d" help:"Datasets to import (codes, comma-separated, or all)."`
	Areas    []string `short:"a" help:"Authority codes to import (comma-separated, or all)."`
	Measures []string `short:"m" help:"Measure codes to import (comma-separated, or all)."`
	Years    string   `short:"y" help:"Year or inclusive range to import, e.g. 2010 or 2010-2018. 0 means all."`
	Policy   string   `help:"What to do with malformed records: fail-fast or skip. Overrides error_policy from the configuration."`
	Quiet    bool     `short:"q" help:"Hide the progress bar."`
}

// load imports the areas list and the selected datasets. A dataset that fails
// to import is logged and skipped; bad arguments abort.
func (f *importFlags) load(rc *runContext) (*areas.Areas, []string, error) {
	years, err := importer.ParseYearRange(f.Years)
	if err != nil {
		return nil, nil, err
	}
	selected, err := rc.registry.Select(f.Datasets)
	if err != nil {
		return nil, nil, err
	}
	policy := rc.policy
	if f.Policy != "" {
		if policy, err = importer.ParseErrorPolicy(f.Policy); err != nil {
			return nil, nil, err
		}
	}

	opts := importer.Options{
		Filters: importer.Filters{
			Areas:    importer.ParseStringFilter(f.Areas),
			Measures: importer.ParseStringFilter(f.Measures),
			Years:    years,
		},
		Policy: policy,
		Logger: rc.logger,
	}

	sources := append([]*datasets.Source{&rc.registry.Areas}, selected...)
	var w io.Writer = os.Stderr
	if f.Quiet {
		w = io.Discard
	}
	bar := newProgressBar(len(sources), w)

	as := areas.New()
	var loaded []string
	for _, src := range sources {
		bar.Describe(src.Code)
		if rc.importSource(as, src, opts) {
			loaded = append(loaded, src.Code)
		}
		bar.Add(1)
	}
	bar.Finish()

	rc.logger.Info("import finished",
		"datasets", len(loaded),
		"failed", len(sources)-len(loaded),
		"areas", as.Size(),
		"measures", as.MeasureCount(),
	)
	return as, loaded, nil
}

// importSource imports one source and records the run in the catalog.
func (rc *runContext) importSource(as *areas.Areas, src *datasets.Source, opts importer.Options) bool {
	started := time.Now()
	res, err := datasets.Import(as, src, rc.cfg.DataDir, opts)

	if rc.catalog != nil {
		if _, cerr := rc.catalog.RecordRun(src.Code, started, res, err); cerr != nil {
			rc.logger.Warn("cannot record import run", "dataset", src.Code, "error", cerr)
		}
	}
	if err != nil {
		rc.logger.Error("Error importing dataset", "dataset", src.Code, "error", err)
		return false
	}

	rc.logger.Info("dataset imported",
		"dataset", src.Code,
		"records", res.Merged(),
		"skipped", res.Skipped(),
		"read", humanize.Bytes(uint64(res.Bytes())),
		"took", time.Since(started).Round(time.Millisecond),
	)
	return true
}

func newProgressBar(total int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{Saucer: "#", SaucerPadding: " ", BarStart: "|", BarEnd: "|"}),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
