package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/bethyw/pkg/datasets"
)

type FetchCmd struct {
	Datasets []string `arg:"" optional:"" help:"Datasets to download (codes or all). Defaults to all."`
	Quiet    bool     `short:"q" help:"Hide download progress."`
}

func (c *FetchCmd) Run(rc *runContext) error {
	selected, err := rc.registry.Select(c.Datasets)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f := datasets.NewFetcher(rc.logger)
	if !c.Quiet {
		f.Progress = os.Stderr
	}

	var failed int
	for _, src := range selected {
		if rc.catalog != nil {
			if url, err := rc.catalog.URL(src.Code); err == nil && url != "" {
				src = withURL(src, url)
			}
		}
		n, err := f.Fetch(ctx, src, rc.cfg.DataDir)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			rc.logger.Error("fetch failed", "dataset", src.Code, "error", err)
			continue
		}
		if n == 0 {
			rc.logger.Info("nothing to fetch", "dataset", src.Code)
		}
	}
	if failed > 0 {
		return fmt.Errorf("fetch failed for %d of %d datasets", failed, len(selected))
	}
	return nil
}

// withURL returns a copy of src whose first downloadable file uses url.
func withURL(src *datasets.Source, url string) *datasets.Source {
	cp := *src
	cp.Files = append([]datasets.File(nil), src.Files...)
	for i := range cp.Files {
		if cp.Files[i].URL != "" {
			cp.Files[i].URL = url
			break
		}
	}
	return &cp
}
