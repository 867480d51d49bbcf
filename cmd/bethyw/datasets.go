package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hazyhaar/bethyw/pkg/datasets"
)

type DatasetsCmd struct {
	Check  bool              `help:"Check that every source URL answers before listing. Needs a catalog."`
	SetURL map[string]string `name:"set-url" placeholder:"CODE=URL" help:"Override the download URL of a dataset in the catalog."`
}

func (c *DatasetsCmd) Run(rc *runContext) error {
	if (c.Check || len(c.SetURL) > 0) && rc.catalog == nil {
		return errors.New("--check and --set-url need a catalog: set catalog in the configuration file")
	}
	for code, url := range c.SetURL {
		src, err := rc.registry.Get(code)
		if err != nil {
			return err
		}
		if err := rc.catalog.SetURL(src.Code, url); err != nil {
			return err
		}
		rc.logger.Info("source url updated", "dataset", src.Code, "url", url)
	}
	if c.Check {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := datasets.NewChecker(rc.catalog, rc.logger).CheckAll(ctx); err != nil {
			return err
		}
	}

	status := map[string]string{}
	if rc.catalog != nil {
		entries, err := rc.catalog.Entries()
		if err != nil {
			return err
		}
		for _, e := range entries {
			status[e.Code] = checkStatus(e)
		}
	}

	w := tabwriter.NewWriter(rc.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tLAYOUT\tFILES\tSOURCE")
	for _, src := range append([]*datasets.Source{&rc.registry.Areas}, rc.registry.All()...) {
		files := make([]string, len(src.Files))
		for i, f := range src.Files {
			files[i] = f.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", src.Code, src.Name, src.Layout, strings.Join(files, ","), status[src.Code])
	}
	return w.Flush()
}

func checkStatus(e datasets.Entry) string {
	switch {
	case e.SourceURL == "":
		return "local"
	case e.LastStatus == nil:
		return "unchecked"
	case *e.LastStatus == 0 && e.LastError != nil:
		return "unreachable"
	default:
		return fmt.Sprintf("HTTP %d", *e.LastStatus)
	}
}
