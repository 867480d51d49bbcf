package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/hazyhaar/bethyw/pkg/datasets"
	"github.com/hazyhaar/bethyw/pkg/importer"
	"github.com/hazyhaar/bethyw/pkg/logging"
)

var version = "dev"

var cli struct {
	Config    string `short:"c" default:"bethyw.yaml" help:"Configuration file. Defaults are used when it does not exist." type:"path"`
	DataDir   string `help:"Directory holding the source files. Overrides data_dir from the configuration." type:"path"`
	LogLevel  string `help:"Log level: debug, info, warn or error. Overrides log_level from the configuration."`
	LogFormat string `help:"Log format: text or json. Overrides log_format from the configuration."`

	Show     ShowCmd     `cmd:"" default:"withargs" help:"Import datasets and print the areas with their statistics."`
	Serve    ServeCmd    `cmd:"" help:"Import datasets and serve them over HTTP."`
	Mcp      McpCmd      `cmd:"" help:"Import datasets and serve them as MCP tools over stdio."`
	Datasets DatasetsCmd `cmd:"" help:"List the known datasets."`
	Fetch    FetchCmd    `cmd:"" help:"Download dataset files that declare a URL."`
}

// runContext is shared by every command.
type runContext struct {
	cfg      config
	logger   *slog.Logger
	registry *datasets.Registry
	// catalog is nil when no catalog path is configured.
	catalog *datasets.Catalog
	policy  importer.ErrorPolicy
	out     io.Writer
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("bethyw"),
		kong.Description("Import and query StatsWales regional statistics."),
		kong.ShortUsageOnError(),
	)

	rc, closeFn, err := newRunContext(cli.Config, overrides{
		DataDir:   cli.DataDir,
		LogLevel:  cli.LogLevel,
		LogFormat: cli.LogFormat,
	}, os.Stdout, os.Stderr)
	ctx.FatalIfErrorf(err)
	defer closeFn()

	err = ctx.Run(rc)
	ctx.FatalIfErrorf(err)
}

// newRunContext loads the configuration, sets up logging and opens the
// registry and catalog. The returned func closes the catalog.
func newRunContext(cfgPath string, ov overrides, out, logOut io.Writer) (*runContext, func(), error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	cfg.apply(ov)

	logger, err := logging.Setup(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	if cfg.path == "" {
		logger.Debug("no config file, using defaults", "path", cfgPath)
	}

	policy, err := importer.ParseErrorPolicy(cfg.ErrorPolicy)
	if err != nil {
		return nil, nil, err
	}

	reg, err := cfg.registry()
	if err != nil {
		return nil, nil, err
	}

	rc := &runContext{cfg: cfg, logger: logger, registry: reg, policy: policy, out: out}
	closeFn := func() {}
	if cfg.Catalog != "" {
		cat, err := datasets.OpenCatalog(cfg.Catalog)
		if err != nil {
			return nil, nil, err
		}
		if err := cat.Seed(append([]*datasets.Source{&reg.Areas}, reg.All()...)); err != nil {
			cat.Close()
			return nil, nil, err
		}
		rc.catalog = cat
		closeFn = func() { cat.Close() }
	}
	return rc, closeFn, nil
}
