package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/bethyw/pkg/api"
	"github.com/hazyhaar/bethyw/pkg/datasets"
)

type ServeCmd struct {
	importFlags

	Addr string `help:"Listen address. Overrides addr from the configuration."`
}

func (c *ServeCmd) Run(rc *runContext) error {
	as, loaded, err := c.load(rc)
	if err != nil {
		return err
	}

	addr := rc.cfg.Addr
	if c.Addr != "" {
		addr = c.Addr
	}

	srv := &http.Server{
		Addr: addr,
		Handler: api.NewRouter(&api.Service{
			Areas:    as,
			Registry: rc.registry,
			Catalog:  rc.catalog,
			Loaded:   loaded,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if rc.catalog != nil && rc.cfg.CheckInterval > 0 {
		go datasets.NewChecker(rc.catalog, rc.logger).Run(ctx, rc.cfg.CheckInterval)
	}

	errc := make(chan error, 1)
	go func() {
		rc.logger.Info("bethyw listening", "addr", addr, "areas", as.Size())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	rc.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
