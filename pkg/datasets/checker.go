package datasets

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// CheckResult is the availability of one dataset's source URL.
type CheckResult struct {
	Dataset string
	URL     string
	// Status is the HTTP status, or 0 when no response was received.
	Status int
	Err    error
}

// OK reports whether the source answered with a 2xx or 3xx status.
func (r CheckResult) OK() bool {
	return r.Err == nil && r.Status >= 200 && r.Status < 400
}

// Checker probes the source URL of every catalogued dataset and stores the
// outcome with Catalog.UpdateCheck.
type Checker struct {
	Catalog *Catalog
	Client  *http.Client
	Logger  *slog.Logger
}

// NewChecker returns a Checker that does not follow redirects.
func NewChecker(catalog *Catalog, logger *slog.Logger) *Checker {
	return &Checker{
		Catalog: catalog,
		Logger:  logger,
		Client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Run checks once, then every interval until ctx is done.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	c.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runOnce(ctx)
		}
	}
}

func (c *Checker) runOnce(ctx context.Context) {
	if _, err := c.CheckAll(ctx); err != nil && ctx.Err() == nil {
		c.logger().Error("source check failed", "error", err)
	}
}

// CheckAll probes every dataset that has a URL, in catalog order.
func (c *Checker) CheckAll(ctx context.Context) ([]CheckResult, error) {
	entries, err := c.Catalog.Entries()
	if err != nil {
		return nil, err
	}

	var results []CheckResult
	failed := 0
	for _, e := range entries {
		if e.SourceURL == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := CheckResult{Dataset: e.Code, URL: e.SourceURL}
		res.Status, res.Err = c.probe(ctx, e.SourceURL)
		results = append(results, res)

		msg := ""
		if res.Err != nil {
			msg = res.Err.Error()
		}
		if err := c.Catalog.UpdateCheck(e.Code, res.Status, msg); err != nil {
			c.logger().Error("cannot store source check", "dataset", e.Code, "error", err)
		}
		if !res.OK() {
			failed++
			c.logger().Warn("source unreachable", "dataset", e.Code, "url", e.SourceURL, "status", res.Status, "error", msg)
		}
	}

	c.logger().Info("source check complete", "checked", len(results), "failed", failed)
	return results, nil
}

// probe sends a HEAD request. Servers that refuse HEAD get a GET for the
// first byte instead.
func (c *Checker) probe(ctx context.Context, url string) (int, error) {
	status, err := c.do(ctx, http.MethodHead, url)
	if err != nil || (status != http.StatusMethodNotAllowed && status != http.StatusNotImplemented) {
		return status, err
	}
	return c.do(ctx, http.MethodGet, url)
}

func (c *Checker) do(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, url, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (c *Checker) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
