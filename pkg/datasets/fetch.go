package datasets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

// Fetcher downloads source files that declare a URL.
type Fetcher struct {
	Client   *http.Client
	Attempts int
	// Backoff is the wait before the second attempt; it doubles after each failure.
	Backoff time.Duration
	// Progress, when set, receives a byte progress bar per download.
	Progress io.Writer
	Logger   *slog.Logger
}

// NewFetcher returns a Fetcher with three attempts and a 2s initial backoff.
func NewFetcher(logger *slog.Logger) *Fetcher {
	return &Fetcher{
		Client:   &http.Client{Timeout: 10 * time.Minute},
		Attempts: 3,
		Backoff:  2 * time.Second,
		Logger:   logger,
	}
}

// Fetch downloads every file of src that has a URL into dir. Files without a
// URL are skipped. It returns the number of files written.
func (f *Fetcher) Fetch(ctx context.Context, src *Source, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	n := 0
	for _, file := range src.Files {
		if file.URL == "" {
			continue
		}
		size, err := f.download(ctx, file.URL, file.Path(dir), file.Name)
		if err != nil {
			return n, fmt.Errorf("fetch %s/%s: %w", src.Code, file.Name, err)
		}
		n++
		f.logger().Info("fetched", "dataset", src.Code, "file", file.Name, "size", humanize.Bytes(uint64(size)))
	}
	return n, nil
}

// download writes url to dest with retries. The body goes to dest+".part"
// first so an interrupted download never replaces a good file.
func (f *Fetcher) download(ctx context.Context, url, dest, name string) (int64, error) {
	attempts := f.Attempts
	if attempts < 1 {
		attempts = 1
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := f.Backoff << uint(attempt-1)
			f.logger().Warn("retrying download", "url", url, "attempt", attempt+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, fmt.Errorf("create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			continue
		}

		size, err := f.save(resp, dest, name)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return size, nil
	}
	return 0, fmt.Errorf("download %s failed after %d attempts: %w", url, attempts, lastErr)
}

func (f *Fetcher) save(resp *http.Response, dest, name string) (int64, error) {
	part := dest + ".part"
	out, err := os.Create(part)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	var w io.Writer = out
	if f.Progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(f.Progress),
			progressbar.OptionSetDescription(name),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(time.Second),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		w = io.MultiWriter(out, bar)
	}

	size, copyErr := io.Copy(w, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(part)
		return 0, copyErr
	}
	if closeErr != nil {
		os.Remove(part)
		return 0, closeErr
	}
	return size, os.Rename(part, dest)
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}
