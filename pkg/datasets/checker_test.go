package datasets

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/bethyw/pkg/importer"
)

func TestCheckAllMixed(t *testing.T) {
	srv200 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv200.Close()
	srv404 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv404.Close()

	c := tempCatalog(t)
	require.NoError(t, c.Seed([]*Source{
		{Code: "up", Name: "Up", Layout: importer.WelshStatsJSON, Files: []File{{Name: "a.json", URL: srv200.URL}}},
		{Code: "down", Name: "Down", Layout: importer.WelshStatsJSON, Files: []File{{Name: "b.json", URL: srv404.URL}}},
		{Code: "local", Name: "Local", Layout: importer.AuthorityByYearCSV, Files: []File{{Name: "c.csv"}}},
	}))

	checker := NewChecker(c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	results, err := checker.CheckAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	byCode := map[string]CheckResult{}
	for _, r := range results {
		byCode[r.Dataset] = r
	}
	assert.True(t, byCode["up"].OK())
	assert.False(t, byCode["down"].OK())

	entries, err := c.Entries()
	require.NoError(t, err)
	status := map[string]*int{}
	for _, e := range entries {
		status[e.Code] = e.LastStatus
	}
	require.NotNil(t, status["up"])
	assert.Equal(t, 200, *status["up"])
	require.NotNil(t, status["down"])
	assert.Equal(t, 404, *status["down"])
	assert.Nil(t, status["local"])
}

func TestCheckFallsBackToGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		assert.Equal(t, "bytes=0-0", r.Header.Get("Range"))
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer srv.Close()

	c := tempCatalog(t)
	require.NoError(t, c.Seed([]*Source{
		{Code: "odata", Name: "OData", Layout: importer.WelshStatsJSON, Files: []File{{Name: "a.json", URL: srv.URL}}},
	}))

	results, err := NewChecker(c, nil).CheckAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, http.StatusPartialContent, results[0].Status)
	assert.True(t, results[0].OK())
}

func TestCheckUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := tempCatalog(t)
	require.NoError(t, c.Seed([]*Source{
		{Code: "gone", Name: "Gone", Layout: importer.WelshStatsJSON, Files: []File{{Name: "a.json", URL: url}}},
	}))

	results, err := NewChecker(c, nil).CheckAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Status)
	assert.Error(t, results[0].Err)

	entries, err := c.Entries()
	require.NoError(t, err)
	require.NotNil(t, entries[0].LastError)
}

func TestCheckerRunStopsOnCancel(t *testing.T) {
	c := tempCatalog(t)
	checker := NewChecker(c, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		checker.Run(ctx, time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("checker did not stop")
	}
}

func TestCheckerRunLogsCatalogErrors(t *testing.T) {
	c := tempCatalog(t)
	require.NoError(t, c.Close())

	var logs bytes.Buffer
	checker := NewChecker(c, slog.New(slog.NewTextHandler(&logs, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	checker.Run(ctx, time.Hour)

	assert.Contains(t, logs.String(), "source check failed")
}
