package datasets

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is a row of the datasets table.
type Entry struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Layout     string  `json:"layout"`
	SourceURL  string  `json:"source_url,omitempty"`
	LastCheck  *int64  `json:"last_check,omitempty"`
	LastStatus *int    `json:"last_status,omitempty"`
	LastError  *string `json:"last_error,omitempty"`
	UpdatedAt  int64   `json:"updated_at"`
}

// Run is one import of a dataset.
type Run struct {
	ID         int64   `json:"id"`
	Dataset    string  `json:"dataset"`
	StartedAt  int64   `json:"started_at"`
	FinishedAt int64   `json:"finished_at"`
	Status     string  `json:"status"`
	Merged     int     `json:"merged"`
	Skipped    int     `json:"skipped"`
	Bytes      int64   `json:"bytes"`
	Error      *string `json:"error,omitempty"`
}

// Run statuses.
const (
	RunOK     = "ok"
	RunFailed = "failed"
)

// Catalog keeps the known datasets and their import history in SQLite.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens (or creates) the SQLite database at path and ensures its tables exist.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS datasets (
		code         TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		layout       TEXT NOT NULL,
		source_url   TEXT NOT NULL DEFAULT '',
		last_check   INTEGER,
		last_status  INTEGER,
		last_error   TEXT,
		updated_at   INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS import_runs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		dataset      TEXT NOT NULL,
		started_at   INTEGER NOT NULL,
		finished_at  INTEGER NOT NULL,
		status       TEXT NOT NULL,
		merged       INTEGER NOT NULL DEFAULT 0,
		skipped      INTEGER NOT NULL DEFAULT 0,
		bytes        INTEGER NOT NULL DEFAULT 0,
		error        TEXT
	);
	CREATE INDEX IF NOT EXISTS import_runs_dataset ON import_runs(dataset, started_at)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog tables: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Seed inserts a row per source. Existing rows are left untouched so that
// URL overrides survive restarts.
func (c *Catalog) Seed(sources []*Source) error {
	const q = `INSERT OR IGNORE INTO datasets (code, name, layout, source_url, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	now := time.Now().Unix()
	for _, s := range sources {
		if _, err := c.db.Exec(q, s.Code, s.Name, s.Layout.String(), s.firstURL(), now); err != nil {
			return fmt.Errorf("seed %s: %w", s.Code, err)
		}
	}
	return nil
}

// URL returns the stored source URL for a dataset.
func (c *Catalog) URL(code string) (string, error) {
	var url string
	err := c.db.QueryRow(`SELECT source_url FROM datasets WHERE code = ?`, code).Scan(&url)
	if err != nil {
		return "", fmt.Errorf("get url for %s: %w", code, err)
	}
	return url, nil
}

// SetURL overrides the source URL of a dataset.
func (c *Catalog) SetURL(code, url string) error {
	res, err := c.db.Exec(`UPDATE datasets SET source_url = ?, updated_at = ? WHERE code = ?`,
		url, time.Now().Unix(), code)
	if err != nil {
		return fmt.Errorf("set url for %s: %w", code, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &UnknownDatasetError{Code: code}
	}
	return nil
}

// UpdateCheck stores the result of an availability check.
func (c *Catalog) UpdateCheck(code string, status int, checkErr string) error {
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	_, err := c.db.Exec(`UPDATE datasets SET last_check = ?, last_status = ?, last_error = ? WHERE code = ?`,
		time.Now().Unix(), status, errPtr, code)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", code, err)
	}
	return nil
}

// Entries lists the datasets table ordered by code.
func (c *Catalog) Entries() ([]Entry, error) {
	rows, err := c.db.Query(`SELECT code, name, layout, source_url, last_check, last_status, last_error, updated_at
		FROM datasets ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Code, &e.Name, &e.Layout, &e.SourceURL,
			&e.LastCheck, &e.LastStatus, &e.LastError, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecordRun stores the outcome of importing a dataset. res may be nil when
// the import failed before reading anything.
func (c *Catalog) RecordRun(code string, started time.Time, res *Result, importErr error) (int64, error) {
	status := RunOK
	var errPtr *string
	if importErr != nil {
		status = RunFailed
		msg := importErr.Error()
		errPtr = &msg
	}
	var merged, skipped int
	var bytes int64
	if res != nil {
		merged, skipped, bytes = res.Merged(), res.Skipped(), res.Bytes()
	}

	r, err := c.db.Exec(`INSERT INTO import_runs
		(dataset, started_at, finished_at, status, merged, skipped, bytes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		code, started.Unix(), time.Now().Unix(), status, merged, skipped, bytes, errPtr)
	if err != nil {
		return 0, fmt.Errorf("record run for %s: %w", code, err)
	}
	return r.LastInsertId()
}

// Runs returns the most recent import runs, newest first. An empty code
// lists runs of every dataset; limit <= 0 means no limit.
func (c *Catalog) Runs(code string, limit int) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if code != "" {
		where = append(where, "dataset = ?")
		args = append(args, code)
	}
	q := `SELECT id, dataset, started_at, finished_at, status, merged, skipped, bytes, error FROM import_runs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Dataset, &r.StartedAt, &r.FinishedAt, &r.Status,
			&r.Merged, &r.Skipped, &r.Bytes, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Source) firstURL() string {
	for _, f := range s.Files {
		if f.URL != "" {
			return f.URL
		}
	}
	return ""
}
