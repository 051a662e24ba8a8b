package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitescan/internal/model"
)

// FileName is the SQLite database file created in the database directory.
const FileName = "sitescan.db"

// timeLayout is fixed width so lexical and chronological order agree.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Dialect selects the SQL flavour.
type Dialect int

const (
	// SQLite uses "?" placeholders.
	SQLite Dialect = iota
	// Postgres uses "$n" placeholders.
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	default:
		return "sqlite"
	}
}

// RunDB persists run history.
type RunDB struct {
	db       *sql.DB
	dialect  Dialect
	location string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables SQLite write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the SQLite history database in dbDir.
func Open(ctx context.Context, dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		mode = "rw"
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	r := &RunDB{db: db, dialect: SQLite, location: dbPath}
	if err := r.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// OpenPostgres connects to a PostgreSQL database and creates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*RunDB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &RunDB{db: db, dialect: Postgres, location: "postgres"}
	if err := r.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// Connect opens PostgreSQL when dsn is a postgres URL and the SQLite database
// in dbDir otherwise.
func Connect(ctx context.Context, dsn, dbDir string) (*RunDB, error) {
	if IsPostgresDSN(dsn) {
		return OpenPostgres(ctx, dsn)
	}
	return Open(ctx, dbDir, DefaultOptions())
}

// IsPostgresDSN reports whether dsn selects the PostgreSQL backend.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// New wraps an existing connection. The schema is not created; call Migrate.
func New(db *sql.DB, dialect Dialect) *RunDB {
	return &RunDB{db: db, dialect: dialect, location: dialect.String()}
}

// Location returns the database file path, or the backend name for servers.
func (r *RunDB) Location() string {
	return r.location
}

// Close closes the database connection.
func (r *RunDB) Close() error {
	return r.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		passes INTEGER NOT NULL DEFAULT 0,
		discovered INTEGER NOT NULL DEFAULT 0,
		visited INTEGER NOT NULL DEFAULT 0,
		denied INTEGER NOT NULL DEFAULT 0,
		records INTEGER NOT NULL DEFAULT 0,
		changes INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		downloads INTEGER NOT NULL DEFAULT 0,
		keywords_json TEXT NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed, started_at)`,
	`CREATE TABLE IF NOT EXISTS run_addresses (
		run_id TEXT NOT NULL,
		address TEXT NOT NULL,
		depth INTEGER NOT NULL,
		visited INTEGER NOT NULL,
		denied INTEGER NOT NULL,
		PRIMARY KEY (run_id, address)
	)`,
	`CREATE TABLE IF NOT EXISTS run_changes (
		run_id TEXT NOT NULL,
		source TEXT NOT NULL,
		pass INTEGER NOT NULL,
		records_json TEXT NOT NULL,
		detected_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_run_changes_run ON run_changes(run_id)`,
}

// Migrate creates the schema if it does not exist.
func (r *RunDB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// rebind rewrites "?" placeholders for the dialect.
func (r *RunDB) rebind(query string) string {
	if r.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// RunSummary is the stored overview of one run.
type RunSummary struct {
	ID         string
	Seed       string
	StartedAt  time.Time
	FinishedAt time.Time
	Passes     int
	Discovered int
	Visited    int
	Denied     int
	Records    int
	Changes    int
	Errors     int
	Downloads  int
	Keywords   []model.KeywordCount
}

// Duration returns how long the run took.
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// maxStoredKeywords bounds the keyword list kept per run.
const maxStoredKeywords = 50

// SaveRun stores a finished run in a single transaction.
func (r *RunDB) SaveRun(ctx context.Context, state *model.RunState) (err error) {
	keywords := state.Keywords()
	if len(keywords) > maxStoredKeywords {
		keywords = keywords[:maxStoredKeywords]
	}
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("failed to serialize keywords: %w", err)
	}

	finished := state.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	discovered, visited, denied := state.Addresses.Counts()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, r.rebind(`
	INSERT INTO runs (id, seed, started_at, finished_at, passes, discovered, visited, denied, records, changes, errors, downloads, keywords_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		state.ID,
		state.Seed,
		formatTime(state.StartedAt),
		formatTime(finished),
		state.Passes(),
		discovered,
		visited,
		denied,
		len(state.Records()),
		len(state.Changes()),
		len(state.Errors()),
		len(state.Downloads()),
		string(keywordsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	addrStmt, err := tx.PrepareContext(ctx, r.rebind(
		`INSERT INTO run_addresses (run_id, address, depth, visited, denied) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare address insert: %w", err)
	}
	defer addrStmt.Close() //nolint:errcheck // closed with the transaction

	for _, address := range state.Addresses.Discovered() {
		depth, _ := state.Addresses.Depth(address)
		_, err = addrStmt.ExecContext(ctx,
			state.ID,
			address,
			depth,
			boolInt(state.Addresses.IsVisited(address)),
			boolInt(state.Addresses.IsDenied(address)),
		)
		if err != nil {
			return fmt.Errorf("failed to save address %s: %w", address, err)
		}
	}

	for _, change := range state.Changes() {
		recordsJSON, mErr := json.Marshal(change.Records)
		if mErr != nil {
			err = fmt.Errorf("failed to serialize change records: %w", mErr)
			return err
		}
		_, err = tx.ExecContext(ctx, r.rebind(
			`INSERT INTO run_changes (run_id, source, pass, records_json, detected_at) VALUES (?, ?, ?, ?, ?)`),
			state.ID, change.Source, change.Pass, string(recordsJSON), formatTime(change.DetectedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to save change: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, seed, started_at, finished_at, passes, discovered, visited, denied, records, changes, errors, downloads, keywords_json`

// ListRuns returns the runs of seed, newest first. An empty seed lists every
// run. A non-positive limit means no limit.
func (r *RunDB) ListRuns(ctx context.Context, seed string, limit int) ([]RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if seed != "" {
		query += ` WHERE seed = ?`
		args = append(args, seed)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var runs []RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run by ID.
func (r *RunDB) GetRun(ctx context.Context, id string) (*RunSummary, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+runColumns+` FROM runs WHERE id = ?`), id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Seeds returns every seed with stored runs, sorted.
func (r *RunDB) Seeds(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT seed FROM runs ORDER BY seed`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seeds: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var seeds []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, s)
	}
	return seeds, rows.Err()
}

// AddressRow is one stored address of a run.
type AddressRow struct {
	Address string
	Depth   int
	Visited bool
	Denied  bool
}

// Addresses returns the addresses a run discovered, sorted.
func (r *RunDB) Addresses(ctx context.Context, runID string) ([]AddressRow, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(
		`SELECT address, depth, visited, denied FROM run_addresses WHERE run_id = ? ORDER BY address`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var out []AddressRow
	for rows.Next() {
		var a AddressRow
		var visited, denied int
		if err := rows.Scan(&a.Address, &a.Depth, &visited, &denied); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		a.Visited = visited != 0
		a.Denied = denied != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

// Comparison is the difference between the discovered sets of two runs.
type Comparison struct {
	Older   RunSummary
	Newer   RunSummary
	Added   []string
	Removed []string
}

// HasChanges reports whether the discovered sets differ.
func (c *Comparison) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0
}

// CompareLatest compares the two most recent runs of seed.
func (r *RunDB) CompareLatest(ctx context.Context, seed string) (*Comparison, error) {
	runs, err := r.ListRuns(ctx, seed, 2)
	if err != nil {
		return nil, err
	}
	if len(runs) < 2 {
		return nil, fmt.Errorf("%w for %s (found %d)", ErrNotEnoughRuns, seed, len(runs))
	}

	newer, older := runs[0], runs[1]
	newAddrs, err := r.Addresses(ctx, newer.ID)
	if err != nil {
		return nil, err
	}
	oldAddrs, err := r.Addresses(ctx, older.ID)
	if err != nil {
		return nil, err
	}

	return &Comparison{
		Older:   older,
		Newer:   newer,
		Added:   difference(newAddrs, oldAddrs),
		Removed: difference(oldAddrs, newAddrs),
	}, nil
}

// difference returns the addresses of a missing from b, in a's order.
func difference(a, b []AddressRow) []string {
	inB := make(map[string]struct{}, len(b))
	for _, row := range b {
		inB[row.Address] = struct{}{}
	}
	var out []string
	for _, row := range a {
		if _, ok := inB[row.Address]; !ok {
			out = append(out, row.Address)
		}
	}
	return out
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*RunSummary, error) {
	var run RunSummary
	var started, finished, keywordsJSON string
	err := s.Scan(
		&run.ID, &run.Seed, &started, &finished,
		&run.Passes, &run.Discovered, &run.Visited, &run.Denied,
		&run.Records, &run.Changes, &run.Errors, &run.Downloads,
		&keywordsJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.StartedAt = parseTimestamp(started)
	run.FinishedAt = parseTimestamp(finished)
	if keywordsJSON != "" {
		if err := json.Unmarshal([]byte(keywordsJSON), &run.Keywords); err != nil {
			return nil, fmt.Errorf("failed to parse keywords of run %s: %w", run.ID, err)
		}
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampFormats lists the accepted stored formats, most specific first.
var timestampFormats = []string{
	timeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
