package history

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes. Older ledgers must be
// deleted; they hold audit data only.
const schemaVersion = 1

// ErrSchemaMismatch indicates the ledger was written by another version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Source values for AddedItem.
const (
	SourceKeyword   = "keyword"
	SourceDiscovery = "discovery"
)

// Run is one recorded scan.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Section        string
	Collection     string
	DryRun         bool
	Processed      int
	WithCommentary int
	AlreadyMember  int
	Added          int
	Failed         int
	Surfaced       int
	Ignored        int
	Error          string
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// AddedItem is an item a run put into the collection.
type AddedItem struct {
	RunID  string `db:"run_id" json:"run_id"`
	ItemID string `db:"item_id" json:"item_id"`
	Title  string `db:"title" json:"title"`
	Source string `db:"source" json:"source"`
}

type runRow struct {
	ID             string `db:"id"`
	StartedAt      int64  `db:"started_at"`
	FinishedAt     int64  `db:"finished_at"`
	Section        string `db:"section"`
	Collection     string `db:"collection"`
	DryRun         bool   `db:"dry_run"`
	Processed      int    `db:"processed"`
	WithCommentary int    `db:"with_commentary"`
	AlreadyMember  int    `db:"already_member"`
	Added          int    `db:"added"`
	Failed         int    `db:"failed"`
	Surfaced       int    `db:"surfaced"`
	Ignored        int    `db:"ignored"`
	Error          string `db:"error"`
}

func toRow(r Run) runRow {
	return runRow{
		ID:             r.ID,
		StartedAt:      r.StartedAt.UnixMilli(),
		FinishedAt:     r.FinishedAt.UnixMilli(),
		Section:        r.Section,
		Collection:     r.Collection,
		DryRun:         r.DryRun,
		Processed:      r.Processed,
		WithCommentary: r.WithCommentary,
		AlreadyMember:  r.AlreadyMember,
		Added:          r.Added,
		Failed:         r.Failed,
		Surfaced:       r.Surfaced,
		Ignored:        r.Ignored,
		Error:          r.Error,
	}
}

func (row runRow) run() Run {
	return Run{
		ID:             row.ID,
		StartedAt:      time.UnixMilli(row.StartedAt),
		FinishedAt:     time.UnixMilli(row.FinishedAt),
		Section:        row.Section,
		Collection:     row.Collection,
		DryRun:         row.DryRun,
		Processed:      row.Processed,
		WithCommentary: row.WithCommentary,
		AlreadyMember:  row.AlreadyMember,
		Added:          row.Added,
		Failed:         row.Failed,
		Surfaced:       row.Surfaced,
		Ignored:        row.Ignored,
		Error:          row.Error,
	}
}

// Store is the run ledger.
type Store struct {
	db   *sqlx.DB
	path string
}

// Open creates or opens the ledger at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	if err := s.db.GetContext(ctx, &tableExists,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'"); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.GetContext(ctx, &version, "SELECT version FROM schema_version LIMIT 1"); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: %s has version %d, expected %d (delete the file to start a new ledger)",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Record stores run and the items it added in one transaction.
func (s *Store) Record(ctx context.Context, run Run, items []AddedItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NamedExecContext(ctx, `INSERT INTO runs (
		id, started_at, finished_at, section, collection, dry_run, processed,
		with_commentary, already_member, added, failed, surfaced, ignored, error
	) VALUES (
		:id, :started_at, :finished_at, :section, :collection, :dry_run, :processed,
		:with_commentary, :already_member, :added, :failed, :surfaced, :ignored, :error
	)`, toRow(run)); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	for _, item := range items {
		item.RunID = run.ID
		if _, err := tx.NamedExecContext(ctx,
			"INSERT OR IGNORE INTO run_items (run_id, item_id, title, source) VALUES (:run_id, :item_id, :title, :source)",
			item); err != nil {
			return fmt.Errorf("insert run item %s: %w", item.ItemID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM runs ORDER BY started_at DESC, id DESC LIMIT ?", limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, row.run())
	}
	return runs, nil
}

// Items returns the items added by runID in insertion order.
func (s *Store) Items(ctx context.Context, runID string) ([]AddedItem, error) {
	var items []AddedItem
	if err := s.db.SelectContext(ctx, &items,
		"SELECT run_id, item_id, title, source FROM run_items WHERE run_id = ? ORDER BY rowid", runID); err != nil {
		return nil, fmt.Errorf("list run items: %w", err)
	}
	return items, nil
}
