package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/highscores/pkg/metrics"
)

const (
	driverName         = "sqlite"
	defaultBusyTimeout = 5 * time.Second
	defaultJournalMode = "WAL"
)

// Schema statements run by Initialize, in order.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS leaderboard (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL,
		highscore INTEGER NOT NULL,
		date_created TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leaderboard_username ON leaderboard(username)`,
	`CREATE INDEX IF NOT EXISTS idx_leaderboard_highscore ON leaderboard(highscore DESC)`,
}

// SQLStore is the SQLite-backed Store. It holds exactly one connection.
type SQLStore struct {
	db          *sqlx.DB
	path        string
	busyTimeout time.Duration
	journalMode string
}

var _ Store = (*SQLStore)(nil)

// Open opens (creating if needed) the SQLite file at path. The returned
// store still needs Initialize before use.
func Open(ctx context.Context, path string, opts ...Option) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrStoreUnavailable)
	}
	s := &SQLStore{
		path:        path,
		busyTimeout: defaultBusyTimeout,
		journalMode: defaultJournalMode,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStoreUnavailable, path, err)
	}
	// One handle for the whole process; the guard serializes its use.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: open %s: %w", ErrStoreUnavailable, path, err)
	}
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds()),
		fmt.Sprintf("PRAGMA journal_mode = %s", s.journalMode),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, p, err)
		}
	}

	s.db = db
	return s, nil
}

// NewWithDB wraps an existing handle. Used by tests with sqlmock.
func NewWithDB(db *sqlx.DB, opts ...Option) *SQLStore {
	s := &SQLStore{
		db:          db,
		busyTimeout: defaultBusyTimeout,
		journalMode: defaultJournalMode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the database file path the store was opened with.
func (s *SQLStore) Path() string { return s.path }

// Close releases the underlying handle.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Initialize creates the leaderboard table and indexes if they do not exist.
func (s *SQLStore) Initialize(ctx context.Context) (err error) {
	defer observe("initialize", time.Now(), &err)
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: initialize schema: %w", ErrStoreUnavailable, err)
		}
	}
	return nil
}

// Insert appends a row and returns the id SQLite assigned to it.
func (s *SQLStore) Insert(ctx context.Context, username string, highscore int64, dateCreated string) (id int64, err error) {
	defer observe("insert", time.Now(), &err)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO leaderboard (username, highscore, date_created) VALUES (?, ?, ?)`,
		username, highscore, dateCreated,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: insert %q: %w", ErrStoreWrite, username, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: insert %q: last insert id: %w", ErrStoreWrite, username, err)
	}
	return id, nil
}

// UpdateScore sets highscore on the row with id.
func (s *SQLStore) UpdateScore(ctx context.Context, id, newScore int64) (affected int64, err error) {
	defer observe("update_score", time.Now(), &err)
	res, err := s.db.ExecContext(ctx,
		`UPDATE leaderboard SET highscore = ? WHERE id = ?`,
		newScore, id,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: update %d: %w", ErrStoreWrite, id, err)
	}
	affected, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: update %d: rows affected: %w", ErrStoreWrite, id, err)
	}
	return affected, nil
}

// GetScore returns the highscore stored for id.
func (s *SQLStore) GetScore(ctx context.Context, id int64) (score int64, err error) {
	defer observe("get_score", time.Now(), &err)
	err = s.db.GetContext(ctx, &score, `SELECT highscore FROM leaderboard WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		// A missing row is an expected outcome, not a store failure.
		return 0, fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("get score %d: %w", id, err)
	}
	return score, nil
}

// CountByUsername returns the number of rows for username.
func (s *SQLStore) CountByUsername(ctx context.Context, username string) (n int, err error) {
	defer observe("count_by_username", time.Now(), &err)
	if err = s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM leaderboard WHERE username = ?`, username); err != nil {
		return 0, fmt.Errorf("count username %q: %w", username, err)
	}
	return n, nil
}

// ListAll returns all rows, highest score first. Ties are ordered by id.
func (s *SQLStore) ListAll(ctx context.Context) (rows []Row, err error) {
	defer observe("list_all", time.Now(), &err)
	rows = []Row{}
	if err = s.db.SelectContext(ctx, &rows,
		`SELECT id, username, highscore, date_created FROM leaderboard ORDER BY highscore DESC, id ASC`,
	); err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	return rows, nil
}

// Count returns the number of rows in the table.
func (s *SQLStore) Count(ctx context.Context) (n int, err error) {
	defer observe("count", time.Now(), &err)
	if err = s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM leaderboard`); err != nil {
		return 0, fmt.Errorf("count leaderboard: %w", err)
	}
	return n, nil
}

// observe records latency for op and counts it as failed unless the error
// is a plain not-found.
func observe(op string, start time.Time, errp *error) {
	metrics.RecordStoreOperation(op, float64(time.Since(start).Microseconds())/1000)
	if *errp != nil && !errors.Is(*errp, ErrNotFound) {
		metrics.RecordStoreError(op)
	}
}
