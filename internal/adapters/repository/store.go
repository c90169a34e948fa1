// Package repository owns the persistent leaderboard table and the raw
// statements run against it. It holds no business rules.
package repository

import "context"

//go:generate mockgen -source=store.go -destination=mock_store.go -package=repository

// Row is one leaderboard table row.
type Row struct {
	ID          int64  `db:"id"`
	Username    string `db:"username"`
	Highscore   int64  `db:"highscore"`
	DateCreated string `db:"date_created"`
}

// Store executes parameterized statements against the leaderboard table.
// Implementations are not safe for uncoordinated concurrent use; callers
// go through the guard.
type Store interface {
	// Initialize creates the table and its indexes if absent. Safe to call on
	// every startup. Returns ErrStoreUnavailable when the medium cannot be written.
	Initialize(ctx context.Context) error

	// Insert appends a row and returns its assigned id.
	Insert(ctx context.Context, username string, highscore int64, dateCreated string) (int64, error)

	// UpdateScore sets highscore for id and reports the affected row count.
	// Zero affected rows is not an error at this layer.
	UpdateScore(ctx context.Context, id, newScore int64) (int64, error)

	// GetScore returns the highscore of id, or ErrNotFound.
	GetScore(ctx context.Context, id int64) (int64, error)

	// CountByUsername returns how many rows carry username.
	CountByUsername(ctx context.Context, username string) (int, error)

	// ListAll returns every row ordered by highscore descending. An empty
	// table yields an empty, non-nil slice.
	ListAll(ctx context.Context) ([]Row, error)

	// Count returns the number of rows.
	Count(ctx context.Context) (int, error)
}
