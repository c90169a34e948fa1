package repository

import "time"

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithBusyTimeout sets how long SQLite retries when the file is locked by
// another process.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *SQLStore) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// WithJournalMode overrides the SQLite journal mode (default WAL).
func WithJournalMode(mode string) Option {
	return func(s *SQLStore) {
		if mode != "" {
			s.journalMode = mode
		}
	}
}
