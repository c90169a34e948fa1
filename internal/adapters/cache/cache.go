// Package cache keeps a copy of the ranked leaderboard listing outside the
// store so that reads can skip the full table scan.
package cache

import (
	"context"

	"github.com/okian/highscores/internal/domain/model"
)

// Nop is a cache that never holds anything. It is used when no cache
// backend is configured.
type Nop struct{}

// Get always misses.
func (Nop) Get(context.Context) ([]model.LeaderboardEntry, bool, error) { return nil, false, nil }

// Set discards the listing.
func (Nop) Set(context.Context, []model.LeaderboardEntry) error { return nil }

// Invalidate does nothing.
func (Nop) Invalidate(context.Context) error { return nil }
