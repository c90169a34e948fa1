// Package loadtest drives a running highscores service over HTTP with
// concurrent registrations, duplicate registrations and score updates, then
// checks the leaderboard it ends up with.
package loadtest

import (
	"time"

	"github.com/okian/highscores/internal/domain/model"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Players    int           // Distinct usernames to register
	Duplicates int           // Extra registration attempts per username
	Updates    int           // Score updates, at most one per created entry
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Verbose    bool          // Log every request outcome
}

// Stats holds run statistics.
type Stats struct {
	Registrations      int
	Created            int
	AlreadyExists      int
	Updated            int
	Failed             int
	LeaderboardEntries int
	Duration           time.Duration
}

type registrationResponse struct {
	Status   string                  `json:"status"`
	Username string                  `json:"username"`
	Entry    *model.LeaderboardEntry `json:"entry"`
}

type leaderboardResponse struct {
	Leaderboard []model.LeaderboardEntry `json:"leaderboard"`
}
