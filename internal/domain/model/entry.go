// Package model contains the value objects passed between layers.
package model

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the format of LeaderboardEntry.DateCreated.
const DateLayout = time.RFC3339

// LeaderboardEntry is one player's identity and current score.
type LeaderboardEntry struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Highscore   int64  `json:"highscore"`
	DateCreated string `json:"date_created"`
}

// RegisterRequest asks for a new entry with an initial score.
type RegisterRequest struct {
	Username  string
	Highscore int64
}

// Validate rejects usernames that could never be addressed again.
func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("username must not be empty")
	}
	return nil
}

// UpdateRequest sets a new score on an existing entry.
type UpdateRequest struct {
	ID        int64
	Highscore int64
}

// ScoreUpdate is the result of a successful UpdateRequest.
type ScoreUpdate struct {
	ID        int64 `json:"id"`
	Highscore int64 `json:"highscore"`
}

// Outcome classifies a registration.
type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeAlreadyExists
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// Registration is the result of a RegisterRequest. Entry is set only when
// Outcome is OutcomeCreated.
type Registration struct {
	Outcome  Outcome
	Username string
	Entry    LeaderboardEntry
}

// Created reports whether the registration inserted a new entry.
func (r Registration) Created() bool { return r.Outcome == OutcomeCreated }

// ChangeKind names a leaderboard mutation published on the change feed.
type ChangeKind string

const (
	ChangeRegistered   ChangeKind = "registered"
	ChangeScoreUpdated ChangeKind = "score_updated"
)

// ChangeEvent describes a committed leaderboard mutation.
type ChangeEvent struct {
	Kind      ChangeKind `json:"kind"`
	ID        int64      `json:"id"`
	Username  string     `json:"username,omitempty"`
	Highscore int64      `json:"highscore"`
	At        time.Time  `json:"at"`
}
