package leaderboard

import (
	"errors"
	"fmt"

	"github.com/okian/highscores/internal/adapters/repository"
)

// Sentinel kinds returned by the Service. Store failures are passed through
// unchanged and still match repository.ErrStoreUnavailable / ErrStoreWrite.
var (
	ErrNotFound       = fmt.Errorf("leaderboard: %w", repository.ErrNotFound)
	ErrInvalidRequest = errors.New("leaderboard: invalid request")
)
