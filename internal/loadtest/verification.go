package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// verify checks the listing order, that every run username appears exactly
// once, and that every updated entry reads back its new score.
func verify(ctx context.Context, c *client, prefix string, board leaderboardResponse, updates []update, players int) error {
	entries := board.Leaderboard
	for i := 1; i < len(entries); i++ {
		if entries[i].Highscore > entries[i-1].Highscore {
			return fmt.Errorf("%w: entry %d (%d) ranks below entry %d (%d)",
				ErrVerification, i-1, entries[i-1].Highscore, i, entries[i].Highscore)
		}
	}

	seen := make(map[string]int, players)
	for _, e := range entries {
		if strings.HasPrefix(e.Username, prefix+"-") {
			seen[e.Username]++
		}
	}
	if len(seen) != players {
		return fmt.Errorf("%w: listing has %d of %d players", ErrVerification, len(seen), players)
	}
	for name, n := range seen {
		if n != 1 {
			return fmt.Errorf("%w: username %s listed %d times", ErrVerification, name, n)
		}
	}

	for _, u := range updates {
		var score int64
		if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/leaderboard/%d", u.id), &score); err != nil {
			return err
		}
		if score != u.score {
			return fmt.Errorf("%w: id %d has score %d, want %d", ErrVerification, u.id, score, u.score)
		}
	}
	return nil
}
