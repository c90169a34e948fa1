package loadtest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/highscores/pkg/logger"
)

const maxScore = 1_000_000

type registration struct {
	username string
	score    int64
}

type update struct {
	id    int64
	score int64
}

// Run executes a complete load test against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	start := time.Now()
	log := logger.Named("loadtest")
	c := newClient(cfg.BaseURL, cfg.Timeout)
	stats := &Stats{}

	log.Info(ctx, "starting highscores load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("duplicates", cfg.Duplicates),
		logger.Int("updates", cfg.Updates),
		logger.Int("workers", cfg.Workers),
	)

	if err := c.do(ctx, http.MethodGet, "/healthz", nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	// Usernames are unique per run so repeated runs against one database
	// do not collide.
	prefix := "lt-" + uuid.NewString()[:8]
	jobs := make([]registration, 0, cfg.Players*(1+cfg.Duplicates))
	for i := 0; i < cfg.Players; i++ {
		for d := 0; d <= cfg.Duplicates; d++ {
			jobs = append(jobs, registration{
				username: fmt.Sprintf("%s-%d", prefix, i),
				score:    rand.Int64N(maxScore),
			})
		}
	}
	rand.Shuffle(len(jobs), func(i, j int) { jobs[i], jobs[j] = jobs[j], jobs[i] })

	var (
		mu      sync.Mutex
		ids     = make(map[string][]int64, cfg.Players)
		created atomic.Int64
		exists  atomic.Int64
		failed  atomic.Int64
	)
	runWorkers(ctx, cfg.Workers, jobs, func(ctx context.Context, job registration) {
		var resp registrationResponse
		path := "/leaderboard/" + url.PathEscape(job.username) + "/" + fmt.Sprint(job.score)
		if err := c.do(ctx, http.MethodPost, path, &resp); err != nil {
			failed.Add(1)
			log.Warn(ctx, "registration failed", logger.String("username", job.username), logger.Error(err))
			return
		}
		switch {
		case resp.Status == "created" && resp.Entry != nil:
			created.Add(1)
			mu.Lock()
			ids[job.username] = append(ids[job.username], resp.Entry.ID)
			mu.Unlock()
		case resp.Status == "already_exists":
			exists.Add(1)
		default:
			failed.Add(1)
		}
		if cfg.Verbose {
			log.Debug(ctx, "registration", logger.String("username", job.username), logger.String("status", resp.Status))
		}
	})
	stats.Registrations = len(jobs)
	stats.Created = int(created.Load())
	stats.AlreadyExists = int(exists.Load())

	for name, got := range ids {
		if len(got) != 1 {
			return stats, fmt.Errorf("%w: username %s created %d times", ErrVerification, name, len(got))
		}
	}
	if stats.Created != cfg.Players {
		return stats, fmt.Errorf("%w: created %d of %d players", ErrVerification, stats.Created, cfg.Players)
	}

	// Each created entry is updated at most once so its final score is known.
	updates := make([]update, 0, cfg.Updates)
	for _, got := range ids {
		if len(updates) == cfg.Updates {
			break
		}
		updates = append(updates, update{id: got[0], score: rand.Int64N(maxScore) - maxScore/2})
	}
	var updated atomic.Int64
	runWorkers(ctx, cfg.Workers, updates, func(ctx context.Context, u update) {
		if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/leaderboard/%d/%d", u.id, u.score), nil); err != nil {
			failed.Add(1)
			log.Warn(ctx, "update failed", logger.Int64("id", u.id), logger.Error(err))
			return
		}
		updated.Add(1)
	})
	stats.Updated = int(updated.Load())
	stats.Failed = int(failed.Load())

	var board leaderboardResponse
	if err := c.do(ctx, http.MethodGet, "/leaderboard", &board); err != nil {
		return stats, err
	}
	stats.LeaderboardEntries = len(board.Leaderboard)

	if err := verify(ctx, c, prefix, board, updates, cfg.Players); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	log.Info(ctx, "load test completed",
		logger.Int("registrations", stats.Registrations),
		logger.Int("created", stats.Created),
		logger.Int("alreadyExists", stats.AlreadyExists),
		logger.Int("updated", stats.Updated),
		logger.Int("failed", stats.Failed),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
	)
	return stats, nil
}

// runWorkers feeds jobs to n workers and waits for them to drain.
func runWorkers[T any](ctx context.Context, n int, jobs []T, fn func(context.Context, T)) {
	if n < 1 {
		n = 1
	}
	ch := make(chan T, n*2)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range ch {
				fn(ctx, job)
			}
		}()
	}
	go func() {
		defer close(ch)
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				return
			case ch <- job:
			}
		}
	}()
	wg.Wait()
}
