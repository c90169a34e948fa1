// Package leaderboard enforces the leaderboard business rules on top of the
// guarded store: one entry per username, point score updates and a listing
// ordered by score.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/highscores/internal/adapters/cache"
	"github.com/okian/highscores/internal/adapters/repository"
	"github.com/okian/highscores/internal/domain/guard"
	"github.com/okian/highscores/internal/domain/model"
	"github.com/okian/highscores/pkg/logger"
	"github.com/okian/highscores/pkg/metrics"
)

// ListingCache holds a copy of the full ordered listing.
type ListingCache interface {
	Get(ctx context.Context) ([]model.LeaderboardEntry, bool, error)
	Set(ctx context.Context, entries []model.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

// Publisher receives every committed change. Publish must not block.
type Publisher interface {
	Publish(ctx context.Context, ev model.ChangeEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.ChangeEvent) {}

// Service is the leaderboard. All store access goes through its guard.
type Service struct {
	guard     *guard.Guard
	cache     ListingCache
	publisher Publisher
	now       func() time.Time
	logger    logger.Logger
}

// New builds a Service over g.
func New(g *guard.Guard, opts ...Option) *Service {
	s := &Service{
		guard:     g,
		cache:     cache.Nop{},
		publisher: nopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("leaderboard")
	}
	return s
}

// RegisterUser creates an entry for req.Username unless one already exists.
// The existence check and the insert run in one critical section, so
// concurrent registrations of the same name produce exactly one row.
func (s *Service) RegisterUser(ctx context.Context, req model.RegisterRequest) (model.Registration, error) {
	if err := req.Validate(); err != nil {
		metrics.RecordRegistration(metrics.OutcomeError)
		return model.Registration{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	reg, err := guard.Query(ctx, s.guard, func(ctx context.Context, store repository.Store) (model.Registration, error) {
		n, err := store.CountByUsername(ctx, req.Username)
		if err != nil {
			return model.Registration{}, err
		}
		if n > 0 {
			return model.Registration{Outcome: model.OutcomeAlreadyExists, Username: req.Username}, nil
		}

		created := s.now().UTC()
		entry := model.LeaderboardEntry{
			Username:    req.Username,
			Highscore:   req.Highscore,
			DateCreated: created.Format(model.DateLayout),
		}
		if entry.ID, err = store.Insert(ctx, entry.Username, entry.Highscore, entry.DateCreated); err != nil {
			return model.Registration{}, err
		}

		s.invalidate(ctx)
		s.publisher.Publish(ctx, model.ChangeEvent{
			Kind:      model.ChangeRegistered,
			ID:        entry.ID,
			Username:  entry.Username,
			Highscore: entry.Highscore,
			At:        created,
		})
		return model.Registration{Outcome: model.OutcomeCreated, Username: req.Username, Entry: entry}, nil
	})
	if err != nil {
		metrics.RecordRegistration(metrics.OutcomeError)
		s.logger.Error(ctx, "register user failed", logger.String("username", req.Username), logger.Error(err))
		return model.Registration{}, err
	}

	metrics.RecordRegistration(reg.Outcome.String())
	s.logger.Debug(ctx, "register user",
		logger.String("username", reg.Username),
		logger.String("outcome", reg.Outcome.String()),
		logger.Int64("id", reg.Entry.ID),
	)
	return reg, nil
}

// UpdateScore sets the score of an existing entry. Scores may go down.
func (s *Service) UpdateScore(ctx context.Context, req model.UpdateRequest) (model.ScoreUpdate, error) {
	err := s.guard.Do(ctx, func(ctx context.Context, store repository.Store) error {
		affected, err := store.UpdateScore(ctx, req.ID, req.Highscore)
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("id %d: %w", req.ID, ErrNotFound)
		}

		s.invalidate(ctx)
		s.publisher.Publish(ctx, model.ChangeEvent{
			Kind:      model.ChangeScoreUpdated,
			ID:        req.ID,
			Highscore: req.Highscore,
			At:        s.now().UTC(),
		})
		return nil
	})
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.RecordScoreUpdate(metrics.OutcomeNotFound)
		return model.ScoreUpdate{}, err
	case err != nil:
		metrics.RecordScoreUpdate(metrics.OutcomeError)
		s.logger.Error(ctx, "update score failed", logger.Int64("id", req.ID), logger.Error(err))
		return model.ScoreUpdate{}, err
	}

	metrics.RecordScoreUpdate(metrics.OutcomeUpdated)
	return model.ScoreUpdate{ID: req.ID, Highscore: req.Highscore}, nil
}

// GetHighscore returns the current score of the entry with id.
func (s *Service) GetHighscore(ctx context.Context, id int64) (int64, error) {
	score, err := guard.Query(ctx, s.guard, func(ctx context.Context, store repository.Store) (int64, error) {
		return store.GetScore(ctx, id)
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordLookup(metrics.OutcomeNotFound)
		return 0, fmt.Errorf("id %d: %w", id, ErrNotFound)
	case err != nil:
		metrics.RecordLookup(metrics.OutcomeError)
		s.logger.Error(ctx, "get highscore failed", logger.Int64("id", id), logger.Error(err))
		return 0, err
	}
	metrics.RecordLookup(metrics.OutcomeFound)
	return score, nil
}

// GetLeaderboard returns every entry, highest score first. The result is
// never nil.
func (s *Service) GetLeaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	metrics.RecordListing()

	if entries, ok, err := s.cache.Get(ctx); err != nil {
		s.logger.Warn(ctx, "listing cache read failed", logger.Error(err))
	} else if ok {
		return entries, nil
	}

	entries, err := guard.Query(ctx, s.guard, func(ctx context.Context, store repository.Store) ([]model.LeaderboardEntry, error) {
		rows, err := store.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		out := toEntries(rows)
		// Filled under the guard so a concurrent write cannot be overwritten
		// by this older listing.
		if err := s.cache.Set(ctx, out); err != nil {
			s.logger.Warn(ctx, "listing cache fill failed", logger.Error(err))
		}
		return out, nil
	})
	if err != nil {
		s.logger.Error(ctx, "list leaderboard failed", logger.Error(err))
		return nil, err
	}
	metrics.UpdateTotalEntries(len(entries))
	return entries, nil
}

// Count returns the number of entries.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := guard.Query(ctx, s.guard, func(ctx context.Context, store repository.Store) (int, error) {
		return store.Count(ctx)
	})
	if err != nil {
		return 0, err
	}
	metrics.UpdateTotalEntries(n)
	return n, nil
}

// invalidate must be called while the guard is held.
func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn(ctx, "listing cache invalidation failed", logger.Error(err))
	}
}

func toEntries(rows []repository.Row) []model.LeaderboardEntry {
	out := make([]model.LeaderboardEntry, len(rows))
	for i, r := range rows {
		out[i] = model.LeaderboardEntry{
			ID:          r.ID,
			Username:    r.Username,
			Highscore:   r.Highscore,
			DateCreated: r.DateCreated,
		}
	}
	return out
}
