package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/highscores/internal/domain/model"
)

// newTestClient spins up a miniredis server and returns a client plus the server.
func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	client, _ := newTestClient(t)
	c := NewRedisWithClient(client)
	ctx := context.Background()

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache should miss")

	listing := []model.LeaderboardEntry{
		{ID: 2, Username: "bob", Highscore: 20, DateCreated: "2026-01-01T00:00:01Z"},
		{ID: 1, Username: "alice", Highscore: 10, DateCreated: "2026-01-01T00:00:00Z"},
	}
	require.NoError(t, c.Set(ctx, listing))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, listing, got)

	require.NoError(t, c.Invalidate(ctx))
	_, ok, err = c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "invalidated cache should miss")
}

func TestRedisCache_EmptyListingIsAHit(t *testing.T) {
	client, _ := newTestClient(t)
	c := NewRedisWithClient(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, nil))
	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRedisCache_TTL(t *testing.T) {
	client, mr := newTestClient(t)
	c := NewRedisWithClient(client, WithTTL(time.Minute), WithKey("test:listing"))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, []model.LeaderboardEntry{{ID: 1, Username: "alice", Highscore: 1}}))
	assert.Equal(t, time.Minute, mr.TTL("test:listing"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "expired listing should miss")
}

func TestRedisCache_Corrupt(t *testing.T) {
	client, mr := newTestClient(t)
	c := NewRedisWithClient(client)
	require.NoError(t, mr.Set(defaultKey, "not json"))

	_, ok, err := c.Get(context.Background())
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestRedisCache_Unavailable(t *testing.T) {
	client, mr := newTestClient(t)
	c := NewRedisWithClient(client)
	mr.Close()

	_, _, err := c.Get(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.True(t, errors.Is(c.Invalidate(context.Background()), ErrUnavailable))
}

func TestNewRedis_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), Config{Addr: addr})
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestNop(t *testing.T) {
	var c Nop
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, []model.LeaderboardEntry{{ID: 1}}))
	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx))
}
