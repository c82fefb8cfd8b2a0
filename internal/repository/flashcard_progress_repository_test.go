package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProgressRepo(t *testing.T, ttl time.Duration) (*FlashcardProgressRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewFlashcardProgressRepository(rdb, ttl), mr
}

func TestFlashcardProgressRoundTrip(t *testing.T) {
	repo, mr := newProgressRepo(t, time.Hour)
	ctx := context.Background()

	_, err := repo.Get(ctx, 4, "capitals")
	assert.ErrorIs(t, err, ErrProgressNotFound)

	require.NoError(t, repo.Save(ctx, 4, "capitals", []byte(`{"cursor":2}`)))
	assert.True(t, mr.Exists("player:4:flashcards:capitals:progress"))
	assert.Equal(t, time.Hour, mr.TTL("player:4:flashcards:capitals:progress"))

	got, err := repo.Get(ctx, 4, "capitals")
	require.NoError(t, err)
	assert.JSONEq(t, `{"cursor":2}`, string(got))

	// Records are scoped per player.
	_, err = repo.Get(ctx, 5, "capitals")
	assert.ErrorIs(t, err, ErrProgressNotFound)

	require.NoError(t, repo.Delete(ctx, 4, "capitals"))
	_, err = repo.Get(ctx, 4, "capitals")
	assert.ErrorIs(t, err, ErrProgressNotFound)
	assert.NoError(t, repo.Delete(ctx, 4, "capitals"))
}

func TestFlashcardProgressExpires(t *testing.T) {
	repo, mr := newProgressRepo(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, 1, "deck", []byte(`{}`)))
	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, 1, "deck")
	assert.ErrorIs(t, err, ErrProgressNotFound)
}
