package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exstem-games/internal/config"
)

// ErrProgressNotFound means no resumable deck is stored.
var ErrProgressNotFound = errors.New("flashcard progress not found")

// FlashcardProgressRepository stores flashcard checkpoints in Redis.
type FlashcardProgressRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFlashcardProgressRepository creates a repository whose records expire
// after ttl without writes. A zero ttl keeps records forever.
func NewFlashcardProgressRepository(rdb *redis.Client, ttl time.Duration) *FlashcardProgressRepository {
	return &FlashcardProgressRepository{rdb: rdb, ttl: ttl}
}

// Get returns the raw checkpoint.
func (r *FlashcardProgressRepository) Get(ctx context.Context, playerID int, definitionKey string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, config.CacheKey.FlashcardProgressKey(playerID, definitionKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrProgressNotFound
	}
	return b, err
}

// Save replaces the checkpoint and refreshes its expiry.
func (r *FlashcardProgressRepository) Save(ctx context.Context, playerID int, definitionKey string, data []byte) error {
	return r.rdb.Set(ctx, config.CacheKey.FlashcardProgressKey(playerID, definitionKey), data, r.ttl).Err()
}

// Delete removes the checkpoint. Deleting a missing record is not an error.
func (r *FlashcardProgressRepository) Delete(ctx context.Context, playerID int, definitionKey string) error {
	return r.rdb.Del(ctx, config.CacheKey.FlashcardProgressKey(playerID, definitionKey)).Err()
}
