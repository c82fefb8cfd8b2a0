package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-games/internal/config"
	"github.com/stemsi/exstem-games/internal/model"
	"github.com/stemsi/exstem-games/internal/session"
)

// AttemptRecorder queues finished sessions for the attempt worker. The queue
// is the hand-off point: once pushed, durability is the worker's concern.
type AttemptRecorder struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewAttemptRecorder creates a new AttemptRecorder.
func NewAttemptRecorder(rdb *redis.Client, log zerolog.Logger) *AttemptRecorder {
	return &AttemptRecorder{
		rdb: rdb,
		log: log.With().Str("component", "attempt_recorder").Logger(),
	}
}

// Record pushes the outcome onto persist_attempts_queue.
func (r *AttemptRecorder) Record(ctx context.Context, o session.Outcome) error {
	data, err := json.Marshal(o.Result.AttemptData)
	if err != nil {
		return fmt.Errorf("encode attempt data: %w", err)
	}

	payload, err := json.Marshal(model.Attempt{
		ID:               uuid.New(),
		SessionID:        o.SessionID,
		GameID:           o.GameID,
		PlayerID:         o.PlayerID,
		GameType:         o.GameType,
		ScorePercentage:  o.Result.ScorePercentage,
		TimeTakenSeconds: o.Result.TimeTakenSeconds,
		AttemptData:      data,
		CompletedAt:      o.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}

	if err := r.rdb.RPush(ctx, config.WorkerKey.PersistAttemptsQueue, payload).Err(); err != nil {
		return fmt.Errorf("queue attempt: %w", err)
	}

	r.log.Debug().
		Str("session_id", o.SessionID.String()).
		Int("player_id", o.PlayerID).
		Msg("Attempt queued")
	return nil
}
