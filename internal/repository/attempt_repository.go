package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exstem-games/internal/model"
)

// AttemptRepository handles recorded game attempts.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func nullableUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

// InsertBatch writes many attempts in one statement. Attempts already stored
// for the same session are skipped, so a requeued batch is safe to replay.
func (r *AttemptRepository) InsertBatch(ctx context.Context, batch []model.Attempt) error {
	n := len(batch)
	if n == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, n)
	sessionIDs := make([]uuid.UUID, 0, n)
	gameIDs := make([]pgtype.UUID, 0, n)
	players := make([]int, 0, n)
	types := make([]string, 0, n)
	scores := make([]float64, 0, n)
	times := make([]int, 0, n)
	data := make([]string, 0, n)
	completedAts := make([]time.Time, 0, n)

	for _, a := range batch {
		ids = append(ids, a.ID)
		sessionIDs = append(sessionIDs, a.SessionID)
		gameIDs = append(gameIDs, nullableUUID(a.GameID))
		players = append(players, a.PlayerID)
		types = append(types, string(a.GameType))
		scores = append(scores, a.ScorePercentage)
		times = append(times, a.TimeTakenSeconds)
		data = append(data, string(a.AttemptData))
		completedAts = append(completedAts, a.CompletedAt)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO game_attempts (
			id, session_id, game_id, player_id, game_type,
			score_percentage, time_taken_seconds, attempt_data, completed_at
		)
		SELECT * FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::uuid[],
			$4::int[],
			$5::text[],
			$6::float8[],
			$7::int[],
			$8::jsonb[],
			$9::timestamptz[]
		)
		ON CONFLICT (session_id) DO NOTHING`,
		ids, sessionIDs, gameIDs, players, types, scores, times, data, completedAts,
	)
	return err
}

// Insert writes a single attempt.
func (r *AttemptRepository) Insert(ctx context.Context, a *model.Attempt) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO game_attempts (
			id, session_id, game_id, player_id, game_type,
			score_percentage, time_taken_seconds, attempt_data, completed_at
		 )
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (session_id) DO NOTHING`,
		a.ID, a.SessionID, nullableUUID(a.GameID), a.PlayerID, a.GameType,
		a.ScorePercentage, a.TimeTakenSeconds, string(a.AttemptData), a.CompletedAt,
	)
	return err
}

// ListByGame returns a page of attempts for a game, newest first, with the
// total count.
func (r *AttemptRepository) ListByGame(ctx context.Context, gameID uuid.UUID, page, perPage int) ([]model.Attempt, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM game_attempts WHERE game_id = $1`, gameID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, game_id, player_id, game_type,
		        score_percentage, time_taken_seconds, attempt_data, completed_at
		 FROM game_attempts
		 WHERE game_id = $1
		 ORDER BY completed_at DESC
		 LIMIT $2 OFFSET $3`,
		gameID, perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	attempts := make([]model.Attempt, 0, perPage)
	for rows.Next() {
		var (
			a    model.Attempt
			gid  pgtype.UUID
			data []byte
		)
		if err := rows.Scan(&a.ID, &a.SessionID, &gid, &a.PlayerID, &a.GameType,
			&a.ScorePercentage, &a.TimeTakenSeconds, &data, &a.CompletedAt); err != nil {
			return nil, 0, err
		}
		if gid.Valid {
			id := uuid.UUID(gid.Bytes)
			a.GameID = &id
		}
		a.AttemptData = data
		attempts = append(attempts, a)
	}
	return attempts, total, rows.Err()
}
