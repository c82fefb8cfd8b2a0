package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exstem-games/internal/model"
)

// GameRepository handles stored game definitions.
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a new GameRepository.
func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

// GetByID loads a game and its definition. The definition id always matches
// the row id.
func (r *GameRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Game, error) {
	g := &model.Game{}
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, game_type, author_id, definition, created_at, updated_at
		 FROM games
		 WHERE id = $1`, id,
	).Scan(&g.ID, &g.Name, &g.Type, &g.AuthorID, &raw, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &g.Definition); err != nil {
		return nil, fmt.Errorf("decode definition %s: %w", id, err)
	}
	g.Definition.ID = g.ID
	return g, nil
}

// Upsert inserts a game or replaces the stored definition of an existing one.
func (r *GameRepository) Upsert(ctx context.Context, g *model.Game) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	g.Definition.ID = g.ID
	g.Name = g.Definition.Name
	g.Type = g.Definition.Type

	raw, err := json.Marshal(g.Definition)
	if err != nil {
		return fmt.Errorf("encode definition: %w", err)
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO games (id, name, game_type, author_id, definition)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name,
		     game_type = EXCLUDED.game_type,
		     definition = EXCLUDED.definition,
		     updated_at = NOW()
		 RETURNING created_at, updated_at`,
		g.ID, g.Name, g.Type, g.AuthorID, raw,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
}

// List returns every game, newest first, optionally filtered by type.
func (r *GameRepository) List(ctx context.Context, gameType *model.GameType) ([]model.Game, error) {
	query := `SELECT id, name, game_type, author_id, created_at, updated_at FROM games`
	args := []any{}
	if gameType != nil {
		query += ` WHERE game_type = $1`
		args = append(args, *gameType)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		var g model.Game
		if err := rows.Scan(&g.ID, &g.Name, &g.Type, &g.AuthorID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}
