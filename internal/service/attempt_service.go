package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-games/internal/model"
	"github.com/stemsi/exstem-games/internal/response"
)

// ErrNotGameAuthor is returned when a tutor lists attempts of someone else's game.
var ErrNotGameAuthor = errors.New("not the author of this game")

// AttemptLister reads recorded attempts.
type AttemptLister interface {
	ListByGame(ctx context.Context, gameID uuid.UUID, page, perPage int) ([]model.Attempt, int64, error)
}

// AttemptService serves recorded attempts to tutors.
type AttemptService struct {
	games    GameSource
	attempts AttemptLister
	log      zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(games GameSource, attempts AttemptLister, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		games:    games,
		attempts: attempts,
		log:      log.With().Str("component", "attempt_service").Logger(),
	}
}

// ListByGame returns a page of attempts for a game. Games without an author
// are visible to every tutor.
func (s *AttemptService) ListByGame(ctx context.Context, tutorID int, gameID uuid.UUID, page, perPage int) ([]model.Attempt, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrGameNotFound
		}
		return nil, nil, fmt.Errorf("get game: %w", err)
	}
	if game.AuthorID != 0 && game.AuthorID != tutorID {
		return nil, nil, ErrNotGameAuthor
	}

	attempts, total, err := s.attempts.ListByGame(ctx, gameID, page, perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list attempts: %w", err)
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}

	return attempts, response.NewPagination(page, perPage, total), nil
}
