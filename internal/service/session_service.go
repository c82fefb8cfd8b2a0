package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-games/internal/config"
	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/engine/flashcards"
	"github.com/stemsi/exstem-games/internal/engine/games"
	"github.com/stemsi/exstem-games/internal/model"
	"github.com/stemsi/exstem-games/internal/repository"
	"github.com/stemsi/exstem-games/internal/session"
	"github.com/stemsi/exstem-games/internal/validator"
)

// Domain Errors
var (
	ErrGameNotFound       = errors.New("game not found")
	ErrGameCannotLoad     = errors.New("game definition cannot be loaded")
	ErrSessionNotFound    = errors.New("session not found")
	ErrForbidden          = errors.New("session belongs to another player")
	ErrInvalidAction      = errors.New("invalid action")
	ErrReviewNotSupported = errors.New("game type has no review mode")
)

// DefinitionError carries per-field validation failures of a definition.
type DefinitionError struct {
	Fields map[string]string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid definition: %d field(s)", len(e.Fields))
}

func (e *DefinitionError) Unwrap() error { return ErrGameCannotLoad }

// GameSource loads stored definitions.
type GameSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Game, error)
}

// ProgressStore is the durable flashcard checkpoint store.
type ProgressStore interface {
	session.ProgressStore
	Get(ctx context.Context, playerID int, definitionKey string) ([]byte, error)
}

// SessionService starts game sessions and routes player intents to them.
type SessionService struct {
	games    GameSource
	progress ProgressStore
	recorder session.Recorder
	manager  *session.Manager
	rdb      *redis.Client
	timings  engine.Timings
	cacheTTL time.Duration
	log      zerolog.Logger
}

// SessionServiceConfig groups the collaborators of a SessionService. Rdb is
// optional and only caches definitions.
type SessionServiceConfig struct {
	Games    GameSource
	Progress ProgressStore
	Recorder session.Recorder
	Manager  *session.Manager
	Rdb      *redis.Client
	Timings  engine.Timings
	CacheTTL time.Duration
}

// NewSessionService creates a new SessionService.
func NewSessionService(cfg SessionServiceConfig, log zerolog.Logger) *SessionService {
	return &SessionService{
		games:    cfg.Games,
		progress: cfg.Progress,
		recorder: cfg.Recorder,
		manager:  cfg.Manager,
		rdb:      cfg.Rdb,
		timings:  cfg.Timings,
		cacheTTL: cfg.CacheTTL,
		log:      log.With().Str("component", "session_service").Logger(),
	}
}

// Start builds a controller for the requested definition and hosts it.
func (s *SessionService) Start(ctx context.Context, playerID int, req *model.StartSessionRequest) (session.Snapshot, error) {
	def, err := s.resolveDefinition(ctx, req)
	if err != nil {
		return session.Snapshot{}, err
	}

	ctrl, err := s.build(def, req.Shuffle)
	if err != nil {
		return session.Snapshot{}, err
	}

	var writer *session.ProgressWriter
	if def.Type == model.GameTypeFlashcards && s.progress != nil {
		key := def.DefinitionKey()
		if req.Resume {
			s.resume(ctx, playerID, key, ctrl)
		}
		writer = session.NewProgressWriter(s.progress, playerID, key, s.log)
	}

	sess := s.manager.Start(session.Config{
		PlayerID:   playerID,
		GameID:     req.GameID,
		Controller: ctrl,
		Recorder:   s.recorder,
		Progress:   writer,
	})

	s.log.Info().
		Str("session_id", sess.ID().String()).
		Str("game_type", string(def.Type)).
		Int("player_id", playerID).
		Msg("Session started")

	return sess.Snapshot(), nil
}

// resume restores a saved deck into ctrl. A corrupt record is discarded and
// ctrl stays fresh, since a failed Restore leaves it untouched.
func (s *SessionService) resume(ctx context.Context, playerID int, key string, ctrl engine.Controller) {
	restorer, ok := ctrl.(engine.Restorer)
	if !ok {
		return
	}

	data, err := s.progress.Get(ctx, playerID, key)
	if errors.Is(err, repository.ErrProgressNotFound) {
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Int("player_id", playerID).Str("definition_key", key).Msg("Failed to load flashcard progress, starting fresh")
		return
	}

	if err := restorer.Restore(data); err != nil {
		s.log.Warn().Err(err).Int("player_id", playerID).Str("definition_key", key).Msg("Discarding corrupt flashcard progress")
		if derr := s.progress.Delete(ctx, playerID, key); derr != nil {
			s.log.Warn().Err(derr).Msg("Failed to delete corrupt flashcard progress")
		}
	}
}

func (s *SessionService) build(def *model.GameDefinition, shuffle bool) (engine.Controller, error) {
	ctrl, err := games.New(def, engine.Options{Shuffle: shuffle, Timings: s.timings})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGameCannotLoad, err)
	}
	return ctrl, nil
}

// resolveDefinition returns the inline definition or loads the stored one,
// validating either.
func (s *SessionService) resolveDefinition(ctx context.Context, req *model.StartSessionRequest) (*model.GameDefinition, error) {
	var def *model.GameDefinition
	switch {
	case req.GameID != nil:
		d, err := s.Definition(ctx, *req.GameID)
		if err != nil {
			return nil, err
		}
		def = d
	case req.Definition != nil:
		def = req.Definition
	default:
		return nil, fmt.Errorf("%w: no definition given", ErrGameCannotLoad)
	}

	if fields := validator.ValidateStruct(def); fields != nil {
		return nil, &DefinitionError{Fields: fields}
	}
	return def, nil
}

// Definition loads a stored definition, going through the Redis cache when
// one is configured.
func (s *SessionService) Definition(ctx context.Context, gameID uuid.UUID) (*model.GameDefinition, error) {
	key := config.CacheKey.GameDefinitionKey(gameID.String())

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var def model.GameDefinition
			if err := json.Unmarshal(cached, &def); err == nil {
				return &def, nil
			}
			s.log.Warn().Str("game_id", gameID.String()).Msg("Dropping undecodable cached definition")
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("Definition cache unavailable")
		}
	}

	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %w", ErrGameCannotLoad, err)
		}
		return nil, fmt.Errorf("get game: %w", err)
	}

	if s.rdb != nil {
		if data, err := json.Marshal(game.Definition); err == nil {
			if err := s.rdb.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
				s.log.Warn().Err(err).Msg("Failed to cache definition")
			}
		}
	}
	return &game.Definition, nil
}

// Session returns a live session owned by playerID.
func (s *SessionService) Session(playerID int, id uuid.UUID) (*session.Session, error) {
	sess, err := s.manager.Get(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if sess.PlayerID() != playerID {
		return nil, ErrForbidden
	}
	return sess, nil
}

// View returns the latest snapshot.
func (s *SessionService) View(playerID int, id uuid.UUID) (session.Snapshot, error) {
	sess, err := s.Session(playerID, id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Act applies one player intent. An exit intent ends the session.
func (s *SessionService) Act(ctx context.Context, playerID int, id uuid.UUID, req *model.SessionActionRequest) (session.Snapshot, error) {
	sess, err := s.Session(playerID, id)
	if err != nil {
		return session.Snapshot{}, err
	}

	action, err := ToAction(req)
	if err != nil {
		return session.Snapshot{}, err
	}
	if action.Type == engine.ActionExit {
		return s.exit(ctx, sess)
	}

	snap, err := sess.Do(ctx, action)
	if errors.Is(err, session.ErrClosed) {
		return session.Snapshot{}, ErrSessionNotFound
	}
	return snap, err
}

// ToAction converts a request into an engine action.
func ToAction(req *model.SessionActionRequest) (engine.Action, error) {
	a := engine.Action{
		Type:      engine.ActionType(req.Type),
		CardID:    req.CardID,
		Value:     req.Value,
		Direction: engine.Direction(req.Direction),
	}
	switch a.Type {
	case engine.ActionAssess:
		if req.Known == nil {
			return engine.Action{}, fmt.Errorf("%w: assess needs known", ErrInvalidAction)
		}
		a.Known = *req.Known
	case engine.ActionClassify:
		if _, ok := a.Direction.Guess(); !ok {
			return engine.Action{}, fmt.Errorf("%w: classify needs a direction", ErrInvalidAction)
		}
	}
	return a, nil
}

// Exit ends a session. Saved flashcard progress is kept for a later resume.
func (s *SessionService) Exit(ctx context.Context, playerID int, id uuid.UUID) (session.Snapshot, error) {
	sess, err := s.Session(playerID, id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return s.exit(ctx, sess)
}

func (s *SessionService) exit(ctx context.Context, sess *session.Session) (session.Snapshot, error) {
	snap, err := s.manager.Exit(ctx, sess.ID())
	if errors.Is(err, session.ErrNotFound) {
		return session.Snapshot{}, ErrSessionNotFound
	}
	if err != nil {
		return session.Snapshot{}, err
	}
	s.log.Info().Str("session_id", sess.ID().String()).Int("player_id", sess.PlayerID()).Msg("Session exited")
	return snap, nil
}

// Review starts a review session over the cards a completed flashcard
// session marked unknown. Review sessions are recorded like any other session
// but never saved, so the original deck's record is left alone.
func (s *SessionService) Review(ctx context.Context, playerID int, id uuid.UUID) (session.Snapshot, error) {
	sess, err := s.Session(playerID, id)
	if err != nil {
		return session.Snapshot{}, err
	}

	var (
		review engine.Controller
		rerr   error
	)
	err = sess.Inspect(ctx, func(c engine.Controller) {
		r, ok := c.(engine.Reviewer)
		if !ok {
			rerr = ErrReviewNotSupported
			return
		}
		review, rerr = r.Review()
	})
	if errors.Is(err, session.ErrClosed) {
		return session.Snapshot{}, ErrSessionNotFound
	}
	if err != nil {
		return session.Snapshot{}, err
	}
	if rerr != nil {
		return session.Snapshot{}, rerr
	}

	snap := sess.Snapshot()
	next := s.manager.Start(session.Config{
		PlayerID:   playerID,
		GameID:     snap.GameID,
		Review:     true,
		Controller: review,
		Recorder:   s.recorder,
	})

	s.log.Info().
		Str("session_id", next.ID().String()).
		Str("source_session_id", id.String()).
		Int("player_id", playerID).
		Msg("Review session started")

	return next.Snapshot(), nil
}

// Progress reports whether playerID has a resumable deck for gameID.
func (s *SessionService) Progress(ctx context.Context, playerID int, gameID uuid.UUID) (*model.ProgressStatus, error) {
	status := &model.ProgressStatus{GameID: gameID}

	def, err := s.Definition(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if def.Type != model.GameTypeFlashcards || s.progress == nil {
		return status, nil
	}

	data, err := s.progress.Get(ctx, playerID, def.DefinitionKey())
	if errors.Is(err, repository.ErrProgressNotFound) {
		return status, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	game, err := flashcards.NewGame(def, engine.Options{Timings: s.timings})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGameCannotLoad, err)
	}
	if err := game.Restore(data); err != nil {
		// Start will discard it.
		return status, nil
	}

	st := game.State()
	status.Resumable = true
	status.Cursor = st.Cursor
	status.Assessed = st.Assessed()
	status.Total = len(st.Cards)
	return status, nil
}
