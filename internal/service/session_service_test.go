package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/engine/flashcards"
	"github.com/stemsi/exstem-games/internal/model"
	"github.com/stemsi/exstem-games/internal/repository"
	"github.com/stemsi/exstem-games/internal/session"
	"github.com/stemsi/exstem-games/internal/validator"
)

func init() { validator.Setup() }

type fakeGames struct {
	mu    sync.Mutex
	games map[uuid.UUID]*model.Game
	calls int
}

func (f *fakeGames) GetByID(_ context.Context, id uuid.UUID) (*model.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	g, ok := f.games[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *g
	return &cp, nil
}

type recorded struct {
	mu       sync.Mutex
	outcomes []session.Outcome
}

func (r *recorded) Record(_ context.Context, o session.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	return nil
}

func (r *recorded) all() []session.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Outcome(nil), r.outcomes...)
}

func (r *recorded) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}

type harness struct {
	svc      *SessionService
	games    *fakeGames
	progress *repository.FlashcardProgressRepository
	recorder *recorded
	manager  *session.Manager
	mr       *miniredis.Miniredis
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := &harness{
		games:    &fakeGames{games: map[uuid.UUID]*model.Game{}},
		progress: repository.NewFlashcardProgressRepository(rdb, time.Hour),
		recorder: &recorded{},
		manager:  session.NewManager(session.SystemClock{}, time.Hour, zerolog.Nop()),
		mr:       mr,
	}
	h.svc = NewSessionService(SessionServiceConfig{
		Games:    h.games,
		Progress: h.progress,
		Recorder: h.recorder,
		Manager:  h.manager,
		Rdb:      rdb,
		Timings:  engine.DefaultTimings(),
		CacheTTL: time.Minute,
	}, zerolog.Nop())
	t.Cleanup(func() { h.manager.Shutdown(context.Background()) })
	return h
}

func (h *harness) store(def model.GameDefinition) uuid.UUID {
	id := uuid.New()
	def.ID = id
	h.games.mu.Lock()
	h.games.games[id] = &model.Game{ID: id, Name: def.Name, Type: def.Type, Definition: def}
	h.games.mu.Unlock()
	return id
}

func pairsDefinition() *model.GameDefinition {
	return &model.GameDefinition{
		Name: "Animals",
		Type: model.GameTypePairs,
		Pairs: []model.PairItem{
			{ID: "a", LeftText: "cat", RightText: "kucing"},
			{ID: "b", LeftText: "dog", RightText: "anjing"},
		},
	}
}

func deckDefinition(n int) model.GameDefinition {
	def := model.GameDefinition{Name: "Capitals", Type: model.GameTypeFlashcards}
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		def.Flashcards = append(def.Flashcards, model.FlashcardItem{ID: id, Front: "front " + id, Back: "back " + id})
	}
	return def
}

func known(v bool) *bool { return &v }

func TestStartInlineDefinition(t *testing.T) {
	h := newHarness(t)

	snap, err := h.svc.Start(context.Background(), 7, &model.StartSessionRequest{Definition: pairsDefinition()})
	require.NoError(t, err)
	assert.Equal(t, model.GameTypePairs, snap.GameType)
	assert.Equal(t, engine.StatusRunning, snap.Status)
	assert.Nil(t, snap.GameID)
	assert.Equal(t, 1, h.manager.Len())
}

func TestStartRejectsBadDefinitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	missing := uuid.New()
	_, err := h.svc.Start(ctx, 1, &model.StartSessionRequest{GameID: &missing})
	assert.ErrorIs(t, err, ErrGameNotFound)

	dup := pairsDefinition()
	dup.Pairs[1].ID = "a"
	_, err = h.svc.Start(ctx, 1, &model.StartSessionRequest{Definition: dup})
	require.ErrorIs(t, err, ErrGameCannotLoad)

	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)
	assert.NotEmpty(t, defErr.Fields)

	_, err = h.svc.Start(ctx, 1, &model.StartSessionRequest{})
	assert.ErrorIs(t, err, ErrGameCannotLoad)
	assert.Zero(t, h.manager.Len())
}

func TestDefinitionIsCached(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.store(*pairsDefinition())

	first, err := h.svc.Definition(ctx, id)
	require.NoError(t, err)
	second, err := h.svc.Definition(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, id, second.ID)
	assert.Equal(t, 1, h.games.calls)
	assert.True(t, h.mr.Exists("game:"+id.String()+":definition"))
	assert.Equal(t, time.Minute, h.mr.TTL("game:"+id.String()+":definition"))
}

func TestSessionsAreScopedToTheirPlayer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	snap, err := h.svc.Start(ctx, 7, &model.StartSessionRequest{Definition: pairsDefinition()})
	require.NoError(t, err)

	_, err = h.svc.View(8, snap.SessionID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.svc.Act(ctx, 8, snap.SessionID, &model.SessionActionRequest{Type: "flip", CardID: "a-left"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.svc.View(7, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestActValidatesIntent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	def := deckDefinition(2)

	snap, err := h.svc.Start(ctx, 3, &model.StartSessionRequest{Definition: &def})
	require.NoError(t, err)

	_, err = h.svc.Act(ctx, 3, snap.SessionID, &model.SessionActionRequest{Type: "assess"})
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = h.svc.Act(ctx, 3, snap.SessionID, &model.SessionActionRequest{Type: "classify"})
	assert.ErrorIs(t, err, ErrInvalidAction)

	after, err := h.svc.Act(ctx, 3, snap.SessionID, &model.SessionActionRequest{Type: "flip"})
	require.NoError(t, err)
	assert.Equal(t, flashcards.FaceBack, after.View.(flashcards.View).Face)
}

func TestExitActionEndsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	snap, err := h.svc.Start(ctx, 7, &model.StartSessionRequest{Definition: pairsDefinition()})
	require.NoError(t, err)

	final, err := h.svc.Act(ctx, 7, snap.SessionID, &model.SessionActionRequest{Type: "exit"})
	require.NoError(t, err)
	assert.True(t, final.Exited)

	_, err = h.svc.View(7, snap.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = h.svc.Exit(ctx, 7, snap.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Zero(t, h.recorder.len())
}

func TestReviewUnknownCards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.store(deckDefinition(1))

	snap, err := h.svc.Start(ctx, 2, &model.StartSessionRequest{GameID: &id})
	require.NoError(t, err)

	_, err = h.svc.Review(ctx, 2, snap.SessionID)
	assert.ErrorIs(t, err, engine.ErrNotCompleted)

	_, err = h.svc.Act(ctx, 2, snap.SessionID, &model.SessionActionRequest{Type: "flip"})
	require.NoError(t, err)
	done, err := h.svc.Act(ctx, 2, snap.SessionID, &model.SessionActionRequest{Type: "assess", Known: known(false)})
	require.NoError(t, err)
	require.Equal(t, engine.StatusCompleted, done.Status)
	require.NotNil(t, done.Result)
	assert.Zero(t, done.Result.ScorePercentage)
	assert.Equal(t, 1, h.recorder.len())

	review, err := h.svc.Review(ctx, 2, snap.SessionID)
	require.NoError(t, err)
	assert.True(t, review.Review)
	assert.Equal(t, &id, review.GameID)
	assert.NotEqual(t, snap.SessionID, review.SessionID)
	assert.Equal(t, 1, review.View.(flashcards.View).Total)

	// A finished review is recorded once, under its own session id.
	_, err = h.svc.Act(ctx, 2, review.SessionID, &model.SessionActionRequest{Type: "flip"})
	require.NoError(t, err)
	finished, err := h.svc.Act(ctx, 2, review.SessionID, &model.SessionActionRequest{Type: "assess", Known: known(true)})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusCompleted, finished.Status)
	outcomes := h.recorder.all()
	require.Len(t, outcomes, 2)
	assert.Equal(t, review.SessionID, outcomes[1].SessionID)
	assert.Equal(t, &id, outcomes[1].GameID)
	assert.Equal(t, float64(100), outcomes[1].Result.ScorePercentage)

	_, err = h.svc.Act(ctx, 2, review.SessionID, &model.SessionActionRequest{Type: "flip"})
	require.NoError(t, err)
	assert.Equal(t, 2, h.recorder.len())

	_, err = h.svc.Review(ctx, 2, review.SessionID)
	assert.ErrorIs(t, err, engine.ErrNothingToReview)
}

func TestReviewNeedsFlashcards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	snap, err := h.svc.Start(ctx, 7, &model.StartSessionRequest{Definition: pairsDefinition()})
	require.NoError(t, err)
	_, err = h.svc.Review(ctx, 7, snap.SessionID)
	assert.ErrorIs(t, err, ErrReviewNotSupported)
}

// checkpoint returns a saved deck with the first card graded.
func checkpoint(t *testing.T, def model.GameDefinition) []byte {
	t.Helper()
	g, err := flashcards.NewGame(&def, engine.Options{Timings: engine.DefaultTimings()})
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	g.Start(now)
	g.Handle(engine.Action{Type: engine.ActionFlip}, now)
	g.Handle(engine.Action{Type: engine.ActionAssess, Known: true}, now)
	data, err := g.Checkpoint(now)
	require.NoError(t, err)
	return data
}

func TestProgressReportsResumableDeck(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	def := deckDefinition(3)
	id := h.store(def)
	def.ID = id

	status, err := h.svc.Progress(ctx, 4, id)
	require.NoError(t, err)
	assert.False(t, status.Resumable)

	require.NoError(t, h.progress.Save(ctx, 4, id.String(), checkpoint(t, def)))

	status, err = h.svc.Progress(ctx, 4, id)
	require.NoError(t, err)
	assert.True(t, status.Resumable)
	assert.Equal(t, 1, status.Assessed)
	assert.Equal(t, 3, status.Total)

	_, err = h.svc.Progress(ctx, 4, uuid.New())
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestStartResumesSavedDeck(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	def := deckDefinition(3)
	id := h.store(def)
	def.ID = id
	require.NoError(t, h.progress.Save(ctx, 4, id.String(), checkpoint(t, def)))

	snap, err := h.svc.Start(ctx, 4, &model.StartSessionRequest{GameID: &id, Resume: true})
	require.NoError(t, err)
	view := snap.View.(flashcards.View)
	assert.Equal(t, 1, view.Assessed)
	assert.Equal(t, engine.StatusRunning, view.Status)

	fresh, err := h.svc.Start(ctx, 5, &model.StartSessionRequest{GameID: &id, Resume: true})
	require.NoError(t, err)
	assert.Zero(t, fresh.View.(flashcards.View).Assessed)
}

func TestStartDiscardsCorruptDeck(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.store(deckDefinition(2))
	require.NoError(t, h.progress.Save(ctx, 4, id.String(), []byte(`{"card_ids":["zz"]}`)))

	snap, err := h.svc.Start(ctx, 4, &model.StartSessionRequest{GameID: &id, Resume: true})
	require.NoError(t, err)
	assert.Zero(t, snap.View.(flashcards.View).Assessed)

	// Exit flushes the fresh deck's checkpoint over the discarded record.
	_, err = h.svc.Exit(ctx, 4, snap.SessionID)
	require.NoError(t, err)

	data, err := h.progress.Get(ctx, 4, id.String())
	require.NoError(t, err)
	var p flashcards.Progress
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, []string{"a", "b"}, p.CardIDs)
}
