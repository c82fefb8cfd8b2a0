package flashcards

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/model"
)

func deck(n int) *model.GameDefinition {
	def := &model.GameDefinition{Name: "Capitals", Type: model.GameTypeFlashcards}
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		def.Flashcards = append(def.Flashcards, model.FlashcardItem{ID: id, Front: "front " + id, Back: "back " + id})
	}
	return def
}

func running(t *testing.T, n int) State {
	t.Helper()
	st, err := New(deck(n), engine.NewRand(1), false, 600*time.Millisecond)
	require.NoError(t, err)
	st, _ = Start(st)
	return st
}

// grade flips the current card and assesses it, then fires the advance.
func grade(st State, known bool) (State, engine.Effects) {
	st, _ = Flip(st)
	st, eff := Assess(st, known)
	if len(eff.Schedule) == 1 {
		st, _ = AdvanceTo(st, eff.Schedule[0].Token)
	}
	return st, eff
}

func TestNewRejectsEmptyDeck(t *testing.T) {
	t.Parallel()

	_, err := New(deck(0), engine.NewRand(1), false, time.Second)
	assert.ErrorIs(t, err, engine.ErrInvalidDefinition)
}

func TestAssessRequiresBackFace(t *testing.T) {
	t.Parallel()

	st := running(t, 2)
	next, eff := Assess(st, true)
	assert.Equal(t, engine.None, eff)
	assert.Equal(t, st, next)

	st, eff = Flip(st)
	assert.True(t, eff.Persist)
	assert.Equal(t, FaceBack, st.Face)
	assert.True(t, st.Viewed[0])

	st, eff = Assess(st, true)
	require.Len(t, eff.Schedule, 1)
	assert.Equal(t, KindAdvance, eff.Schedule[0].Kind)
	assert.Equal(t, 600*time.Millisecond, eff.Schedule[0].Delay)

	// Already graded.
	again, eff := Assess(st, false)
	assert.Equal(t, engine.None, eff)
	assert.True(t, *again.Known[0])
}

func TestNavigationBoundsAndCancelsAdvance(t *testing.T) {
	t.Parallel()

	st := running(t, 3)
	same, eff := Move(st, -1)
	assert.Equal(t, engine.None, eff)
	assert.Equal(t, 0, same.Cursor)

	st, _ = Flip(st)
	st, eff = Assess(st, false)
	token := eff.Schedule[0].Token

	st, eff = Move(st, 2)
	assert.True(t, eff.Changed)
	assert.Equal(t, 2, st.Cursor)
	assert.Equal(t, FaceFront, st.Face)
	assert.False(t, st.Pending)

	_, eff = Move(st, 1)
	assert.Equal(t, engine.None, eff)

	stale, eff := AdvanceTo(st, token)
	assert.Equal(t, engine.None, eff)
	assert.Equal(t, 2, stale.Cursor)
}

func TestAdvanceWrapsToNextUnassessed(t *testing.T) {
	t.Parallel()

	st := running(t, 3)
	st, _ = Move(st, 1)
	st, _ = grade(st, true) // b
	assert.Equal(t, 2, st.Cursor)
	st, _ = grade(st, true) // c
	assert.Equal(t, 0, st.Cursor, "search wraps back to a")
}

func TestCompletionScoreAndCounts(t *testing.T) {
	t.Parallel()

	st := running(t, 4)
	st, _ = Tick(st)
	st, _ = grade(st, true)
	st, _ = grade(st, false)
	st, _ = grade(st, true)
	st, eff := grade(st, true)

	assert.True(t, eff.Completed)
	assert.True(t, eff.Purge)
	assert.Equal(t, engine.StatusCompleted, st.Status)

	res, ok := Result(st)
	require.True(t, ok)
	data := res.AttemptData.(AttemptData)
	assert.Equal(t, data.TotalCards, data.KnownCards+data.UnknownCards)
	assert.Equal(t, AttemptData{TotalCards: 4, KnownCards: 3, UnknownCards: 1, ReviewedAll: true}, data)
	assert.Equal(t, float64(75), res.ScorePercentage)
	assert.Equal(t, 1, res.TimeTakenSeconds)
}

func TestReviewedAllNeedsEveryBackSeen(t *testing.T) {
	t.Parallel()

	st := running(t, 2)
	st, _ = grade(st, true)
	st, _ = Flip(st)
	st.Viewed[1] = false
	st, _ = Assess(st, true)

	res, ok := Result(st)
	require.True(t, ok)
	assert.False(t, res.AttemptData.(AttemptData).ReviewedAll)
}

func TestShuffleOnlyBeforeAnyAssessment(t *testing.T) {
	t.Parallel()

	rng := engine.NewRand(3)
	st := running(t, 5)
	st, _ = Tick(st)
	st, _ = Move(st, 2)

	st, eff := Shuffle(st, rng)
	assert.True(t, eff.Persist)
	assert.True(t, st.Shuffled)
	assert.Zero(t, st.Cursor)
	assert.Zero(t, st.Clock.Seconds)
	assert.ElementsMatch(t, st.Source, st.Cards)

	st, _ = grade(st, true)
	refused, eff := Shuffle(st, rng)
	assert.Equal(t, engine.None, eff)
	assert.Equal(t, st, refused)
}

func TestRestartPurgesRecord(t *testing.T) {
	t.Parallel()

	st := running(t, 3)
	st, _ = grade(st, true)
	st, eff := Restart(st, engine.NewRand(1))

	assert.True(t, eff.Purge)
	assert.True(t, eff.CancelPending)
	assert.Equal(t, engine.StatusRunning, st.Status)
	assert.Zero(t, st.Assessed())
	assert.Equal(t, deck(3).Flashcards, st.Cards)
}

func TestReviewUnknown(t *testing.T) {
	t.Parallel()

	st := running(t, 3)
	_, err := ReviewUnknown(st)
	assert.ErrorIs(t, err, engine.ErrNotCompleted)

	st, _ = grade(st, false)
	st, _ = grade(st, true)
	st, _ = grade(st, false)

	review, err := ReviewUnknown(st)
	require.NoError(t, err)
	assert.True(t, review.Review)
	assert.Equal(t, engine.StatusNotStarted, review.Status)
	require.Len(t, review.Cards, 2)
	assert.Equal(t, "a", review.Cards[0].ID)
	assert.Equal(t, "c", review.Cards[1].ID)
	assert.Zero(t, review.Clock.Seconds)

	review, _ = Start(review)
	review, eff := Flip(review)
	assert.False(t, eff.Persist, "review decks are never persisted")
	_, eff = Assess(review, true)
	assert.False(t, eff.Persist)

	allKnown := running(t, 1)
	allKnown, _ = grade(allKnown, true)
	_, err = ReviewUnknown(allKnown)
	assert.ErrorIs(t, err, engine.ErrNothingToReview)
}

func TestRestoreIsByteIdentical(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	st, err := New(deck(5), engine.NewRand(11), true, time.Second)
	require.NoError(t, err)
	st, _ = Start(st)
	st, _ = Tick(st)
	st, _ = Tick(st)
	st, _ = grade(st, true)
	st, _ = grade(st, false)
	st, _ = Flip(st)

	before, err := json.Marshal(Snapshot(st, now))
	require.NoError(t, err)

	var p Progress
	require.NoError(t, json.Unmarshal(before, &p))
	fresh, err := New(deck(5), engine.NewRand(99), false, time.Second)
	require.NoError(t, err)
	restored, err := Restore(fresh, p)
	require.NoError(t, err)

	after, err := json.Marshal(Snapshot(restored, now))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.Equal(t, st.Cards, restored.Cards)
	assert.Equal(t, st.Cursor, restored.Cursor)
	assert.Equal(t, 2, restored.Clock.Seconds)
}

func TestRestoreDuringPendingAdvanceMovesToUngradedCard(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	st := running(t, 3)
	st, _ = Flip(st)
	st, eff := Assess(st, true)
	require.Len(t, eff.Schedule, 1)
	require.True(t, st.Pending)

	p := Snapshot(st, now)
	require.Equal(t, 0, p.Cursor)

	fresh, err := New(deck(3), engine.NewRand(5), false, time.Second)
	require.NoError(t, err)
	restored, err := Restore(fresh, p)
	require.NoError(t, err)
	restored, _ = Start(restored)

	assert.Equal(t, 1, restored.Cursor)
	assert.Nil(t, restored.Known[restored.Cursor])

	restored, _ = Flip(restored)
	restored, eff = Assess(restored, false)
	assert.True(t, eff.Changed)
	assert.Equal(t, 2, restored.Assessed())
}

func TestRestoreWrapsToFirstUngradedCard(t *testing.T) {
	t.Parallel()

	yes := true
	fresh, err := New(deck(3), engine.NewRand(1), false, time.Second)
	require.NoError(t, err)
	p := Progress{
		CardIDs: []string{"a", "b", "c"},
		Cursor:  2,
		Known:   []*bool{nil, &yes, &yes},
		Viewed:  []bool{false, true, true},
	}
	restored, err := Restore(fresh, p)
	require.NoError(t, err)
	assert.Equal(t, 0, restored.Cursor)
}

func TestRestoreRejectsMismatchedRecords(t *testing.T) {
	t.Parallel()

	fresh, err := New(deck(2), engine.NewRand(1), false, time.Second)
	require.NoError(t, err)
	yes := true

	tests := []struct {
		name string
		p    Progress
	}{
		{name: "wrong length", p: Progress{CardIDs: []string{"a"}, Known: make([]*bool, 1), Viewed: make([]bool, 1)}},
		{name: "unknown card", p: Progress{CardIDs: []string{"a", "z"}, Known: make([]*bool, 2), Viewed: make([]bool, 2)}},
		{name: "repeated card", p: Progress{CardIDs: []string{"a", "a"}, Known: make([]*bool, 2), Viewed: make([]bool, 2)}},
		{name: "cursor out of range", p: Progress{CardIDs: []string{"a", "b"}, Cursor: 2, Known: make([]*bool, 2), Viewed: make([]bool, 2)}},
		{name: "flag length", p: Progress{CardIDs: []string{"a", "b"}, Known: make([]*bool, 1), Viewed: make([]bool, 2)}},
		{name: "finished deck", p: Progress{CardIDs: []string{"a", "b"}, Known: []*bool{&yes, &yes}, Viewed: make([]bool, 2)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Restore(fresh, tc.p)
			assert.ErrorIs(t, err, engine.ErrCorruptProgress)
		})
	}
}

func TestGameCheckpointRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	opts := engine.Options{Seed: 4, Timings: engine.DefaultTimings()}

	g, err := NewGame(deck(3), opts)
	require.NoError(t, err)
	g.Start(now)
	g.Handle(engine.Action{Type: engine.ActionFlip}, now)
	eff := g.Handle(engine.Action{Type: engine.ActionAssess, Known: true}, now)
	require.Len(t, eff.Schedule, 1)
	g.Fire(eff.Schedule[0], now)

	data, err := g.Checkpoint(now)
	require.NoError(t, err)

	resumed, err := NewGame(deck(3), opts)
	require.NoError(t, err)
	require.NoError(t, resumed.Restore(data))
	resumed.Start(now)

	again, err := resumed.Checkpoint(now)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
	assert.Equal(t, 1, resumed.View().(View).Cursor)

	assert.Error(t, resumed.Restore(data), "restore after start is refused")
}

func TestGameRestoreRejectsGarbage(t *testing.T) {
	t.Parallel()

	g, err := NewGame(deck(2), engine.Options{Seed: 1})
	require.NoError(t, err)
	assert.ErrorIs(t, g.Restore([]byte("{not json")), engine.ErrCorruptProgress)
}

func TestViewHidesBackUntilFlipped(t *testing.T) {
	t.Parallel()

	g, err := NewGame(deck(1), engine.Options{Seed: 1})
	require.NoError(t, err)
	g.Start(time.Now())

	v := g.View().(View)
	require.NotNil(t, v.Card)
	assert.Equal(t, "front a", v.Card.Front)
	assert.Empty(t, v.Card.Back)
	assert.True(t, v.CanShuffle)

	g.Handle(engine.Action{Type: engine.ActionFlip}, time.Now())
	v = g.View().(View)
	assert.Equal(t, "back a", v.Card.Back)
}
