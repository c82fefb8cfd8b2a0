// Package swipe implements true/false classification by swiping: right
// claims the statement is correct, left claims it is wrong. The most recent
// swipe can be undone once.
package swipe

import (
	"math/rand/v2"
	"time"

	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/model"
)

// KindFeedback ends the feedback flash and moves to the next statement.
const KindFeedback = "feedback_settle"

// Phase is the sub-state of the current statement.
type Phase string

const (
	PhaseActive   Phase = "active"
	PhaseFeedback Phase = "feedback"
)

// Swipe is the immutable record of one classification.
type Swipe struct {
	ItemID    string           `json:"item_id"`
	Statement string           `json:"statement"`
	Direction engine.Direction `json:"direction"`
	Correct   bool             `json:"correct"`
	Timestamp time.Time        `json:"timestamp"`
}

// State is the full swipe session state.
type State struct {
	Status   engine.Status     `json:"status"`
	Items    []model.SwipeItem `json:"items"`
	Cursor   int               `json:"cursor"`
	Phase    Phase             `json:"phase"`
	Swipes   []Swipe           `json:"swipes"`
	Correct  int               `json:"correct"`
	CanUndo  bool              `json:"can_undo"`
	Token    int               `json:"token"`
	Clock    engine.Stopwatch  `json:"clock"`
	Feedback time.Duration     `json:"-"`
}

// AttemptData is the diagnostic payload recorded with the result.
type AttemptData struct {
	TotalQuestions  int     `json:"total_questions"`
	CorrectSwipes   int     `json:"correct_swipes"`
	IncorrectSwipes int     `json:"incorrect_swipes"`
	Swipes          []Swipe `json:"swipes"`
}

// New builds an idle session, shuffling the statements when shuffle is set.
func New(def *model.GameDefinition, rng *rand.Rand, shuffle bool, feedback time.Duration) (State, error) {
	ids := make([]string, len(def.Statements))
	for i, it := range def.Statements {
		ids[i] = it.ID
	}
	if err := engine.ValidateIDs(ids); err != nil {
		return State{}, err
	}

	items := append([]model.SwipeItem(nil), def.Statements...)
	if shuffle {
		items = engine.Shuffle(rng, items)
	}
	return State{
		Status:   engine.StatusNotStarted,
		Items:    items,
		Phase:    PhaseActive,
		Feedback: feedback,
	}, nil
}

// Start moves an idle session into running.
func Start(s State) (State, engine.Effects) {
	if s.Status != engine.StatusNotStarted {
		return s, engine.None
	}
	s.Status = engine.StatusRunning
	return s, engine.Changed()
}

// Classify records a swipe on the current statement and arms the feedback
// continuation.
func Classify(s State, dir engine.Direction, now time.Time) (State, engine.Effects) {
	guess, ok := dir.Guess()
	if !ok || s.Status != engine.StatusRunning || s.Phase != PhaseActive {
		return s, engine.None
	}
	item := s.Items[s.Cursor]
	correct := guess == item.IsCorrect

	s.Swipes = append(append([]Swipe(nil), s.Swipes...), Swipe{
		ItemID:    item.ID,
		Statement: item.Statement,
		Direction: dir,
		Correct:   correct,
		Timestamp: now.UTC(),
	})
	if correct {
		s.Correct++
	}
	s.Phase = PhaseFeedback
	s.CanUndo = true
	s.Token++
	return s, engine.After(KindFeedback, s.Token, s.Feedback)
}

// SettleFeedback advances past the classified statement. Passing the last
// statement completes the session.
func SettleFeedback(s State, token int) (State, engine.Effects) {
	if s.Status != engine.StatusRunning || s.Phase != PhaseFeedback || token != s.Token {
		return s, engine.None
	}
	s.Cursor++
	s.Phase = PhaseActive
	if s.Cursor >= len(s.Items) {
		s.Status = engine.StatusCompleted
		s.CanUndo = false
		return s, engine.Complete()
	}
	return s, engine.Changed()
}

// Undo removes the latest swipe and returns to its statement. Only one level
// is kept: a second undo without a new swipe is ignored.
func Undo(s State) (State, engine.Effects) {
	if s.Status != engine.StatusRunning || !s.CanUndo || len(s.Swipes) == 0 {
		return s, engine.None
	}
	last := s.Swipes[len(s.Swipes)-1]
	s.Swipes = append([]Swipe(nil), s.Swipes[:len(s.Swipes)-1]...)
	if last.Correct {
		s.Correct--
	}
	if s.Phase == PhaseFeedback {
		s.Token++
	} else {
		s.Cursor--
	}
	s.Phase = PhaseActive
	s.CanUndo = false
	return s, engine.Effects{Changed: true}
}

// Tick advances the stopwatch while running.
func Tick(s State) (State, engine.Effects) {
	if s.Status != engine.StatusRunning || s.Clock.Suspended {
		return s, engine.None
	}
	s.Clock = s.Clock.Tick()
	return s, engine.Changed()
}

// Suspend stops or restarts time accumulation.
func Suspend(s State, suspended bool) (State, engine.Effects) {
	if s.Status != engine.StatusRunning || s.Clock.Suspended == suspended {
		return s, engine.None
	}
	s.Clock.Suspended = suspended
	return s, engine.Changed()
}

// Result reports the outcome of a completed session.
func Result(s State) (engine.Result, bool) {
	if s.Status != engine.StatusCompleted {
		return engine.Result{}, false
	}
	total := len(s.Items)
	return engine.Result{
		ScorePercentage:  engine.Percentage(s.Correct, total),
		TimeTakenSeconds: s.Clock.Seconds,
		AttemptData: AttemptData{
			TotalQuestions:  total,
			CorrectSwipes:   s.Correct,
			IncorrectSwipes: len(s.Swipes) - s.Correct,
			Swipes:          append([]Swipe(nil), s.Swipes...),
		},
	}, true
}
