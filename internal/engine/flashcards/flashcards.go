// Package flashcards implements the self-assessment deck: the player flips
// each card, grades it as known or unknown, and the deck completes once every
// card is graded. Running sessions are checkpointed so a reload can resume.
package flashcards

import (
	"math/rand/v2"
	"time"

	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/model"
)

// KindAdvance moves the cursor after an assessment.
const KindAdvance = "advance"

// Face is the side of the current card shown to the player.
type Face string

const (
	FaceFront Face = "front"
	FaceBack  Face = "back"
)

// State is the full flashcard session state. Source keeps the authored order
// so restart can rebuild the deck.
type State struct {
	Status   engine.Status         `json:"status"`
	Source   []model.FlashcardItem `json:"-"`
	Cards    []model.FlashcardItem `json:"cards"`
	Known    []*bool               `json:"known"`
	Viewed   []bool                `json:"viewed"`
	Cursor   int                   `json:"cursor"`
	Face     Face                  `json:"face"`
	Clock    engine.Stopwatch      `json:"clock"`
	Shuffled bool                  `json:"shuffled"`
	Pending  bool                  `json:"pending"`
	Token    int                   `json:"token"`
	Review   bool                  `json:"review"`
	Advance  time.Duration         `json:"-"`
}

// AttemptData is the diagnostic payload recorded with the result.
type AttemptData struct {
	TotalCards   int  `json:"total_cards"`
	KnownCards   int  `json:"known_cards"`
	UnknownCards int  `json:"unknown_cards"`
	ReviewedAll  bool `json:"reviewed_all"`
}

// New builds an idle deck, shuffled when shuffle is set.
func New(def *model.GameDefinition, rng *rand.Rand, shuffle bool, advance time.Duration) (State, error) {
	ids := make([]string, len(def.Flashcards))
	for i, c := range def.Flashcards {
		ids[i] = c.ID
	}
	if err := engine.ValidateIDs(ids); err != nil {
		return State{}, err
	}

	s := State{
		Status:  engine.StatusNotStarted,
		Source:  append([]model.FlashcardItem(nil), def.Flashcards...),
		Advance: advance,
	}
	return s.deal(rng, shuffle), nil
}

// deal resets the deck from Source. It does not touch Status.
func (s State) deal(rng *rand.Rand, shuffle bool) State {
	if shuffle {
		s.Cards = engine.Shuffle(rng, s.Source)
	} else {
		s.Cards = append([]model.FlashcardItem(nil), s.Source...)
	}
	s.Known = make([]*bool, len(s.Cards))
	s.Viewed = make([]bool, len(s.Cards))
	s.Cursor = 0
	s.Face = FaceFront
	s.Clock = engine.Stopwatch{Suspended: s.Clock.Suspended}
	s.Shuffled = shuffle
	s.Pending = false
	s.Token++
	return s
}

func (s State) clone() State {
	s.Cards = append([]model.FlashcardItem(nil), s.Cards...)
	s.Known = append([]*bool(nil), s.Known...)
	s.Viewed = append([]bool(nil), s.Viewed...)
	return s
}

// changed marks a state change that should reach the progress store.
// Review decks are never persisted.
func (s State) changed(e engine.Effects) engine.Effects {
	e.Changed = true
	if !s.Review {
		e.Persist = true
	}
	return e
}

func (s State) running() bool { return s.Status == engine.StatusRunning }

// Assessed counts cards that have a known/unknown grade.
func (s State) Assessed() int {
	n := 0
	for _, k := range s.Known {
		if k != nil {
			n++
		}
	}
	return n
}

// Start moves an idle deck into running.
func Start(s State) (State, engine.Effects) {
	if s.Status != engine.StatusNotStarted {
		return s, engine.None
	}
	s.Status = engine.StatusRunning
	return s, s.changed(engine.None)
}

// Flip toggles the face of the current card. Showing the back marks the card
// viewed.
func Flip(s State) (State, engine.Effects) {
	if !s.running() {
		return s, engine.None
	}
	s = s.clone()
	if s.Face == FaceFront {
		s.Face = FaceBack
		s.Viewed[s.Cursor] = true
	} else {
		s.Face = FaceFront
	}
	return s, s.changed(engine.None)
}

// Move shifts the cursor by delta within the deck bounds. Navigation cancels
// a pending auto-advance.
func Move(s State, delta int) (State, engine.Effects) {
	to := s.Cursor + delta
	if !s.running() || to < 0 || to >= len(s.Cards) {
		return s, engine.None
	}
	s.Cursor = to
	s.Face = FaceFront
	if s.Pending {
		s.Pending = false
		s.Token++
	}
	return s, s.changed(engine.None)
}

// Assess grades the current card. It is accepted only while the back face is
// showing and the card has no grade yet. Grading the last card completes the
// deck; otherwise an advance continuation is armed.
func Assess(s State, known bool) (State, engine.Effects) {
	if !s.running() || s.Face != FaceBack || s.Known[s.Cursor] != nil {
		return s, engine.None
	}
	s = s.clone()
	k := known
	s.Known[s.Cursor] = &k

	if s.Assessed() == len(s.Cards) {
		s.Status = engine.StatusCompleted
		s.Pending = false
		eff := engine.Complete()
		eff.Purge = !s.Review
		return s, eff
	}

	s.Pending = true
	s.Token++
	return s, s.changed(engine.After(KindAdvance, s.Token, s.Advance))
}

// AdvanceTo moves to the next unassessed card, searching forward and
// wrapping around.
func AdvanceTo(s State, token int) (State, engine.Effects) {
	if !s.running() || !s.Pending || token != s.Token {
		return s, engine.None
	}
	s.Cursor = s.nextUnassessed(s.Cursor + 1)
	s.Face = FaceFront
	s.Pending = false
	return s, s.changed(engine.None)
}

// nextUnassessed returns the first unassessed index at or after from,
// wrapping around. It returns Cursor when every card is assessed.
func (s State) nextUnassessed(from int) int {
	n := len(s.Cards)
	for step := 0; step < n; step++ {
		i := (from + step) % n
		if s.Known[i] == nil {
			return i
		}
	}
	return s.Cursor
}

// Shuffle reshuffles and restarts the deck. It is refused once any card has
// been graded so progress is never discarded silently.
func Shuffle(s State, rng *rand.Rand) (State, engine.Effects) {
	if !s.running() || s.Assessed() > 0 {
		return s, engine.None
	}
	s = s.deal(rng, true)
	eff := s.changed(engine.None)
	eff.CancelPending = true
	return s, eff
}

// Restart deals a fresh deck in the current order mode and drops the
// persisted record.
func Restart(s State, rng *rand.Rand) (State, engine.Effects) {
	if !s.running() {
		return s, engine.None
	}
	s = s.deal(rng, s.Shuffled)
	return s, engine.Effects{Changed: true, CancelPending: true, Purge: !s.Review}
}

// Tick advances the stopwatch while running.
func Tick(s State) (State, engine.Effects) {
	if !s.running() || s.Clock.Suspended {
		return s, engine.None
	}
	s.Clock = s.Clock.Tick()
	return s, s.changed(engine.None)
}

// Suspend stops or restarts time accumulation.
func Suspend(s State, suspended bool) (State, engine.Effects) {
	if !s.running() || s.Clock.Suspended == suspended {
		return s, engine.None
	}
	s.Clock.Suspended = suspended
	return s, engine.Changed()
}

// ReviewUnknown builds a new idle deck over the cards graded unknown, in the
// order they were played.
func ReviewUnknown(s State) (State, error) {
	if s.Status != engine.StatusCompleted {
		return State{}, engine.ErrNotCompleted
	}
	var subset []model.FlashcardItem
	for i, k := range s.Known {
		if k != nil && !*k {
			subset = append(subset, s.Cards[i])
		}
	}
	if len(subset) == 0 {
		return State{}, engine.ErrNothingToReview
	}

	r := State{
		Status:  engine.StatusNotStarted,
		Source:  subset,
		Review:  true,
		Advance: s.Advance,
	}
	return r.deal(nil, false), nil
}

// Result reports the outcome of a completed deck.
func Result(s State) (engine.Result, bool) {
	if s.Status != engine.StatusCompleted {
		return engine.Result{}, false
	}
	known, viewed := 0, 0
	for i, k := range s.Known {
		if k != nil && *k {
			known++
		}
		if s.Viewed[i] {
			viewed++
		}
	}
	total := len(s.Cards)
	return engine.Result{
		ScorePercentage:  engine.Percentage(known, total),
		TimeTakenSeconds: s.Clock.Seconds,
		AttemptData: AttemptData{
			TotalCards:   total,
			KnownCards:   known,
			UnknownCards: total - known,
			ReviewedAll:  viewed == total,
		},
	}, true
}
