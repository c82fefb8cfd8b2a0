// Package pairs implements the matching-pairs game: 2N face-down cards, two
// flips per move, matched pairs stay face up and a mismatch flips back after
// a settle delay.
package pairs

import (
	"math/rand/v2"
	"time"

	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/model"
)

// KindMismatchSettle is the continuation that turns a mismatched pair back.
const KindMismatchSettle = "mismatch_settle"

// Card is one half of a pair item.
type Card struct {
	CardID    string `json:"card_id"`
	Content   string `json:"content"`
	Image     string `json:"image,omitempty"`
	PairID    string `json:"pair_id"`
	IsFlipped bool   `json:"is_flipped"`
	IsMatched bool   `json:"is_matched"`
}

// State is the full matching-pairs session state.
type State struct {
	Status  engine.Status    `json:"status"`
	Cards   []Card           `json:"cards"`
	FaceUp  []int            `json:"face_up"`
	Locked  bool             `json:"locked"`
	Token   int              `json:"token"`
	Moves   int              `json:"moves"`
	Matches int              `json:"matches"`
	Pairs   int              `json:"pairs"`
	Clock   engine.Stopwatch `json:"clock"`
	Settle  time.Duration    `json:"-"`
}

// AttemptData is the diagnostic payload recorded with the result.
type AttemptData struct {
	Moves       int  `json:"moves"`
	Pairs       int  `json:"pairs"`
	PerfectGame bool `json:"perfect_game"`
}

// New expands the pair items into cards and shuffles them once.
func New(def *model.GameDefinition, rng *rand.Rand, settle time.Duration) (State, error) {
	ids := make([]string, len(def.Pairs))
	for i, p := range def.Pairs {
		ids[i] = p.ID
	}
	if err := engine.ValidateIDs(ids); err != nil {
		return State{}, err
	}

	cards := make([]Card, 0, 2*len(def.Pairs))
	for _, p := range def.Pairs {
		cards = append(cards,
			Card{CardID: p.ID + "-L", Content: p.LeftText, Image: p.LeftImage, PairID: p.ID},
			Card{CardID: p.ID + "-R", Content: p.RightText, Image: p.RightImage, PairID: p.ID},
		)
	}

	return State{
		Status: engine.StatusNotStarted,
		Cards:  engine.Shuffle(rng, cards),
		Pairs:  len(def.Pairs),
		Settle: settle,
	}, nil
}

func (s State) clone() State {
	s.Cards = append([]Card(nil), s.Cards...)
	s.FaceUp = append([]int(nil), s.FaceUp...)
	return s
}

// Start moves an idle session into running.
func Start(s State) (State, engine.Effects) {
	if s.Status != engine.StatusNotStarted {
		return s, engine.None
	}
	s.Status = engine.StatusRunning
	return s, engine.Changed()
}

func (s State) index(cardID string) int {
	for i, c := range s.Cards {
		if c.CardID == cardID {
			return i
		}
	}
	return -1
}

// Flip turns a face-down card up. The second flip of a move is compared at
// once: a match locks both cards in, a mismatch holds the board until the
// settle continuation fires.
func Flip(s State, cardID string) (State, engine.Effects) {
	if s.Status != engine.StatusRunning || s.Locked || len(s.FaceUp) >= 2 {
		return s, engine.None
	}
	i := s.index(cardID)
	if i < 0 || s.Cards[i].IsFlipped || s.Cards[i].IsMatched {
		return s, engine.None
	}

	s = s.clone()
	s.Cards[i].IsFlipped = true
	s.FaceUp = append(s.FaceUp, i)
	if len(s.FaceUp) < 2 {
		return s, engine.Changed()
	}

	s.Moves++
	a, b := s.FaceUp[0], s.FaceUp[1]
	if s.Cards[a].PairID == s.Cards[b].PairID {
		s.Cards[a].IsMatched = true
		s.Cards[b].IsMatched = true
		s.FaceUp = s.FaceUp[:0]
		s.Matches++
		if s.Matches == s.Pairs {
			s.Status = engine.StatusCompleted
			return s, engine.Complete()
		}
		return s, engine.Changed()
	}

	s.Locked = true
	s.Token++
	return s, engine.After(KindMismatchSettle, s.Token, s.Settle)
}

// SettleMismatch flips the held pair back and releases the lock.
func SettleMismatch(s State, token int) (State, engine.Effects) {
	if s.Status != engine.StatusRunning || !s.Locked || token != s.Token {
		return s, engine.None
	}
	s = s.clone()
	for _, i := range s.FaceUp {
		s.Cards[i].IsFlipped = false
	}
	s.FaceUp = s.FaceUp[:0]
	s.Locked = false
	return s, engine.Changed()
}

// Tick advances the elapsed-time stopwatch while running.
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

// Result reports the outcome of a completed session. Completion always
// scores 100; an unfinished board has no result.
func Result(s State) (engine.Result, bool) {
	if s.Status != engine.StatusCompleted {
		return engine.Result{}, false
	}
	return engine.Result{
		ScorePercentage:  100,
		TimeTakenSeconds: s.Clock.Seconds,
		AttemptData: AttemptData{
			Moves:       s.Moves,
			Pairs:       s.Pairs,
			PerfectGame: s.Moves == s.Pairs,
		},
	}, true
}
