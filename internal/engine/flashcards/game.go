package flashcards

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/model"
)

// Game adapts State to engine.Controller. It also checkpoints, restores and
// spawns review decks.
type Game struct {
	state State
	rng   *rand.Rand
}

// NewGame builds a controller for a flashcards definition.
func NewGame(def *model.GameDefinition, opts engine.Options) (*Game, error) {
	rng := engine.NewRand(opts.Seed)
	st, err := New(def, rng, opts.Shuffle, opts.Timings.FlashcardAdvance)
	if err != nil {
		return nil, err
	}
	return &Game{state: st, rng: rng}, nil
}

func (g *Game) Type() model.GameType  { return model.GameTypeFlashcards }
func (g *Game) Status() engine.Status { return g.state.Status }
func (g *Game) State() State          { return g.state.clone() }

func (g *Game) Start(time.Time) engine.Effects {
	var eff engine.Effects
	g.state, eff = Start(g.state)
	return eff
}

func (g *Game) Handle(a engine.Action, _ time.Time) engine.Effects {
	var eff engine.Effects
	switch a.Type {
	case engine.ActionFlip:
		g.state, eff = Flip(g.state)
	case engine.ActionNext:
		g.state, eff = Move(g.state, 1)
	case engine.ActionPrevious:
		g.state, eff = Move(g.state, -1)
	case engine.ActionAssess:
		g.state, eff = Assess(g.state, a.Known)
	case engine.ActionShuffle:
		g.state, eff = Shuffle(g.state, g.rng)
	case engine.ActionRestart:
		g.state, eff = Restart(g.state, g.rng)
	case engine.ActionPause:
		g.state, eff = Suspend(g.state, true)
	case engine.ActionResume:
		g.state, eff = Suspend(g.state, false)
	}
	return eff
}

func (g *Game) Tick(time.Time) engine.Effects {
	var eff engine.Effects
	g.state, eff = Tick(g.state)
	return eff
}

func (g *Game) Fire(c engine.Continuation, _ time.Time) engine.Effects {
	if c.Kind != KindAdvance {
		return engine.None
	}
	var eff engine.Effects
	g.state, eff = AdvanceTo(g.state, c.Token)
	return eff
}

func (g *Game) Result() (engine.Result, bool) { return Result(g.state) }

// Checkpoint encodes the current progress record.
func (g *Game) Checkpoint(now time.Time) ([]byte, error) {
	b, err := json.Marshal(Snapshot(g.state, now))
	if err != nil {
		return nil, fmt.Errorf("marshal flashcard progress: %w", err)
	}
	return b, nil
}

// Restore resumes from a record written by Checkpoint.
func (g *Game) Restore(data []byte) error {
	if g.state.Status != engine.StatusNotStarted {
		return fmt.Errorf("restore flashcards: session already %s", g.state.Status)
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrCorruptProgress, err)
	}
	st, err := Restore(g.state, p)
	if err != nil {
		return err
	}
	g.state = st
	return nil
}

// Review returns an idle controller over the cards graded unknown.
func (g *Game) Review() (engine.Controller, error) {
	st, err := ReviewUnknown(g.state)
	if err != nil {
		return nil, err
	}
	return &Game{state: st, rng: engine.NewRand(0)}, nil
}

// CardView is the current card as shown to the player. The back stays hidden
// until flipped.
type CardView struct {
	ID         string `json:"id"`
	Front      string `json:"front"`
	FrontImage string `json:"front_image,omitempty"`
	Back       string `json:"back,omitempty"`
	BackImage  string `json:"back_image,omitempty"`
	Known      *bool  `json:"known"`
	Viewed     bool   `json:"viewed"`
}

// View is the player-facing snapshot.
type View struct {
	Status         engine.Status `json:"status"`
	Card           *CardView     `json:"card,omitempty"`
	Cursor         int           `json:"cursor"`
	Total          int           `json:"total"`
	Face           Face          `json:"face"`
	Assessed       int           `json:"assessed"`
	Known          []*bool       `json:"known"`
	ElapsedSeconds int           `json:"elapsed_seconds"`
	Shuffled       bool          `json:"shuffled"`
	CanShuffle     bool          `json:"can_shuffle"`
	Review         bool          `json:"review"`
	Paused         bool          `json:"paused"`
}

func (g *Game) View() any {
	s := g.state
	assessed := s.Assessed()
	v := View{
		Status:         s.Status,
		Cursor:         s.Cursor,
		Total:          len(s.Cards),
		Face:           s.Face,
		Assessed:       assessed,
		Known:          Snapshot(s, time.Time{}).Known,
		ElapsedSeconds: s.Clock.Seconds,
		Shuffled:       s.Shuffled,
		CanShuffle:     s.Status == engine.StatusRunning && assessed == 0,
		Review:         s.Review,
		Paused:         s.Clock.Suspended,
	}
	if s.Cursor < len(s.Cards) {
		c := s.Cards[s.Cursor]
		cv := &CardView{
			ID:         c.ID,
			Front:      c.Front,
			FrontImage: c.FrontImage,
			Known:      v.Known[s.Cursor],
			Viewed:     s.Viewed[s.Cursor],
		}
		if s.Face == FaceBack {
			cv.Back, cv.BackImage = c.Back, c.BackImage
		}
		v.Card = cv
	}
	return v
}
