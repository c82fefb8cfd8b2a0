package pairs

import (
	"time"

	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/model"
)

// Game adapts State to engine.Controller.
type Game struct {
	state State
}

// NewGame builds a controller for a pairs definition.
func NewGame(def *model.GameDefinition, opts engine.Options) (*Game, error) {
	st, err := New(def, engine.NewRand(opts.Seed), opts.Timings.MismatchSettle)
	if err != nil {
		return nil, err
	}
	return &Game{state: st}, nil
}

func (g *Game) Type() model.GameType  { return model.GameTypePairs }
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
		g.state, eff = Flip(g.state, a.CardID)
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
	if c.Kind != KindMismatchSettle {
		return engine.None
	}
	var eff engine.Effects
	g.state, eff = SettleMismatch(g.state, c.Token)
	return eff
}

func (g *Game) Result() (engine.Result, bool) { return Result(g.state) }

// View is what the player sees: face-down cards do not reveal their content.
type View struct {
	Status         engine.Status `json:"status"`
	Cards          []Card        `json:"cards"`
	Moves          int           `json:"moves"`
	Matches        int           `json:"matches"`
	Pairs          int           `json:"pairs"`
	Locked         bool          `json:"locked"`
	ElapsedSeconds int           `json:"elapsed_seconds"`
	Paused         bool          `json:"paused"`
}

func (g *Game) View() any {
	s := g.state
	cards := make([]Card, len(s.Cards))
	for i, c := range s.Cards {
		if !c.IsFlipped && !c.IsMatched {
			c.Content, c.Image, c.PairID = "", "", ""
		}
		cards[i] = c
	}
	return View{
		Status:         s.Status,
		Cards:          cards,
		Moves:          s.Moves,
		Matches:        s.Matches,
		Pairs:          s.Pairs,
		Locked:         s.Locked,
		ElapsedSeconds: s.Clock.Seconds,
		Paused:         s.Clock.Suspended,
	}
}
