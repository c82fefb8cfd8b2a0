package swipe

import (
	"time"

	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/model"
)

// Game adapts State to engine.Controller.
type Game struct {
	state State
}

// NewGame builds a controller for a swipe definition.
func NewGame(def *model.GameDefinition, opts engine.Options) (*Game, error) {
	st, err := New(def, engine.NewRand(opts.Seed), opts.Shuffle, opts.Timings.SwipeFeedback)
	if err != nil {
		return nil, err
	}
	return &Game{state: st}, nil
}

func (g *Game) Type() model.GameType  { return model.GameTypeSwipe }
func (g *Game) Status() engine.Status { return g.state.Status }
func (g *Game) State() State          { return g.state }

func (g *Game) Start(time.Time) engine.Effects {
	var eff engine.Effects
	g.state, eff = Start(g.state)
	return eff
}

func (g *Game) Handle(a engine.Action, now time.Time) engine.Effects {
	var eff engine.Effects
	switch a.Type {
	case engine.ActionClassify:
		g.state, eff = Classify(g.state, a.Direction, now)
	case engine.ActionUndo:
		g.state, eff = Undo(g.state)
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
	if c.Kind != KindFeedback {
		return engine.None
	}
	var eff engine.Effects
	g.state, eff = SettleFeedback(g.state, c.Token)
	return eff
}

func (g *Game) Result() (engine.Result, bool) { return Result(g.state) }

// StatementView is the statement being classified, without its verdict.
type StatementView struct {
	ID        string `json:"id"`
	Statement string `json:"statement"`
	Image     string `json:"image,omitempty"`
}

// View is the player-facing snapshot. The verdict of a swipe is only shown
// during its feedback flash.
type View struct {
	Status         engine.Status  `json:"status"`
	Phase          Phase          `json:"phase"`
	Cursor         int            `json:"cursor"`
	Total          int            `json:"total"`
	Statement      *StatementView `json:"statement,omitempty"`
	LastSwipe      *Swipe         `json:"last_swipe,omitempty"`
	CorrectSwipes  int            `json:"correct_swipes"`
	CanUndo        bool           `json:"can_undo"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	Paused         bool           `json:"paused"`
}

func (g *Game) View() any {
	s := g.state
	v := View{
		Status:         s.Status,
		Phase:          s.Phase,
		Cursor:         s.Cursor,
		Total:          len(s.Items),
		CorrectSwipes:  s.Correct,
		CanUndo:        s.CanUndo,
		ElapsedSeconds: s.Clock.Seconds,
		Paused:         s.Clock.Suspended,
	}
	if s.Cursor < len(s.Items) {
		it := s.Items[s.Cursor]
		v.Statement = &StatementView{ID: it.ID, Statement: it.Statement, Image: it.Image}
	}
	if s.Phase == PhaseFeedback && len(s.Swipes) > 0 {
		last := s.Swipes[len(s.Swipes)-1]
		v.LastSwipe = &last
	}
	return v
}
