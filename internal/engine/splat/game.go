package splat

import (
	"time"

	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/model"
)

// Game adapts State to engine.Controller.
type Game struct {
	state State
}

// NewGame builds a controller for a timed-reaction definition.
func NewGame(def *model.GameDefinition, opts engine.Options) (*Game, error) {
	st, err := New(def, engine.NewRand(opts.Seed), Settles{
		Correct: opts.Timings.SplatCorrectSettle,
		Wrong:   opts.Timings.SplatWrongSettle,
		Timeout: opts.Timings.SplatTimeoutSettle,
	})
	if err != nil {
		return nil, err
	}
	return &Game{state: st}, nil
}

func (g *Game) Type() model.GameType  { return model.GameTypeTimedReaction }
func (g *Game) Status() engine.Status { return g.state.Status }
func (g *Game) State() State          { return g.state }

func (g *Game) Start(now time.Time) engine.Effects {
	var eff engine.Effects
	g.state, eff = Start(g.state, now)
	return eff
}

func (g *Game) Handle(a engine.Action, now time.Time) engine.Effects {
	var eff engine.Effects
	switch a.Type {
	case engine.ActionAnswer:
		g.state, eff = Answer(g.state, a.Value, now)
	case engine.ActionPause:
		g.state, eff = Suspend(g.state, true, now)
	case engine.ActionResume:
		g.state, eff = Suspend(g.state, false, now)
	}
	return eff
}

func (g *Game) Tick(now time.Time) engine.Effects {
	var eff engine.Effects
	g.state, eff = Tick(g.state, now)
	return eff
}

func (g *Game) Fire(c engine.Continuation, now time.Time) engine.Effects {
	var eff engine.Effects
	switch c.Kind {
	case KindSettle:
		g.state, eff = Settle(g.state, c.Token, now)
	case KindDeadline:
		g.state, eff = Expire(g.state, c.Token)
	}
	return eff
}

func (g *Game) Result() (engine.Result, bool) { return Result(g.state) }

// QuestionView is the active prompt. The correct answer is only revealed
// once the question is resolved.
type QuestionView struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Image         string   `json:"image,omitempty"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
}

// View is the player-facing snapshot.
type View struct {
	Status           engine.Status `json:"status"`
	Phase            Phase         `json:"phase,omitempty"`
	Index            int           `json:"index"`
	Total            int           `json:"total"`
	Question         *QuestionView `json:"question,omitempty"`
	RemainingSeconds int           `json:"remaining_seconds"`
	TotalPoints      int           `json:"total_points"`
	LastRecord       *Record       `json:"last_record,omitempty"`
	Paused           bool          `json:"paused"`
}

func (g *Game) View() any {
	s := g.state
	v := View{
		Status:           s.Status,
		Phase:            s.Phase,
		Index:            s.Index,
		Total:            len(s.Questions),
		RemainingSeconds: s.Countdown.Remaining,
		TotalPoints:      s.Total,
		Paused:           s.Countdown.Suspended,
	}
	if s.Status == engine.StatusRunning {
		q := s.Questions[s.Index]
		qv := &QuestionView{ID: q.ID, Question: q.Prompt, Image: q.Image, Options: q.Options}
		if s.Phase != PhaseActive {
			qv.CorrectAnswer = q.Answer
		}
		v.Question = qv
	}
	if n := len(s.Records); n > 0 {
		r := s.Records[n-1]
		v.LastRecord = &r
	}
	return v
}
