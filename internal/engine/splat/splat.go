// Package splat implements the timed-reaction quiz. Each question shows the
// correct answer among a few distractors and a countdown; fast correct
// answers earn a speed bonus, wrong answers cost a fixed penalty.
package splat

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/model"
)

const (
	// KindSettle advances past a resolved question.
	KindSettle = "question_settle"

	// KindDeadline times out the active question.
	KindDeadline = "question_deadline"
)

const (
	basePoints    = 100
	maxSpeedBonus = 50
	wrongPenalty  = 10
	maxDistractor = 2
)

// Phase is the sub-state of the current question.
type Phase string

const (
	PhaseActive   Phase = "question_active"
	PhaseCorrect  Phase = "answered_correct"
	PhaseWrong    Phase = "answered_wrong"
	PhaseTimedOut Phase = "timed_out"
)

// Question is a prompt with its shuffled selectable answers.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"question"`
	Answer  string   `json:"answer"`
	Image   string   `json:"image,omitempty"`
	Options []string `json:"options"`
}

// Record is the immutable outcome of one question.
type Record struct {
	QuestionID     string `json:"question_id"`
	Correct        bool   `json:"correct"`
	ReactionTimeMs int64  `json:"reaction_time_ms"`
	Points         int    `json:"points"`
	Penalty        int    `json:"penalty,omitempty"`
	TimedOut       bool   `json:"timed_out"`
}

// Settles are the delays before moving past a resolved question.
type Settles struct {
	Correct time.Duration
	Wrong   time.Duration
	Timeout time.Duration
}

// State is the full timed-reaction session state.
type State struct {
	Status      engine.Status    `json:"status"`
	Questions   []Question       `json:"questions"`
	Index       int              `json:"index"`
	Phase       Phase            `json:"phase"`
	Countdown   engine.Countdown `json:"countdown"`
	ActivatedAt time.Time        `json:"activated_at"`
	PausedAt    time.Time        `json:"paused_at"`
	PausedMs    int64            `json:"paused_ms"`
	Records     []Record         `json:"records"`
	Total       int              `json:"total"`
	Token       int              `json:"token"`
	Deadline    int              `json:"deadline"`
	Settles     Settles          `json:"-"`
}

// AttemptData is the diagnostic payload recorded with the result.
type AttemptData struct {
	Questions         []Record `json:"questions"`
	ReactionTimesMs   []int64  `json:"reaction_times_ms"`
	Points            []int    `json:"points"`
	AverageReactionMs float64  `json:"average_reaction_ms"`
	MinReactionMs     int64    `json:"min_reaction_ms"`
	TotalPoints       int      `json:"total_points"`
	CorrectCount      int      `json:"correct_count"`
	TotalQuestions    int      `json:"total_questions"`
}

// New prepares every question with its options.
func New(def *model.GameDefinition, rng *rand.Rand, settles Settles) (State, error) {
	ids := make([]string, len(def.Questions))
	for i, q := range def.Questions {
		ids[i] = q.ID
	}
	if err := engine.ValidateIDs(ids); err != nil {
		return State{}, err
	}

	limit := int(def.TimeLimit() / time.Second)
	questions := make([]Question, len(def.Questions))
	for i, q := range def.Questions {
		questions[i] = Question{
			ID:      q.ID,
			Prompt:  q.Question,
			Answer:  q.Answer,
			Image:   q.Image,
			Options: options(def.Questions, i, rng),
		}
	}

	return State{
		Status:    engine.StatusNotStarted,
		Questions: questions,
		Countdown: engine.NewCountdown(limit),
		Settles:   settles,
	}, nil
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// options draws up to two distractors from the other questions' answers.
// Answers that repeat, or that equal the correct one ignoring case, are
// skipped.
func options(qs []model.ReactionQuestion, i int, rng *rand.Rand) []string {
	correct := qs[i].Answer
	seen := map[string]struct{}{normalize(correct): {}}
	var pool []string
	for j, q := range qs {
		if j == i {
			continue
		}
		key := normalize(q.Answer)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		pool = append(pool, q.Answer)
	}

	pool = engine.Shuffle(rng, pool)
	if len(pool) > maxDistractor {
		pool = pool[:maxDistractor]
	}
	return engine.Shuffle(rng, append([]string{correct}, pool...))
}

func (s State) limitMs() int64 { return int64(s.Countdown.Limit) * 1000 }

// elapsed is the active time spent on the current question.
func (s State) elapsed(now time.Time) time.Duration {
	if s.Countdown.Suspended {
		now = s.PausedAt
	}
	return now.Sub(s.ActivatedAt) - time.Duration(s.PausedMs)*time.Millisecond
}

func (s State) left(now time.Time) time.Duration {
	return time.Duration(s.limitMs())*time.Millisecond - s.elapsed(now)
}

// armDeadline schedules the timeout of the active question for the time it
// has left. Any earlier deadline goes stale.
func (s State) armDeadline(now time.Time) (State, engine.Effects) {
	s.Deadline++
	return s, engine.After(KindDeadline, s.Deadline, max(s.left(now), 0))
}

func (s State) activate(now time.Time) (State, engine.Effects) {
	s.Phase = PhaseActive
	s.Countdown = s.Countdown.Reset()
	s.ActivatedAt = now
	s.PausedMs = 0
	if s.Countdown.Suspended {
		s.PausedAt = now
		s.Deadline++
		return s, engine.Changed()
	}
	return s.armDeadline(now)
}

// Points returns the score for a correct answer given after reactionMs.
func Points(reactionMs, limitMs int64) int {
	if limitMs <= 0 {
		return basePoints
	}
	reactionMs = min(max(reactionMs, 0), limitMs)
	return basePoints + int((limitMs-reactionMs)*maxSpeedBonus/limitMs)
}

// Start activates the first question.
func Start(s State, now time.Time) (State, engine.Effects) {
	if s.Status != engine.StatusNotStarted {
		return s, engine.None
	}
	s.Status = engine.StatusRunning
	return s.activate(now)
}

// Answer resolves the active question. It is ignored outside the active
// phase and while suspended.
func Answer(s State, value string, now time.Time) (State, engine.Effects) {
	if s.Status != engine.StatusRunning || s.Phase != PhaseActive || s.Countdown.Suspended {
		return s, engine.None
	}
	reaction := s.elapsed(now).Milliseconds()
	if reaction > s.limitMs() {
		return s.timeout()
	}
	reaction = max(reaction, 0)
	q := s.Questions[s.Index]

	s.Records = append(append([]Record(nil), s.Records...), Record{QuestionID: q.ID, ReactionTimeMs: reaction})
	rec := &s.Records[len(s.Records)-1]

	var delay time.Duration
	if normalize(value) == normalize(q.Answer) {
		rec.Correct = true
		rec.Points = Points(reaction, s.limitMs())
		s.Total += rec.Points
		s.Phase = PhaseCorrect
		delay = s.Settles.Correct
	} else {
		rec.Penalty = wrongPenalty
		s.Total = max(s.Total-wrongPenalty, 0)
		s.Phase = PhaseWrong
		delay = s.Settles.Wrong
	}

	s.Token++
	return s, engine.After(KindSettle, s.Token, delay)
}

// Tick refreshes the seconds shown for the active question. A tick that
// finds the time already spent times the question out.
func Tick(s State, now time.Time) (State, engine.Effects) {
	if s.Status != engine.StatusRunning || s.Phase != PhaseActive || s.Countdown.Suspended {
		return s, engine.None
	}
	left := s.left(now)
	if left <= 0 {
		return s.timeout()
	}
	cd := s.Countdown.Sync(left)
	if cd == s.Countdown {
		return s, engine.None
	}
	s.Countdown = cd
	return s, engine.Changed()
}

// Expire applies the deadline armed when the question became active. Stale
// deadlines are ignored.
func Expire(s State, token int) (State, engine.Effects) {
	if s.Status != engine.StatusRunning || s.Phase != PhaseActive || s.Countdown.Suspended || token != s.Deadline {
		return s, engine.None
	}
	return s.timeout()
}

func (s State) timeout() (State, engine.Effects) {
	s.Records = append(append([]Record(nil), s.Records...), Record{
		QuestionID:     s.Questions[s.Index].ID,
		ReactionTimeMs: s.limitMs(),
		TimedOut:       true,
	})
	s.Countdown.Remaining = 0
	s.Phase = PhaseTimedOut
	s.Token++
	return s, engine.After(KindSettle, s.Token, s.Settles.Timeout)
}

// Settle moves to the next question, completing after the last one.
func Settle(s State, token int, now time.Time) (State, engine.Effects) {
	if s.Status != engine.StatusRunning || s.Phase == PhaseActive || token != s.Token {
		return s, engine.None
	}
	if s.Index+1 >= len(s.Questions) {
		s.Status = engine.StatusCompleted
		return s, engine.Complete()
	}
	s.Index++
	return s.activate(now)
}

// Suspend freezes the countdown. Time spent suspended does not count
// towards the reaction time.
func Suspend(s State, suspended bool, now time.Time) (State, engine.Effects) {
	if s.Status != engine.StatusRunning || s.Countdown.Suspended == suspended {
		return s, engine.None
	}
	if suspended {
		s.Countdown.Suspended = true
		s.PausedAt = now
		s.Deadline++
		return s, engine.Changed()
	}
	s.Countdown.Suspended = false
	s.PausedMs += now.Sub(s.PausedAt).Milliseconds()
	if s.Phase != PhaseActive {
		return s, engine.Changed()
	}
	return s.armDeadline(now)
}

// Result reports the outcome of a completed quiz.
func Result(s State) (engine.Result, bool) {
	if s.Status != engine.StatusCompleted {
		return engine.Result{}, false
	}
	data := AttemptData{
		Questions:       s.Records,
		ReactionTimesMs: make([]int64, len(s.Records)),
		Points:          make([]int, len(s.Records)),
		TotalPoints:     s.Total,
		TotalQuestions:  len(s.Questions),
	}

	var sum, answeredSum int64
	answered := 0
	for i, r := range s.Records {
		data.ReactionTimesMs[i] = r.ReactionTimeMs
		data.Points[i] = r.Points
		sum += r.ReactionTimeMs
		if r.Correct {
			data.CorrectCount++
		}
		if r.TimedOut {
			continue
		}
		if answered == 0 || r.ReactionTimeMs < data.MinReactionMs {
			data.MinReactionMs = r.ReactionTimeMs
		}
		answered++
		answeredSum += r.ReactionTimeMs
	}
	if answered > 0 {
		data.AverageReactionMs = float64(answeredSum) / float64(answered)
	}

	return engine.Result{
		ScorePercentage:  engine.Percentage(data.CorrectCount, len(s.Questions)),
		TimeTakenSeconds: int(sum / 1000),
		AttemptData:      data,
	}, true
}
