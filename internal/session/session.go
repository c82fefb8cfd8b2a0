// Package session hosts running game controllers. Each session is owned by a
// single goroutine: player actions, the 1 Hz tick and fired continuations are
// applied one at a time, so controllers never need locking.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/model"
)

// ErrClosed is returned when acting on a session that has exited.
var ErrClosed = errors.New("session closed")

const (
	tickInterval       = time.Second
	recordTimeout      = 5 * time.Second
	subscriberCapacity = 8
)

// Outcome is a finished session handed to the Recorder.
type Outcome struct {
	SessionID   uuid.UUID      `json:"session_id"`
	GameID      *uuid.UUID     `json:"game_id,omitempty"`
	PlayerID    int            `json:"player_id"`
	GameType    model.GameType `json:"game_type"`
	Result      engine.Result  `json:"result"`
	CompletedAt time.Time      `json:"completed_at"`
}

// Recorder receives every completed session exactly once.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// Snapshot is the observable state of a session after an event.
type Snapshot struct {
	SessionID uuid.UUID      `json:"session_id"`
	GameID    *uuid.UUID     `json:"game_id,omitempty"`
	GameType  model.GameType `json:"game_type"`
	Status    engine.Status  `json:"status"`
	Version   int64          `json:"version"`
	View      any            `json:"view"`
	Result    *engine.Result `json:"result,omitempty"`
	Review    bool           `json:"review,omitempty"`
	Exited    bool           `json:"exited"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Config wires a new session.
type Config struct {
	ID         uuid.UUID
	PlayerID   int
	GameID     *uuid.UUID
	Review     bool
	Controller engine.Controller
	Clock      Clock
	// Recorder may be nil, in which case completions are not recorded.
	Recorder Recorder
	// Progress may be nil for controllers that do not checkpoint.
	Progress *ProgressWriter
	Log      zerolog.Logger
}

type fired struct {
	id int
	c  engine.Continuation
}

// Session runs one controller.
type Session struct {
	id       uuid.UUID
	playerID int
	gameID   *uuid.UUID
	review   bool
	ctrl     engine.Controller
	clock    Clock
	recorder Recorder
	progress *ProgressWriter
	log      zerolog.Logger

	cmds  chan func()
	fired chan fired
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once

	// Owned by the loop goroutine.
	ticker   Ticker
	timers   map[int]Timer
	nextID   int
	version  int64
	recorded bool

	latest     atomic.Pointer[Snapshot]
	lastActive atomic.Int64

	subMu      sync.Mutex
	subs       map[int]chan Snapshot
	nextSub    int
	subsClosed bool
}

// New starts cfg.Controller and the session loop.
func New(cfg Config) *Session {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	s := &Session{
		id:       cfg.ID,
		playerID: cfg.PlayerID,
		gameID:   cfg.GameID,
		review:   cfg.Review,
		ctrl:     cfg.Controller,
		clock:    clock,
		recorder: cfg.Recorder,
		progress: cfg.Progress,
		log: cfg.Log.With().
			Str("component", "session").
			Str("session_id", cfg.ID.String()).
			Int("player_id", cfg.PlayerID).
			Str("game_type", string(cfg.Controller.Type())).
			Logger(),
		cmds:   make(chan func()),
		fired:  make(chan fired),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		timers: make(map[int]Timer),
		subs:   make(map[int]chan Snapshot),
	}

	now := clock.Now()
	s.touch(now)
	s.ticker = clock.NewTicker(tickInterval)
	s.apply(s.ctrl.Start(now), now, true)

	go s.run()
	return s
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID { return s.id }

// PlayerID returns the owning player.
func (s *Session) PlayerID() int { return s.playerID }

// Snapshot returns the state after the most recently processed event.
func (s *Session) Snapshot() Snapshot { return *s.latest.Load() }

// LastActive is the time of the last player interaction.
func (s *Session) LastActive() time.Time { return time.Unix(0, s.lastActive.Load()) }

// Done is closed once the session has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Do applies a player action and returns the resulting snapshot. Actions the
// controller ignores still return the current snapshot.
func (s *Session) Do(ctx context.Context, a engine.Action) (Snapshot, error) {
	var snap Snapshot
	err := s.call(ctx, func() {
		now := s.clock.Now()
		s.touch(now)
		s.apply(s.ctrl.Handle(a, now), now, false)
		snap = *s.latest.Load()
	})
	return snap, err
}

// Inspect runs fn on the loop goroutine with exclusive access to the
// controller.
func (s *Session) Inspect(ctx context.Context, fn func(engine.Controller)) error {
	return s.call(ctx, func() { fn(s.ctrl) })
}

func (s *Session) call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	select {
	case s.cmds <- func() { fn(); close(ran) }:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Exit stops the session: the ticker and every pending continuation are
// cancelled, progress is flushed and subscribers receive a final snapshot.
// A running checkpointed session keeps its record so it can be resumed.
func (s *Session) Exit(ctx context.Context) (Snapshot, error) {
	s.once.Do(func() { close(s.quit) })
	select {
	case <-s.done:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Subscribe streams snapshots until cancel is called or the session exits.
// Slow subscribers miss intermediate snapshots. The first snapshot is the
// current one; a concurrent publish may repeat it.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberCapacity)

	// publish stores latest before fanning out under subMu, so seeding and
	// registering under the same lock cannot skip a version.
	s.subMu.Lock()
	ch <- s.Snapshot()
	if s.subsClosed {
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.C()
		}

		select {
		case fn := <-s.cmds:
			fn()
		case now := <-tick:
			s.apply(s.ctrl.Tick(now), now, false)
		case f := <-s.fired:
			if _, ok := s.timers[f.id]; !ok {
				continue
			}
			delete(s.timers, f.id)
			now := s.clock.Now()
			s.apply(s.ctrl.Fire(f.c, now), now, false)
		case <-s.quit:
			s.shutdown()
			return
		}
	}
}

// apply carries out the effects of one transition.
func (s *Session) apply(eff engine.Effects, now time.Time, force bool) {
	if eff.CancelPending {
		s.cancelTimers()
	}
	for _, c := range eff.Schedule {
		s.arm(c)
	}

	if s.progress != nil {
		if eff.Purge {
			s.progress.Delete()
		} else if eff.Persist {
			if cp, ok := s.ctrl.(engine.Checkpointer); ok {
				data, err := cp.Checkpoint(now)
				if err != nil {
					s.log.Warn().Err(err).Msg("Checkpoint failed")
				} else {
					s.progress.Save(data)
				}
			}
		}
	}

	if eff.Completed || s.ctrl.Status() == engine.StatusCompleted {
		s.stopTicker()
		s.cancelTimers()
		s.record(now)
	}

	if eff.Changed || force {
		s.publish(now, false)
	}
}

func (s *Session) arm(c engine.Continuation) {
	id := s.nextID
	s.nextID++
	s.timers[id] = s.clock.AfterFunc(c.Delay, func() {
		select {
		case s.fired <- fired{id: id, c: c}:
		case <-s.done:
		}
	})
}

func (s *Session) cancelTimers() {
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Session) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Session) record(now time.Time) {
	if s.recorded {
		return
	}
	res, ok := s.ctrl.Result()
	if !ok {
		return
	}
	s.recorded = true

	s.log.Info().
		Float64("score", res.ScorePercentage).
		Int("time_taken", res.TimeTakenSeconds).
		Msg("Session completed")

	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	err := s.recorder.Record(ctx, Outcome{
		SessionID:   s.id,
		GameID:      s.gameID,
		PlayerID:    s.playerID,
		GameType:    s.ctrl.Type(),
		Result:      res,
		CompletedAt: now.UTC(),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Record attempt failed")
	}
}

func (s *Session) shutdown() {
	s.stopTicker()
	s.cancelTimers()
	if s.progress != nil {
		s.progress.Close()
	}
	s.publish(s.clock.Now(), true)

	s.subMu.Lock()
	s.subsClosed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subMu.Unlock()

	s.log.Debug().Msg("Session exited")
}

func (s *Session) touch(now time.Time) { s.lastActive.Store(now.UnixNano()) }

func (s *Session) publish(now time.Time, exited bool) {
	s.version++
	snap := &Snapshot{
		SessionID: s.id,
		GameID:    s.gameID,
		GameType:  s.ctrl.Type(),
		Status:    s.ctrl.Status(),
		Version:   s.version,
		View:      s.ctrl.View(),
		Review:    s.review,
		Exited:    exited,
		UpdatedAt: now.UTC(),
	}
	if res, ok := s.ctrl.Result(); ok {
		snap.Result = &res
	}
	s.latest.Store(snap)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- *snap:
		default:
		}
	}
}
