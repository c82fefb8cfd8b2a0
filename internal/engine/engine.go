// Package engine holds the pieces shared by every game controller: lifecycle
// status, the player action vocabulary, effects returned by transitions,
// the normalized result, shuffling and the 1 Hz timer models.
//
// Controllers never touch goroutines or wall-clock timers themselves. A
// transition returns Effects describing deferred work, and the session host
// turns those into cancellable timers owned by the session.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/stemsi/exstem-games/internal/model"
)

var (
	// ErrInvalidDefinition means the content cannot be loaded into a session.
	ErrInvalidDefinition = errors.New("invalid game definition")
	// ErrCorruptProgress means a persisted checkpoint does not fit its definition.
	ErrCorruptProgress = errors.New("corrupt session progress")
	// ErrNotCompleted is returned by operations that need a finished session.
	ErrNotCompleted = errors.New("session not completed")
	// ErrNothingToReview is returned when a review subset would be empty.
	ErrNothingToReview = errors.New("nothing to review")
)

// Status is the lifecycle state shared by all controllers.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
)

// Controller is the contract the session host drives. Implementations are
// not safe for concurrent use; the host serializes every call.
type Controller interface {
	Type() model.GameType
	Status() Status
	Start(now time.Time) Effects
	Handle(a Action, now time.Time) Effects
	Tick(now time.Time) Effects
	Fire(c Continuation, now time.Time) Effects
	View() any
	Result() (Result, bool)
}

// Checkpointer is implemented by controllers whose progress survives reloads.
type Checkpointer interface {
	Checkpoint(now time.Time) ([]byte, error)
}

// Restorer is implemented by controllers that can resume from a checkpoint
// written by Checkpointer. It must be called before Start.
type Restorer interface {
	Restore(data []byte) error
}

// Reviewer is implemented by controllers that can spawn a follow-up session
// over a subset of their content once completed.
type Reviewer interface {
	Review() (Controller, error)
}

// Options tune controller construction.
type Options struct {
	Shuffle bool
	Seed    uint64
	Timings Timings
}

// Timings are the settle delays used for deferred transitions.
type Timings struct {
	MismatchSettle     time.Duration
	FlashcardAdvance   time.Duration
	SplatCorrectSettle time.Duration
	SplatWrongSettle   time.Duration
	SplatTimeoutSettle time.Duration
	SwipeFeedback      time.Duration
}

// DefaultTimings returns the stock settle delays.
func DefaultTimings() Timings {
	return Timings{
		MismatchSettle:     time.Second,
		FlashcardAdvance:   600 * time.Millisecond,
		SplatCorrectSettle: 800 * time.Millisecond,
		SplatWrongSettle:   1500 * time.Millisecond,
		SplatTimeoutSettle: 1200 * time.Millisecond,
		SwipeFeedback:      700 * time.Millisecond,
	}
}

// ValidateIDs checks that a definition has at least one item and that every
// item id is present and unique.
func ValidateIDs(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidDefinition)
	}
	seen := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: item %d has no id", ErrInvalidDefinition, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate item id %q", ErrInvalidDefinition, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
