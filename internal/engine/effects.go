package engine

import "time"

// Continuation is a transition deferred by a fixed delay. Token lets the
// owning controller recognize continuations that went stale in the meantime.
type Continuation struct {
	Kind  string        `json:"kind"`
	Token int           `json:"token"`
	Delay time.Duration `json:"delay"`
}

// Effects describe what the host must do after a transition.
type Effects struct {
	// Changed is set whenever observable state moved.
	Changed bool
	// Schedule lists continuations to arm.
	Schedule []Continuation
	// CancelPending drops every armed continuation.
	CancelPending bool
	// Completed marks the transition into StatusCompleted.
	Completed bool
	// Persist asks for a checkpoint write.
	Persist bool
	// Purge asks for the checkpoint to be deleted.
	Purge bool
}

// None is the result of an ignored action.
var None = Effects{}

// Changed returns effects for a plain state change.
func Changed() Effects { return Effects{Changed: true} }

// After returns effects that arm a single continuation.
func After(kind string, token int, delay time.Duration) Effects {
	return Effects{Changed: true, Schedule: []Continuation{{Kind: kind, Token: token, Delay: delay}}}
}

// Complete returns effects for the terminal transition.
func Complete() Effects {
	return Effects{Changed: true, CancelPending: true, Completed: true}
}

// Merge folds o into e.
func (e Effects) Merge(o Effects) Effects {
	e.Changed = e.Changed || o.Changed
	e.Schedule = append(e.Schedule, o.Schedule...)
	e.CancelPending = e.CancelPending || o.CancelPending
	e.Completed = e.Completed || o.Completed
	e.Persist = e.Persist || o.Persist
	e.Purge = e.Purge || o.Purge
	return e
}
