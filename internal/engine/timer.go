package engine

import "time"

// Stopwatch accumulates whole elapsed seconds from 1 Hz ticks.
type Stopwatch struct {
	Seconds   int  `json:"seconds"`
	Suspended bool `json:"suspended"`
}

// Tick adds one second unless the stopwatch is suspended.
func (w Stopwatch) Tick() Stopwatch {
	if !w.Suspended {
		w.Seconds++
	}
	return w
}

// Countdown shows the whole seconds left on the current item. Expiry itself
// is driven by a deadline continuation; Remaining is display state.
type Countdown struct {
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
	Suspended bool `json:"suspended"`
}

// NewCountdown returns a countdown armed at limit seconds.
func NewCountdown(limit int) Countdown {
	return Countdown{Limit: limit, Remaining: limit}
}

// Reset re-arms the countdown for the next item.
func (c Countdown) Reset() Countdown {
	c.Remaining = c.Limit
	return c
}

// Sync sets Remaining from the time left, rounding partial seconds up and
// clamping to [0, Limit].
func (c Countdown) Sync(left time.Duration) Countdown {
	secs := int((left + time.Second - 1) / time.Second)
	c.Remaining = min(max(secs, 0), c.Limit)
	return c
}
