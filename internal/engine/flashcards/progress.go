package flashcards

import (
	"fmt"
	"time"

	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/model"
)

// Progress is the persisted checkpoint of a running deck.
type Progress struct {
	CardIDs        []string  `json:"card_ids"`
	Cursor         int       `json:"cursor"`
	Known          []*bool   `json:"known"`
	Viewed         []bool    `json:"viewed"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	Shuffled       bool      `json:"shuffled"`
	LastSavedAt    time.Time `json:"last_saved_at"`
}

// Snapshot captures the resumable part of s.
func Snapshot(s State, now time.Time) Progress {
	ids := make([]string, len(s.Cards))
	for i, c := range s.Cards {
		ids[i] = c.ID
	}
	known := make([]*bool, len(s.Known))
	for i, k := range s.Known {
		if k != nil {
			v := *k
			known[i] = &v
		}
	}
	return Progress{
		CardIDs:        ids,
		Cursor:         s.Cursor,
		Known:          known,
		Viewed:         append([]bool(nil), s.Viewed...),
		ElapsedSeconds: s.Clock.Seconds,
		Shuffled:       s.Shuffled,
		LastSavedAt:    now.UTC(),
	}
}

// Restore applies p to a freshly built idle deck. The checkpoint must cover
// exactly the deck's cards and must not describe a finished deck.
func Restore(s State, p Progress) (State, error) {
	n := len(s.Source)
	if len(p.CardIDs) != n || len(p.Known) != n || len(p.Viewed) != n {
		return State{}, fmt.Errorf("%w: checkpoint covers %d cards, deck has %d", engine.ErrCorruptProgress, len(p.CardIDs), n)
	}
	if p.Cursor < 0 || p.Cursor >= n {
		return State{}, fmt.Errorf("%w: cursor %d out of range", engine.ErrCorruptProgress, p.Cursor)
	}
	if p.ElapsedSeconds < 0 {
		return State{}, fmt.Errorf("%w: negative elapsed time", engine.ErrCorruptProgress)
	}

	byID := make(map[string]model.FlashcardItem, n)
	for _, c := range s.Source {
		byID[c.ID] = c
	}
	cards := make([]model.FlashcardItem, 0, n)
	for _, id := range p.CardIDs {
		c, ok := byID[id]
		if !ok {
			return State{}, fmt.Errorf("%w: unknown or repeated card %q", engine.ErrCorruptProgress, id)
		}
		delete(byID, id)
		cards = append(cards, c)
	}

	s.Cards = cards
	s.Known = make([]*bool, n)
	graded := 0
	for i, k := range p.Known {
		if k != nil {
			v := *k
			s.Known[i] = &v
			graded++
		}
	}
	if graded == n {
		return State{}, fmt.Errorf("%w: checkpoint of a finished deck", engine.ErrCorruptProgress)
	}
	s.Viewed = append([]bool(nil), p.Viewed...)
	s.Cursor = p.Cursor
	if s.Known[s.Cursor] != nil {
		// Saved while an auto-advance was pending.
		s.Cursor = s.nextUnassessed(s.Cursor + 1)
	}
	s.Face = FaceFront
	s.Clock = engine.Stopwatch{Seconds: p.ElapsedSeconds}
	s.Shuffled = p.Shuffled
	s.Pending = false
	return s, nil
}
