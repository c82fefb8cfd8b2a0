package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GameType tags which item list of a GameDefinition is populated.
type GameType string

const (
	GameTypePairs         GameType = "pairs"
	GameTypeFlashcards    GameType = "flashcards"
	GameTypeTimedReaction GameType = "timed_reaction"
	GameTypeSwipe         GameType = "swipe"
)

// DefaultTimeLimitSeconds is the per-question countdown when a timed-reaction
// definition does not set one.
const DefaultTimeLimitSeconds = 10

// Valid reports whether t is one of the four known game types.
func (t GameType) Valid() bool {
	switch t {
	case GameTypePairs, GameTypeFlashcards, GameTypeTimedReaction, GameTypeSwipe:
		return true
	}
	return false
}

// GameDefinition is the immutable authored content for one session.
// Only the list matching Type is read.
type GameDefinition struct {
	ID               uuid.UUID          `json:"id" toml:"id"`
	Name             string             `json:"name" toml:"name" binding:"required,max=255"`
	Type             GameType           `json:"type" toml:"type" binding:"required,oneof=pairs flashcards timed_reaction swipe"`
	Pairs            []PairItem         `json:"pairs,omitempty" toml:"pairs" binding:"required_if=Type pairs,omitempty,min=1,unique_ids,dive"`
	Flashcards       []FlashcardItem    `json:"flashcards,omitempty" toml:"flashcards" binding:"required_if=Type flashcards,omitempty,min=1,unique_ids,dive"`
	Questions        []ReactionQuestion `json:"questions,omitempty" toml:"questions" binding:"required_if=Type timed_reaction,omitempty,min=1,unique_ids,dive"`
	TimeLimitSeconds int                `json:"time_limit_seconds,omitempty" toml:"time_limit_seconds" binding:"omitempty,min=1,max=300"`
	Statements       []SwipeItem        `json:"statements,omitempty" toml:"statements" binding:"required_if=Type swipe,omitempty,min=1,unique_ids,dive"`
}

// PairItem is one left/right pair of a matching game.
type PairItem struct {
	ID         string `json:"id" toml:"id" binding:"required"`
	LeftText   string `json:"left_text" toml:"left_text" binding:"required"`
	LeftImage  string `json:"left_image,omitempty" toml:"left_image"`
	RightText  string `json:"right_text" toml:"right_text" binding:"required"`
	RightImage string `json:"right_image,omitempty" toml:"right_image"`
}

// FlashcardItem is a two-sided card.
type FlashcardItem struct {
	ID         string `json:"id" toml:"id" binding:"required"`
	Front      string `json:"front" toml:"front" binding:"required"`
	FrontImage string `json:"front_image,omitempty" toml:"front_image"`
	Back       string `json:"back" toml:"back" binding:"required"`
	BackImage  string `json:"back_image,omitempty" toml:"back_image"`
}

// ReactionQuestion is a single timed-reaction prompt.
type ReactionQuestion struct {
	ID       string `json:"id" toml:"id" binding:"required"`
	Question string `json:"question" toml:"question" binding:"required"`
	Answer   string `json:"answer" toml:"answer" binding:"required"`
	Image    string `json:"image,omitempty" toml:"image"`
}

// SwipeItem is a statement to classify as true or false.
type SwipeItem struct {
	ID        string `json:"id" toml:"id" binding:"required"`
	Statement string `json:"statement" toml:"statement" binding:"required"`
	IsCorrect bool   `json:"is_correct" toml:"is_correct"`
	Image     string `json:"image,omitempty" toml:"image"`
}

// ItemID implementations let the unique_ids validation work across item kinds.
func (p PairItem) ItemID() string         { return p.ID }
func (f FlashcardItem) ItemID() string    { return f.ID }
func (q ReactionQuestion) ItemID() string { return q.ID }
func (s SwipeItem) ItemID() string        { return s.ID }

// TimeLimit returns the configured countdown, falling back to the default.
func (d *GameDefinition) TimeLimit() time.Duration {
	secs := d.TimeLimitSeconds
	if secs <= 0 {
		secs = DefaultTimeLimitSeconds
	}
	return time.Duration(secs) * time.Second
}

// ItemCount returns the number of items in the list selected by Type.
func (d *GameDefinition) ItemCount() int {
	switch d.Type {
	case GameTypePairs:
		return len(d.Pairs)
	case GameTypeFlashcards:
		return len(d.Flashcards)
	case GameTypeTimedReaction:
		return len(d.Questions)
	case GameTypeSwipe:
		return len(d.Statements)
	}
	return 0
}

// DefinitionKey identifies the definition in persisted progress keys: the id
// when set, otherwise the display name lower-cased with every run of
// non-alphanumerics collapsed to "-".
func (d *GameDefinition) DefinitionKey() string {
	if d.ID != uuid.Nil {
		return d.ID.String()
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(d.Name)) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Game is a stored definition row as assigned by tutors.
type Game struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	Type       GameType       `json:"type"`
	AuthorID   int            `json:"author_id"`
	Definition GameDefinition `json:"definition"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
