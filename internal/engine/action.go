package engine

// ActionType is one word of the player-intent vocabulary.
type ActionType string

const (
	ActionFlip     ActionType = "flip"
	ActionNext     ActionType = "next"
	ActionPrevious ActionType = "previous"
	ActionAssess   ActionType = "assess"
	ActionAnswer   ActionType = "answer"
	ActionClassify ActionType = "classify"
	ActionUndo     ActionType = "undo"
	ActionRestart  ActionType = "restart"
	ActionShuffle  ActionType = "shuffle"
	ActionReview   ActionType = "review_unknown"
	ActionPause    ActionType = "pause"
	ActionResume   ActionType = "resume"
	ActionExit     ActionType = "exit"
)

// Direction is a swipe gesture.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Guess maps a swipe direction to the boolean it asserts: right means the
// statement is correct.
func (d Direction) Guess() (bool, bool) {
	switch d {
	case DirectionRight:
		return true, true
	case DirectionLeft:
		return false, true
	}
	return false, false
}

// Action is a single player intent. Only the fields relevant to Type are read.
type Action struct {
	Type      ActionType `json:"type"`
	CardID    string     `json:"card_id,omitempty"`
	Known     bool       `json:"known,omitempty"`
	Value     string     `json:"value,omitempty"`
	Direction Direction  `json:"direction,omitempty"`
}
