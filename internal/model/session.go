package model

import "github.com/google/uuid"

// StartSessionRequest is the payload for starting a game session. Exactly one
// of GameID or Definition must be given.
type StartSessionRequest struct {
	GameID     *uuid.UUID      `json:"game_id" binding:"required_without=Definition"`
	Definition *GameDefinition `json:"definition" binding:"required_without=GameID,omitempty"`
	Shuffle    bool            `json:"shuffle"`
	Resume     bool            `json:"resume"`
}

// SessionActionRequest carries one player intent.
type SessionActionRequest struct {
	Type      string `json:"type" binding:"required,oneof=flip next previous assess answer classify undo restart shuffle pause resume exit"`
	CardID    string `json:"card_id" binding:"omitempty,max=128"`
	Known     *bool  `json:"known"`
	Value     string `json:"value" binding:"omitempty,max=1000"`
	Direction string `json:"direction" binding:"omitempty,oneof=left right"`
}

// ProgressStatus reports whether a resumable flashcard record exists.
type ProgressStatus struct {
	GameID    uuid.UUID `json:"game_id"`
	Resumable bool      `json:"resumable"`
	Cursor    int       `json:"cursor,omitempty"`
	Assessed  int       `json:"assessed,omitempty"`
	Total     int       `json:"total,omitempty"`
}
