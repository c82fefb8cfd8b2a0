package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Attempt is a finished session's result as handed to the attempt recorder.
type Attempt struct {
	ID               uuid.UUID       `json:"id"`
	SessionID        uuid.UUID       `json:"session_id"`
	GameID           *uuid.UUID      `json:"game_id,omitempty"`
	PlayerID         int             `json:"player_id"`
	GameType         GameType        `json:"game_type"`
	ScorePercentage  float64         `json:"score_percentage"`
	TimeTakenSeconds int             `json:"time_taken_seconds"`
	AttemptData      json.RawMessage `json:"attempt_data"`
	CompletedAt      time.Time       `json:"completed_at"`
}
