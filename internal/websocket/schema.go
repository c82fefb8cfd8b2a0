package websocket

import (
	"github.com/stemsi/exstem-games/internal/model"
	"github.com/stemsi/exstem-games/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

// ActionPing keeps the connection alive. Every other action is a player
// intent with the same vocabulary as the REST actions endpoint.
const ActionPing = "ping"

// IntentRequest is one client frame.
type IntentRequest struct {
	Action    string `json:"action"`
	CardID    string `json:"card_id,omitempty"`
	Known     *bool  `json:"known,omitempty"`
	Value     string `json:"value,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// ActionRequest converts the frame to the REST action payload.
func (r IntentRequest) ActionRequest() *model.SessionActionRequest {
	return &model.SessionActionRequest{
		Type:      r.Action,
		CardID:    r.CardID,
		Known:     r.Known,
		Value:     r.Value,
		Direction: r.Direction,
	}
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot Event = "snapshot"
	EventError    Event = "error"
	EventPong     Event = "pong"
	EventClosed   Event = "closed"
)

type SnapshotResponse struct {
	Event    Event            `json:"event"`
	Snapshot session.Snapshot `json:"snapshot"`
}

type ErrorResponse struct {
	Event  Event             `json:"event"`
	Code   string            `json:"code,omitempty"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

type ClosedResponse struct {
	Event Event `json:"event"`
}
