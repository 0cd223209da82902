package ws

import (
	"encoding/json"

	"hunter_trials/internal/domain"
)

// client → server
type InboundMessage struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"` // message for fail/success, text for answer
}

// server → client
type StateMessage struct {
	Type    string          `json:"type"`
	Payload domain.Snapshot `json:"payload"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type ErrorMessage struct {
	Type    string       `json:"type"`
	Payload ErrorPayload `json:"payload"`
}

func encodeState(snap domain.Snapshot) ([]byte, error) {
	return json.Marshal(StateMessage{Type: MsgState, Payload: snap})
}

func encodeError(msg string) []byte {
	b, _ := json.Marshal(ErrorMessage{Type: MsgError, Payload: ErrorPayload{Message: msg}})
	return b
}
