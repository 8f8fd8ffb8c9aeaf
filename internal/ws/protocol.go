package ws

import (
	"ludo-arena/internal/gateway"
	"ludo-arena/internal/gateway/stream"
	"ludo-arena/internal/validate"
)

const (
	ProtocolVersion = "1.0"

	TypeIntentResult = "intent_result"

	maxRequestIDLen = 64
)

// IntentMessage is one inbound frame: the intent fields at top level plus an
// optional requestId echoed on the reply.
type IntentMessage struct {
	RequestID string `json:"requestId,omitempty"`
	validate.Intent
}

// Envelope is every outbound frame.
type Envelope struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocolVersion"`
	EventID         string `json:"eventId,omitempty"`
	RoomCode        string `json:"roomCode,omitempty"`
	RequestID       string `json:"requestId,omitempty"`
	ServerTS        int64  `json:"serverTs"`
	Data            any    `json:"data"`
}

type IntentResult struct {
	Intent validate.Type `json:"intent"`
	Result any           `json:"result"`
}

func fromEvent(ev stream.Event) Envelope {
	return Envelope{
		Type:            ev.Type,
		ProtocolVersion: ProtocolVersion,
		EventID:         ev.EventID,
		RoomCode:        ev.RoomCode,
		ServerTS:        ev.ServerTS,
		Data:            ev.Data,
	}
}

func errorEnvelope(requestID string, err error) Envelope {
	env := fromEvent(stream.NewEvent(gateway.EventError, "", gateway.ErrorFor(err)))
	env.RequestID = requestID
	return env
}

func resultEnvelope(requestID string, intent validate.Type, result any) Envelope {
	env := fromEvent(stream.NewEvent(TypeIntentResult, "", IntentResult{Intent: intent, Result: result}))
	env.RequestID = requestID
	return env
}
