// Package event defines the frames the server pushes over the live channel
// and decodes raw messages into them. Frames are JSON objects discriminated
// by a "type" field; payload semantics are interpreted downstream.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/tickwatch/tickwatch/internal/model"
)

type Type string

const (
	TypeInitialState       Type = "initial_state"
	TypeTicketUpdate       Type = "ticket_update"
	TypeProcessingStart    Type = "processing_start"
	TypeStageUpdate        Type = "stage_update"
	TypeProcessingComplete Type = "processing_complete"
	TypeError              Type = "error"
	TypePong               Type = "pong"
)

// Event is one decoded frame. Only the fields relevant to its Type are set:
// Tickets for initial_state, Ticket for ticket_update and (optionally)
// processing_complete, Stage and Message for stage_update, Message for the
// status-only frames.
type Event struct {
	Type    Type           `json:"type"`
	Tickets []model.Ticket `json:"tickets,omitempty"`
	Ticket  *model.Ticket  `json:"ticket,omitempty"`
	Stage   string         `json:"stage,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Known reports whether the tag is one this client understands. Unknown tags
// are kept recoverable: the caller logs and drops them.
func (e Event) Known() bool {
	switch e.Type {
	case TypeInitialState, TypeTicketUpdate, TypeProcessingStart,
		TypeStageUpdate, TypeProcessingComplete, TypeError, TypePong:
		return true
	}
	return false
}

// Decode parses a raw frame. The type field is extracted first so a payload
// that fails to parse is reported with its tag.
func Decode(data []byte) (Event, error) {
	var tag struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return Event{}, fmt.Errorf("malformed frame: %w", err)
	}
	if tag.Type == "" {
		return Event{}, fmt.Errorf("frame missing type field")
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("malformed %s frame: %w", tag.Type, err)
	}
	return ev, nil
}
