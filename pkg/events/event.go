package events

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/go-go-golems/lexflow/pkg/chat"
)

// DefaultTopic is the watermill topic session events are published on.
const DefaultTopic = "lexflow.session"

type Type string

const (
	TypeMessageAppended Type = "message_appended"
	TypeStateChanged    Type = "state_changed"
	TypeHistoryCleared  Type = "history_cleared"
	TypeSessionOpened   Type = "session_opened"
)

// Event describes one change of a session manager.
type Event struct {
	Type      Type          `json:"type"`
	ClientID  string        `json:"clientId"`
	SessionID string        `json:"sessionId"`
	VisitorID string        `json:"visitorId,omitempty"`
	Message   *chat.Message `json:"message,omitempty"`
	State     chat.State    `json:"state,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewEventFromJSON(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, errors.Wrap(err, "events: decode")
	}
	if e.Type == "" {
		return Event{}, errors.New("events: missing type")
	}
	return e, nil
}
