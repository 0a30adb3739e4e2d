package chat

// Session is the identity scope of one conversation.
type Session struct {
	ClientID  string `json:"clientId"`
	SessionID string `json:"sessionId"`
	VisitorID string `json:"visitorId"`
	// External is set when the host page supplied the session id.
	External bool `json:"external,omitempty"`
}

// State is where the manager stands in the send lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateAnalyzing State = "analyzing"
)

func (s State) Busy() bool { return s == StateSending || s == StateAnalyzing }
