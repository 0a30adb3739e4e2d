package chat

import "time"

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

const (
	WelcomeID      = "welcome"
	WelcomeResetID = "welcome-reset"
)

// Attachment references a file the visitor sent along with a message.
// PreviewURL is a local, ephemeral handle and is not meaningful across machines.
type Attachment struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PreviewURL string `json:"url,omitempty"`
}

// Message is one entry of the conversation log.
//
// The payment and lead fields are surfaced by the webhook and passed through
// untouched; nothing in this module interprets them.
type Message struct {
	ID         string      `json:"id"`
	Sender     Sender      `json:"sender"`
	Text       string      `json:"text,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Attachment *Attachment `json:"file,omitempty"`
	Options    []string    `json:"options,omitempty"`
	Action     string      `json:"action,omitempty"`

	PaymentLink     string `json:"paymentLink,omitempty"`
	PaymentAmount   string `json:"paymentAmount,omitempty"`
	LeadStatus      string `json:"leadStatus,omitempty"`
	IsPaid          *bool  `json:"isPaid,omitempty"`
	LawyerConfirmed *bool  `json:"lawyerConfirmed,omitempty"`
	Image           string `json:"image,omitempty"`
	Video           string `json:"video,omitempty"`
}

func (m Message) IsUser() bool { return m.Sender == SenderUser }
func (m Message) IsBot() bool  { return m.Sender == SenderBot }

// NewUserMessage builds a visitor turn stamped with now.
func NewUserMessage(id, text string, attachment *Attachment, now time.Time) Message {
	return Message{
		ID:         id,
		Sender:     SenderUser,
		Text:       text,
		Timestamp:  now,
		Attachment: attachment,
	}
}

// NewBotMessage builds a bot turn with optional quick replies.
func NewBotMessage(id, text string, options []string, now time.Time) Message {
	return Message{
		ID:        id,
		Sender:    SenderBot,
		Text:      text,
		Timestamp: now,
		Options:   cloneStrings(options),
	}
}

// Clone returns a deep copy so callers can never mutate a logged message.
func (m Message) Clone() Message {
	out := m
	out.Options = cloneStrings(m.Options)
	if m.Attachment != nil {
		a := *m.Attachment
		out.Attachment = &a
	}
	if m.IsPaid != nil {
		v := *m.IsPaid
		out.IsPaid = &v
	}
	if m.LawyerConfirmed != nil {
		v := *m.LawyerConfirmed
		out.LawyerConfirmed = &v
	}
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}
