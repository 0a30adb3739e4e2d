package events

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Sink receives session events. Publishing is best-effort: the session
// manager logs a failed publish and carries on.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// WatermillSink publishes events as JSON watermill messages.
type WatermillSink struct {
	publisher message.Publisher
	topic     string
}

var _ Sink = &WatermillSink{}

func NewWatermillSink(publisher message.Publisher, topic string) *WatermillSink {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillSink{publisher: publisher, topic: topic}
}

func (s *WatermillSink) Topic() string {
	if s == nil {
		return ""
	}
	return s.topic
}

func (s *WatermillSink) Publish(ctx context.Context, e Event) error {
	if s == nil || s.publisher == nil {
		return errors.New("watermill sink: publisher is nil")
	}
	b, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "watermill sink: encode event")
	}
	msg := message.NewMessage(uuid.NewString(), b)
	msg.Metadata.Set("session_id", e.SessionID)
	msg.Metadata.Set("client_id", e.ClientID)
	msg.Metadata.Set("event_type", string(e.Type))
	if ctx != nil {
		msg.SetContext(ctx)
	}
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		return errors.Wrap(err, "watermill sink: publish")
	}
	return nil
}

// CollectingSink keeps events in memory.
type CollectingSink struct {
	mu     sync.Mutex
	events []Event
}

var _ Sink = &CollectingSink{}

func NewCollectingSink() *CollectingSink {
	return &CollectingSink{}
}

func (s *CollectingSink) Publish(_ context.Context, e Event) error {
	if s == nil {
		return errors.New("collecting sink: nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *CollectingSink) Events() []Event {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
