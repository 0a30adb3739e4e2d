package ui

import (
	"context"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/lexflow/pkg/events"
	"github.com/go-go-golems/lexflow/pkg/session"
	"github.com/go-go-golems/lexflow/pkg/webhook"
)

// SendFinishedMsg is delivered to the program when a send returns.
type SendFinishedMsg struct {
	Result session.Result
}

// SessionEventMsg carries a session event forwarded from watermill.
type SessionEventMsg struct {
	Event events.Event
}

// SessionBackend runs session manager sends off the UI goroutine.
type SessionBackend struct {
	manager   *session.Manager
	isRunning atomic.Bool
}

func NewSessionBackend(manager *session.Manager) *SessionBackend {
	return &SessionBackend{manager: manager}
}

func (b *SessionBackend) Manager() *session.Manager {
	if b == nil {
		return nil
	}
	return b.manager
}

// Start returns a command that performs the send and reports a SendFinishedMsg.
func (b *SessionBackend) Start(ctx context.Context, text string, file *webhook.File) (tea.Cmd, error) {
	if b == nil || b.manager == nil {
		return nil, errors.New("session backend: manager is nil")
	}
	if !b.isRunning.CompareAndSwap(false, true) {
		return nil, errors.New("session backend: already running")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	return func() tea.Msg {
		defer b.isRunning.Store(false)
		res := b.manager.SendMessage(ctx, text, file)
		if res.Err != nil {
			log.Debug().Err(res.Err).Str("outcome", string(res.Outcome)).Msg("send finished with error")
		}
		return SendFinishedMsg{Result: res}
	}, nil
}

// Interrupt aborts the request in flight, if any.
func (b *SessionBackend) Interrupt() {
	if b == nil || b.manager == nil {
		return
	}
	if !b.manager.AbortRequest() {
		log.Debug().Msg("nothing to interrupt")
	}
}

func (b *SessionBackend) IsFinished() bool {
	return b == nil || !b.isRunning.Load()
}

// ForwardFunc forwards watermill session events into the program as
// SessionEventMsg values.
func ForwardFunc(p *tea.Program) func(msg *message.Message) error {
	return forwardTo(func(m tea.Msg) { p.Send(m) })
}

func forwardTo(send func(tea.Msg)) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		msg.Ack()
		e, err := events.NewEventFromJSON(msg.Payload)
		if err != nil {
			log.Error().Err(err).Str("payload", string(msg.Payload)).Msg("failed to parse session event")
			return err
		}
		log.Trace().Str("type", string(e.Type)).Msg("dispatching session event to UI")
		send(SessionEventMsg{Event: e})
		return nil
	}
}
