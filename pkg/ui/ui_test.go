package ui

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/lexflow/pkg/booking"
	"github.com/go-go-golems/lexflow/pkg/chat"
	"github.com/go-go-golems/lexflow/pkg/events"
	"github.com/go-go-golems/lexflow/pkg/session"
	"github.com/go-go-golems/lexflow/pkg/webhook"
)

type staticTransport struct{ reply any }

func (s staticTransport) Post(context.Context, *webhook.Request) (any, error) { return s.reply, nil }

func newBackend(t *testing.T, reply any) *SessionBackend {
	t.Helper()
	mgr, err := session.New(session.Options{ClientID: "acme", Transport: staticTransport{reply: reply}})
	require.NoError(t, err)
	require.NoError(t, mgr.Open(context.Background()))
	return NewSessionBackend(mgr)
}

func TestParseInput(t *testing.T) {
	last := &chat.Message{Sender: chat.SenderBot, Options: []string{"Divorcios", "Herencias"}}

	require.Equal(t, command{kind: cmdNone}, parseInput("  ", last, nil))
	require.Equal(t, command{kind: cmdClear}, parseInput("/clear", last, nil))
	require.Equal(t, command{kind: cmdAbort}, parseInput("/abort", last, nil))
	require.Equal(t, command{kind: cmdBook, arg: "2026-03-02"}, parseInput("/book 2026-03-02", last, nil))
	require.Equal(t, command{kind: cmdFile, arg: "/tmp/c.pdf", text: "mi contrato"}, parseInput("/file /tmp/c.pdf mi contrato", last, nil))
	require.Equal(t, command{kind: cmdSend, text: "Herencias"}, parseInput("2", last, nil))
	require.Equal(t, command{kind: cmdSend, text: "7"}, parseInput("7", last, nil))
	require.Equal(t, command{kind: cmdSend, text: "/unknown x"}, parseInput("/unknown x", last, nil))

	slots := []booking.Slot{{Time: "09:00", Available: false}, {Time: "09:30", Available: true}}
	require.Equal(t, command{kind: cmdBook, arg: "09:30"}, parseInput("2", last, slots))
	require.Equal(t, command{kind: cmdSend, text: "1"}, parseInput("1", last, slots))
}

func TestLastBot(t *testing.T) {
	msgs := []chat.Message{
		{ID: "a", Sender: chat.SenderBot},
		{ID: "b", Sender: chat.SenderUser},
	}
	require.Equal(t, "a", lastBot(msgs).ID)
	require.Nil(t, lastBot(msgs[1:]))
}

func TestRenderTranscript(t *testing.T) {
	now := time.Now()
	msgs := []chat.Message{
		chat.NewBotMessage("b1", "Hola", []string{"Servicios"}, now),
		chat.NewUserMessage("u1", "contrato", &chat.Attachment{Name: "c.pdf", Type: "application/pdf"}, now),
		{ID: "x", Sender: chat.SenderBot, Text: "Pague aquí", PaymentLink: "https://pay", PaymentAmount: "100", Action: "schedule_appointment", Timestamp: now},
	}
	out := renderTranscript(msgs, "LexFlow", nil)
	require.Contains(t, out, "Hola")
	require.Contains(t, out, "[1] Servicios")
	require.Contains(t, out, "c.pdf")
	require.Contains(t, out, "https://pay")
	require.Contains(t, out, "/book")
}

func TestSessionBackend_StartRunsSend(t *testing.T) {
	b := newBackend(t, map[string]any{"text": "respuesta"})

	cmd, err := b.Start(context.Background(), "hola", nil)
	require.NoError(t, err)
	require.False(t, b.IsFinished())

	_, err = b.Start(context.Background(), "otra", nil)
	require.Error(t, err)

	msg := cmd()
	done, ok := msg.(SendFinishedMsg)
	require.True(t, ok)
	require.Equal(t, session.OutcomeDelivered, done.Result.Outcome)
	require.Equal(t, "respuesta", done.Result.Reply.Text)
	require.True(t, b.IsFinished())
}

func TestModel_SendAndRefresh(t *testing.T) {
	b := newBackend(t, "listo")
	var m tea.Model = NewModel(context.Background(), b, ModelOptions{Title: "Acme"})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	mm := m.(Model)
	mm.input.SetValue("hola")
	m, cmd := mm.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.Equal(t, chat.StateSending, m.(Model).state)

	// run the send directly instead of through a program
	res := b.manager.SendMessage(context.Background(), "hola", nil)
	require.Equal(t, session.OutcomeDelivered, res.Outcome)
	m, _ = m.Update(SendFinishedMsg{Result: res})
	require.Len(t, m.(Model).messages, 3)
	require.Contains(t, m.View(), "Acme")
}

func TestForwardTo(t *testing.T) {
	var got []tea.Msg
	h := forwardTo(func(m tea.Msg) { got = append(got, m) })

	b, err := json.Marshal(events.Event{Type: events.TypeHistoryCleared, SessionID: "s-1"})
	require.NoError(t, err)
	require.NoError(t, h(message.NewMessage("1", b)))
	require.Len(t, got, 1)
	require.Equal(t, "s-1", got[0].(SessionEventMsg).Event.SessionID)

	require.Error(t, h(message.NewMessage("2", []byte("nope"))))
}
