package chat

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLog_SnapshotIsACopy(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	l := NewLog(NewBotMessage("w", "hola", []string{"a", "b"}, now))

	snap := l.Snapshot()
	snap[0].Text = "changed"
	snap[0].Options[0] = "z"

	again := l.Snapshot()
	require.Equal(t, "hola", again[0].Text)
	require.Equal(t, []string{"a", "b"}, again[0].Options)
}

func TestLog_AppendPreservesOrder(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	l := NewLog()
	for i := 0; i < 5; i++ {
		l.Append(NewUserMessage(fmt.Sprintf("id-%d", i), fmt.Sprintf("m%d", i), nil, now.Add(time.Duration(i)*time.Second)))
	}
	require.Equal(t, 5, l.Len())

	tail := l.Tail(2)
	require.Len(t, tail, 2)
	require.Equal(t, "m3", tail[0].Text)
	require.Equal(t, "m4", tail[1].Text)

	last, ok := l.Last()
	require.True(t, ok)
	require.Equal(t, "m4", last.Text)
}

func TestLog_ResetReplaces(t *testing.T) {
	now := time.Now()
	l := NewLog(NewUserMessage("1", "a", nil, now), NewUserMessage("2", "b", nil, now))
	welcome := NewBotMessage("welcome", "hi", nil, now)
	welcome.ID = WelcomeResetID
	l.Reset(welcome)

	require.Equal(t, 1, l.Len())
	last, _ := l.Last()
	require.Equal(t, WelcomeResetID, last.ID)
}

func TestLog_NilReceiver(t *testing.T) {
	var l *Log
	l.Append(Message{})
	require.Equal(t, 0, l.Len())
	require.Nil(t, l.Snapshot())
	_, ok := l.Last()
	require.False(t, ok)
}

func TestTailOf(t *testing.T) {
	msgs := []Message{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	require.Len(t, TailOf(msgs, 0), 3)
	require.Len(t, TailOf(msgs, 5), 3)
	require.Equal(t, "3", TailOf(msgs, 1)[0].ID)
}

func TestMessage_JSONShape(t *testing.T) {
	paid := true
	m := Message{
		ID:         "x",
		Sender:     SenderUser,
		Text:       "contrato",
		Timestamp:  time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		Attachment: &Attachment{Name: "c.pdf", Type: "application/pdf"},
		IsPaid:     &paid,
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Equal(t, "user", raw["sender"])
	require.Equal(t, "2026-05-01T10:00:00Z", raw["timestamp"])
	require.Equal(t, "c.pdf", raw["file"].(map[string]any)["name"])
	require.Equal(t, true, raw["isPaid"])
	require.NotContains(t, raw, "options")
}

func TestState_Busy(t *testing.T) {
	require.False(t, StateIdle.Busy())
	require.True(t, StateSending.Busy())
	require.True(t, StateAnalyzing.Busy())
}
