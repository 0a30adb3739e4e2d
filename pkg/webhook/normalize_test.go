package webhook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestNormalize_PlainObject(t *testing.T) {
	r := Normalize(decode(t, `{"text":"hi","options":["a","b"]}`))
	require.Equal(t, "hi", r.Text)
	require.Equal(t, []string{"a", "b"}, r.Options)
	require.Empty(t, r.Action)
}

func TestNormalize_ArrayWrappedFencedText(t *testing.T) {
	inner := "```json\n{\"text\":\"nested\"}\n```"
	outer, err := json.Marshal(map[string]any{"text": inner})
	require.NoError(t, err)

	// object whose text embeds a fence
	r := Normalize([]any{map[string]any{"text": inner}})
	require.Equal(t, "nested", r.Text)

	// string element holding a JSON object whose text embeds a fence
	r = Normalize([]any{string(outer)})
	require.Equal(t, "nested", r.Text)
}

func TestNormalize_PlainString(t *testing.T) {
	r := Normalize("plain string")
	require.Equal(t, "plain string", r.Text)
	require.Empty(t, r.Options)
}

func TestNormalize_MalformedEmbeddedJSON(t *testing.T) {
	r := Normalize(map[string]any{"text": "{not json", "options": []any{"x"}})
	require.Equal(t, "{not json", r.Text)
	require.Equal(t, []string{"x"}, r.Options)

	r = Normalize(map[string]any{"output": "```json\n{broken\n```"})
	require.Equal(t, "```json\n{broken\n```", r.Text)
}

func TestNormalize_EmbeddedOverrides(t *testing.T) {
	text := `{"text":"Agenda tu cita","suggestions":["Lunes","Martes"],"action":"schedule_appointment","payment_link":"https://pay/x"}`
	r := Normalize(map[string]any{"message": text, "options": []any{"old"}})
	require.Equal(t, "Agenda tu cita", r.Text)
	require.Equal(t, []string{"Lunes", "Martes"}, r.Options)
	require.Equal(t, "schedule_appointment", r.Action)
	require.Equal(t, "https://pay/x", r.PaymentLink)
}

func TestNormalize_TextPrecedence(t *testing.T) {
	r := Normalize(decode(t, `{"text":"","output":"from output","message":"from message"}`))
	require.Equal(t, "from output", r.Text)

	r = Normalize(decode(t, `{"message":"only message","suggestions":["s"]}`))
	require.Equal(t, "only message", r.Text)
	require.Equal(t, []string{"s"}, r.Options)
}

func TestNormalize_LooseFields(t *testing.T) {
	r := Normalize(decode(t, `[{
		"text":"pago",
		"paymentAmount": 150.5,
		"lead_status":"hot",
		"is_paid":"true",
		"lawyerConfirmed": false,
		"options":["ok", 3, null, "no"],
		"image":"https://img",
		"video":"https://vid"
	}]`))
	require.Equal(t, "pago", r.Text)
	require.Equal(t, "150.5", r.PaymentAmount)
	require.Equal(t, "hot", r.LeadStatus)
	require.NotNil(t, r.IsPaid)
	require.True(t, *r.IsPaid)
	require.NotNil(t, r.LawyerConfirmed)
	require.False(t, *r.LawyerConfirmed)
	require.Equal(t, []string{"ok", "no"}, r.Options)
	require.Equal(t, "https://img", r.Image)
	require.Equal(t, "https://vid", r.Video)
}

func TestNormalize_Scalars(t *testing.T) {
	require.Equal(t, "", Normalize(nil).Text)
	require.Equal(t, "42", Normalize(float64(42)).Text)
	require.Equal(t, "true", Normalize(true).Text)
	require.Equal(t, "", Normalize([]any{}).Text)
	require.Equal(t, "", Normalize(map[string]any{}).Text)
}

func TestReply_Message(t *testing.T) {
	now := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	r := Normalize(decode(t, `{"text":"hola","options":["a"],"action":"payment_inquiry"}`))
	m := r.Message("reply-1", now)
	require.True(t, m.IsBot())
	require.Equal(t, "reply-1", m.ID)
	require.Equal(t, "hola", m.Text)
	require.Equal(t, []string{"a"}, m.Options)
	require.Equal(t, "payment_inquiry", m.Action)
	require.Equal(t, now, m.Timestamp)
}
