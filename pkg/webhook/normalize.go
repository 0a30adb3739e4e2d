package webhook

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-go-golems/lexflow/pkg/chat"
)

// Reply is the canonical form of a webhook answer.
type Reply struct {
	Text            string
	Options         []string
	Action          string
	PaymentLink     string
	PaymentAmount   string
	LeadStatus      string
	IsPaid          *bool
	LawyerConfirmed *bool
	Image           string
	Video           string
}

var fencedJSON = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")

// maxEmbedDepth bounds how many times text is re-parsed as embedded JSON.
const maxEmbedDepth = 4

// Normalize turns whatever the webhook answered into a Reply. It never fails:
// unusable input degrades to a text-only reply.
func Normalize(raw any) Reply {
	v := raw
	if arr, ok := raw.([]any); ok {
		if len(arr) == 0 {
			return Reply{}
		}
		v = arr[0]
	}

	var r Reply
	if obj, ok := v.(map[string]any); ok {
		r = fromObject(obj)
	} else {
		r = Reply{Text: scalarString(v)}
	}

	for i := 0; i < maxEmbedDepth; i++ {
		next, changed := expandEmbedded(r)
		r = next
		if !changed {
			break
		}
	}
	return r
}

func fromObject(obj map[string]any) Reply {
	r := Reply{
		Text:            firstString(obj, "text", "output", "message"),
		Action:          firstString(obj, "action"),
		PaymentLink:     firstString(obj, "paymentLink", "payment_link"),
		PaymentAmount:   firstString(obj, "paymentAmount", "payment_amount"),
		LeadStatus:      firstString(obj, "leadStatus", "lead_status"),
		IsPaid:          firstBool(obj, "isPaid", "is_paid"),
		LawyerConfirmed: firstBool(obj, "lawyerConfirmed", "lawyer_confirmed"),
		Image:           firstString(obj, "image"),
		Video:           firstString(obj, "video"),
	}
	if opts, ok := firstList(obj, "options", "suggestions"); ok {
		r.Options = opts
	}
	return r
}

// expandEmbedded parses JSON that the workflow stuffed into the text field,
// either as a bare object or inside a ```json fence. Fields found there
// override the outer reply. It reports whether the text changed, in which case
// the new text may itself embed JSON.
func expandEmbedded(r Reply) (Reply, bool) {
	trimmed := strings.TrimSpace(r.Text)
	if !strings.HasPrefix(trimmed, "{") && !strings.Contains(trimmed, "```json") {
		return r, false
	}

	var candidates []string
	if m := fencedJSON.FindStringSubmatch(trimmed); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if strings.HasPrefix(trimmed, "{") {
		candidates = append(candidates, trimmed)
	}

	for _, c := range candidates {
		var obj map[string]any
		if err := json.Unmarshal([]byte(c), &obj); err != nil || obj == nil {
			continue
		}
		inner := fromObject(obj)
		out := r
		if t := firstString(obj, "text"); t != "" {
			out.Text = t
		}
		if opts, ok := firstList(obj, "suggestions", "options"); ok && len(opts) > 0 {
			out.Options = opts
		}
		if inner.Action != "" {
			out.Action = inner.Action
		}
		if inner.PaymentLink != "" {
			out.PaymentLink = inner.PaymentLink
		}
		if inner.PaymentAmount != "" {
			out.PaymentAmount = inner.PaymentAmount
		}
		if inner.LeadStatus != "" {
			out.LeadStatus = inner.LeadStatus
		}
		if inner.IsPaid != nil {
			out.IsPaid = inner.IsPaid
		}
		if inner.LawyerConfirmed != nil {
			out.LawyerConfirmed = inner.LawyerConfirmed
		}
		return out, out.Text != r.Text
	}
	return r, false
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := scalarString(obj[k]); s != "" {
			return s
		}
	}
	return ""
}

func firstBool(obj map[string]any, keys ...string) *bool {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case bool:
			return &v
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return &b
			}
		}
	}
	return nil
}

func firstList(obj map[string]any, keys ...string) ([]string, bool) {
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case []any:
			out := make([]string, 0, len(v))
			for _, e := range v {
				if s, ok := e.(string); ok {
					out = append(out, s)
				}
			}
			return out, true
		case []string:
			return append([]string(nil), v...), true
		}
	}
	return nil, false
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// Message converts the reply into a bot turn of the conversation log.
func (r Reply) Message(id string, now time.Time) chat.Message {
	m := chat.NewBotMessage(id, r.Text, r.Options, now)
	m.Action = r.Action
	m.PaymentLink = r.PaymentLink
	m.PaymentAmount = r.PaymentAmount
	m.LeadStatus = r.LeadStatus
	m.IsPaid = r.IsPaid
	m.LawyerConfirmed = r.LawyerConfirmed
	m.Image = r.Image
	m.Video = r.Video
	return m
}
