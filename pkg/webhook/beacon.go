package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	AbandonedText       = "[User left page]"
	AbandonmentEndpoint = "lead-abandonment"
)

var webhookTail = regexp.MustCompile(`/webhook/.*$`)

// AbandonPayload is the best-effort notice sent when a visitor leaves.
// Metadata is a JSON string, not an object.
type AbandonPayload struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
	ClientID  string `json:"clientId"`
	VisitorID string `json:"visitorId"`
	Action    string `json:"action"`
	Metadata  string `json:"metadata"`
}

func NewAbandonPayload(sessionID, clientID, visitorID string, metadata map[string]any) (AbandonPayload, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return AbandonPayload{}, errors.Wrap(err, "abandon beacon: encode metadata")
	}
	return AbandonPayload{
		SessionID: sessionID,
		Text:      AbandonedText,
		ClientID:  clientID,
		VisitorID: visitorID,
		Action:    ActionAbandoned,
		Metadata:  string(b),
	}, nil
}

// AbandonmentURL derives the lead-retention endpoint from the chat webhook.
// Everything after /webhook/ is replaced; URLs without that segment get their
// final path segment replaced instead.
func AbandonmentURL(webhookURL string) string {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return ""
	}
	if webhookTail.MatchString(webhookURL) {
		return webhookTail.ReplaceAllString(webhookURL, "/webhook/"+AbandonmentEndpoint)
	}
	u, err := url.Parse(webhookURL)
	if err != nil {
		return ""
	}
	dir := path.Dir(strings.TrimSuffix(u.Path, "/"))
	if dir == "." {
		dir = "/"
	}
	u.Path = path.Join(dir, AbandonmentEndpoint)
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// Beacon fires abandonment notices. Both endpoints are hit concurrently;
// failures are logged and the first one is returned.
type Beacon struct {
	Client *http.Client
}

func NewBeacon(client *http.Client) *Beacon {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Beacon{Client: client}
}

func (b *Beacon) Send(ctx context.Context, webhookURL string, p AbandonPayload) error {
	if b == nil || b.Client == nil {
		return errors.New("abandon beacon: client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return errors.New("abandon beacon: webhook url is empty")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "abandon beacon: encode payload")
	}

	targets := []string{webhookURL}
	if alt := AbandonmentURL(webhookURL); alt != "" && alt != webhookURL {
		targets = append(targets, alt)
	}

	var g errgroup.Group
	for _, target := range targets {
		g.Go(func() error {
			if err := b.post(ctx, target, body); err != nil {
				log.Warn().Err(err).Str("url", target).Str("session_id", p.SessionID).Msg("abandon beacon failed")
				return err
			}
			log.Debug().Str("url", target).Str("session_id", p.SessionID).Msg("abandon beacon sent")
			return nil
		})
	}
	return g.Wait()
}

func (b *Beacon) post(ctx context.Context, target string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "abandon beacon: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "abandon beacon: post")
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}
