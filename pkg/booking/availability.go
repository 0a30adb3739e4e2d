package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/lexflow/pkg/webhook"
)

const ActionGetAvailability = "get_availability"

type availabilityRequest struct {
	Action    string `json:"action"`
	Date      string `json:"date"`
	SessionID string `json:"sessionId"`
}

type availabilityResponse struct {
	BusySlots []string `json:"busySlots"`
}

// Client asks the tenant webhook which slots of a day are already taken.
type Client struct {
	URL        string
	HTTPClient *http.Client
	Hours      Hours
}

func NewClient(url string, hours Hours, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: webhook.DefaultTimeout}
	}
	return &Client{URL: strings.TrimSpace(url), HTTPClient: httpClient, Hours: hours.Normalize()}
}

// BusySlots fetches the HH:MM labels already booked on date.
func (c *Client) BusySlots(ctx context.Context, date time.Time, sessionID string) ([]string, error) {
	if c == nil || c.HTTPClient == nil {
		return nil, errors.New("availability client: client is nil")
	}
	if c.URL == "" {
		return nil, errors.New("availability client: url is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	body, err := json.Marshal(availabilityRequest{
		Action:    ActionGetAvailability,
		Date:      FormatDate(date),
		SessionID: sessionID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "availability client: encode")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "availability client: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "availability client: post")
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "availability client: read body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &webhook.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var parsed availabilityResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.Wrap(err, "availability client: decode")
	}
	return parsed.BusySlots, nil
}

// Availability returns the slots of date with busy ones marked. When the
// lookup fails no slots are returned.
func (c *Client) Availability(ctx context.Context, date time.Time, sessionID string) ([]Slot, error) {
	if c == nil {
		return nil, errors.New("availability client: client is nil")
	}
	if !c.Hours.IsBusinessDay(date) {
		return nil, nil
	}
	busy, err := c.BusySlots(ctx, date, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("date", FormatDate(date)).Msg("availability lookup failed")
		return nil, err
	}
	return Slots(date, c.Hours, busy), nil
}
