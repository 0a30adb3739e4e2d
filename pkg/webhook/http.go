package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout is the client timeout used when no http.Client is supplied.
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps how much of a failed response is kept in StatusError.
const maxErrorBody = 512

// HTTPTransport posts requests as multipart/form-data to a webhook URL.
type HTTPTransport struct {
	URL    string
	Client *http.Client
}

var _ Transport = &HTTPTransport{}

func NewHTTPTransport(url string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPTransport{URL: strings.TrimSpace(url), Client: client}
}

func (t *HTTPTransport) Post(ctx context.Context, req *Request) (any, error) {
	if t == nil || t.Client == nil {
		return nil, errors.New("webhook transport: client is nil")
	}
	if t.URL == "" {
		return nil, errors.New("webhook transport: url is empty")
	}
	if req == nil {
		return nil, errors.New("webhook transport: request is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, body)
	if err != nil {
		return nil, errors.Wrap(err, "webhook transport: build request")
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "webhook transport: post")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "webhook transport: read body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(raw))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	log.Debug().
		Str("session_id", req.SessionID).
		Str("action", req.Action).
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Msg("webhook response received")

	return DecodeBody(raw), nil
}

// DecodeBody decodes a webhook response body. Empty bodies yield nil and
// bodies that are not JSON come back as a plain string.
func DecodeBody(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return string(trimmed)
	}
	return v
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(req *Request) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	meta := req.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", errors.Wrap(err, "webhook transport: encode metadata")
	}

	action := req.Action
	if action == "" {
		action = ActionUserMessage
		if req.File != nil {
			action = ActionFileUpload
		}
	}

	fields := [][2]string{
		{"sessionId", req.SessionID},
		{"text", req.Text},
		{"clientId", req.ClientID},
		{"visitorId", req.VisitorID},
		{"metadata", string(metaJSON)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", errors.Wrapf(err, "webhook transport: write field %s", f[0])
		}
	}

	if req.File != nil {
		if err := writeFilePart(w, req.File); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField("action", action); err != nil {
		return nil, "", errors.Wrap(err, "webhook transport: write field action")
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "webhook transport: close multipart")
	}
	return buf, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, f *File) error {
	r, err := f.open()
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return errors.Wrap(err, "webhook transport: create file part")
	}
	if _, err := io.Copy(part, r); err != nil {
		return errors.Wrap(err, "webhook transport: copy file")
	}
	return nil
}
