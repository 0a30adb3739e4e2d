package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/go-go-golems/lexflow/pkg/chat"
)

// TimestampLayout is RFC 3339 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	ActionUserMessage = "user_message"
	ActionFileUpload  = "file_upload"
	ActionAbandoned   = "user_abandoned_page"
)

// Transport delivers one request to the tenant webhook and returns the
// decoded response body: a JSON value (map, slice, string, number, bool) or nil.
type Transport interface {
	Post(ctx context.Context, req *Request) (any, error)
}

// Request is one outbound submission.
type Request struct {
	SessionID string
	Text      string
	ClientID  string
	VisitorID string
	Metadata  map[string]any
	Action    string
	File      *File
}

// File is an attachment. Data takes precedence over Path when both are set.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Path        string
	Data        []byte
}

// FileFromPath stats a local file and guesses its content type.
func FileFromPath(path string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("webhook file: path is empty")
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "webhook file: stat")
	}
	if st.IsDir() {
		return nil, errors.Errorf("webhook file: %s is a directory", path)
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ct == "" {
		ct = sniffContentType(path)
	}
	return &File{
		Name:        filepath.Base(path),
		ContentType: ct,
		Size:        st.Size(),
		Path:        path,
	}, nil
}

func sniffContentType(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer func() { _ = f.Close() }()
	buf := make([]byte, 512)
	n, _ := io.ReadFull(f, buf)
	return http.DetectContentType(buf[:n])
}

// Len is the attachment size in bytes. A file known only by its path is
// measured on disk.
func (f *File) Len() int64 {
	if f == nil {
		return 0
	}
	if f.Data != nil {
		return int64(len(f.Data))
	}
	if f.Size == 0 && strings.TrimSpace(f.Path) != "" {
		if st, err := os.Stat(f.Path); err == nil {
			return st.Size()
		}
	}
	return f.Size
}

func (f *File) open() (io.ReadCloser, error) {
	if f.Data != nil {
		return io.NopCloser(bytes.NewReader(f.Data)), nil
	}
	if strings.TrimSpace(f.Path) == "" {
		return nil, errors.New("webhook file: no data and no path")
	}
	r, err := os.Open(f.Path)
	if err != nil {
		return nil, errors.Wrap(err, "webhook file: open")
	}
	return r, nil
}

// Attachment describes the file for the conversation log.
func (f *File) Attachment() *chat.Attachment {
	if f == nil {
		return nil
	}
	a := &chat.Attachment{Name: f.Name, Type: f.ContentType}
	if f.Path != "" {
		if abs, err := filepath.Abs(f.Path); err == nil {
			a.PreviewURL = "file://" + filepath.ToSlash(abs)
		}
	}
	return a
}

// StatusError is returned for non-2xx webhook responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook: unexpected status %d: %s", e.StatusCode, e.Body)
}

// MetadataEnvelope builds the metadata object attached to every submission.
// Caller extras are applied last and win over the built-in keys.
func MetadataEnvelope(s chat.Session, pageURL string, now time.Time, extra map[string]any) map[string]any {
	m := map[string]any{
		"clientId":  s.ClientID,
		"visitorId": s.VisitorID,
		"sessionId": s.SessionID,
		"url":       pageURL,
		"timestamp": now.UTC().Format(TimestampLayout),
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}
