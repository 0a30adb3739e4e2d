package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/lexflow/pkg/chat"
)

func TestHTTPTransport_PostsMultipart(t *testing.T) {
	type seen struct {
		fields   map[string]string
		fileName string
		fileType string
		fileBody string
	}
	got := make(chan seen, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		s := seen{fields: map[string]string{}}
		for k, v := range r.MultipartForm.Value {
			s.fields[k] = v[0]
		}
		if fhs := r.MultipartForm.File["file"]; len(fhs) == 1 {
			s.fileName = fhs[0].Filename
			s.fileType = fhs[0].Header.Get("Content-Type")
			f, err := fhs[0].Open()
			require.NoError(t, err)
			b, _ := io.ReadAll(f)
			_ = f.Close()
			s.fileBody = string(b)
		}
		got <- s
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"output":"recibido"}]`))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, nil)
	sess := chat.Session{ClientID: "acme", SessionID: "s-1", VisitorID: "v-1"}
	req := &Request{
		SessionID: "s-1",
		Text:      "mi contrato",
		ClientID:  "acme",
		VisitorID: "v-1",
		Metadata:  MetadataEnvelope(sess, "https://acme.test/", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), map[string]any{"utm": "ads"}),
		File:      &File{Name: "c.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	}
	resp, err := tr.Post(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "recibido", Normalize(resp).Text)

	s := <-got
	require.Equal(t, "s-1", s.fields["sessionId"])
	require.Equal(t, "mi contrato", s.fields["text"])
	require.Equal(t, "acme", s.fields["clientId"])
	require.Equal(t, "v-1", s.fields["visitorId"])
	require.Equal(t, ActionFileUpload, s.fields["action"])
	require.Equal(t, "c.pdf", s.fileName)
	require.Equal(t, "application/pdf", s.fileType)
	require.Equal(t, "%PDF", s.fileBody)

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(s.fields["metadata"]), &meta))
	require.Equal(t, "acme", meta["clientId"])
	require.Equal(t, "s-1", meta["sessionId"])
	require.Equal(t, "https://acme.test/", meta["url"])
	require.Equal(t, "2026-01-02T03:04:05.000Z", meta["timestamp"])
	require.Equal(t, "ads", meta["utm"])
}

func TestHTTPTransport_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := NewHTTPTransport(srv.URL, nil).Post(context.Background(), &Request{Text: "x"})
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadGateway, se.StatusCode)
	require.Equal(t, "upstream down", se.Body)
}

func TestHTTPTransport_BodyShapes(t *testing.T) {
	body := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	tr := NewHTTPTransport(srv.URL, nil)

	body = ""
	v, err := tr.Post(context.Background(), &Request{Text: "x"})
	require.NoError(t, err)
	require.Nil(t, v)

	body = "Hola, gracias"
	v, err = tr.Post(context.Background(), &Request{Text: "x"})
	require.NoError(t, err)
	require.Equal(t, "Hola, gracias", v)

	body = `"quoted"`
	v, err = tr.Post(context.Background(), &Request{Text: "x"})
	require.NoError(t, err)
	require.Equal(t, "quoted", v)
}

func TestHTTPTransport_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHTTPTransport(srv.URL, nil).Post(ctx, &Request{Text: "x"})
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTTPTransport_Guards(t *testing.T) {
	var tr *HTTPTransport
	_, err := tr.Post(context.Background(), &Request{})
	require.Error(t, err)

	_, err = NewHTTPTransport("", nil).Post(context.Background(), &Request{})
	require.Error(t, err)
}

func TestFileFromPath(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nota.txt")
	require.NoError(t, os.WriteFile(p, []byte("hola"), 0o644))

	f, err := FileFromPath(p)
	require.NoError(t, err)
	require.Equal(t, "nota.txt", f.Name)
	require.Equal(t, int64(4), f.Len())
	require.Contains(t, f.ContentType, "text/plain")

	a := f.Attachment()
	require.Equal(t, "nota.txt", a.Name)
	require.Contains(t, a.PreviewURL, "file://")

	pathOnly := &File{Name: "nota.txt", Path: p}
	require.Equal(t, int64(4), pathOnly.Len())

	_, err = FileFromPath(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
