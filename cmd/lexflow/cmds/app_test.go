package cmds

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/lexflow/pkg/chat"
	"github.com/go-go-golems/lexflow/pkg/config"
	"github.com/go-go-golems/lexflow/pkg/session"
)

func setViper(t *testing.T, kv map[string]any) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("store", "memory")
	viper.Set("http-timeout", 5*time.Second)
	for k, v := range kv {
		viper.Set(k, v)
	}
}

func TestLoadTenantDefaultsToDemo(t *testing.T) {
	setViper(t, nil)
	tenant, err := loadTenant(context.Background(), viper.GetViper())
	require.NoError(t, err)
	require.Equal(t, config.DemoID, tenant.ID)
}

func TestLoadTenantFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acme.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: acme\nname: Acme Legal\nwebhookUrl: https://hooks.example.com/webhook/acme\n"), 0o644))

	setViper(t, map[string]any{"tenant": path, "webhook-url": "http://localhost:1/webhook/x"})
	tenant, err := loadTenant(context.Background(), viper.GetViper())
	require.NoError(t, err)
	require.Equal(t, "acme", tenant.ID)
	require.Equal(t, "Acme Legal", tenant.Name)
	require.Equal(t, "http://localhost:1/webhook/x", tenant.WebhookURL)

	setViper(t, map[string]any{"tenant": dir, "client-id": "acme"})
	tenant, err = loadTenant(context.Background(), viper.GetViper())
	require.NoError(t, err)
	require.Equal(t, "https://hooks.example.com/webhook/acme", tenant.WebhookURL)
}

func TestLoadTenantMissingFile(t *testing.T) {
	setViper(t, map[string]any{"tenant": filepath.Join(t.TempDir(), "nope.yaml")})
	_, err := loadTenant(context.Background(), viper.GetViper())
	require.Error(t, err)
}

func TestNewAppSendsThroughWebhook(t *testing.T) {
	var gotText, gotClient string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotText, gotClient = r.FormValue("text"), r.FormValue("clientId")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"output":"Buenos días","options":["Sí","No"]}]`))
	}))
	defer srv.Close()

	setViper(t, map[string]any{"webhook-url": srv.URL + "/webhook/demo"})
	app, err := NewApp(context.Background())
	require.NoError(t, err)
	defer app.Close()

	require.Len(t, app.Manager.Messages(), 1)
	require.Equal(t, "welcome", app.Manager.Messages()[0].ID)

	res := app.Manager.SendMessage(context.Background(), "hola", nil)
	require.Equal(t, session.OutcomeDelivered, res.Outcome)
	require.NotNil(t, res.Reply)
	require.Equal(t, "Buenos días", res.Reply.Text)
	require.Equal(t, []string{"Sí", "No"}, res.Reply.Options)
	require.Equal(t, "hola", gotText)
	require.Equal(t, "demo", gotClient)
}

func TestPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	m := chat.NewBotMessage("m1", "Elegí una opción", []string{"A", "B"}, time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, printMessage(cmd, m, false))
	out := buf.String()
	require.Contains(t, out, "bot] Elegí una opción")
	require.Contains(t, out, "1) A")
	require.Contains(t, out, "2) B")

	buf.Reset()
	require.NoError(t, printMessage(cmd, m, true))
	require.Contains(t, buf.String(), `"sender": "bot"`)
}
