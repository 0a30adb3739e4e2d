package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_FileJSON(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	p := filepath.Join(t.TempDir(), "logs", "lexflow.log")
	closer, err := InitLogger(Settings{Level: "debug", Format: "json", File: p})
	require.NoError(t, err)
	log.Debug().Str("session_id", "s-1").Msg("hello")
	require.NoError(t, closer())

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(b), `"session_id":"s-1"`)
	require.Contains(t, string(b), `"message":"hello"`)
}

func TestInitLogger_RejectsBadInput(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prevLevel) })

	_, err := InitLogger(Settings{Level: "loud"})
	require.Error(t, err)
	_, err = InitLogger(Settings{Level: "info", Format: "xml"})
	require.Error(t, err)
}

func TestWatermillLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	wl := NewWatermillLogger(zerolog.New(buf))
	wl.With(watermill.LogFields{"topic": "lexflow.session"}).Error("publish failed", errors.New("boom"), nil)
	require.Contains(t, buf.String(), `"topic":"lexflow.session"`)
	require.Contains(t, buf.String(), `"error":"boom"`)
	require.Contains(t, buf.String(), `"component":"watermill"`)
}
