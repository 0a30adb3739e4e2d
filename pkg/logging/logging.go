package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Settings configures the global zerolog logger.
type Settings struct {
	Level      string
	Format     string // console, json or empty for auto
	File       string
	WithCaller bool
}

// AddFlags registers the logging flags on a root command.
func AddFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	fs.String("log-format", "", "Log format (console or json); console on a terminal by default")
	fs.String("log-file", "", "Write logs to this file instead of stderr")
	fs.Bool("with-caller", false, "Log caller file and line")
}

// SettingsFromViper reads the flags registered by AddFlags.
func SettingsFromViper(v *viper.Viper) Settings {
	if v == nil {
		v = viper.GetViper()
	}
	return Settings{
		Level:      v.GetString("log-level"),
		Format:     v.GetString("log-format"),
		File:       v.GetString("log-file"),
		WithCaller: v.GetBool("with-caller"),
	}
}

// InitLogger replaces log.Logger according to s. It returns a closer for the
// log file, which is a no-op when logging to stderr.
func InitLogger(s Settings) (func() error, error) {
	level := zerolog.InfoLevel
	if strings.TrimSpace(s.Level) != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s.Level)))
		if err != nil {
			return nil, errors.Wrapf(err, "logging: invalid level %q", s.Level)
		}
		level = l
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	closer := func() error { return nil }
	toTerminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	if f := strings.TrimSpace(s.File); f != "" {
		if err := os.MkdirAll(filepath.Dir(f), 0o755); err != nil {
			return nil, errors.Wrap(err, "logging: create log dir")
		}
		fh, err := os.OpenFile(f, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.Wrap(err, "logging: open log file")
		}
		out = fh
		closer = fh.Close
		toTerminal = false
	}

	switch strings.ToLower(strings.TrimSpace(s.Format)) {
	case "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: !toTerminal}
	case "":
		if toTerminal {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
		}
	default:
		_ = closer()
		return nil, errors.Errorf("logging: unknown format %q", s.Format)
	}

	ctx := zerolog.New(out).With().Timestamp()
	if s.WithCaller {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	return closer, nil
}
