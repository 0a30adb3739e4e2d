package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const EnvPrefix = "LEXFLOW"

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored; existing variables are never overwritten.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("could not load env file")
		}
	}
}

// HomeDir is where lexflow keeps its local state: $LEXFLOW_HOME or ~/.lexflow.
func HomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv(EnvPrefix + "_HOME")); h != "" {
		return homedir.Expand(h)
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "config: resolve home directory")
	}
	return filepath.Join(home, ".lexflow"), nil
}

// DefaultDBPath is the SQLite file used when --db is not given.
func DefaultDBPath() string {
	home, err := HomeDir()
	if err != nil {
		return "lexflow.db"
	}
	return filepath.Join(home, "lexflow.db")
}

// ExpandPath resolves a leading ~ in user supplied paths.
func ExpandPath(p string) string {
	expanded, err := homedir.Expand(strings.TrimSpace(p))
	if err != nil {
		return p
	}
	return expanded
}

// InitViper binds the root command's flags to viper, LEXFLOW_* environment
// variables and an optional config.yaml in the lexflow home directory.
func InitViper(appName string, rootCmd *cobra.Command) error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := HomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath(filepath.Join("/etc", appName))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "config: read config file")
		}
	} else {
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("loaded config file")
	}

	if rootCmd != nil {
		if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
			return errors.Wrap(err, "config: bind flags")
		}
	}
	return nil
}
