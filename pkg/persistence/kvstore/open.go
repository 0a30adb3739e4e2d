package kvstore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Settings selects and configures a backend.
type Settings struct {
	Backend     string
	SQLitePath  string
	SQLiteDSN   string
	RedisAddr   string
	RedisPrefix string
}

// Open builds the store described by settings. An empty backend means memory.
func Open(settings Settings) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(settings.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		dsn := strings.TrimSpace(settings.SQLiteDSN)
		if dsn == "" {
			path := strings.TrimSpace(settings.SQLitePath)
			if dir := filepath.Dir(path); dir != "" && dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, errors.Wrap(err, "create kv db dir")
				}
			}
			var err error
			dsn, err = SQLiteDSNForFile(path)
			if err != nil {
				return nil, err
			}
		}
		return NewSQLiteStore(dsn)
	case BackendRedis:
		return NewRedisStore(settings.RedisAddr, settings.RedisPrefix)
	default:
		return nil, errors.Errorf("unknown kv backend %q", settings.Backend)
	}
}
