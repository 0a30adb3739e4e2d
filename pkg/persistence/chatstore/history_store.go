package chatstore

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/lexflow/pkg/chat"
	"github.com/go-go-golems/lexflow/pkg/persistence/kvstore"
)

// DefaultHistoryLimit is how many messages a session keeps on disk.
const DefaultHistoryLimit = 100

// HistoryKey is the storage key of a session's message log.
func HistoryKey(sessionID string) string {
	return "lexflow_history_" + strings.TrimSpace(sessionID)
}

// HistoryStore persists one message log per session in a kvstore.Store,
// serialized as a JSON array and capped to the most recent Limit entries.
type HistoryStore struct {
	kv    kvstore.Store
	limit int
}

func NewHistoryStore(kv kvstore.Store, limit int) *HistoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryStore{kv: kv, limit: limit}
}

func (s *HistoryStore) Limit() int {
	if s == nil {
		return DefaultHistoryLimit
	}
	return s.limit
}

// Load returns the stored log for sessionID, truncated to the limit.
// found is false when nothing was stored. A corrupt payload yields an error.
func (s *HistoryStore) Load(ctx context.Context, sessionID string) (messages []chat.Message, found bool, err error) {
	if s == nil || s.kv == nil {
		return nil, false, errors.New("history store: kv store is nil")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, false, errors.New("history store: sessionID is empty")
	}
	raw, ok, err := s.kv.Get(ctx, HistoryKey(sessionID))
	if err != nil {
		return nil, false, errors.Wrap(err, "history store: load")
	}
	if !ok {
		return nil, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, true, errors.Wrap(err, "history store: decode")
	}
	return chat.TailOf(messages, s.limit), true, nil
}

// Save stores the most recent Limit messages for sessionID.
func (s *HistoryStore) Save(ctx context.Context, sessionID string, messages []chat.Message) error {
	if s == nil || s.kv == nil {
		return errors.New("history store: kv store is nil")
	}
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("history store: sessionID is empty")
	}
	tail := chat.TailOf(messages, s.limit)
	if tail == nil {
		tail = []chat.Message{}
	}
	b, err := json.Marshal(tail)
	if err != nil {
		return errors.Wrap(err, "history store: encode")
	}
	return errors.Wrap(s.kv.Set(ctx, HistoryKey(sessionID), string(b)), "history store: save")
}

// Clear removes the stored log for sessionID.
func (s *HistoryStore) Clear(ctx context.Context, sessionID string) error {
	if s == nil || s.kv == nil {
		return errors.New("history store: kv store is nil")
	}
	return errors.Wrap(s.kv.Delete(ctx, HistoryKey(sessionID)), "history store: clear")
}
