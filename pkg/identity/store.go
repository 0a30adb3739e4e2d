package identity

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/lexflow/pkg/persistence/kvstore"
)

const (
	VisitorKey       = "visitor_id"
	LegacyVisitorKey = "lexflow_visitor_id"

	// DefaultInactivity is how long a session survives without activity.
	DefaultInactivity = 30 * time.Minute
)

func SessionKey(clientID string) string {
	return "lexflow_session_id_" + strings.TrimSpace(clientID)
}

func LastActivityKey(clientID string) string {
	return "lexflow_last_activity_" + strings.TrimSpace(clientID)
}

// Store resolves the long-lived visitor id and the per-conversation session
// id of one tenant. Storage errors are logged and never surface: resolution
// always yields a usable id.
type Store struct {
	kv         kvstore.Store
	clientID   string
	ids        IDGenerator
	now        func() time.Time
	inactivity time.Duration
}

type Option func(*Store)

func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithInactivity(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.inactivity = d
		}
	}
}

func NewStore(kv kvstore.Store, clientID string, opts ...Option) *Store {
	s := &Store{
		kv:         kv,
		clientID:   strings.TrimSpace(clientID),
		ids:        UUIDGenerator{},
		now:        time.Now,
		inactivity: DefaultInactivity,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// VisitorID returns the visitor id, migrating the legacy key forward and
// generating a new id when neither key holds a valid one.
func (s *Store) VisitorID(ctx context.Context) string {
	if vid, ok := s.get(ctx, VisitorKey); ok && IsValidID(vid) {
		return strings.TrimSpace(vid)
	}
	if legacy, ok := s.get(ctx, LegacyVisitorKey); ok && IsValidID(legacy) {
		legacy = strings.TrimSpace(legacy)
		s.set(ctx, VisitorKey, legacy)
		log.Debug().Str("visitor_id", legacy).Msg("migrated legacy visitor id")
		return legacy
	}
	vid := s.ids.NewID()
	s.set(ctx, VisitorKey, vid)
	return vid
}

// SessionID returns external when it is non-empty, without touching the
// store. Otherwise it returns the persisted session id, rotating it when the
// last activity is missing or older than the inactivity threshold, and stamps
// the current time as last activity.
func (s *Store) SessionID(ctx context.Context, external string) string {
	if external = strings.TrimSpace(external); external != "" {
		return external
	}
	now := s.now()
	sid, ok := s.get(ctx, SessionKey(s.clientID))
	sid = strings.TrimSpace(sid)
	if !ok || sid == "" || s.expired(ctx, now) {
		sid = s.ids.NewID()
		s.set(ctx, SessionKey(s.clientID), sid)
		log.Debug().Str("client_id", s.clientID).Str("session_id", sid).Msg("started new session")
	}
	s.stamp(ctx, now)
	return sid
}

// Touch records activity now so the current session does not rotate.
func (s *Store) Touch(ctx context.Context) {
	s.stamp(ctx, s.now())
}

// Forget drops the persisted session id and its activity stamp.
func (s *Store) Forget(ctx context.Context) {
	if s == nil || s.kv == nil {
		return
	}
	for _, k := range []string{SessionKey(s.clientID), LastActivityKey(s.clientID)} {
		if err := s.kv.Delete(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("failed to delete identity key")
		}
	}
}

func (s *Store) expired(ctx context.Context, now time.Time) bool {
	raw, ok := s.get(ctx, LastActivityKey(s.clientID))
	if !ok {
		return true
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return true
	}
	return now.Sub(time.UnixMilli(ms)) > s.inactivity
}

func (s *Store) stamp(ctx context.Context, now time.Time) {
	s.set(ctx, LastActivityKey(s.clientID), strconv.FormatInt(now.UnixMilli(), 10))
}

func (s *Store) get(ctx context.Context, key string) (string, bool) {
	if s == nil || s.kv == nil {
		return "", false
	}
	v, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to read identity key")
		return "", false
	}
	return v, ok
}

func (s *Store) set(ctx context.Context, key, value string) {
	if s == nil || s.kv == nil {
		return
	}
	if err := s.kv.Set(ctx, key, value); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to persist identity key")
	}
}
