package chatstore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/lexflow/pkg/chat"
	"github.com/go-go-golems/lexflow/pkg/persistence/kvstore"
)

func makeMessages(n int) []chat.Message {
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	out := make([]chat.Message, 0, n)
	for i := 0; i < n; i++ {
		m := chat.NewUserMessage(fmt.Sprintf("id-%d", i), fmt.Sprintf("m%d", i), nil, base.Add(time.Duration(i)*time.Second))
		out = append(out, m)
	}
	return out
}

func TestHistoryStore_SaveCapsToMostRecent(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	s := NewHistoryStore(kv, 0)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "s1", makeMessages(150)))

	got, found, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, DefaultHistoryLimit)
	require.Equal(t, "m50", got[0].Text)
	require.Equal(t, "m149", got[99].Text)
	for i := 1; i < len(got); i++ {
		require.True(t, got[i].Timestamp.After(got[i-1].Timestamp))
	}
}

func TestHistoryStore_LoadTruncatesOversizedPayload(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, NewHistoryStore(kv, 500).Save(ctx, "s1", makeMessages(120)))

	got, _, err := NewHistoryStore(kv, 100).Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 100)
	require.Equal(t, "m20", got[0].Text)
}

func TestHistoryStore_RestoresTimestamps(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	s := NewHistoryStore(kv, 10)
	ctx := context.Background()
	in := makeMessages(2)
	require.NoError(t, s.Save(ctx, "s1", in))

	got, _, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, in[1].Timestamp.Equal(got[1].Timestamp))
	require.Equal(t, chat.SenderUser, got[1].Sender)
}

func TestHistoryStore_MissingAndCorrupt(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	s := NewHistoryStore(kv, 10)
	ctx := context.Background()

	got, found, err := s.Load(ctx, "nope")
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, got)

	require.NoError(t, kv.Set(ctx, HistoryKey("bad"), "{not json"))
	_, found, err = s.Load(ctx, "bad")
	require.Error(t, err)
	require.True(t, found)
}

func TestHistoryStore_Clear(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	s := NewHistoryStore(kv, 10)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "s1", makeMessages(3)))
	require.NoError(t, s.Clear(ctx, "s1"))
	_, found, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestHistoryStore_SQLiteBackend(t *testing.T) {
	dsn, err := kvstore.SQLiteDSNForFile(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	kv, err := kvstore.NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	s := NewHistoryStore(kv, 5)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "s1", makeMessages(8)))
	got, found, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 5)
	require.Equal(t, "m3", got[0].Text)
}
