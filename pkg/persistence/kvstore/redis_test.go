package kvstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_SetGetDelete(t *testing.T) {
	addr := os.Getenv("LEXFLOW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LEXFLOW_TEST_REDIS_ADDR not set")
	}
	s, err := NewRedisStore(addr, "lexflow-test:"+uuid.NewString()+":")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	_, ok, err := s.Get(ctx, "visitor_id")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "visitor_id", "v"))
	v, ok, err := s.Get(ctx, "visitor_id")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	require.NoError(t, s.Delete(ctx, "visitor_id"))
	_, ok, err = s.Get(ctx, "visitor_id")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewRedisStore_EmptyAddr(t *testing.T) {
	_, err := NewRedisStore("", "")
	require.Error(t, err)
}
