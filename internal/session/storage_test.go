package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/pkg/db"
)

func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "customer_token")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "customer_token", "abc"))
	require.NoError(t, s.Set(ctx, "customer_token", "def"))
	require.NoError(t, s.Set(ctx, "customerId", "42"))

	v, ok, err := s.Get(ctx, "customer_token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "def", v)

	require.NoError(t, s.Delete(ctx, "customer_token", "customerId", "missing"))
	_, ok, err = s.Get(ctx, "customerId")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, s.Delete(ctx))
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestGormStorageSQLite(t *testing.T) {
	gdb, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	s, err := NewGormStorage(gdb)
	require.NoError(t, err)
	exerciseStorage(t, s)
}

func TestRedisStorage(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s := NewRedisStorage(addr)
	defer s.Close()
	exerciseStorage(t, s)
}

func TestSealedStorage(t *testing.T) {
	inner := NewMemoryStorage()
	exerciseStorage(t, NewSealedStorage(inner, []byte("k1")))

	ctx := context.Background()
	sealed := NewSealedStorage(inner, []byte("k1"))
	require.NoError(t, sealed.Set(ctx, "token", "secret-token"))

	raw, ok, err := inner.Get(ctx, "token")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotContains(t, raw, "secret-token")

	_, _, err = NewSealedStorage(inner, []byte("k2")).Get(ctx, "token")
	require.ErrorIs(t, err, ErrSealed)
}

func TestRestoreClearsUnreadableSealedValue(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStorage()
	require.NoError(t, NewSealedStorage(inner, []byte("old")).Set(ctx, "token", "x"))

	s := newStore("ADMIN", AdminKeys, NewSealedStorage(inner, []byte("new")), nil)
	require.NoError(t, s.Restore(ctx))
	require.False(t, s.IsAuthenticated())
	_, ok, _ := inner.Get(ctx, "token")
	require.False(t, ok)
}
