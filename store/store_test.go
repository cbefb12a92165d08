package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// keep scrypt cheap in tests
	ScryptN = 1 << 10
}

func testKVStore(t *testing.T, s KVStore) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "nullchat-identity", []byte("first")))
	got, ok, err := s.Get(ctx, "nullchat-identity")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("first"), got)

	require.NoError(t, s.Set(ctx, "nullchat-identity", []byte("second")))
	got, _, err = s.Get(ctx, "nullchat-identity")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	for _, bad := range []string{"", "..", "a/b", `a\b`} {
		assert.ErrorIs(t, s.Set(ctx, bad, []byte("x")), ErrInvalidName, bad)
	}
}

func TestMemoryStore(t *testing.T) {
	testKVStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	testKVStore(t, s)

	info, err := os.Stat(filepath.Join(dir, "nullchat-identity"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestEncryptedStore(t *testing.T) {
	testKVStore(t, NewEncrypted(NewMemoryStore(), "correct horse"))
}

func TestEncryptedStoreHidesPlaintext(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	s := NewEncrypted(inner, "correct horse")

	require.NoError(t, s.Set(ctx, "k", []byte("very secret value")))
	raw, ok, err := inner.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, string(raw), "very secret value")
}

func TestEncryptedStoreWrongPassphrase(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	require.NoError(t, NewEncrypted(inner, "right").Set(ctx, "k", []byte("v")))

	_, ok, err := NewEncrypted(inner, "wrong").Get(ctx, "k")
	assert.ErrorIs(t, err, ErrWrongPassphrase)
	assert.False(t, ok)
}

func TestEncryptedStoreBindsKeyName(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	s := NewEncrypted(inner, "pw")
	require.NoError(t, s.Set(ctx, "a", []byte("v")))

	raw, _, err := inner.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, inner.Set(ctx, "b", raw))

	_, _, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("NULLCHAT_TEST_REDIS")
	if addr == "" {
		t.Skip("NULLCHAT_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	testKVStore(t, NewRedisStore(client))
}
