package tokenfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/holeportal/internal/session"
)

var _ session.Storage = (*Store)(nil)

func TestNew(t *testing.T) {
	t.Run("creates directory with correct permissions", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "portal")

		store, err := New(dir)
		require.NoError(t, err)
		assert.NotNil(t, store)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})

	t.Run("empty directory loads no token", func(t *testing.T) {
		store, err := New(t.TempDir())
		require.NoError(t, err)

		token, err := store.Load()
		require.NoError(t, err)
		assert.Empty(t, token)
	})
}

func TestStore_SaveLoadClear(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save("T1"))

	info, err := os.Stat(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// a new store over the same directory sees the token
	reopened, err := New(dir)
	require.NoError(t, err)
	token, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, "T1", token)

	f, err := reopened.Read()
	require.NoError(t, err)
	assert.Equal(t, 1, f.Version)
	assert.False(t, f.UpdatedAt.IsZero())

	require.NoError(t, store.Save("T2"))
	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "T2", token)

	require.NoError(t, store.Clear())
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	// clearing twice is fine
	require.NoError(t, store.Clear())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_CorruptFile(t *testing.T) {
	t.Run("checksum mismatch", func(t *testing.T) {
		dir := t.TempDir()
		store, err := New(dir)
		require.NoError(t, err)
		require.NoError(t, store.Save("T1"))

		f, err := store.Read()
		require.NoError(t, err)
		f.Token = "tampered"
		data, err := json.Marshal(f)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(store.Path(), data, 0600))

		_, err = store.Read()
		require.ErrorIs(t, err, ErrCorruptFile)

		token, err := store.Load()
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("garbage", func(t *testing.T) {
		store, err := New(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0600))

		token, err := store.Load()
		require.NoError(t, err)
		assert.Empty(t, token)
	})
}

func TestStore_WithSessionStore(t *testing.T) {
	dir := t.TempDir()
	files, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, files.Save("T1"))

	sess, err := session.New(files)
	require.NoError(t, err)
	sess.Init()
	assert.True(t, sess.IsAuthenticated())
	assert.Equal(t, "Bearer T1", sess.Header().Get("Authorization"))

	sess.Logout()
	_, err = os.Stat(files.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestFingerprint(t *testing.T) {
	assert.Empty(t, Fingerprint(""))

	a := Fingerprint("T1")
	assert.NotEmpty(t, a)
	assert.Equal(t, a, Fingerprint("T1"))
	assert.NotEqual(t, a, Fingerprint("T2"))
}
