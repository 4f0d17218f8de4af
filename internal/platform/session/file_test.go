package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "sessions")
	fs, err := NewFileStorage(dir)
	require.NoError(t, err)

	_, err = fs.Load(ctx, "cli")
	assert.ErrorIs(t, err, ErrNotFound)

	rec := Record{User: testUser, Tokens: testTokens}
	require.NoError(t, fs.Save(ctx, "cli", rec))

	got, err := fs.Load(ctx, "cli")
	require.NoError(t, err)
	assert.Equal(t, rec.User, got.User)
	assert.Equal(t, rec.Tokens, got.Tokens)

	info, err := os.Stat(fs.path("cli"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, fs.Delete(ctx, "cli"))
	require.NoError(t, fs.Delete(ctx, "cli"), "deleting a missing record is not an error")
	_, err = fs.Load(ctx, "cli")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStorage_KeyIsEscaped(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, fs.dir, filepath.Dir(fs.path("user:../../etc/passwd")))
}

func TestFileStorage_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, fs.Save(ctx, "a", Record{User: testUser, Tokens: testTokens}))
	require.NoError(t, fs.Save(ctx, "a", Record{User: testUser, Tokens: testTokens}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_RehydratesAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fs1, err := NewFileStorage(dir)
	require.NoError(t, err)
	s1, err := Open(ctx, fs1, "cli")
	require.NoError(t, err)
	require.NoError(t, s1.Login(ctx, testTokens, testUser))

	fs2, err := NewFileStorage(dir)
	require.NoError(t, err)
	s2, err := Open(ctx, fs2, "cli")
	require.NoError(t, err)
	assert.True(t, s2.State().IsAuthenticated)
	assert.Equal(t, testUser.ID, s2.State().UserID())

	require.NoError(t, s2.Logout(ctx))
	s3, err := Open(ctx, fs1, "cli")
	require.NoError(t, err)
	assert.False(t, s3.State().IsAuthenticated)
}
