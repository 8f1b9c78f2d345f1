package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCredentialRepository(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := NewFileCredentialRepository(dir)

	// 未設定の場合は空文字
	key, err := repo.GetManualKey(ctx)
	require.NoError(t, err)
	assert.Empty(t, key)

	require.NoError(t, repo.SetManualKey(ctx, "AIzaSy-manual-key-0123456789"))

	key, err = repo.GetManualKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AIzaSy-manual-key-0123456789", key)

	info, err := os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// 別インスタンスからも読める
	key, err = NewFileCredentialRepository(dir).GetManualKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AIzaSy-manual-key-0123456789", key)

	require.NoError(t, repo.ClearManualKey(ctx))
	key, err = repo.GetManualKey(ctx)
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestFileCredentialRepository_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o600))

	_, err := NewFileCredentialRepository(dir).GetManualKey(context.Background())
	assert.Error(t, err)
}

func TestFileCredentialRepository_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewFileCredentialRepository(t.TempDir())
	assert.ErrorIs(t, repo.SetManualKey(ctx, "whatever"), context.Canceled)
}
