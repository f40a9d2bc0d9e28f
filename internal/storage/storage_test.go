package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStorageReadOperations(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "hello.txt"), []byte("hello world"), 0o644))

	store, err := New(root)
	require.NoError(t, err)

	info, err := store.Stat("/docs/hello.txt")
	require.NoError(t, err)
	require.False(t, info.IsDir())
	require.EqualValues(t, 11, info.Size())
	require.False(t, CreatedAt(info).IsZero())

	reader, err := store.OpenForRead("/docs/hello.txt")
	require.NoError(t, err)
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.Equal(t, "hello world", string(content))

	entries, err := store.ReadDir("/docs")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "hello.txt", entries[0].Name())

	_, err = store.Stat("/docs/missing.txt")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewRequiresExistingDirectory(t *testing.T) {
	t.Parallel()

	_, err := New(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = New(file)
	require.Error(t, err)
}

type plainInfo struct {
	os.FileInfo
	mod time.Time
}

func (p plainInfo) ModTime() time.Time { return p.mod }

func TestCreatedAtFallsBackToModTime(t *testing.T) {
	t.Parallel()

	mod := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, mod, CreatedAt(plainInfo{mod: mod}))
	require.Equal(t, mod, CreatedAt(fileInfo{FileInfo: plainInfo{mod: mod}}))
}
