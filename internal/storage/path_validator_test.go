package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"go-file-browser/internal/model"
)

func TestPathValidatorResolvePath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	validator, err := NewPathValidator(root)
	require.NoError(t, err)

	t.Run("root path resolves to root", func(t *testing.T) {
		for _, input := range []string{"", "/", "."} {
			resolved, resolveErr := validator.ResolvePath(input)
			require.NoError(t, resolveErr)
			require.Equal(t, validator.RootAbs(), resolved)
		}
	})

	t.Run("normal path resolves inside root", func(t *testing.T) {
		resolved, resolveErr := validator.ResolvePath("/documents/report.txt")
		require.NoError(t, resolveErr)
		require.Equal(t, filepath.Join(validator.RootAbs(), "documents", "report.txt"), resolved)
	})

	t.Run("backslash is a separator only on windows", func(t *testing.T) {
		resolved, resolveErr := validator.ResolvePath(`documents\photo.jpg`)
		require.NoError(t, resolveErr)

		if runtime.GOOS == "windows" {
			require.Equal(t, filepath.Join(validator.RootAbs(), "documents", "photo.jpg"), resolved)
			return
		}
		require.Equal(t, filepath.Join(validator.RootAbs(), `documents\photo.jpg`), resolved)
	})

	t.Run("absolute paths are rooted at the data root", func(t *testing.T) {
		resolved, resolveErr := validator.ResolvePath("/etc/passwd")
		require.NoError(t, resolveErr)
		require.Equal(t, filepath.Join(validator.RootAbs(), "etc", "passwd"), resolved)
	})

	t.Run("dot dot segments are rejected", func(t *testing.T) {
		for _, input := range []string{
			"..",
			"../outside",
			"/documents/../secrets.txt",
			"a/b/../../..",
		} {
			resolved, resolveErr := validator.ResolvePath(input)
			require.ErrorIs(t, resolveErr, model.ErrPathTraversal, input)
			require.Empty(t, resolved)
		}
	})

	t.Run("names keep control characters and spaces", func(t *testing.T) {
		for _, name := range []string{"bad\nname.txt", "tab\there.txt", " lead.txt", "trail.txt "} {
			resolved, resolveErr := validator.ResolvePath("/documents/" + name)
			require.NoError(t, resolveErr, name)
			require.Equal(t, filepath.Join(validator.RootAbs(), "documents", name), resolved, name)
		}
	})

	t.Run("null bytes are rejected", func(t *testing.T) {
		_, resolveErr := validator.ResolvePath("documents\x00/report.txt")
		require.ErrorIs(t, resolveErr, model.ErrInvalidInput)
	})

	t.Run("within root check is platform-aware", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			require.True(t, isWithinRoot(`C:\Storage\Root`, `c:\storage\root\folder\file.txt`))
			return
		}

		require.False(t, isWithinRoot(`/tmp/Root`, `/tmp/root/folder/file.txt`))
		require.False(t, isWithinRoot(`/tmp/root`, `/tmp/rootless/file.txt`))
		require.True(t, isWithinRoot(`/tmp/root`, `/tmp/root/file.txt`))
	})
}

func TestPathValidatorSymlinks(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}

	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "inside.txt"), []byte("inside"), 0o644))

	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "secret-link")))
	require.NoError(t, os.Symlink(filepath.Join(root, "docs", "inside.txt"), filepath.Join(root, "inside-link")))

	validator, err := NewPathValidator(root)
	require.NoError(t, err)

	t.Run("directory symlink out of root is rejected", func(t *testing.T) {
		_, resolveErr := validator.ResolvePath("escape")
		require.ErrorIs(t, resolveErr, model.ErrPathTraversal)

		_, resolveErr = validator.ResolvePath("escape/secret.txt")
		require.ErrorIs(t, resolveErr, model.ErrPathTraversal)
	})

	t.Run("file symlink out of root is rejected", func(t *testing.T) {
		_, resolveErr := validator.ResolvePath("secret-link")
		require.ErrorIs(t, resolveErr, model.ErrPathTraversal)
	})

	t.Run("symlink inside root is allowed", func(t *testing.T) {
		resolved, resolveErr := validator.ResolvePath("inside-link")
		require.NoError(t, resolveErr)
		require.Equal(t, filepath.Join(validator.RootAbs(), "inside-link"), resolved)
	})

	t.Run("missing path resolves lexically", func(t *testing.T) {
		resolved, resolveErr := validator.ResolvePath("docs/missing.txt")
		require.NoError(t, resolveErr)
		require.True(t, strings.HasPrefix(resolved, validator.RootAbs()))
	})
}

func TestNewPathValidator(t *testing.T) {
	t.Parallel()

	_, err := NewPathValidator("  ")
	require.Error(t, err)

	_, err = NewPathValidator(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
