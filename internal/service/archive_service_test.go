package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-file-browser/internal/model"
	"go-file-browser/internal/storage"
	"go-file-browser/pkg/apierror"
)

func newArchiveFixture(t *testing.T) (*ArchiveService, string) {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("abc"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("bbbbb"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "c.txt"), []byte("c"), 0o644))

	store, err := storage.New(root)
	require.NoError(t, err)

	return NewArchiveService(store, 0), root
}

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		// Names with a backslash are flagged under GODEBUG=zipinsecurepath=0;
		// the reader is still usable.
		require.ErrorIs(t, err, zip.ErrInsecurePath)
	}

	files := make(map[string]string)
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			files[file.Name] = ""
			continue
		}

		rc, err := file.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		files[file.Name] = string(content)
	}

	return files
}

func TestArchiveService_StreamArchive(t *testing.T) {
	svc, root := newArchiveFixture(t)

	t.Run("round trip keeps only the selection", func(t *testing.T) {
		var out bytes.Buffer
		stats, err := svc.StreamArchive(context.Background(), "/", []string{"sub", "a.txt"}, &out)
		require.NoError(t, err)

		assert.Equal(t, map[string]string{
			"a.txt":     "abc",
			"sub/":      "",
			"sub/c.txt": "c",
		}, readArchive(t, out.Bytes()))
		assert.Equal(t, 2, stats.Files)
		assert.Equal(t, 1, stats.Directories)
		assert.Equal(t, int64(4), stats.Bytes)
		assert.Equal(t, 0, stats.Skipped)
	})

	t.Run("entries follow selection name order", func(t *testing.T) {
		var out bytes.Buffer
		_, err := svc.StreamArchive(context.Background(), "", []string{"sub", "b.txt", "a.txt", "a.txt"}, &out)
		require.NoError(t, err)

		reader, err := zip.NewReader(bytes.NewReader(out.Bytes()), int64(out.Len()))
		require.NoError(t, err)

		names := make([]string, 0, len(reader.File))
		for _, file := range reader.File {
			names = append(names, file.Name)
		}
		assert.Equal(t, []string{"a.txt", "b.txt", "sub/", "sub/c.txt"}, names)
	})

	t.Run("archive of a subdirectory", func(t *testing.T) {
		var out bytes.Buffer
		_, err := svc.StreamArchive(context.Background(), "/sub", []string{"c.txt"}, &out)
		require.NoError(t, err)

		assert.Equal(t, map[string]string{"c.txt": "c"}, readArchive(t, out.Bytes()))
	})

	t.Run("unknown name fails before any output", func(t *testing.T) {
		var out bytes.Buffer
		_, err := svc.StreamArchive(context.Background(), "/", []string{"a.txt", "nope.txt"}, &out)

		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrNotFound)
		assert.Zero(t, out.Len())
	})

	t.Run("a backslash is part of the name outside windows", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("backslash is the path separator on windows")
		}

		var out bytes.Buffer
		_, err := svc.StreamArchive(context.Background(), "/", []string{`sub\c.txt`}, &out)

		assert.ErrorIs(t, err, model.ErrNotFound)
		assert.Zero(t, out.Len())
	})

	t.Run("names that are not immediate children are rejected", func(t *testing.T) {
		for _, name := range []string{"..", ".", "sub/c.txt", "../a.txt"} {
			var out bytes.Buffer
			_, err := svc.StreamArchive(context.Background(), "/", []string{name}, &out)

			require.Error(t, err, name)
			assert.ErrorIs(t, err, model.ErrPathTraversal, name)
			assert.Zero(t, out.Len(), name)
		}
	})

	t.Run("empty selection is invalid input", func(t *testing.T) {
		var out bytes.Buffer
		_, err := svc.StreamArchive(context.Background(), "/", nil, &out)

		assert.ErrorIs(t, err, model.ErrInvalidInput)
		assert.Zero(t, out.Len())

		_, err = svc.StreamArchive(context.Background(), "/", []string{""}, &out)
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("base must be a directory", func(t *testing.T) {
		_, err := svc.StreamArchive(context.Background(), "/a.txt", []string{"x"}, io.Discard)
		assert.ErrorIs(t, err, model.ErrNotDirectory)
	})

	t.Run("symlinks below a selected directory are skipped", func(t *testing.T) {
		link := filepath.Join(root, "sub", "loop")
		if err := os.Symlink(filepath.Join(root, "sub"), link); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}
		t.Cleanup(func() { _ = os.Remove(link) })

		var out bytes.Buffer
		stats, err := svc.StreamArchive(context.Background(), "/", []string{"sub"}, &out)
		require.NoError(t, err)

		assert.Equal(t, map[string]string{"sub/": "", "sub/c.txt": "c"}, readArchive(t, out.Bytes()))
		assert.Equal(t, 1, stats.Skipped)
	})
}

func TestArchivePlan_Filename(t *testing.T) {
	svc, _ := newArchiveFixture(t)

	plan, err := svc.Prepare(context.Background(), "/", []string{"a.txt"})
	require.NoError(t, err)
	assert.Equal(t, "archive.zip", plan.Filename)

	plan, err = svc.Prepare(context.Background(), "/sub", []string{"c.txt"})
	require.NoError(t, err)
	assert.Equal(t, "sub.zip", plan.Filename)
	assert.Equal(t, []string{"c.txt"}, plan.Names())
}

type failingSink struct {
	writes int
}

func (s *failingSink) Write(_ []byte) (int, error) {
	s.writes++
	return 0, errors.New("connection reset by peer")
}

func TestArchivePlan_Stream_SinkFailureStopsTheWalk(t *testing.T) {
	svc, root := newArchiveFixture(t)
	for _, name := range []string{"d1.txt", "d2.txt", "d3.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), bytes.Repeat([]byte("x"), 64*1024), 0o644))
	}

	sink := &failingSink{}
	stats, err := svc.StreamArchive(context.Background(), "/", []string{"d1.txt", "d2.txt", "d3.txt"}, sink)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSinkWrite)
	assert.Equal(t, 1, sink.writes)
	assert.LessOrEqual(t, stats.Files, 1)
}

func TestArchivePlan_Stream_CancelledContext(t *testing.T) {
	svc, _ := newArchiveFixture(t)

	plan, err := svc.Prepare(context.Background(), "/", []string{"a.txt", "sub"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	stats, err := plan.Stream(ctx, &out)

	assert.ErrorIs(t, err, model.ErrSinkWrite)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Files)
}

func TestArchivePlan_Stream_SkipsEntriesThatVanish(t *testing.T) {
	root := t.TempDir()
	keptPath := filepath.Join(root, "kept.txt")
	require.NoError(t, os.WriteFile(keptPath, []byte("still here"), 0o644))

	mockStore := new(storage.MockStorage)
	svc := NewArchiveService(mockStore, 4)

	mockStore.On("Stat", "/").Return(fakeFileInfo{name: "/", mode: fs.ModeDir | 0o755}, nil)
	mockStore.On("ReadDir", "/").Return([]fs.DirEntry{
		fakeDirEntry{name: "gone.txt"},
		fakeDirEntry{name: "kept.txt"},
	}, nil)
	mockStore.On("Resolve", "/gone.txt").Return(filepath.Join(root, "gone.txt"), nil)
	mockStore.On("Resolve", "/kept.txt").Return(keptPath, nil)

	plan, err := svc.Prepare(context.Background(), "/", []string{"gone.txt", "kept.txt"})
	require.NoError(t, err)

	keptInfo, err := os.Stat(keptPath)
	require.NoError(t, err)
	keptFile, err := os.Open(keptPath)
	require.NoError(t, err)

	mockStore.On("Stat", "/gone.txt").Return(nil, os.ErrNotExist)
	mockStore.On("Stat", "/kept.txt").Return(keptInfo, nil)
	mockStore.On("OpenForRead", "/kept.txt").Return(keptFile, nil)

	var out bytes.Buffer
	stats, err := plan.Stream(context.Background(), &out)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"kept.txt": "still here"}, readArchive(t, out.Bytes()))
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Files)
	mockStore.AssertExpectations(t)
}

func TestArchivePlan_Stream_ReadFailureMidEntry(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "broken.bin")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	info, err := os.Stat(path)
	require.NoError(t, err)

	// A write-only handle stats fine but fails on the first read.
	writeOnly, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)

	mockStore := new(storage.MockStorage)
	svc := NewArchiveService(mockStore, 0)

	mockStore.On("Stat", "/").Return(fakeFileInfo{name: "/", mode: fs.ModeDir | 0o755}, nil)
	mockStore.On("ReadDir", "/").Return([]fs.DirEntry{fakeDirEntry{name: "broken.bin"}}, nil)
	mockStore.On("Resolve", "/broken.bin").Return(path, nil)
	mockStore.On("Stat", "/broken.bin").Return(info, nil)
	mockStore.On("OpenForRead", "/broken.bin").Return(writeOnly, nil)

	var out bytes.Buffer
	_, err = svc.StreamArchive(context.Background(), "/", []string{"broken.bin"}, &out)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrIO)
	assert.NotErrorIs(t, err, model.ErrSinkWrite)
}

type countingSink struct {
	n int64
}

func (s *countingSink) Write(p []byte) (int, error) {
	s.n += int64(len(p))
	return len(p), nil
}

func TestArchivePlan_Stream_LargeFileMemoryIsBounded(t *testing.T) {
	if testing.Short() {
		t.Skip("streams a 1 GiB sparse file")
	}

	root := t.TempDir()
	file, err := os.Create(filepath.Join(root, "huge.bin"))
	require.NoError(t, err)
	require.NoError(t, file.Truncate(1<<30))
	require.NoError(t, file.Close())

	store, err := storage.New(root)
	require.NoError(t, err)
	svc := NewArchiveService(store, 0)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	sink := &countingSink{}
	stats, err := svc.StreamArchive(context.Background(), "/", []string{"huge.bin"}, sink)
	require.NoError(t, err)

	runtime.ReadMemStats(&after)

	assert.Equal(t, int64(1<<30), stats.Bytes)
	assert.Positive(t, sink.n)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(64<<20))
}

func TestArchiveService_StreamArchive_VerbatimNames(t *testing.T) {
	root := newVerbatimNamesTree(t)
	store, err := storage.New(root)
	require.NoError(t, err)
	svc := NewArchiveService(store, 0)

	t.Run("directory walk keeps every name and its own content", func(t *testing.T) {
		var out bytes.Buffer
		stats, err := svc.StreamArchive(context.Background(), "/", []string{"sub"}, &out)
		require.NoError(t, err)

		assert.Equal(t, map[string]string{
			"sub/":              "",
			"sub/ lead.txt":     "lead",
			"sub/a/":            "",
			"sub/a/b":           "other file content",
			"sub/a.txt":         "abc",
			"sub/a\\b":          "x",
			"sub/bad\nname.txt": "newline",
			"sub/tab\there.txt": "tab",
			"sub/trail.txt ":    "trail",
		}, readArchive(t, out.Bytes()))
		assert.Equal(t, 7, stats.Files)
		assert.Equal(t, 2, stats.Directories)
		assert.Zero(t, stats.Skipped)
	})

	t.Run("such names can be selected directly", func(t *testing.T) {
		var out bytes.Buffer
		_, err := svc.StreamArchive(context.Background(), "/sub", []string{"a\\b", "bad\nname.txt", "trail.txt "}, &out)
		require.NoError(t, err)

		assert.Equal(t, map[string]string{
			"a\\b":          "x",
			"bad\nname.txt": "newline",
			"trail.txt ":    "trail",
		}, readArchive(t, out.Bytes()))
	})
}

func TestArchivePlan_Stream_SkipsChildrenTheResolverRejects(t *testing.T) {
	root := t.TempDir()
	keptPath := filepath.Join(root, "kept.txt")
	require.NoError(t, os.WriteFile(keptPath, []byte("kept"), 0o644))
	keptInfo, err := os.Stat(keptPath)
	require.NoError(t, err)
	keptFile, err := os.Open(keptPath)
	require.NoError(t, err)

	mockStore := new(storage.MockStorage)
	svc := NewArchiveService(mockStore, 0)

	rejected := apierror.Wrap(model.ErrInvalidInput, "INVALID_PATH", "path contains null bytes", "/odd", http.StatusBadRequest)
	mockStore.On("Stat", "/").Return(fakeFileInfo{name: "/", mode: fs.ModeDir | 0o755}, nil)
	mockStore.On("ReadDir", "/").Return([]fs.DirEntry{
		fakeDirEntry{name: "kept.txt"},
		fakeDirEntry{name: "odd"},
	}, nil)
	mockStore.On("Resolve", "/kept.txt").Return(keptPath, nil)
	mockStore.On("Resolve", "/odd").Return(filepath.Join(root, "odd"), nil)
	mockStore.On("Stat", "/kept.txt").Return(keptInfo, nil)
	mockStore.On("OpenForRead", "/kept.txt").Return(keptFile, nil)
	mockStore.On("Stat", "/odd").Return(nil, rejected)

	var out bytes.Buffer
	stats, err := svc.StreamArchive(context.Background(), "/", []string{"odd", "kept.txt"}, &out)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"kept.txt": "kept"}, readArchive(t, out.Bytes()))
	assert.Equal(t, 1, stats.Skipped)
	mockStore.AssertExpectations(t)
}
