package service

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sort"

	"go-file-browser/internal/metrics"
	"go-file-browser/internal/model"
	"go-file-browser/internal/storage"
	"go-file-browser/internal/util"
	"go-file-browser/pkg/apierror"
)

const defaultChunkSize = 32 * 1024

// ArchiveService streams zip archives of a selection of directory children.
type ArchiveService struct {
	store     storage.Storage
	chunkSize int
}

func NewArchiveService(store storage.Storage, chunkSize int) *ArchiveService {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	return &ArchiveService{store: store, chunkSize: chunkSize}
}

// ArchivePlan is a validated selection, ready to be streamed once.
type ArchivePlan struct {
	service  *ArchiveService
	dirPath  string
	names    []string
	Filename string
}

func (p *ArchivePlan) Names() []string {
	return append([]string(nil), p.names...)
}

// Prepare validates every selected name against the current contents of
// dirPath. Nothing is written anywhere, so a bad selection can still be
// answered with a normal error response.
func (s *ArchiveService) Prepare(_ context.Context, dirPath string, names []string) (*ArchivePlan, error) {
	current := util.NormalizeClientPath(dirPath)

	selection := uniqueSorted(names)
	if len(selection) == 0 {
		return nil, apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", "at least one name must be selected", "name", http.StatusBadRequest)
	}

	for _, name := range selection {
		if err := util.ValidateEntryName(name); err != nil {
			return nil, err
		}
	}

	info, err := s.store.Stat(current)
	if err != nil {
		return nil, classifyFSError(err, current)
	}

	if !info.IsDir() {
		return nil, apierror.Wrap(model.ErrNotDirectory, "NOT_A_DIRECTORY", "archive base must be a directory", current, http.StatusBadRequest)
	}

	children, err := s.store.ReadDir(current)
	if err != nil {
		return nil, classifyFSError(err, current)
	}

	members := make(map[string]struct{}, len(children))
	for _, child := range children {
		members[child.Name()] = struct{}{}
	}

	for _, name := range selection {
		if _, ok := members[name]; !ok {
			return nil, apierror.Wrap(model.ErrNotFound, "NOT_FOUND", "selected entry not found", name, http.StatusNotFound)
		}

		if _, err := s.store.Resolve(util.JoinClientPath(current, name)); err != nil {
			return nil, err
		}
	}

	return &ArchivePlan{
		service:  s,
		dirPath:  current,
		names:    selection,
		Filename: util.ArchiveFilename(current),
	}, nil
}

// StreamArchive validates the selection and then streams it to sink. On a
// validation error nothing is written to sink.
func (s *ArchiveService) StreamArchive(ctx context.Context, dirPath string, names []string, sink io.Writer) (model.ArchiveStats, error) {
	plan, err := s.Prepare(ctx, dirPath, names)
	if err != nil {
		return model.ArchiveStats{}, err
	}

	return plan.Stream(ctx, sink)
}

// Stream writes the archive to sink, one entry at a time. Entries that vanish
// or become unreadable before their data starts are skipped and counted; a
// read failure in the middle of an entry aborts with ErrIO, and a failed
// write or a cancelled ctx aborts with ErrSinkWrite. On abort the archive is
// left without its central directory.
func (p *ArchivePlan) Stream(ctx context.Context, sink io.Writer) (model.ArchiveStats, error) {
	done := metrics.ArchiveStarted()

	out := &sinkWriter{w: sink}
	stream := &archiveStream{
		ctx:     ctx,
		store:   p.service.store,
		out:     out,
		zw:      util.NewZipWriter(out),
		buf:     make([]byte, p.service.chunkSize),
		flusher: flusherOf(sink),
	}

	err := stream.run(p.dirPath, p.names)

	result := "completed"
	switch {
	case errors.Is(err, model.ErrSinkWrite):
		result = "cancelled"
	case err != nil:
		result = "failed"
	}
	done(result, stream.stats.Bytes, stream.stats.Skipped)

	return stream.stats, err
}

type archiveStream struct {
	ctx     context.Context
	store   storage.Storage
	out     *sinkWriter
	zw      *zip.Writer
	buf     []byte
	flusher interface{ Flush() }
	stats   model.ArchiveStats
}

func (s *archiveStream) run(dirPath string, names []string) error {
	for _, name := range names {
		if err := s.add(util.JoinClientPath(dirPath, name), name); err != nil {
			return err
		}
	}

	if err := s.zw.Close(); err != nil {
		return s.writeError(err)
	}
	s.flush()

	return nil
}

func (s *archiveStream) add(clientPath string, archivePath string) error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrSinkWrite, err)
	}

	info, err := s.store.Stat(clientPath)
	if err != nil {
		return s.skip(clientPath, classifyFSError(err, clientPath))
	}

	switch {
	case info.IsDir():
		return s.addDirectory(clientPath, archivePath, info)
	case info.Mode().IsRegular():
		return s.addFile(clientPath, archivePath)
	default:
		slog.Debug("skipping special file in archive", "path", clientPath, "mode", info.Mode().String())
		s.stats.Skipped++
		return nil
	}
}

func (s *archiveStream) addDirectory(clientPath string, archivePath string, info fs.FileInfo) error {
	if _, err := s.zw.CreateHeader(util.DirectoryHeader(archivePath, info.ModTime())); err != nil {
		return s.writeError(err)
	}
	s.stats.Directories++

	children, err := s.store.ReadDir(clientPath)
	if err != nil {
		return s.skip(clientPath, classifyFSError(err, clientPath))
	}

	sort.Slice(children, func(i int, j int) bool {
		return children[i].Name() < children[j].Name()
	})

	for _, child := range children {
		childPath := util.JoinClientPath(clientPath, child.Name())

		// Links below a selected directory are not followed; they may form cycles.
		if child.Type()&fs.ModeSymlink != 0 {
			slog.Debug("skipping symlink in archive", "path", childPath)
			s.stats.Skipped++
			continue
		}

		if err := s.add(childPath, util.ArchiveName(archivePath, child.Name())); err != nil {
			return err
		}
	}

	return nil
}

func (s *archiveStream) addFile(clientPath string, archivePath string) error {
	file, err := s.store.OpenForRead(clientPath)
	if err != nil {
		return s.skip(clientPath, classifyFSError(err, clientPath))
	}
	defer file.Close()

	// Size and content come from the same open handle.
	info, err := file.Stat()
	if err != nil {
		return s.skip(clientPath, classifyFSError(err, clientPath))
	}

	if !info.Mode().IsRegular() {
		s.stats.Skipped++
		return nil
	}

	entryWriter, err := s.zw.CreateHeader(util.FileHeader(archivePath, info))
	if err != nil {
		return s.writeError(err)
	}

	source := &contextReader{ctx: s.ctx, r: io.LimitReader(file, info.Size())}
	written, err := io.CopyBuffer(entryWriter, source, s.buf)
	s.stats.Bytes += written
	if err != nil {
		return s.copyError(clientPath, err)
	}

	s.stats.Files++
	if err := s.zw.Flush(); err != nil {
		return s.writeError(err)
	}
	s.flush()

	return nil
}

// skip swallows per-entry errors that a concurrent change on disk can cause.
func (s *archiveStream) skip(clientPath string, err error) error {
	if !isSkippable(err) {
		return err
	}

	slog.Debug("skipping archive entry", "path", clientPath, "error", err)
	s.stats.Skipped++
	return nil
}

func (s *archiveStream) writeError(err error) error {
	if s.out.err != nil {
		return fmt.Errorf("%w: %w", model.ErrSinkWrite, s.out.err)
	}

	return apierror.Wrap(model.ErrIO, "IO_FAILURE", "archive encoding failed", err.Error(), http.StatusInternalServerError)
}

func (s *archiveStream) copyError(clientPath string, err error) error {
	if s.out.err != nil {
		return fmt.Errorf("%w: %w", model.ErrSinkWrite, s.out.err)
	}

	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", model.ErrSinkWrite, ctxErr)
	}

	return apierror.Wrap(model.ErrIO, "IO_FAILURE", "file read failed mid-stream", clientPath+": "+err.Error(), http.StatusInternalServerError)
}

func (s *archiveStream) flush() {
	if s.flusher != nil && s.out.err == nil {
		s.flusher.Flush()
	}
}

// sinkWriter remembers the first write error so it can be told apart from
// read errors on the source files.
type sinkWriter struct {
	w   io.Writer
	err error
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	n, err := w.w.Write(p)
	if err != nil {
		w.err = err
	}

	return n, err
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}

func flusherOf(sink io.Writer) interface{ Flush() } {
	if f, ok := sink.(interface{ Flush() }); ok {
		return f
	}

	return nil
}

func uniqueSorted(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	sort.Strings(out)
	return out
}
