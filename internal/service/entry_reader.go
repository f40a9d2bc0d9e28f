package service

import (
	"errors"
	"io/fs"
	"math"
	"net/http"
	"path"

	"go-file-browser/internal/model"
	"go-file-browser/internal/storage"
	"go-file-browser/pkg/apierror"
)

// EntryReader turns one filesystem path into an Entry snapshot.
type EntryReader struct {
	store storage.Storage
}

func NewEntryReader(store storage.Storage) *EntryReader {
	return &EntryReader{store: store}
}

// Read stats clientPath and classifies it. Directories are read once more to
// count their children and sum the sizes of their regular files.
func (r *EntryReader) Read(clientPath string) (model.Entry, error) {
	info, err := r.store.Stat(clientPath)
	if err != nil {
		return nil, classifyFSError(err, clientPath)
	}

	base := model.EntryInfo{
		Name:    path.Base(clientPath),
		Created: storage.CreatedAt(info).UTC(),
	}

	if !info.IsDir() {
		base.Size = uint64(max(info.Size(), 0))
		return model.FileEntry{EntryInfo: base}, nil
	}

	children, err := r.store.ReadDir(clientPath)
	if err != nil {
		return nil, classifyFSError(err, clientPath)
	}

	var size uint64
	for _, child := range children {
		if !child.Type().IsRegular() {
			continue
		}

		childInfo, infoErr := child.Info()
		if infoErr != nil {
			continue
		}
		size += uint64(max(childInfo.Size(), 0))
	}

	base.Size = size
	return model.DirectoryEntry{EntryInfo: base, ChildrenCount: clampCount(len(children))}, nil
}

func clampCount(n int) uint32 {
	if n > math.MaxUint32 {
		return math.MaxUint32
	}

	return uint32(n)
}

// classifyFSError maps an os error to the typed errors the HTTP layer
// understands. Errors that are already typed pass through unchanged.
func classifyFSError(err error, clientPath string) error {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return err
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return apierror.Wrap(model.ErrNotFound, "NOT_FOUND", "path not found", clientPath, http.StatusNotFound)
	case errors.Is(err, fs.ErrPermission):
		return apierror.Wrap(model.ErrPermissionDenied, "PERMISSION_DENIED", "permission denied on the filesystem", clientPath, http.StatusForbidden)
	default:
		return apierror.Wrap(model.ErrIO, "IO_FAILURE", "filesystem read failed", err.Error(), http.StatusInternalServerError)
	}
}

// isSkippable reports whether a per-entry error may be skipped rather than
// failing the whole request. Resolver rejections of a child count as
// per-entry errors.
func isSkippable(err error) bool {
	return errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrPermissionDenied) ||
		errors.Is(err, model.ErrPathTraversal) ||
		errors.Is(err, model.ErrInvalidInput)
}
