package util

import (
	"net/http"
	"path/filepath"
	"strings"

	"go-file-browser/internal/model"
	"go-file-browser/pkg/apierror"
)

// ValidateEntryName checks that name can only ever address an immediate
// child of a directory. A backslash is an ordinary name byte except where it
// is the OS separator.
func ValidateEntryName(name string) error {
	if name == "" {
		return apierror.Wrap(model.ErrInvalidInput, "INVALID_NAME", "name cannot be empty", "", http.StatusBadRequest)
	}

	if name == "." || name == ".." || strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return apierror.Wrap(model.ErrPathTraversal, "PATH_TRAVERSAL", "name must be an immediate child", name, http.StatusForbidden)
	}

	if strings.Contains(name, "\x00") {
		return apierror.Wrap(model.ErrInvalidInput, "INVALID_NAME", "name contains null bytes", name, http.StatusBadRequest)
	}

	return nil
}

// NormalizeClientPath turns a client path into the slash-separated,
// root-relative form used by the storage layer ("/" for the root). Segments
// keep their bytes, including spaces and control characters.
func NormalizeClientPath(raw string) string {
	normalized := strings.Trim(filepath.ToSlash(raw), "/")
	parts := strings.Split(normalized, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		kept = append(kept, part)
	}

	if len(kept) == 0 {
		return "/"
	}

	return "/" + strings.Join(kept, "/")
}

// ParentPath returns the parent of a normalized client path.
func ParentPath(clientPath string) string {
	normalized := NormalizeClientPath(clientPath)
	if normalized == "/" {
		return "/"
	}

	idx := strings.LastIndex(normalized, "/")
	if idx <= 0 {
		return "/"
	}

	return normalized[:idx]
}

// JoinClientPath appends a child name to a client path.
func JoinClientPath(dir string, name string) string {
	normalized := NormalizeClientPath(dir)
	if normalized == "/" {
		return "/" + name
	}

	return normalized + "/" + name
}
