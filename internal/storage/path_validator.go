package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"runtime"
	"strings"

	"go-file-browser/internal/model"
	"go-file-browser/pkg/apierror"
)

// PathValidator confines client paths to a single data root.
type PathValidator struct {
	rootAbs  string
	rootReal string
}

func NewPathValidator(root string) (*PathValidator, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root path cannot be empty")
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve data root: %w", err)
	}

	rootReal, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		return nil, fmt.Errorf("evaluate data root: %w", err)
	}

	return &PathValidator{rootAbs: rootAbs, rootReal: rootReal}, nil
}

func (v *PathValidator) RootAbs() string {
	return v.rootAbs
}

// ResolvePath returns the absolute path for clientPath. The result is inside
// the root both lexically and after symlink evaluation.
//
// Segments are used verbatim: names read back from ReadDir may hold any byte
// the filesystem allows except the separator, so only the OS separator is
// rewritten and only NUL is rejected.
func (v *PathValidator) ResolvePath(clientPath string) (string, error) {
	normalized := filepath.ToSlash(clientPath)
	if normalized == "" || normalized == "/" || normalized == "." {
		return v.rootAbs, nil
	}

	if strings.Contains(normalized, "\x00") {
		return "", apierror.Wrap(model.ErrInvalidInput, "INVALID_PATH", "path contains null bytes", clientPath, http.StatusBadRequest)
	}

	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return "", traversalError(clientPath, "path traversal attempt detected")
		}
	}

	cleanRel := filepath.Clean(filepath.FromSlash(strings.TrimLeft(normalized, "/")))
	if cleanRel == "." {
		return v.rootAbs, nil
	}

	if filepath.IsAbs(cleanRel) || filepath.VolumeName(cleanRel) != "" {
		return "", traversalError(clientPath, "absolute paths are not allowed")
	}

	resolved := filepath.Join(v.rootAbs, cleanRel)
	if !isWithinRoot(v.rootAbs, resolved) {
		return "", traversalError(clientPath, "resolved path is outside data root")
	}

	real, err := filepath.EvalSymlinks(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return resolved, nil
		}
		return "", fmt.Errorf("evaluate %q: %w", clientPath, err)
	}

	if !isWithinRoot(v.rootReal, real) {
		return "", traversalError(clientPath, "symlink target is outside data root")
	}

	return resolved, nil
}

func traversalError(clientPath string, message string) error {
	return apierror.Wrap(model.ErrPathTraversal, "PATH_TRAVERSAL", message, clientPath, http.StatusForbidden)
}

func isWithinRoot(rootAbs string, candidateAbs string) bool {
	if runtime.GOOS == "windows" {
		rootAbs = strings.ToLower(rootAbs)
		candidateAbs = strings.ToLower(candidateAbs)
	}

	if candidateAbs == rootAbs {
		return true
	}

	rootWithSeparator := rootAbs
	if !strings.HasSuffix(rootWithSeparator, string(filepath.Separator)) {
		rootWithSeparator += string(filepath.Separator)
	}

	return strings.HasPrefix(candidateAbs, rootWithSeparator)
}
