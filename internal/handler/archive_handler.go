package handler

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"go-file-browser/internal/model"
	"go-file-browser/internal/service"
	"go-file-browser/pkg/apierror"
)

const maxSelectionBody = 1 << 20

type ArchiveHandler struct {
	archives *service.ArchiveService
}

func NewArchiveHandler(archives *service.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{archives: archives}
}

// Archive streams a zip of the selected children of the requested directory.
// Names come from repeated "name" values in the query or a form body.
func (h *ArchiveHandler) Archive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSelectionBody)
	if err := r.ParseForm(); err != nil {
		writeError(w, apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", "invalid form body", err.Error(), http.StatusBadRequest))
		return
	}

	dirPath := requestPath(r)
	plan, err := h.archives.Prepare(r.Context(), dirPath, r.Form["name"])
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": plan.Filename}))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	started := time.Now()
	stats, err := plan.Stream(r.Context(), w)
	attrs := []any{
		"path", dirPath,
		"names", len(plan.Names()),
		"files", stats.Files,
		"directories", stats.Directories,
		"skipped", stats.Skipped,
		"bytes", stats.Bytes,
		"duration", time.Since(started).String(),
	}

	switch {
	case err == nil:
		slog.Info("archive streamed", attrs...)
	case errors.Is(err, model.ErrSinkWrite):
		slog.Debug("archive stream stopped by client", append(attrs, "error", err.Error())...)
	default:
		slog.Warn("archive stream aborted", append(attrs, "error", err.Error())...)
		// The status line is already sent; aborting the connection is the
		// only way to tell the client the body is incomplete.
		panic(http.ErrAbortHandler)
	}
}
