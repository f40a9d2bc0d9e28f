package handler

import (
	"mime"
	"net/http"
	"strconv"

	"go-file-browser/internal/metrics"
	"go-file-browser/internal/service"
)

type DownloadHandler struct {
	files *service.FileService
}

func NewDownloadHandler(files *service.FileService) *DownloadHandler {
	return &DownloadHandler{files: files}
}

// Download serves one file as an attachment. Range and conditional requests
// are handled by http.ServeContent.
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	file, info, contentType, err := h.files.GetFile(requestPath(r))
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	filename := info.Name()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))

	kind := "full"
	if r.Header.Get("Range") != "" {
		kind = "range"
	}
	metrics.RecordDownload(kind)

	http.ServeContent(w, r, filename, info.ModTime(), file)
}

type ThumbnailHandler struct {
	files *service.FileService
}

func NewThumbnailHandler(files *service.FileService) *ThumbnailHandler {
	return &ThumbnailHandler{files: files}
}

func (h *ThumbnailHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	size := parseIntOrDefault(r.URL.Query().Get("size"), service.DefaultThumbnailSize)

	data, err := h.files.GetThumbnail(r.Context(), requestPath(r), size)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseIntOrDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}
