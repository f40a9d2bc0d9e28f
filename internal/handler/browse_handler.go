package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go-file-browser/internal/model"
	"go-file-browser/internal/service"
	"go-file-browser/internal/util"
	"go-file-browser/internal/view"
)

type BrowseHandler struct {
	directories *service.DirectoryService
	aria2       *service.Aria2Service
	renderer    *view.Renderer
	baseURL     string
}

func NewBrowseHandler(directories *service.DirectoryService, aria2 *service.Aria2Service, renderer *view.Renderer, baseURL string) *BrowseHandler {
	return &BrowseHandler{
		directories: directories,
		aria2:       aria2,
		renderer:    renderer,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// Browse renders a directory as HTML or JSON. A file path redirects to its
// download URL.
func (h *BrowseHandler) Browse(w http.ResponseWriter, r *http.Request) {
	requested := util.NormalizeClientPath(requestPath(r))
	query := r.URL.Query()

	if query.Has("aria2") {
		h.writeAria2(w, r, requested)
		return
	}

	listing, err := h.directories.List(r.Context(), requested, model.ParseSortKey(query.Get("sort")), model.ParseSortDirection(query.Get("ord")))
	if err != nil {
		if errors.Is(err, model.ErrNotDirectory) {
			http.Redirect(w, r, view.DownloadHref(requested), http.StatusPermanentRedirect)
			return
		}

		writeError(w, err)
		return
	}

	slog.Debug("displaying directory view", "path", listing.CurrentPath, "sort", listing.SortKey, "ord", listing.SortDirection, "entries", len(listing.Entries))

	if wantsJSON(r) {
		writeSuccess(w, http.StatusOK, view.ListData(listing))
		return
	}

	var page bytes.Buffer
	if err := h.renderer.RenderDirectory(&page, listing); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = page.WriteTo(w)
}

func (h *BrowseHandler) writeAria2(w http.ResponseWriter, r *http.Request, requested string) {
	var list bytes.Buffer
	if err := h.aria2.Write(r.Context(), requested, h.resolveBaseURL(r), &list); err != nil {
		if errors.Is(err, model.ErrNotDirectory) {
			http.Redirect(w, r, view.DownloadHref(requested), http.StatusPermanentRedirect)
			return
		}

		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = list.WriteTo(w)
}

// resolveBaseURL prefers the configured base URL and falls back to the
// scheme and host the request arrived on. X-Forwarded-Proto is taken on trust
// with no proxy allow-list; set BASE_URL when that matters.
func (h *BrowseHandler) resolveBaseURL(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded == "http" || forwarded == "https" {
		scheme = forwarded
	}

	return scheme + "://" + r.Host
}

func wantsJSON(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "json") {
		return true
	}

	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
