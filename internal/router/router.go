package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-file-browser/internal/config"
	"go-file-browser/internal/handler"
	"go-file-browser/internal/metrics"
	"go-file-browser/internal/middleware"
)

type Handlers struct {
	Browse    *handler.BrowseHandler
	Download  *handler.DownloadHandler
	Archive   *handler.ArchiveHandler
	Thumbnail *handler.ThumbnailHandler
}

func New(cfg *config.Config, handlers Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/browse/", http.StatusPermanentRedirect)
	})

	r.Group(func(buffered chi.Router) {
		buffered.Use(middleware.Timeout(cfg.RequestTimeout))

		buffered.Get("/browse", handlers.Browse.Browse)
		buffered.Get("/browse/*", handlers.Browse.Browse)
		buffered.Get("/thumb/*", handlers.Thumbnail.Thumbnail)
	})

	r.Group(func(transfer chi.Router) {
		transfer.Use(middleware.StreamingTimeout(cfg.TransferMaxDuration, cfg.TransferIdleTimeout))

		transfer.Get("/dl/*", handlers.Download.Download)
		transfer.Head("/dl/*", handlers.Download.Download)
		transfer.Get("/arc/*", handlers.Archive.Archive)
		transfer.Post("/arc/*", handlers.Archive.Archive)
	})

	return r
}
