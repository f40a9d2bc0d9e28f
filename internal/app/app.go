package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go-file-browser/internal/config"
	"go-file-browser/internal/handler"
	"go-file-browser/internal/router"
	"go-file-browser/internal/service"
	"go-file-browser/internal/storage"
	"go-file-browser/internal/view"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	server *http.Server
	cfg    *config.Config
}

func New(cfg *config.Config) (*App, error) {
	store, err := storage.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	directoryService := service.NewDirectoryService(store)
	aria2Service := service.NewAria2Service(store)
	archiveService := service.NewArchiveService(store, cfg.ArchiveChunkSize)
	fileService := service.NewFileService(store, cfg.ThumbnailMaxPixels)

	appRouter := router.New(cfg, router.Handlers{
		Browse:    handler.NewBrowseHandler(directoryService, aria2Service, renderer, cfg.BaseURL),
		Download:  handler.NewDownloadHandler(fileService),
		Archive:   handler.NewArchiveHandler(archiveService),
		Thumbnail: handler.NewThumbnailHandler(fileService),
	})

	// No WriteTimeout: transfers are bounded by the streaming middleware.
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	slog.Info("data directory ready", "path", store.RootAbs())

	return &App{server: server, cfg: cfg}, nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr, "metrics", a.cfg.MetricsEnabled)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down", "timeout", shutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		_ = a.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
