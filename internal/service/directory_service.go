package service

import (
	"cmp"
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"go-file-browser/internal/metrics"
	"go-file-browser/internal/model"
	"go-file-browser/internal/storage"
	"go-file-browser/internal/util"
	"go-file-browser/pkg/apierror"
)

type DirectoryService struct {
	store  storage.Storage
	reader *EntryReader
}

func NewDirectoryService(store storage.Storage) *DirectoryService {
	return &DirectoryService{store: store, reader: NewEntryReader(store)}
}

// List scans the immediate children of requestedPath and returns them sorted.
// A child that cannot be read is left out; only failures on the directory
// itself are returned.
func (s *DirectoryService) List(ctx context.Context, requestedPath string, key model.SortKey, direction model.SortDirection) (model.DirectoryListing, error) {
	started := time.Now()
	currentPath := util.NormalizeClientPath(requestedPath)

	info, err := s.store.Stat(currentPath)
	if err != nil {
		return model.DirectoryListing{}, classifyFSError(err, currentPath)
	}

	if !info.IsDir() {
		return model.DirectoryListing{}, apierror.Wrap(model.ErrNotDirectory, "NOT_A_DIRECTORY", "path points to a file", currentPath, http.StatusBadRequest)
	}

	children, err := s.store.ReadDir(currentPath)
	if err != nil {
		return model.DirectoryListing{}, classifyFSError(err, currentPath)
	}

	entries := make([]model.Entry, 0, len(children))
	skipped := 0
	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return model.DirectoryListing{}, err
		}

		entry, readErr := s.reader.Read(util.JoinClientPath(currentPath, child.Name()))
		if readErr != nil {
			skipped++
			slog.Debug("skipping unreadable entry", "path", currentPath, "name", child.Name(), "error", readErr)
			continue
		}

		entries = append(entries, entry)
	}

	SortEntries(entries, key, direction)
	metrics.RecordListing(time.Since(started), skipped)

	return model.DirectoryListing{
		CurrentPath:   currentPath,
		ParentPath:    util.ParentPath(currentPath),
		Entries:       entries,
		SortKey:       key,
		SortDirection: direction,
	}, nil
}

// SortEntries orders entries by key in the given direction. The direction
// only applies to the key; equal keys are always ordered by name ascending.
// Names compare byte-wise, so uppercase sorts before lowercase.
func SortEntries(entries []model.Entry, key model.SortKey, direction model.SortDirection) {
	sort.SliceStable(entries, func(i int, j int) bool {
		a, b := entries[i], entries[j]

		c := compareByKey(a, b, key)
		if direction == model.Descending {
			c = -c
		}
		if c != 0 {
			return c < 0
		}

		return a.Info().Name < b.Info().Name
	})
}

func compareByKey(a model.Entry, b model.Entry, key model.SortKey) int {
	switch key {
	case model.SortByDate:
		return a.Info().Created.Compare(b.Info().Created)
	case model.SortBySize:
		return cmp.Compare(a.Info().Size, b.Info().Size)
	case model.SortByChildrenCount:
		return cmp.Compare(model.ChildrenCount(a), model.ChildrenCount(b))
	default:
		return cmp.Compare(a.Info().Name, b.Info().Name)
	}
}
