package service

import (
	"bufio"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go-file-browser/internal/model"
	"go-file-browser/internal/storage"
	"go-file-browser/internal/util"
	"go-file-browser/pkg/apierror"
)

// Aria2Service renders aria2c input files: one download URL per file below
// a directory, with dir= and out= options that recreate the tree locally.
type Aria2Service struct {
	store storage.Storage
}

func NewAria2Service(store storage.Storage) *Aria2Service {
	return &Aria2Service{store: store}
}

type aria2Node struct {
	name  string
	isDir bool
}

// Write scans dirPath recursively and writes the input file to w. Files of a
// directory come before its subdirectories, each group ordered by name
// ignoring case. Symlinked directories are not descended into.
func (s *Aria2Service) Write(ctx context.Context, dirPath string, baseURL string, w io.Writer) error {
	current := util.NormalizeClientPath(dirPath)

	info, err := s.store.Stat(current)
	if err != nil {
		return classifyFSError(err, current)
	}

	if !info.IsDir() {
		return apierror.Wrap(model.ErrNotDirectory, "NOT_A_DIRECTORY", "path points to a file", current, http.StatusBadRequest)
	}

	out := bufio.NewWriter(w)
	if err := s.writeDir(ctx, out, strings.TrimRight(baseURL, "/"), current, ""); err != nil {
		return err
	}

	return out.Flush()
}

func (s *Aria2Service) writeDir(ctx context.Context, out *bufio.Writer, baseURL string, clientPath string, relDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	children, err := s.store.ReadDir(clientPath)
	if err != nil {
		if relDir == "" {
			return classifyFSError(err, clientPath)
		}

		slog.Debug("skipping unreadable directory in aria2 list", "path", clientPath, "error", err)
		return nil
	}

	nodes := make([]aria2Node, 0, len(children))
	for _, child := range children {
		childPath := util.JoinClientPath(clientPath, child.Name())

		// The input file is line based; such a name cannot be written as out=.
		if strings.ContainsAny(child.Name(), "\r\n") {
			slog.Debug("skipping entry with line break in aria2 list", "path", childPath)
			continue
		}

		info, statErr := s.store.Stat(childPath)
		if statErr != nil {
			slog.Debug("skipping entry in aria2 list", "path", childPath, "error", statErr)
			continue
		}

		switch {
		case info.IsDir() && child.Type()&fs.ModeSymlink == 0:
			nodes = append(nodes, aria2Node{name: child.Name(), isDir: true})
		case info.Mode().IsRegular():
			nodes = append(nodes, aria2Node{name: child.Name()})
		}
	}

	sort.Slice(nodes, func(i int, j int) bool {
		a, b := strings.ToLower(nodes[i].name), strings.ToLower(nodes[j].name)
		if a != b {
			return a < b
		}
		return nodes[i].name < nodes[j].name
	})

	aria2Dir := relDir
	if aria2Dir == "" {
		aria2Dir = "."
	}

	for _, node := range nodes {
		if node.isDir {
			continue
		}

		if _, err := io.WriteString(out, baseURL+downloadURLPath(util.JoinClientPath(clientPath, node.name))+"\n"); err != nil {
			return err
		}
		if _, err := io.WriteString(out, "  dir="+aria2Dir+"\n  out="+node.name+"\n\n"); err != nil {
			return err
		}
	}

	for _, node := range nodes {
		if !node.isDir {
			continue
		}

		if err := s.writeDir(ctx, out, baseURL, util.JoinClientPath(clientPath, node.name), util.ArchiveName(relDir, node.name)); err != nil {
			return err
		}
	}

	return nil
}

// downloadURLPath returns the escaped /dl/ path for a normalized client path.
func downloadURLPath(clientPath string) string {
	segments := strings.Split(strings.TrimPrefix(clientPath, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return "/dl/" + strings.Join(segments, "/")
}
