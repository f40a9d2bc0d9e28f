// Package view renders directory listings as HTML pages and JSON payloads.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"
	"time"

	"go-file-browser/internal/model"
	"go-file-browser/internal/util"
)

//go:embed templates/*.html
var templateFS embed.FS

// CreatedLayout is how entry creation times are shown, always in UTC.
const CreatedLayout = "2006-01-02 [15:04:05]"

type Breadcrumb struct {
	Name string
	Href string
}

type SortColumn struct {
	Label  string
	Href   string
	Active bool
	Arrow  string
}

type Row struct {
	Name     string
	Href     string
	IsDir    bool
	Size     string
	Created  string
	Children string
}

// DirectoryPage is the template data for one directory view.
type DirectoryPage struct {
	Title         string
	CurrentPath   string
	ParentHref    string
	Breadcrumbs   []Breadcrumb
	Columns       []SortColumn
	Rows          []Row
	ArchiveAction string
	Aria2Href     string
}

type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Renderer{templates: templates}, nil
}

// RenderDirectory executes the directory template into a buffer first, so a
// template error never leaves a half-written page on w.
func (r *Renderer) RenderDirectory(w io.Writer, listing model.DirectoryListing) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "dir_view.html", NewDirectoryPage(listing)); err != nil {
		return fmt.Errorf("render directory view: %w", err)
	}

	_, err := buf.WriteTo(w)
	return err
}

func NewDirectoryPage(listing model.DirectoryListing) DirectoryPage {
	page := DirectoryPage{
		Title:         listing.CurrentPath,
		CurrentPath:   listing.CurrentPath,
		Breadcrumbs:   Breadcrumbs(listing.CurrentPath),
		Columns:       sortColumns(listing.SortKey, listing.SortDirection),
		Rows:          make([]Row, 0, len(listing.Entries)),
		ArchiveAction: "/arc" + EscapePath(listing.CurrentPath),
		Aria2Href:     BrowseHref(listing.CurrentPath) + "?aria2",
	}

	if listing.CurrentPath != "/" {
		page.ParentHref = BrowseHref(listing.ParentPath)
	}

	for _, entry := range listing.Entries {
		info := entry.Info()
		entryPath := util.JoinClientPath(listing.CurrentPath, info.Name)

		row := Row{
			Name:    info.Name,
			Size:    util.HumanizeBytes(info.Size),
			Created: FormatCreated(info.Created),
		}

		switch e := entry.(type) {
		case model.DirectoryEntry:
			row.IsDir = true
			row.Href = BrowseHref(entryPath)
			row.Children = fmt.Sprintf("%d", e.ChildrenCount)
		case model.FileEntry:
			row.Href = DownloadHref(entryPath)
		}

		page.Rows = append(page.Rows, row)
	}

	return page
}

// ListData is the JSON form of a listing.
func ListData(listing model.DirectoryListing) model.DirectoryListData {
	items := make([]model.EntryItem, 0, len(listing.Entries))
	for _, entry := range listing.Entries {
		info := entry.Info()
		item := model.EntryItem{
			Name:      info.Name,
			Path:      util.JoinClientPath(listing.CurrentPath, info.Name),
			Type:      entry.Kind(),
			Size:      info.Size,
			SizeHuman: util.HumanizeBytes(info.Size),
			CreatedAt: info.Created.UTC(),
		}

		if dir, ok := entry.(model.DirectoryEntry); ok {
			count := dir.ChildrenCount
			item.ChildrenCount = &count
		}

		items = append(items, item)
	}

	return model.DirectoryListData{
		CurrentPath:   listing.CurrentPath,
		ParentPath:    listing.ParentPath,
		SortKey:       listing.SortKey,
		SortDirection: listing.SortDirection,
		Items:         items,
	}
}

// Breadcrumbs returns one link per path segment, outermost first.
func Breadcrumbs(clientPath string) []Breadcrumb {
	normalized := util.NormalizeClientPath(clientPath)
	if normalized == "/" {
		return nil
	}

	segments := strings.Split(strings.TrimPrefix(normalized, "/"), "/")
	crumbs := make([]Breadcrumb, 0, len(segments))
	accumulated := ""
	for _, segment := range segments {
		accumulated += "/" + segment
		crumbs = append(crumbs, Breadcrumb{Name: segment, Href: BrowseHref(accumulated)})
	}

	return crumbs
}

// EscapePath percent-encodes each segment of a client path.
func EscapePath(clientPath string) string {
	normalized := util.NormalizeClientPath(clientPath)
	if normalized == "/" {
		return "/"
	}

	segments := strings.Split(strings.TrimPrefix(normalized, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return "/" + strings.Join(segments, "/")
}

func BrowseHref(clientPath string) string {
	escaped := EscapePath(clientPath)
	if escaped == "/" {
		return "/browse/"
	}

	return "/browse" + escaped + "/"
}

func DownloadHref(clientPath string) string {
	return "/dl" + EscapePath(clientPath)
}

func FormatCreated(created time.Time) string {
	return created.UTC().Format(CreatedLayout)
}

func sortColumns(active model.SortKey, direction model.SortDirection) []SortColumn {
	columns := []struct {
		key   model.SortKey
		label string
	}{
		{model.SortByName, "Name"},
		{model.SortBySize, "Size"},
		{model.SortByDate, "Created"},
		{model.SortByChildrenCount, "Items"},
	}

	out := make([]SortColumn, 0, len(columns))
	for _, column := range columns {
		next := model.Ascending
		col := SortColumn{Label: column.label}
		if column.key == active {
			next = direction.Toggle()
			col.Active = true
			col.Arrow = "▲"
			if direction == model.Descending {
				col.Arrow = "▼"
			}
		}

		col.Href = "?sort=" + string(column.key) + "&ord=" + string(next)
		out = append(out, col)
	}

	return out
}
