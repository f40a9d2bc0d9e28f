package model

import "time"

type DirectoryListing struct {
	CurrentPath   string
	ParentPath    string
	Entries       []Entry
	SortKey       SortKey
	SortDirection SortDirection
}

// EntryItem is the JSON form of an Entry.
type EntryItem struct {
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	Type          EntryKind `json:"type"`
	Size          uint64    `json:"size"`
	SizeHuman     string    `json:"size_human"`
	CreatedAt     time.Time `json:"created_at"`
	ChildrenCount *uint32   `json:"children_count,omitempty"`
}

type DirectoryListData struct {
	CurrentPath   string        `json:"current_path"`
	ParentPath    string        `json:"parent_path"`
	SortKey       SortKey       `json:"sort"`
	SortDirection SortDirection `json:"ord"`
	Items         []EntryItem   `json:"items"`
}

// ArchiveStats summarises one streamed archive.
type ArchiveStats struct {
	Files       int
	Directories int
	Skipped     int
	Bytes       int64
}
