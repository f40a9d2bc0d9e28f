package model

import "time"

type EntryKind string

const (
	KindFile      EntryKind = "file"
	KindDirectory EntryKind = "directory"
)

// EntryInfo holds the fields shared by every entry variant.
type EntryInfo struct {
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
	Size    uint64    `json:"size"`
}

// Entry is a snapshot of one filesystem object taken during a scan. It is
// implemented only by FileEntry and DirectoryEntry.
type Entry interface {
	Info() EntryInfo
	Kind() EntryKind
	entry()
}

type FileEntry struct {
	EntryInfo
}

func (e FileEntry) Info() EntryInfo { return e.EntryInfo }
func (e FileEntry) Kind() EntryKind { return KindFile }
func (FileEntry) entry()            {}

// DirectoryEntry reports the sum of its immediate regular files as Size.
type DirectoryEntry struct {
	EntryInfo
	ChildrenCount uint32
}

func (e DirectoryEntry) Info() EntryInfo { return e.EntryInfo }
func (e DirectoryEntry) Kind() EntryKind { return KindDirectory }
func (DirectoryEntry) entry()            {}

// ChildrenCount returns the immediate children of a directory and 0 for files.
func ChildrenCount(e Entry) uint32 {
	switch v := e.(type) {
	case DirectoryEntry:
		return v.ChildrenCount
	case FileEntry:
		return 0
	default:
		return 0
	}
}

func IsDirectory(e Entry) bool {
	_, ok := e.(DirectoryEntry)
	return ok
}
