package storage

import (
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Storage is read-only access to the data root. Every method takes a
// slash-separated client path and resolves it through the path validator.
type Storage interface {
	RootAbs() string
	Resolve(clientPath string) (string, error)
	Stat(clientPath string) (fs.FileInfo, error)
	ReadDir(clientPath string) ([]fs.DirEntry, error)
	OpenForRead(clientPath string) (*os.File, error)
}

type Local struct {
	validator *PathValidator
}

func New(root string) (*Local, error) {
	validator, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(validator.RootAbs())
	if err != nil {
		return nil, fmt.Errorf("stat data root: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("data root %q is not a directory", validator.RootAbs())
	}

	return &Local{validator: validator}, nil
}

func (s *Local) RootAbs() string {
	return s.validator.RootAbs()
}

func (s *Local) Resolve(clientPath string) (string, error) {
	return s.validator.ResolvePath(clientPath)
}

// Stat follows symlinks. The returned info also reports a creation time, see
// CreatedAt.
func (s *Local) Stat(clientPath string) (fs.FileInfo, error) {
	resolved, err := s.Resolve(clientPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, err
	}

	return fileInfo{FileInfo: info, created: birthTime(resolved, info)}, nil
}

func (s *Local) ReadDir(clientPath string) ([]fs.DirEntry, error) {
	resolved, err := s.Resolve(clientPath)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *Local) OpenForRead(clientPath string) (*os.File, error) {
	resolved, err := s.Resolve(clientPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, err
	}

	return file, nil
}

type fileInfo struct {
	fs.FileInfo
	created time.Time
}

func (i fileInfo) Created() time.Time {
	return i.created
}

// CreatedAt returns the creation time recorded by Stat, or the modification
// time for infos that do not carry one.
func CreatedAt(info fs.FileInfo) time.Time {
	if withCreated, ok := info.(interface{ Created() time.Time }); ok {
		if created := withCreated.Created(); !created.IsZero() {
			return created
		}
	}

	return info.ModTime()
}
