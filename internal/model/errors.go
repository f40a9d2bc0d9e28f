package model

import "errors"

var (
	// Path resolution errors
	ErrPathTraversal = errors.New("path escapes data root")
	ErrInvalidInput  = errors.New("invalid input")

	// Filesystem errors
	ErrNotFound         = errors.New("not found")
	ErrNotDirectory     = errors.New("not a directory")
	ErrPermissionDenied = errors.New("permission denied")
	ErrIO               = errors.New("i/o failure")

	// ErrSinkWrite marks a failed write to the response stream. The client is
	// gone, so it is never reported back.
	ErrSinkWrite = errors.New("sink write failure")
)
