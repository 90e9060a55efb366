package repository

import "errors"

// Sentinel kinds for history errors.
var (
	ErrNotFound     = errors.New("sync run not found")
	ErrInvalidLimit = errors.New("invalid history limit")
	ErrClosed       = errors.New("history store closed")
)
