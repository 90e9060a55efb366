package storage

import "errors"

// Sentinel errors for local storage.
var (
	ErrIconNotFound = errors.New("icon not found")
	ErrInvalidName  = errors.New("invalid file name")
)
