package ingest

import "errors"

// Sentinel errors for per-file parse failures. They are logged and counted,
// never returned from Load.
var (
	ErrEmptyFile     = errors.New("empty file")
	ErrTooManyFields = errors.New("row has more fields than header")
)
