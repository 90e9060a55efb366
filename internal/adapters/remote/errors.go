package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors for remote discovery.
var (
	ErrFolderNotFound  = errors.New("folder not found")
	ErrNotFound        = errors.New("file not found")
	ErrNotExportable   = errors.New("file cannot be exported")
	ErrNotDownloadable = errors.New("file has no binary content")
)

// ListError reports a failed listing of one folder.
type ListError struct {
	FolderID string
	Path     string
	// Root is true when the failing folder is the walk root.
	Root bool
	Err  error
}

func (e *ListError) Error() string {
	where := e.Path
	if where == "" {
		where = e.FolderID
	}
	return fmt.Sprintf("list %s: %v", where, e.Err)
}

func (e *ListError) Unwrap() error { return e.Err }
