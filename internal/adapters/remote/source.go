// Package remote discovers files in a remote folder tree.
//
// A Source abstracts the storage API (Drive, a mounted folder, memory). The
// Walker performs the depth-first descent on top of it.
package remote

import (
	"context"

	"github.com/okian/nutrimon/internal/domain/model"
)

// Source is the listing and transfer surface of a remote store.
type Source interface {
	// FindFolder returns the first non-trashed folder named exactly name.
	// An empty parentID searches anywhere. Returns ErrFolderNotFound when absent.
	FindFolder(ctx context.Context, parentID, name string) (model.RemoteFileRef, error)

	// List returns the direct, non-trashed children of folderID.
	List(ctx context.Context, folderID string) ([]model.RemoteFileRef, error)

	// Download returns the raw bytes of a binary file.
	Download(ctx context.Context, id string) ([]byte, error)

	// Export converts a native document to mimeType and returns the bytes.
	Export(ctx context.Context, id, mimeType string) ([]byte, error)
}
