// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Remote mime types with special handling.
const (
	MimeFolder      = "application/vnd.google-apps.folder"
	MimeSpreadsheet = "application/vnd.google-apps.spreadsheet"
	MimeCSV         = "text/csv"
)

// MimeKind classifies a remote item by how it is traversed or fetched.
type MimeKind int

const (
	KindPlain MimeKind = iota
	KindSpreadsheet
	KindFolder
	KindImage
)

func (k MimeKind) String() string {
	switch k {
	case KindSpreadsheet:
		return "spreadsheet"
	case KindFolder:
		return "folder"
	case KindImage:
		return "image"
	default:
		return "plain"
	}
}

// KindOf derives the MimeKind from a remote mime type.
func KindOf(mimeType string) MimeKind {
	switch {
	case mimeType == MimeFolder:
		return KindFolder
	case mimeType == MimeSpreadsheet:
		return KindSpreadsheet
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	default:
		return KindPlain
	}
}

// RemoteFileRef is one item discovered in the remote tree during a sync pass.
// It is never persisted.
type RemoteFileRef struct {
	ID           string
	Name         string
	MimeType     string
	Kind         MimeKind
	ModifiedTime string // raw RFC3339 as reported by the remote, may be empty
	Path         string // slash-joined folder names from the root, for logs and inspect
}

// NewRemoteFileRef fills Kind from mimeType.
func NewRemoteFileRef(id, name, mimeType, modified string) RemoteFileRef {
	return RemoteFileRef{
		ID:           id,
		Name:         name,
		MimeType:     mimeType,
		Kind:         KindOf(mimeType),
		ModifiedTime: modified,
	}
}

// IsFolder reports whether the ref is expanded rather than fetched.
func (r RemoteFileRef) IsFolder() bool { return r.Kind == KindFolder }

// Modified parses ModifiedTime. ok is false when it is absent or unparsable.
func (r RemoteFileRef) Modified() (time.Time, bool) {
	if r.ModifiedTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, r.ModifiedTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
