// Package localfs serves a locally mounted copy of the remote folder tree
// (for example a Drive desktop sync folder) as a remote.Source.
//
// Ids are slash-separated paths relative to the base directory. Directories
// map to folders; hidden entries are skipped.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/okian/nutrimon/internal/adapters/remote"
	"github.com/okian/nutrimon/internal/domain/model"
)

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// Source reads a directory tree rooted at Base.
type Source struct {
	base string
}

var _ remote.Source = (*Source)(nil)

// New creates a Source rooted at base. base must be an existing directory.
func New(base string) (*Source, error) {
	info, err := os.Stat(base)
	if err != nil {
		return nil, fmt.Errorf("localfs: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("localfs: %s is not a directory", base)
	}
	return &Source{base: base}, nil
}

func (s *Source) abs(id string) (string, error) {
	if id == "" {
		return s.base, nil
	}
	if !filepath.IsLocal(filepath.FromSlash(id)) {
		return "", fmt.Errorf("%w: %q", remote.ErrNotFound, id)
	}
	return filepath.Join(s.base, filepath.FromSlash(id)), nil
}

// FindFolder implements remote.Source. An empty parentID searches the whole
// tree in lexical order.
func (s *Source) FindFolder(ctx context.Context, parentID, name string) (model.RemoteFileRef, error) {
	if err := ctx.Err(); err != nil {
		return model.RemoteFileRef{}, err
	}
	if parentID != "" {
		p, err := s.abs(parentID)
		if err != nil {
			return model.RemoteFileRef{}, err
		}
		info, err := os.Stat(filepath.Join(p, name))
		if err != nil || !info.IsDir() || hidden(name) {
			return model.RemoteFileRef{}, fmt.Errorf("%w: %q", remote.ErrFolderNotFound, name)
		}
		return s.ref(path.Join(parentID, name), info), nil
	}

	var found model.RemoteFileRef
	errFound := errors.New("found")
	err := filepath.WalkDir(s.base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p != s.base && hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() || d.Name() != name || p == s.base {
			return nil
		}
		rel, relErr := filepath.Rel(s.base, p)
		if relErr != nil {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		found = s.ref(filepath.ToSlash(rel), info)
		return errFound
	})
	if errors.Is(err, errFound) {
		return found, nil
	}
	return model.RemoteFileRef{}, fmt.Errorf("%w: %q", remote.ErrFolderNotFound, name)
}

// List implements remote.Source.
func (s *Source) List(ctx context.Context, folderID string) ([]model.RemoteFileRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.abs(folderID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, err
	}
	out := make([]model.RemoteFileRef, 0, len(entries))
	for _, e := range entries {
		if hidden(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, s.ref(path.Join(folderID, e.Name()), info))
	}
	slices.SortStableFunc(out, func(a, b model.RemoteFileRef) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Download implements remote.Source.
func (s *Source) Download(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.abs(id)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", remote.ErrNotFound, id)
	}
	return b, err
}

// Export implements remote.Source. Mounted folders hold no native documents.
func (s *Source) Export(_ context.Context, id, mimeType string) ([]byte, error) {
	return nil, fmt.Errorf("%w: %s as %s", remote.ErrNotExportable, id, mimeType)
}

func (s *Source) ref(id string, info fs.FileInfo) model.RemoteFileRef {
	mimeType := mimeOf(info)
	return model.NewRemoteFileRef(id, info.Name(), mimeType, info.ModTime().UTC().Format(time.RFC3339Nano))
}

func mimeOf(info fs.FileInfo) string {
	if info.IsDir() {
		return model.MimeFolder
	}
	ext := strings.ToLower(filepath.Ext(info.Name()))
	if ext == ".csv" {
		return model.MimeCSV
	}
	if t, ok := imageTypes[ext]; ok {
		return t
	}
	return "application/octet-stream"
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
