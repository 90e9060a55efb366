// Package drive implements remote.Source on top of the Google Drive v3 API.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/okian/nutrimon/internal/adapters/remote"
	"github.com/okian/nutrimon/internal/domain/model"
)

const (
	listFields googleapi.Field = "nextPageToken, files(id, name, mimeType, modifiedTime)"
	findFields googleapi.Field = "files(id, name, mimeType, modifiedTime)"
	pageSize                   = 1000
)

// Source talks to Drive with an authorized token source.
type Source struct {
	svc *drive.Service
}

var _ remote.Source = (*Source)(nil)

// New creates a Drive Source from a token source.
func New(ctx context.Context, ts oauth2.TokenSource) (*Source, error) {
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("drive: new service: %w", err)
	}
	return &Source{svc: svc}, nil
}

// NewWithService wraps an existing Drive service, e.g. one pointed at a test server.
func NewWithService(svc *drive.Service) *Source {
	return &Source{svc: svc}
}

// quote escapes a value for a Drive query string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// FindFolder implements remote.Source.
func (s *Source) FindFolder(ctx context.Context, parentID, name string) (model.RemoteFileRef, error) {
	q := fmt.Sprintf("name = %s and mimeType = %s and trashed = false", quote(name), quote(model.MimeFolder))
	if parentID != "" {
		q += fmt.Sprintf(" and %s in parents", quote(parentID))
	}
	res, err := s.svc.Files.List().Q(q).Fields(findFields).PageSize(1).Context(ctx).Do()
	if err != nil {
		return model.RemoteFileRef{}, fmt.Errorf("drive: find %q: %w", name, err)
	}
	if len(res.Files) == 0 {
		return model.RemoteFileRef{}, fmt.Errorf("%w: %q", remote.ErrFolderNotFound, name)
	}
	return toRef(res.Files[0]), nil
}

// List implements remote.Source. All result pages are collected.
func (s *Source) List(ctx context.Context, folderID string) ([]model.RemoteFileRef, error) {
	q := fmt.Sprintf("%s in parents and trashed = false", quote(folderID))
	var out []model.RemoteFileRef
	err := s.svc.Files.List().Q(q).Fields(listFields).PageSize(pageSize).OrderBy("folder,name").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				out = append(out, toRef(f))
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("drive: list %s: %w", folderID, err)
	}
	return out, nil
}

// Download implements remote.Source.
func (s *Source) Download(ctx context.Context, id string) ([]byte, error) {
	resp, err := s.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, mapErr("download", id, err)
	}
	return readAll(resp)
}

// Export implements remote.Source.
func (s *Source) Export(ctx context.Context, id, mimeType string) ([]byte, error) {
	resp, err := s.svc.Files.Export(id, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, mapErr("export", id, err)
	}
	return readAll(resp)
}

func readAll(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("drive: read body: %w", err)
	}
	return b, nil
}

func mapErr(op, id string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("drive: %s %s: %w", op, id, remote.ErrNotFound)
	}
	return fmt.Errorf("drive: %s %s: %w", op, id, err)
}

func toRef(f *drive.File) model.RemoteFileRef {
	return model.NewRemoteFileRef(f.Id, f.Name, f.MimeType, f.ModifiedTime)
}
