package remote

import (
	"context"
	"errors"
	"iter"
	"path"
	"strings"
	"time"

	"github.com/okian/nutrimon/internal/domain/model"
	"github.com/okian/nutrimon/pkg/logger"
)

const defaultListTimeout = 30 * time.Second

// Walker descends a remote tree through a Source.
type Walker struct {
	src         Source
	listTimeout time.Duration
	log         logger.Logger
}

// Option configures a Walker.
type Option func(*Walker)

// WithListTimeout bounds each List call. Zero disables the bound.
func WithListTimeout(d time.Duration) Option {
	return func(w *Walker) {
		if d >= 0 {
			w.listTimeout = d
		}
	}
}

// WithLogger sets the walker logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Walker) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWalker creates a Walker over src.
func NewWalker(src Source, opts ...Option) *Walker {
	w := &Walker{
		src:         src,
		listTimeout: defaultListTimeout,
		log:         logger.Get().Named("walker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Entry is one item reached by a walk. Depth is 0 for children of the root.
type Entry struct {
	Ref   model.RemoteFileRef
	Depth int
}

// Entries lazily yields every item under rootID depth-first, folders included,
// each folder before its children. A failed List yields one *ListError and the
// walk continues with the next sibling. Folder cycles are not re-entered.
func (w *Walker) Entries(ctx context.Context, rootID string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		visited := map[string]bool{}
		w.descend(ctx, rootID, "", 0, visited, yield)
	}
}

// Files lazily yields non-folder items under rootID. See Entries.
func (w *Walker) Files(ctx context.Context, rootID string) iter.Seq2[model.RemoteFileRef, error] {
	return func(yield func(model.RemoteFileRef, error) bool) {
		for e, err := range w.Entries(ctx, rootID) {
			if err != nil {
				if !yield(model.RemoteFileRef{}, err) {
					return
				}
				continue
			}
			if e.Ref.IsFolder() {
				continue
			}
			if !yield(e.Ref, nil) {
				return
			}
		}
	}
}

// descend returns false when the consumer stopped the iteration.
func (w *Walker) descend(ctx context.Context, folderID, dir string, depth int, visited map[string]bool, yield func(Entry, error) bool) bool {
	if visited[folderID] {
		return true
	}
	visited[folderID] = true

	if err := ctx.Err(); err != nil {
		yield(Entry{}, &ListError{FolderID: folderID, Path: dir, Root: depth == 0, Err: err})
		return false
	}

	children, err := w.List(ctx, folderID)
	if err != nil {
		w.log.Warn(ctx, "list failed",
			logger.String("folder_id", folderID),
			logger.String("path", dir),
			logger.Error(err))
		return yield(Entry{}, &ListError{FolderID: folderID, Path: dir, Root: depth == 0, Err: err})
	}

	for _, child := range children {
		child.Path = path.Join(dir, child.Name)
		if !yield(Entry{Ref: child, Depth: depth}, nil) {
			return false
		}
		if child.IsFolder() {
			if !w.descend(ctx, child.ID, child.Path, depth+1, visited, yield) {
				return false
			}
		}
	}
	return true
}

// List returns the direct children of folderID under the list timeout.
func (w *Walker) List(ctx context.Context, folderID string) ([]model.RemoteFileRef, error) {
	ctx, cancel := w.bounded(ctx)
	defer cancel()
	return w.src.List(ctx, folderID)
}

// Find looks up a folder by exact name under the list timeout. parentID ""
// searches anywhere.
func (w *Walker) Find(ctx context.Context, parentID, name string) (model.RemoteFileRef, error) {
	ctx, cancel := w.bounded(ctx)
	defer cancel()
	return w.src.FindFolder(ctx, parentID, name)
}

func (w *Walker) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.listTimeout > 0 {
		return context.WithTimeout(ctx, w.listTimeout)
	}
	return ctx, func() {}
}

// Tree is the accumulated result of a walk: every file found plus every
// folder that could not be listed.
type Tree struct {
	Files  []model.RemoteFileRef
	Errors []*ListError
}

// RootFailed reports whether the root folder itself could not be listed.
func (t Tree) RootFailed() bool {
	for _, e := range t.Errors {
		if e.Root {
			return true
		}
	}
	return false
}

// Err joins all listing errors, nil when the walk was complete.
func (t Tree) Err() error {
	if len(t.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(t.Errors))
	for i, e := range t.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Walk drains Files into a Tree.
func (w *Walker) Walk(ctx context.Context, rootID string) Tree {
	var t Tree
	for ref, err := range w.Files(ctx, rootID) {
		if err != nil {
			var le *ListError
			if errors.As(err, &le) {
				t.Errors = append(t.Errors, le)
			}
			continue
		}
		t.Files = append(t.Files, ref)
	}
	return t
}

// PathSpec is an ordered list of folder names leading from a root to a folder.
type PathSpec []string

func (p PathSpec) String() string { return strings.Join(p, "/") }

// Resolve descends from rootID one folder name at a time and returns the last
// folder. Returns an error wrapping ErrFolderNotFound naming the missing segment.
func (w *Walker) Resolve(ctx context.Context, rootID string, segments PathSpec) (model.RemoteFileRef, error) {
	current := model.RemoteFileRef{ID: rootID, Kind: model.KindFolder, MimeType: model.MimeFolder}
	var walked []string
	for _, name := range segments {
		next, err := w.Find(ctx, current.ID, name)
		if err != nil {
			return model.RemoteFileRef{}, &pathError{segment: name, walked: walked, err: err}
		}
		walked = append(walked, name)
		next.Path = path.Join(walked...)
		current = next
	}
	return current, nil
}

type pathError struct {
	segment string
	walked  []string
	err     error
}

func (e *pathError) Error() string {
	at := path.Join(e.walked...)
	if at == "" {
		at = "root"
	}
	return "resolve " + e.segment + " under " + at + ": " + e.err.Error()
}

func (e *pathError) Unwrap() error { return e.err }
