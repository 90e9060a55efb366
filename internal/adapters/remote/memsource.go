package remote

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/okian/nutrimon/internal/domain/model"
)

type memNode struct {
	ref      model.RemoteFileRef
	content  []byte
	trashed  bool
	children []string
}

// MemSource is an in-memory Source. It supports fault injection for tests and
// backs the inspect demo.
type MemSource struct {
	mu       sync.Mutex
	nodes    map[string]*memNode
	seq      int
	listErrs map[string]error
	failures map[string][]error // per id, consumed one per transfer
	calls    map[string]int
}

// NewMemSource creates an empty MemSource.
func NewMemSource() *MemSource {
	return &MemSource{
		nodes:    map[string]*memNode{},
		listErrs: map[string]error{},
		failures: map[string][]error{},
		calls:    map[string]int{},
	}
}

func (m *MemSource) add(parentID, name, mimeType, modified string, content []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("mem-%d", m.seq)
	n := &memNode{
		ref:     model.NewRemoteFileRef(id, name, mimeType, modified),
		content: slices.Clone(content),
	}
	m.nodes[id] = n
	if p, ok := m.nodes[parentID]; ok {
		p.children = append(p.children, id)
	}
	return id
}

// AddFolder creates a folder under parentID ("" for top level) and returns its id.
func (m *MemSource) AddFolder(parentID, name string) string {
	return m.add(parentID, name, model.MimeFolder, "", nil)
}

// AddFile creates a file and returns its id. modified is RFC3339 or empty.
func (m *MemSource) AddFile(parentID, name, mimeType, modified string, content []byte) string {
	return m.add(parentID, name, mimeType, modified, content)
}

// SetContent replaces the bytes served for id.
func (m *MemSource) SetContent(id string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[id]; ok {
		n.content = slices.Clone(content)
	}
}

// Trash hides id from listings and lookups.
func (m *MemSource) Trash(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[id]; ok {
		n.trashed = true
	}
}

// FailList makes every List of folderID return err.
func (m *MemSource) FailList(folderID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErrs[folderID] = err
}

// FailTransfers makes the next len(errs) transfers of id fail in order.
func (m *MemSource) FailTransfers(id string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[id] = append(m.failures[id], errs...)
}

// Transfers returns how many Download or Export calls id received.
func (m *MemSource) Transfers(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[id]
}

// FindFolder implements Source.
func (m *MemSource) FindFolder(ctx context.Context, parentID, name string) (model.RemoteFileRef, error) {
	if err := ctx.Err(); err != nil {
		return model.RemoteFileRef{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	if parentID == "" {
		// Anywhere: creation order.
		for i := 1; i <= m.seq; i++ {
			ids = append(ids, fmt.Sprintf("mem-%d", i))
		}
	} else if p, ok := m.nodes[parentID]; ok {
		ids = p.children
	}
	for _, id := range ids {
		n := m.nodes[id]
		if n != nil && !n.trashed && n.ref.IsFolder() && n.ref.Name == name {
			return n.ref, nil
		}
	}
	return model.RemoteFileRef{}, fmt.Errorf("%w: %q", ErrFolderNotFound, name)
}

// List implements Source.
func (m *MemSource) List(ctx context.Context, folderID string) ([]model.RemoteFileRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.listErrs[folderID]; err != nil {
		return nil, err
	}
	p, ok := m.nodes[folderID]
	if !ok || !p.ref.IsFolder() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, folderID)
	}
	out := make([]model.RemoteFileRef, 0, len(p.children))
	for _, id := range p.children {
		if n := m.nodes[id]; !n.trashed {
			out = append(out, n.ref)
		}
	}
	return out, nil
}

// Download implements Source.
func (m *MemSource) Download(ctx context.Context, id string) ([]byte, error) {
	n, err := m.transfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.ref.Kind == model.KindSpreadsheet || n.ref.IsFolder() {
		return nil, fmt.Errorf("%w: %s", ErrNotDownloadable, id)
	}
	return slices.Clone(n.content), nil
}

// Export implements Source. Spreadsheet content is served as already-converted text.
func (m *MemSource) Export(ctx context.Context, id, mimeType string) ([]byte, error) {
	n, err := m.transfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.ref.Kind != model.KindSpreadsheet || mimeType != model.MimeCSV {
		return nil, fmt.Errorf("%w: %s as %s", ErrNotExportable, id, mimeType)
	}
	return slices.Clone(n.content), nil
}

func (m *MemSource) transfer(ctx context.Context, id string) (*memNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[id]++
	if q := m.failures[id]; len(q) > 0 {
		m.failures[id] = q[1:]
		return nil, q[0]
	}
	n, ok := m.nodes[id]
	if !ok || n.trashed {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n, nil
}
