// Package preview issues short-lived file resources for assets the user can
// preview or download, and releases them when they are replaced.
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/negroni/relay/internal/domain"
)

// ErrReleased is returned when opening a resource that was already released.
var ErrReleased = errors.New("resource released")

// Resource is a handle to one issued asset copy.
type Resource struct {
	ID          string
	Path        string
	Name        string
	ContentType string
	Size        int64
}

// Store keeps issued resources on an afero filesystem under dir.
type Store struct {
	fs  afero.Fs
	dir string

	mu   sync.Mutex
	live map[string]Resource
}

// NewStore returns a store writing under dir on fs.
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir, live: make(map[string]Resource)}
}

// NewMemStore returns a store backed by an in-memory filesystem.
func NewMemStore() *Store {
	return NewStore(afero.NewMemMapFs(), "/preview")
}

// Issue writes a copy of asset and returns its resource.
func (s *Store) Issue(asset domain.Asset) (Resource, error) {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return Resource{}, fmt.Errorf("create preview dir: %w", err)
	}

	id := uuid.NewString()
	name := asset.Name
	if name == "" {
		name = domain.DefaultAssetName
	}
	r := Resource{
		ID:          id,
		Path:        path.Join(s.dir, id+"-"+sanitize(name)),
		Name:        name,
		ContentType: asset.ContentType,
		Size:        asset.Size(),
	}
	if err := afero.WriteReader(s.fs, r.Path, bytes.NewReader(asset.Data)); err != nil {
		return Resource{}, fmt.Errorf("write preview: %w", err)
	}

	s.mu.Lock()
	s.live[id] = r
	s.mu.Unlock()
	return r, nil
}

// Open returns the contents of a live resource.
func (s *Store) Open(r Resource) (io.ReadCloser, error) {
	s.mu.Lock()
	_, ok := s.live[r.ID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrReleased
	}
	f, err := s.fs.Open(r.Path)
	if err != nil {
		return nil, fmt.Errorf("open preview: %w", err)
	}
	return f, nil
}

// Release removes a resource. Releasing twice is a no-op.
func (s *Store) Release(r Resource) error {
	s.mu.Lock()
	_, ok := s.live[r.ID]
	delete(s.live, r.ID)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := s.fs.Remove(r.Path); err != nil {
		return fmt.Errorf("remove preview: %w", err)
	}
	return nil
}

// Live returns the number of unreleased resources.
func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

var nameReplacer = strings.NewReplacer("/", "_", "\\", "_", "..", "_")

func sanitize(name string) string {
	return nameReplacer.Replace(name)
}
