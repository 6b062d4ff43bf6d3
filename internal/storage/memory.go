package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	contentType string
	data        []byte
}

// MemoryStorage keeps blobs in a size-bounded LRU whose entries expire after ttl.
type MemoryStorage struct {
	cache *expirable.LRU[string, memoryEntry]
}

// NewMemoryStorage creates an in-process store holding at most size blobs.
func NewMemoryStorage(size int, ttl time.Duration) *MemoryStorage {
	if size <= 0 {
		size = 256
	}
	return &MemoryStorage{cache: expirable.NewLRU[string, memoryEntry](size, nil, ttl)}
}

// Upload buffers reader under key. size is advisory; -1 means unknown.
func (s *MemoryStorage) Upload(_ context.Context, key string, reader io.Reader, size int64, contentType string) error {
	var buf bytes.Buffer
	if size > 0 {
		buf.Grow(int(size))
	}
	if _, err := io.Copy(&buf, reader); err != nil {
		return fmt.Errorf("buffer object %q: %w", key, err)
	}
	s.cache.Add(key, memoryEntry{contentType: contentType, data: buf.Bytes()})
	return nil
}

// Open returns the blob at key.
func (s *MemoryStorage) Open(_ context.Context, key string) (*Object, error) {
	e, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return &Object{
		ContentType: e.contentType,
		Size:        int64(len(e.data)),
		Body:        io.NopCloser(bytes.NewReader(e.data)),
	}, nil
}

// Delete removes the blob at key; deleting a missing key is not an error.
func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.cache.Remove(key)
	return nil
}
