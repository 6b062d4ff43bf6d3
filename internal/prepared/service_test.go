package prepared

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negroni/relay/internal/blob"
	"github.com/negroni/relay/internal/domain"
	"github.com/negroni/relay/internal/logger"
	"github.com/negroni/relay/internal/storage"
	"github.com/negroni/relay/internal/telegram"
)

type fakePreparer struct {
	mu     sync.Mutex
	handle domain.Handle
	err    error
	reqs   []telegram.PrepareRequest
}

func (f *fakePreparer) SavePreparedInlineMessage(_ context.Context, req telegram.PrepareRequest) (domain.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.handle, f.err
}

func (f *fakePreparer) last() telegram.PrepareRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

var fixedNow = time.Unix(1_700_000_000, 0)

func newTestService(p Preparer) (*Service, *blob.Signer, storage.Storage) {
	store := storage.NewMemoryStorage(8, time.Hour)
	signer := blob.NewSigner("secret", "https://relay.test")
	svc := NewService(store, signer, p, 5*time.Minute, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, signer, store
}

func TestPreparePublishesBlob(t *testing.T) {
	p := &fakePreparer{handle: domain.Handle{ID: "abc", ExpiresAt: fixedNow.Add(time.Minute)}}
	svc, _, store := newTestService(p)
	asset := domain.Asset{Name: "photo.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")}

	h, err := svc.Prepare(context.Background(), 99, asset)
	require.NoError(t, err)
	assert.Equal(t, "abc", h.ID)
	assert.Equal(t, fixedNow.Add(time.Minute), h.ExpiresAt)

	req := p.last()
	assert.Equal(t, int64(99), req.UserID)
	require.True(t, strings.HasPrefix(req.MediaURL, "https://relay.test/blob/"))

	key, err := blob.NewSigner("secret", "").Verify(strings.TrimPrefix(req.MediaURL, "https://relay.test/blob/"))
	require.NoError(t, err)
	obj, err := store.Open(context.Background(), key)
	require.NoError(t, err)
	body, _ := io.ReadAll(obj.Body)
	assert.Equal(t, "jpeg", string(body))
}

func TestPrepareClampsExpiryToBlobTTL(t *testing.T) {
	for _, h := range []domain.Handle{
		{ID: "no-expiry"},
		{ID: "late", ExpiresAt: fixedNow.Add(24 * time.Hour)},
	} {
		svc, _, _ := newTestService(&fakePreparer{handle: h})
		got, err := svc.Prepare(context.Background(), 1, domain.Asset{Data: []byte("x")})
		require.NoError(t, err)
		assert.Equal(t, fixedNow.Add(5*time.Minute), got.ExpiresAt, h.ID)
	}
}

func TestPrepareFailureDiscardsBlob(t *testing.T) {
	p := &fakePreparer{err: errors.New("boom")}
	svc, _, store := newTestService(p)

	_, err := svc.Prepare(context.Background(), 1, domain.Asset{Data: []byte("x")})
	require.Error(t, err)

	key, err := blob.NewSigner("secret", "").Verify(strings.TrimPrefix(p.last().MediaURL, "https://relay.test/blob/"))
	require.NoError(t, err)
	_, err = store.Open(context.Background(), key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPrepareNotConfigured(t *testing.T) {
	svc, _, _ := newTestService(nil)
	_, err := svc.Prepare(context.Background(), 1, domain.Asset{Data: []byte("x")})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

type undeletableStorage struct {
	storage.Storage
}

func (undeletableStorage) Delete(context.Context, string) error {
	return errors.New("bucket is read-only")
}

func TestDiscardFailureUsesRequestLogger(t *testing.T) {
	p := &fakePreparer{err: errors.New("boom")}
	svc, _, store := newTestService(p)
	svc.store = undeletableStorage{Storage: store}

	var buf bytes.Buffer
	reqLog := logger.New(&buf, "debug", "text").With("request_id", "req-7")
	ctx := logger.WithContext(context.Background(), reqLog)

	_, err := svc.Prepare(ctx, 1, domain.Asset{Data: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "discard blob failed")
	assert.Contains(t, buf.String(), "request_id=req-7")
	assert.Contains(t, buf.String(), "bucket is read-only")
}
