// Package prepared implements the share-handle provider: it publishes a
// relayed asset under a signed URL and asks Telegram for a prepared inline
// message the Mini App can share.
package prepared

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/negroni/relay/internal/blob"
	"github.com/negroni/relay/internal/domain"
	"github.com/negroni/relay/internal/logger"
	"github.com/negroni/relay/internal/metrics"
	"github.com/negroni/relay/internal/storage"
	"github.com/negroni/relay/internal/telegram"
)

// ErrNotConfigured is returned when no bot token is configured.
var ErrNotConfigured = errors.New("sharing is not configured on this relay")

// Preparer saves prepared inline messages. *telegram.Client implements it.
type Preparer interface {
	SavePreparedInlineMessage(ctx context.Context, req telegram.PrepareRequest) (domain.Handle, error)
}

// Service contains the prepare flow.
type Service struct {
	store    storage.Storage
	signer   *blob.Signer
	preparer Preparer
	ttl      time.Duration
	metrics  metrics.Observer
	now      func() time.Time
}

// NewService creates a prepare Service. preparer may be nil when Telegram is
// not configured; Prepare then fails with ErrNotConfigured.
func NewService(store storage.Storage, signer *blob.Signer, preparer Preparer, ttl time.Duration, obs metrics.Observer) *Service {
	if obs == nil {
		obs = metrics.Nop{}
	}
	return &Service{
		store:    store,
		signer:   signer,
		preparer: preparer,
		ttl:      ttl,
		metrics:  obs,
		now:      time.Now,
	}
}

// Prepare stores asset for the blob TTL and returns a handle for userID.
// The handle never outlives the blob backing it.
func (s *Service) Prepare(ctx context.Context, userID int64, asset domain.Asset) (domain.Handle, error) {
	if s.preparer == nil {
		return domain.Handle{}, ErrNotConfigured
	}

	key := uuid.NewString()
	blobExpiry := s.now().Add(s.ttl)

	if err := s.store.Upload(ctx, key, bytes.NewReader(asset.Data), asset.Size(), asset.ContentType); err != nil {
		return domain.Handle{}, fmt.Errorf("store blob: %w", err)
	}
	url, err := s.signer.URL(key, blobExpiry)
	if err != nil {
		s.discard(ctx, key)
		return domain.Handle{}, err
	}

	start := time.Now()
	h, err := s.preparer.SavePreparedInlineMessage(ctx, telegram.PrepareRequest{
		UserID:   userID,
		MediaURL: url,
		Asset:    asset,
	})
	s.metrics.RecordPrepare(time.Since(start), err)
	if err != nil {
		s.discard(ctx, key)
		return domain.Handle{}, fmt.Errorf("prepare message: %w", err)
	}

	if h.ExpiresAt.IsZero() || h.ExpiresAt.After(blobExpiry) {
		h.ExpiresAt = blobExpiry
	}
	return h, nil
}

func (s *Service) discard(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		logger.FromContext(ctx).Warn("discard blob failed", slog.String("key", key), slog.Any("error", err))
	}
}
