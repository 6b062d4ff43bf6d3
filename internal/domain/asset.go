// Package domain holds the types shared by the relay client, the share-handle
// client and the share sequencer.
package domain

import (
	"strings"
	"time"
)

// DefaultContentType is used when neither the relay nor the picker declared a type.
const DefaultContentType = "application/octet-stream"

// DefaultAssetName is the name given to a relayed asset whose source had none.
const DefaultAssetName = "photo.jpg"

// Asset is a binary blob picked by the user or returned by the relay.
type Asset struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the byte length of the asset.
func (a Asset) Size() int64 {
	return int64(len(a.Data))
}

// IsImage reports whether the asset declares an image media type.
func (a Asset) IsImage() bool {
	return strings.HasPrefix(a.ContentType, "image/") && len(a.ContentType) > len("image/")
}

// Handle is an opaque, time-limited capability the host platform uses to
// deliver a relayed asset as a message.
type Handle struct {
	ID string
	// ExpiresAt is zero when the provider did not report an expiry.
	ExpiresAt time.Time
}

// Valid reports whether the handle may be presented to the platform share
// action at now: it must carry an id and either never expire or expire
// strictly after now.
func (h *Handle) Valid(now time.Time) bool {
	if h == nil || h.ID == "" {
		return false
	}
	return h.ExpiresAt.IsZero() || h.ExpiresAt.After(now)
}
