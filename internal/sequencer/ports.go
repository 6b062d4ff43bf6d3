package sequencer

import (
	"context"

	"github.com/negroni/relay/internal/domain"
	"github.com/negroni/relay/internal/preview"
)

// Relay copies an asset through the relay service.
type Relay interface {
	Echo(ctx context.Context, src domain.Asset) (domain.Asset, error)
}

// HandleProvider acquires a prepared-message handle for a relayed asset.
type HandleProvider interface {
	Prepare(ctx context.Context, asset domain.Asset, userID string) (domain.Handle, error)
}

// ShareResult is the outcome of a platform share action.
type ShareResult struct {
	Delivered bool
	// Err is set when the platform reported a reason, e.g. domain.ErrHandleExpired.
	Err error
}

// Platform is the host messaging platform the mini app runs in.
//
// The Sequencer calls these methods while holding its lock, so they must
// return promptly and must not call back into it. ShareMessage only starts
// the share action; the outcome arrives on the returned channel.
type Platform interface {
	Ready()
	Expand()
	SupportsShareMessage() bool
	UserID() (string, bool)
	ShareMessage(id string) <-chan ShareResult
}

// NativeSharer is the generic share action used when the platform cannot
// share prepared messages.
type NativeSharer interface {
	CanShare(asset domain.Asset) bool
	Share(ctx context.Context, asset domain.Asset) error
}

// ResourceStore issues and releases preview/download resources.
type ResourceStore interface {
	Issue(asset domain.Asset) (preview.Resource, error)
	Release(r preview.Resource) error
}

// EventKind names a platform event.
type EventKind string

const (
	EventShareMessageSent   EventKind = "shareMessageSent"
	EventShareMessageFailed EventKind = "shareMessageFailed"
)

// ErrorMessageExpired is the platform error code for a stale prepared message.
const ErrorMessageExpired = "MESSAGE_EXPIRED"

// PlatformEvent is one entry of the platform's event stream.
type PlatformEvent struct {
	Kind  EventKind
	Error string
}
