package domain

import (
	"context"
	"errors"
)

var (
	// ErrCancelled marks an operation superseded by a newer file selection.
	ErrCancelled = errors.New("cancelled")

	// ErrValidation is returned when the relay rejects an upload (4xx).
	ErrValidation = errors.New("upload rejected")

	// ErrNetwork covers unreachable services and non-2xx responses.
	ErrNetwork = errors.New("network error")

	// ErrProtocol is returned for malformed or incomplete provider payloads.
	ErrProtocol = errors.New("protocol error")

	// ErrProviderRejected is returned when the share-handle provider answers
	// with a failure payload.
	ErrProviderRejected = errors.New("prepare failed")

	// ErrCapabilityUnavailable signals degraded mode: no native message
	// sharing or no resolvable user.
	ErrCapabilityUnavailable = errors.New("sharing unavailable")

	// ErrHandleExpired is reported by the platform for a stale prepared handle.
	ErrHandleExpired = errors.New("prepared message expired")
)

// IsCancelled reports whether err stems from a superseded or aborted call.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
