package sequencer

import (
	"github.com/negroni/relay/internal/domain"
	"github.com/negroni/relay/internal/preview"
)

// State is the sequencer's lifecycle state.
type State int

const (
	Idle State = iota
	Uploading
	Preparing
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Uploading:
		return "uploading"
	case Preparing:
		return "preparing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// User-visible status messages.
const (
	StatusUploading       = "Uploading…"
	StatusPreparing       = "Preparing share…"
	StatusReady           = "Ready. Tap Share to send it to a chat."
	StatusEchoOnly        = "Ready. Sharing to chats is not available here; use Download or Share."
	StatusOpening         = "Opening share dialog…"
	StatusShared          = "Shared."
	StatusShareDismissed  = "Share cancelled."
	StatusExpired         = "The prepared message expired. Tap Share again to refresh it."
	StatusPickFirst       = "Pick a photo first."
	StatusNotReady        = "Still working on it, try again in a moment."
	StatusShareDisabled   = "Sharing is disabled for this photo. You can still Download it."
	StatusNoNativeShare   = "Sharing is not supported here. Use Download, then attach it in the chat manually."
	StatusPreparedInvalid = "The provider returned an already expired message. You can still Download."
)

// Snapshot is a copy of the sequencer's observable state.
type Snapshot struct {
	State      State
	EchoOnly   bool
	Status     string
	Generation uint64

	Source   *domain.Asset
	Relayed  *domain.Asset
	Handle   *domain.Handle
	Resource *preview.Resource
}

// CanShare reports whether the share action is enabled.
func (s Snapshot) CanShare() bool {
	return s.State == Ready && s.Relayed != nil
}

// Download is what OnDownloadRequested serves.
type Download struct {
	Asset    domain.Asset
	Resource preview.Resource
	Relayed  bool
}
