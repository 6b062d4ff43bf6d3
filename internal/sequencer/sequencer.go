// Package sequencer coordinates picking a file, relaying it, acquiring a
// prepared-message handle and invoking the platform share action.
//
// All fields are guarded by one mutex. The two suspending calls (relay upload
// and handle acquisition) run on goroutines; each captures the selection
// generation when it starts and its completion is dropped when a newer
// selection has bumped the generation since.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/negroni/relay/internal/domain"
	"github.com/negroni/relay/internal/logger"
	"github.com/negroni/relay/internal/preview"
)

const (
	defaultUploadTimeout  = 60 * time.Second
	defaultPrepareTimeout = 30 * time.Second
)

var (
	// ErrNothingSelected is returned by OnDownloadRequested before any pick.
	ErrNothingSelected = errors.New("no file selected")
	// ErrClosed is returned by OnDownloadRequested after Close.
	ErrClosed = errors.New("sequencer closed")
)

// Options tune a Sequencer. Zero values pick defaults.
type Options struct {
	UploadTimeout  time.Duration
	PrepareTimeout time.Duration

	// Native is the fallback share action in echo-only mode.
	Native NativeSharer
	// OnChange receives a snapshot after every visible change, in order, on
	// a dedicated goroutine. Snapshots of a superseded selection that have
	// not been delivered yet are dropped.
	OnChange func(Snapshot)

	Now    func() time.Time
	Logger *slog.Logger
}

// Sequencer is the capture/upload/share state machine.
type Sequencer struct {
	relay     Relay
	provider  HandleProvider
	platform  Platform
	resources ResourceStore
	opts      Options
	log       *slog.Logger
	notifier  *notifier

	mu       sync.Mutex
	gen      uint64
	state    State
	echoOnly bool
	status   string
	source   *domain.Asset
	relayed  *domain.Asset
	handle   *domain.Handle
	resource *preview.Resource
	// busy marks a share-time re-acquisition or native share in flight.
	busy   bool
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
	done   chan struct{}

	wg sync.WaitGroup
}

// New builds a Sequencer and runs the platform's ready/expand lifecycle.
// A nil provider or platform puts every selection in echo-only mode.
func New(relay Relay, provider HandleProvider, platform Platform, resources ResourceStore, opts Options) *Sequencer {
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = defaultUploadTimeout
	}
	if opts.PrepareTimeout <= 0 {
		opts.PrepareTimeout = defaultPrepareTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.L
	}
	if platform != nil {
		platform.Ready()
		platform.Expand()
	}
	s := &Sequencer{
		relay:     relay,
		provider:  provider,
		platform:  platform,
		resources: resources,
		opts:      opts,
		log:       opts.Logger.With(slog.String("component", "sequencer")),
		state:     Idle,
		done:      make(chan struct{}),
	}
	if opts.OnChange != nil {
		s.notifier = newNotifier(opts.OnChange)
	}
	return s
}

// OnFileSelected makes asset the current source, supersedes any work for the
// previous one and starts the relay upload.
func (s *Sequencer) OnFileSelected(asset domain.Asset) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.gen++
	gen := s.gen
	if s.notifier != nil {
		s.notifier.supersede(gen)
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	ctx := s.ctx

	src := asset
	s.source = &src
	s.relayed = nil
	s.handle = nil
	s.echoOnly = false
	s.busy = false
	s.replaceResourceLocked(src)

	s.state = Uploading
	s.status = StatusUploading
	s.wg.Add(1)
	s.publishLocked()
	s.mu.Unlock()

	s.log.Debug("file selected", slog.Uint64("generation", gen), slog.String("name", src.Name), slog.Int64("size", src.Size()))
	go s.run(ctx, gen, src)
}

func (s *Sequencer) run(ctx context.Context, gen uint64, src domain.Asset) {
	defer s.wg.Done()

	uctx, cancel := context.WithTimeout(ctx, s.opts.UploadTimeout)
	relayed, err := s.relay.Echo(uctx, src)
	cancel()
	if err != nil {
		s.fail(gen, err, func() {
			s.relayed = nil
			s.handle = nil
			s.status = fmt.Sprintf("Upload failed (%v). You can still Download the original.", err)
		})
		return
	}

	userID, capable := s.capability()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.relayed = &relayed
	s.replaceResourceLocked(relayed)
	if !capable {
		s.state = Ready
		s.echoOnly = true
		s.status = StatusEchoOnly
		s.publishLocked()
		s.mu.Unlock()
		return
	}
	s.state = Preparing
	s.status = StatusPreparing
	s.publishLocked()
	s.mu.Unlock()

	h, err := s.acquire(ctx, relayed, userID)
	if err != nil {
		s.fail(gen, err, func() {
			s.status = fmt.Sprintf("Could not prepare share (%v). You can still Download.", err)
		})
		return
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if h.Valid(s.opts.Now()) {
		s.handle = &h
		s.state = Ready
		s.status = StatusReady
	} else {
		s.state = Failed
		s.status = StatusPreparedInvalid
	}
	s.publishLocked()
	s.mu.Unlock()
}

func (s *Sequencer) acquire(ctx context.Context, asset domain.Asset, userID string) (domain.Handle, error) {
	pctx, cancel := context.WithTimeout(ctx, s.opts.PrepareTimeout)
	defer cancel()
	return s.provider.Prepare(pctx, asset, userID)
}

// fail moves the current generation to Failed. Stale or cancelled
// completions are dropped.
func (s *Sequencer) fail(gen uint64, err error, apply func()) {
	s.mu.Lock()
	if gen != s.gen || domain.IsCancelled(err) {
		s.mu.Unlock()
		s.log.Debug("dropped superseded completion", slog.Uint64("generation", gen), slog.Any("error", err))
		return
	}
	s.state = Failed
	apply()
	s.publishLocked()
	s.mu.Unlock()

	s.log.Warn("share pipeline failed", slog.Uint64("generation", gen), slog.Any("error", err))
}

// capability reports the user to prepare for, or false in degraded mode.
func (s *Sequencer) capability() (string, bool) {
	if s.provider == nil || s.platform == nil || !s.platform.SupportsShareMessage() {
		return "", false
	}
	id, ok := s.platform.UserID()
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// OnShareInvoked runs the share action for the current relayed asset. With a
// valid cached handle the platform is called before this method returns.
func (s *Sequencer) OnShareInvoked() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	switch {
	case s.source == nil:
		s.setStatusLocked(StatusPickFirst)
		return
	case s.state == Failed:
		s.setStatusLocked(StatusShareDisabled)
		return
	case s.state != Ready || s.relayed == nil || s.busy:
		s.setStatusLocked(StatusNotReady)
		return
	case s.echoOnly:
		s.shareNativeLocked()
		return
	}

	gen := s.gen
	if s.handle.Valid(s.opts.Now()) {
		s.shareLocked(gen, s.handle.ID)
		return
	}

	userID, capable := s.capability()
	if !capable {
		s.setStatusLocked(StatusNoNativeShare)
		return
	}
	s.handle = nil
	s.busy = true
	s.status = StatusPreparing
	relayed := *s.relayed
	ctx := s.ctx
	s.wg.Add(1)
	s.publishLocked()
	s.mu.Unlock()

	go s.reacquire(ctx, gen, relayed, userID)
}

func (s *Sequencer) reacquire(ctx context.Context, gen uint64, relayed domain.Asset, userID string) {
	defer s.wg.Done()

	h, err := s.acquire(ctx, relayed, userID)

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return
	}
	s.busy = false
	switch {
	case err != nil:
		if domain.IsCancelled(err) {
			s.mu.Unlock()
			return
		}
		s.log.Warn("re-acquiring prepared message failed", slog.Any("error", err))
		s.setStatusLocked(fmt.Sprintf("Could not prepare share (%v). Try again or Download.", err))
	case !h.Valid(s.opts.Now()):
		s.setStatusLocked(StatusPreparedInvalid)
	default:
		s.handle = &h
		s.shareLocked(gen, h.ID)
	}
}

// shareLocked invokes the platform share action and unlocks.
func (s *Sequencer) shareLocked(gen uint64, id string) {
	ch := s.platform.ShareMessage(id)
	s.status = StatusOpening
	s.wg.Add(1)
	s.publishLocked()
	s.mu.Unlock()

	go s.awaitShare(gen, ch)
}

func (s *Sequencer) awaitShare(gen uint64, ch <-chan ShareResult) {
	defer s.wg.Done()

	var res ShareResult
	select {
	case r, ok := <-ch:
		if !ok {
			return
		}
		res = r
	case <-s.done:
		return
	}

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return
	}
	switch {
	case res.Delivered:
		s.setStatusLocked(StatusShared)
	case errors.Is(res.Err, domain.ErrHandleExpired):
		s.handle = nil
		s.setStatusLocked(StatusExpired)
	case res.Err != nil:
		s.setStatusLocked(fmt.Sprintf("Share failed: %v", res.Err))
	default:
		s.setStatusLocked(StatusShareDismissed)
	}
}

// shareNativeLocked runs the fallback share action and unlocks.
func (s *Sequencer) shareNativeLocked() {
	relayed := *s.relayed
	if s.opts.Native == nil || !s.opts.Native.CanShare(relayed) {
		s.setStatusLocked(StatusNoNativeShare)
		return
	}
	gen, ctx := s.gen, s.ctx
	s.busy = true
	s.status = StatusOpening
	s.wg.Add(1)
	s.publishLocked()
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		err := s.opts.Native.Share(ctx, relayed)

		s.mu.Lock()
		if gen != s.gen || s.closed {
			s.mu.Unlock()
			return
		}
		s.busy = false
		switch {
		case err == nil:
			s.setStatusLocked(StatusShared)
		case domain.IsCancelled(err):
			s.setStatusLocked(StatusShareDismissed)
		default:
			s.log.Warn("native share failed", slog.Any("error", err))
			s.setStatusLocked(fmt.Sprintf("Share failed: %v", err))
		}
	}()
}

// OnDownloadRequested returns the relayed asset when present, else the
// source, with the live resource holding it.
func (s *Sequencer) OnDownloadRequested() (Download, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Download{}, ErrClosed
	}
	if s.source == nil {
		return Download{}, ErrNothingSelected
	}
	d := Download{Asset: *s.source}
	if s.relayed != nil {
		d.Asset = *s.relayed
		d.Relayed = true
	}
	if s.resource == nil {
		s.replaceResourceLocked(d.Asset)
	}
	if s.resource == nil {
		return Download{}, fmt.Errorf("issue download resource for %q", d.Asset.Name)
	}
	d.Resource = *s.resource
	return d, nil
}

// HandleEvent applies one platform event.
func (s *Sequencer) HandleEvent(ev PlatformEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	switch ev.Kind {
	case EventShareMessageSent:
		s.setStatusLocked(StatusShared)
	case EventShareMessageFailed:
		if ev.Error == ErrorMessageExpired {
			s.handle = nil
			s.setStatusLocked(StatusExpired)
			return
		}
		s.setStatusLocked(fmt.Sprintf("Share failed: %s", ev.Error))
	default:
		s.mu.Unlock()
		s.log.Debug("ignored platform event", slog.String("kind", string(ev.Kind)))
	}
}

// Watch applies events until ctx is done or events is closed.
func (s *Sequencer) Watch(ctx context.Context, events <-chan PlatformEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.HandleEvent(ev)
		}
	}
}

// Snapshot returns a copy of the current state.
func (s *Sequencer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close cancels outstanding work, releases the live resource and waits for
// background goroutines and queued OnChange deliveries. Later calls are no-ops.
func (s *Sequencer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.gen++
	if s.cancel != nil {
		s.cancel()
	}
	close(s.done)
	var err error
	if s.resource != nil {
		err = s.resources.Release(*s.resource)
		s.resource = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
	if s.notifier != nil {
		s.notifier.close()
	}
	return err
}

// replaceResourceLocked issues a resource for asset and releases the previous one.
func (s *Sequencer) replaceResourceLocked(asset domain.Asset) {
	if s.resources == nil {
		return
	}
	prev := s.resource
	s.resource = nil
	r, err := s.resources.Issue(asset)
	if err != nil {
		s.log.Error("issue resource", slog.Any("error", err))
	} else {
		s.resource = &r
	}
	if prev != nil {
		if err := s.resources.Release(*prev); err != nil {
			s.log.Error("release resource", slog.Any("error", err))
		}
	}
}

// setStatusLocked updates the status, unlocks and notifies.
func (s *Sequencer) setStatusLocked(status string) {
	s.status = status
	s.publishLocked()
	s.mu.Unlock()
}

func (s *Sequencer) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      s.state,
		EchoOnly:   s.echoOnly,
		Status:     s.status,
		Generation: s.gen,
	}
	if s.source != nil {
		a := *s.source
		snap.Source = &a
	}
	if s.relayed != nil {
		a := *s.relayed
		snap.Relayed = &a
	}
	if s.handle != nil {
		h := *s.handle
		snap.Handle = &h
	}
	if s.resource != nil {
		r := *s.resource
		snap.Resource = &r
	}
	return snap
}

// publishLocked queues the current snapshot for OnChange.
func (s *Sequencer) publishLocked() {
	if s.notifier != nil {
		s.notifier.push(s.snapshotLocked())
	}
}
