package sequencer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/negroni/relay/internal/domain"
)

type echoFunc func(ctx context.Context, src domain.Asset) (domain.Asset, error)

func (f echoFunc) Echo(ctx context.Context, src domain.Asset) (domain.Asset, error) {
	return f(ctx, src)
}

// identityRelay echoes the source immediately.
var identityRelay = echoFunc(func(_ context.Context, src domain.Asset) (domain.Asset, error) {
	return src, nil
})

type prepareFunc func(ctx context.Context, asset domain.Asset, userID string) (domain.Handle, error)

func (f prepareFunc) Prepare(ctx context.Context, asset domain.Asset, userID string) (domain.Handle, error) {
	return f(ctx, asset, userID)
}

// countingProvider returns "h-<name>-<n>" handles valid for five minutes.
type countingProvider struct {
	now func() time.Time

	mu    sync.Mutex
	calls int
	users []string
}

func (p *countingProvider) Prepare(_ context.Context, asset domain.Asset, userID string) (domain.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.users = append(p.users, userID)
	return domain.Handle{ID: fmt.Sprintf("h-%s-%d", asset.Name, p.calls), ExpiresAt: p.now().Add(300 * time.Second)}, nil
}

func (p *countingProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakePlatform struct {
	supports bool
	userID   string

	mu       sync.Mutex
	ready    int
	expanded int
	shared   []string
	result   ShareResult
}

func newPlatform() *fakePlatform {
	return &fakePlatform{supports: true, userID: "42", result: ShareResult{Delivered: true}}
}

func (p *fakePlatform) Ready() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready++
}

func (p *fakePlatform) Expand() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expanded++
}

func (p *fakePlatform) SupportsShareMessage() bool { return p.supports }

func (p *fakePlatform) UserID() (string, bool) { return p.userID, p.userID != "" }

func (p *fakePlatform) ShareMessage(id string) <-chan ShareResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shared = append(p.shared, id)
	ch := make(chan ShareResult, 1)
	ch <- p.result
	return ch
}

func (p *fakePlatform) sharedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.shared...)
}

func (p *fakePlatform) setResult(r ShareResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result = r
}

type fakeNative struct {
	can bool

	mu     sync.Mutex
	shared []domain.Asset
}

func (n *fakeNative) CanShare(domain.Asset) bool { return n.can }

func (n *fakeNative) Share(_ context.Context, asset domain.Asset) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shared = append(n.shared, asset)
	return nil
}

func (n *fakeNative) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.shared)
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Unix(1_700_000_000, 0)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recorder collects OnChange snapshots.
type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}
