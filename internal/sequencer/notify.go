package sequencer

import "sync"

// notifier delivers snapshots to OnChange in the order they were taken, on
// one goroutine, dropping snapshots of selections that have since been
// superseded.
type notifier struct {
	fn   func(Snapshot)
	done chan struct{}

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Snapshot
	latest uint64 // newest selection generation
	last   uint64 // generation of the last delivered snapshot
	closed bool
}

func newNotifier(fn func(Snapshot)) *notifier {
	n := &notifier{fn: fn, done: make(chan struct{})}
	n.cond = sync.NewCond(&n.mu)
	go n.loop()
	return n
}

// supersede marks every generation below gen as stale.
func (n *notifier) supersede(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if gen > n.latest {
		n.latest = gen
	}
}

// push queues snap without blocking.
func (n *notifier) push(snap Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.queue = append(n.queue, snap)
	n.cond.Signal()
}

func (n *notifier) loop() {
	defer close(n.done)
	for {
		n.mu.Lock()
		for len(n.queue) == 0 && !n.closed {
			n.cond.Wait()
		}
		if len(n.queue) == 0 {
			n.mu.Unlock()
			return
		}
		snap := n.queue[0]
		n.queue = n.queue[1:]
		stale := snap.Generation < n.latest || snap.Generation < n.last
		if !stale {
			n.last = snap.Generation
		}
		n.mu.Unlock()

		if !stale {
			n.fn(snap)
		}
	}
}

// close delivers what is queued and stops the loop.
func (n *notifier) close() {
	n.mu.Lock()
	n.closed = true
	n.cond.Broadcast()
	n.mu.Unlock()
	<-n.done
}
