package commands

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/negroni/relay/internal/sequencer"
)

// terminalPlatform stands in for the Telegram WebApp when driving the
// sequencer from a shell. A prepared message can only be sent from inside
// the Mini App, so "sharing" prints the handle id for it to pick up.
type terminalPlatform struct {
	out    io.Writer
	userID int64

	mu sync.Mutex
}

func newTerminalPlatform(out io.Writer, userID int64) *terminalPlatform {
	return &terminalPlatform{out: out, userID: userID}
}

func (p *terminalPlatform) Ready()  {}
func (p *terminalPlatform) Expand() {}

func (p *terminalPlatform) SupportsShareMessage() bool { return p.userID != 0 }

func (p *terminalPlatform) UserID() (string, bool) {
	if p.userID == 0 {
		return "", false
	}
	return strconv.FormatInt(p.userID, 10), true
}

func (p *terminalPlatform) ShareMessage(id string) <-chan sequencer.ShareResult {
	p.mu.Lock()
	fmt.Fprintf(p.out, "prepared message %s for user %d\n", id, p.userID)
	p.mu.Unlock()

	ch := make(chan sequencer.ShareResult, 1)
	ch <- sequencer.ShareResult{Delivered: true}
	return ch
}
