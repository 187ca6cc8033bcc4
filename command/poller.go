package command

import (
	"bufio"
	"io"
	"time"
)

// Poller yields one pending key code per call, or -1 when no input is
// waiting. Implementations must not block for longer than a small bounded
// wait so end-of-stream and interrupts stay observable without user input.
type Poller interface {
	Poll() int
}

// NopPoller never reports input. Used when the run is non-interactive.
type NopPoller struct{}

func (NopPoller) Poll() int { return -1 }

// ReaderPoller drains a byte stream (normally stdin) on a background
// goroutine so Poll itself stays bounded by a short wait.
type ReaderPoller struct {
	keys chan byte
	wait time.Duration
}

// NewReaderPoller starts draining r. wait bounds how long each Poll may
// block; the pipeline default is one millisecond.
func NewReaderPoller(r io.Reader, wait time.Duration) *ReaderPoller {
	p := &ReaderPoller{
		keys: make(chan byte, 16),
		wait: wait,
	}
	go p.drain(r)
	return p
}

func (p *ReaderPoller) drain(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			close(p.keys)
			return
		}
		if b == '\n' || b == '\r' {
			continue
		}
		select {
		case p.keys <- b:
		default:
			// Input faster than the pipeline polls; drop it.
		}
	}
}

// Poll returns the next pending key, or -1 after the bounded wait.
func (p *ReaderPoller) Poll() int {
	select {
	case b, ok := <-p.keys:
		if !ok {
			return -1
		}
		return int(b)
	case <-time.After(p.wait):
		return -1
	}
}
