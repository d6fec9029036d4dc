package endpoint

import (
	"errors"
	"io"

	"github.com/cterence/uartemu/internal/log"
)

const PUMP_BUFFER = 4096

// ChanSource turns a byte channel into a non-blocking source. The source is
// exhausted once the channel is closed and drained.
type ChanSource struct {
	ch      <-chan uint8
	pending uint8
	held    bool
	closed  bool
}

func NewChanSource(ch <-chan uint8) *ChanSource {
	return &ChanSource{ch: ch}
}

// NewPump starts a goroutine copying r into a channel-backed source. It is
// meant for readers that block, such as serial ports.
func NewPump(r io.Reader) *ChanSource {
	ch := make(chan uint8, PUMP_BUFFER)

	go func() {
		defer close(ch)

		buf := make([]uint8, 256)

		for {
			n, err := r.Read(buf)
			for _, b := range buf[:n] {
				ch <- b
			}

			if err != nil {
				if !errors.Is(err, io.EOF) {
					log.Debug("[endpoint] pump stopped: %v", err)
				}

				return
			}
		}
	}()

	return NewChanSource(ch)
}

func (s *ChanSource) Next() (uint8, bool) {
	if !s.Ready() {
		return 0, false
	}

	s.held = false

	return s.pending, true
}

func (s *ChanSource) Ready() bool {
	if s.held {
		return true
	}

	if s.closed {
		return false
	}

	select {
	case b, ok := <-s.ch:
		if !ok {
			s.closed = true
			return false
		}

		s.pending = b
		s.held = true

		return true
	default:
		return false
	}
}

func (s *ChanSource) Exhausted() bool {
	return s.closed && !s.held
}
